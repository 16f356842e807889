package summarize

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"github.com/rivo/uniseg"
)

// The sentence tokenizer carries a trained English boundary model. It is
// loaded exactly once for the process lifetime and is read-only afterwards,
// so concurrent requests can share it without locking.
var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
	tokenizerErr  error
)

func sentenceTokenizer() (*sentences.DefaultSentenceTokenizer, error) {
	tokenizerOnce.Do(func() {
		tokenizer, tokenizerErr = english.NewSentenceTokenizer(nil)
	})
	return tokenizer, tokenizerErr
}

// SplitSentences segments text into trimmed, non-empty sentences in document
// order. If the boundary model cannot be loaded the whole text is treated as
// a single sentence; segmentation never fails.
func SplitSentences(text string) []string {
	tok, err := sentenceTokenizer()
	if err != nil {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var out []string
	for _, s := range tok.Tokenize(text) {
		t := strings.TrimSpace(s.Text)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// wordTokens splits text on Unicode word boundaries (UAX #29), dropping
// whitespace-only segments. Punctuation survives as its own token and is
// discarded later by normalization.
func wordTokens(text string) []string {
	var toks []string
	state := -1
	var tok string
	for len(text) > 0 {
		tok, text, state = uniseg.FirstWordInString(text, state)
		if strings.TrimSpace(tok) == "" {
			continue
		}
		toks = append(toks, tok)
	}
	return toks
}

// contentTokens returns the normalized content words of text: word tokens
// whose normalization is non-empty and not a stopword.
func contentTokens(text string) []string {
	var out []string
	for _, tok := range wordTokens(text) {
		nw := Normalize(tok)
		if nw == "" {
			continue
		}
		if _, stop := stopwordSet[nw]; stop {
			continue
		}
		out = append(out, nw)
	}
	return out
}
