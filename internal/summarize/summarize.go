// Package summarize implements a deterministic frequency-based extractive
// summarizer: sentences are scored against a document-wide word-frequency
// model and the highest-scoring ones are returned verbatim in their original
// order.
package summarize

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Inputs shorter than this (after trimming) are returned unchanged rather
// than reduced to a degenerate single-sentence summary.
const minSummarizableRunes = 50

// sentenceSeparator joins selected sentences in the output.
const sentenceSeparator = "\n\n"

// Summarize returns at most maxSentences sentences of text, joined by a
// blank line, in their original document order. It is pure: identical input
// yields identical output, and no input produces an error.
func Summarize(text string, maxSentences int) string {
	return SummarizeWithContext("", text, maxSentences)
}

// SummarizeWithContext behaves like Summarize but lets contextText (for
// example a user prompt) contribute tokens to the frequency model. Context
// sentences are never eligible for selection, and the short-circuit policies
// consider the document text alone, so a long prompt cannot mask an
// unsummarizable document.
func SummarizeWithContext(contextText, text string, maxSentences int) string {
	if maxSentences < 1 {
		maxSentences = 1
	}

	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minSummarizableRunes {
		return trimmed
	}

	sents := SplitSentences(text)
	if len(sents) <= maxSentences {
		return strings.Join(sents, sentenceSeparator)
	}

	corpus := text
	if strings.TrimSpace(contextText) != "" {
		corpus = contextText + "\n\n" + text
	}

	freq := BuildFrequencyModel(corpus)
	if len(freq) == 0 {
		// Nothing scorable (all stopwords or symbols): keep the opening
		// sentences so the fallback stays deterministic.
		return strings.Join(sents[:maxSentences], sentenceSeparator)
	}

	scores := ScoreSentences(sents, freq)

	idxs := make([]int, len(sents))
	for i := range idxs {
		idxs[i] = i
	}
	// Stable sort on descending score: equal-score sentences keep ascending
	// index order, so ties prefer the earlier sentence.
	sort.SliceStable(idxs, func(a, b int) bool {
		return scores[idxs[a]] > scores[idxs[b]]
	})

	top := idxs[:maxSentences]
	sort.Ints(top)

	selected := make([]string, len(top))
	for i, idx := range top {
		selected[i] = sents[idx]
	}
	return strings.Join(selected, sentenceSeparator)
}
