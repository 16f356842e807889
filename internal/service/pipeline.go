// Package service composes the extraction cascade and the extractive
// summarizer into the request-level pipeline: it owns the prompt semantics
// and the response shape, independent of HTTP framing.
package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/lumenworks/summarizer-service/internal/extract"
	"github.com/lumenworks/summarizer-service/internal/genai"
	"github.com/lumenworks/summarizer-service/internal/summarize"
)

// NoTextMessage is the explanatory message of the empty-text terminal state.
// Reaching it is a success, not a pipeline failure.
const NoTextMessage = "No text could be extracted from the file. If it's an image, ensure it contains printed text (OCR)."

// TextExtractor is the cascade seen by the pipeline.
type TextExtractor interface {
	Extract(ctx context.Context, in extract.Input) extract.Extraction
}

// Request is one decoded summarization request. MaxSentences <= 0 means
// "use the configured default".
type Request struct {
	Data         []byte
	DeclaredMIME string
	Prompt       string
	MaxSentences int
}

// Response mirrors the wire shape: a successful extraction carries Summary
// plus source metadata; the no-text outcome carries an empty Summary and a
// Message.
type Response struct {
	Summary          string `json:"summary"`
	Message          string `json:"message,omitempty"`
	SourceTextLength int    `json:"source_text_length,omitempty"`
	SourceMIMEType   string `json:"source_mime_type,omitempty"`
}

type Options struct {
	DefaultMaxSentences int
	SystemInstruction   string
}

type Pipeline struct {
	extractor TextExtractor
	external  genai.Provider // nil unless an external backend is configured
	opts      Options
}

func New(extractor TextExtractor, external genai.Provider, opts Options) *Pipeline {
	if opts.DefaultMaxSentences < 1 {
		opts.DefaultMaxSentences = 4
	}
	return &Pipeline{extractor: extractor, external: external, opts: opts}
}

// Summarize runs the pipeline. It never returns an error: extraction
// failures degrade to the no-text response, and an external-backend failure
// falls back to the deterministic extractive path.
func (p *Pipeline) Summarize(ctx context.Context, req Request) Response {
	maxSentences := req.MaxSentences
	if maxSentences < 1 {
		maxSentences = p.opts.DefaultMaxSentences
	}

	if p.external != nil {
		summary, err := p.external.Summarize(ctx, req.Data, req.DeclaredMIME, p.opts.SystemInstruction, req.Prompt)
		if err == nil && strings.TrimSpace(summary) != "" {
			return Response{
				Summary:        strings.TrimSpace(summary),
				SourceMIMEType: mimeOrUnknown(extract.NormalizeMIME(req.DeclaredMIME)),
			}
		}
		fmt.Fprintf(os.Stderr, "service: %s backend failed, falling back to extractive: %v\n", p.external.Name(), err)
	}

	extraction := p.extractor.Extract(ctx, extract.Input{
		Data:         req.Data,
		DeclaredMIME: req.DeclaredMIME,
	})

	text := strings.TrimSpace(extraction.Text)
	if text == "" {
		return Response{Summary: "", Message: NoTextMessage}
	}

	summary := summarize.SummarizeWithContext(req.Prompt, text, maxSentences)

	return Response{
		Summary:          summary,
		SourceTextLength: utf8.RuneCountInString(text),
		SourceMIMEType:   mimeOrUnknown(extraction.MIMEType),
	}
}

func mimeOrUnknown(mt string) string {
	if strings.TrimSpace(mt) == "" {
		return "unknown"
	}
	return mt
}
