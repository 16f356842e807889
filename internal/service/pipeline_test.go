package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/lumenworks/summarizer-service/internal/extract"
)

type stubExtractor struct {
	out extract.Extraction
}

func (s stubExtractor) Extract(ctx context.Context, in extract.Input) extract.Extraction {
	return s.out
}

type stubProvider struct {
	text string
	err  error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Summarize(ctx context.Context, doc []byte, mimeType, systemInstruction, prompt string) (string, error) {
	return s.text, s.err
}

const longDoc = "Cats are mammals. Dogs are mammals too. The sky is blue. Water boils at 100 degrees."

func TestPipelineSummarizesExtractedText(t *testing.T) {
	t.Parallel()

	p := New(stubExtractor{out: extract.Extraction{
		Text:     longDoc,
		MIMEType: "application/pdf",
		Strategy: "pdf/text-layer",
	}}, nil, Options{DefaultMaxSentences: 2})

	resp := p.Summarize(context.Background(), Request{Data: []byte("doc")})

	if resp.Summary != "Cats are mammals.\n\nDogs are mammals too." {
		t.Fatalf("Summary = %q", resp.Summary)
	}
	if resp.Message != "" {
		t.Fatalf("Message = %q, want empty on success", resp.Message)
	}
	if resp.SourceTextLength != len([]rune(longDoc)) {
		t.Fatalf("SourceTextLength = %d, want %d", resp.SourceTextLength, len([]rune(longDoc)))
	}
	if resp.SourceMIMEType != "application/pdf" {
		t.Fatalf("SourceMIMEType = %q", resp.SourceMIMEType)
	}
}

func TestPipelineNoTextOutcome(t *testing.T) {
	t.Parallel()

	p := New(stubExtractor{out: extract.Extraction{MIMEType: "image/png"}}, nil, Options{})

	resp := p.Summarize(context.Background(), Request{Data: []byte("img"), DeclaredMIME: "image/png"})

	if resp.Summary != "" {
		t.Fatalf("Summary = %q, want empty", resp.Summary)
	}
	if resp.Message != NoTextMessage {
		t.Fatalf("Message = %q", resp.Message)
	}

	// The no-text response must serialize without the source metadata keys.
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	if _, ok := fields["source_text_length"]; ok {
		t.Fatalf("source_text_length present in no-text response: %s", raw)
	}
	if _, ok := fields["source_mime_type"]; ok {
		t.Fatalf("source_mime_type present in no-text response: %s", raw)
	}
	if _, ok := fields["summary"]; !ok {
		t.Fatalf("summary key missing: %s", raw)
	}
}

func TestPipelineWhitespaceOnlyExtractionIsNoText(t *testing.T) {
	t.Parallel()

	p := New(stubExtractor{out: extract.Extraction{Text: "  \n\t  ", MIMEType: "application/pdf"}}, nil, Options{})

	resp := p.Summarize(context.Background(), Request{Data: []byte("doc")})
	if resp.Message != NoTextMessage {
		t.Fatalf("Message = %q, want no-text message", resp.Message)
	}
}

func TestPipelineUnknownMIMEFallback(t *testing.T) {
	t.Parallel()

	p := New(stubExtractor{out: extract.Extraction{Text: "Short doc."}}, nil, Options{})

	resp := p.Summarize(context.Background(), Request{Data: []byte("doc")})
	if resp.SourceMIMEType != "unknown" {
		t.Fatalf("SourceMIMEType = %q, want unknown", resp.SourceMIMEType)
	}
	if resp.Summary != "Short doc." {
		t.Fatalf("Summary = %q, want short passthrough", resp.Summary)
	}
}

func TestPipelineMaxSentencesOverridesDefault(t *testing.T) {
	t.Parallel()

	p := New(stubExtractor{out: extract.Extraction{Text: longDoc, MIMEType: "application/pdf"}}, nil, Options{DefaultMaxSentences: 4})

	resp := p.Summarize(context.Background(), Request{Data: []byte("doc"), MaxSentences: 1})
	if n := len(strings.Split(resp.Summary, "\n\n")); n != 1 {
		t.Fatalf("got %d sentences, want 1: %q", n, resp.Summary)
	}
}

func TestPipelinePromptInfluencesSelection(t *testing.T) {
	t.Parallel()

	p := New(stubExtractor{out: extract.Extraction{Text: longDoc, MIMEType: "application/pdf"}}, nil, Options{})

	resp := p.Summarize(context.Background(), Request{
		Data:         []byte("doc"),
		Prompt:       "sky weather sky sky",
		MaxSentences: 2,
	})
	if !strings.Contains(resp.Summary, "The sky is blue.") {
		t.Fatalf("prompt did not steer selection: %q", resp.Summary)
	}
	if strings.Contains(resp.Summary, "weather") {
		t.Fatalf("prompt text leaked into summary: %q", resp.Summary)
	}
}

func TestPipelineExternalBackendSuccess(t *testing.T) {
	t.Parallel()

	p := New(
		stubExtractor{out: extract.Extraction{Text: longDoc, MIMEType: "application/pdf"}},
		stubProvider{text: "  An external summary.  "},
		Options{},
	)

	resp := p.Summarize(context.Background(), Request{Data: []byte("doc"), DeclaredMIME: "application/pdf"})
	if resp.Summary != "An external summary." {
		t.Fatalf("Summary = %q", resp.Summary)
	}
	if resp.SourceMIMEType != "application/pdf" {
		t.Fatalf("SourceMIMEType = %q", resp.SourceMIMEType)
	}
}

func TestPipelineExternalBackendFailureFallsBack(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		provider stubProvider
	}{
		{"error", stubProvider{err: errors.New("quota exceeded")}},
		{"blank summary", stubProvider{text: "   "}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := New(
				stubExtractor{out: extract.Extraction{Text: longDoc, MIMEType: "application/pdf"}},
				c.provider,
				Options{DefaultMaxSentences: 2},
			)

			resp := p.Summarize(context.Background(), Request{Data: []byte("doc")})
			if resp.Summary != "Cats are mammals.\n\nDogs are mammals too." {
				t.Fatalf("fallback Summary = %q", resp.Summary)
			}
			if resp.SourceTextLength == 0 {
				t.Fatalf("fallback lost source metadata: %+v", resp)
			}
		})
	}
}
