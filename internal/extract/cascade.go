// Package extract routes a document through an ordered list of extraction
// strategies. Documents are frequently mislabeled — a scanned PDF has no
// embedded text layer, an image may arrive with a generic media type — so
// extraction is a best-effort cascade, not a strict dispatcher.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MIME families the cascade branches on. Anything else falls through the
// generic pdf-then-OCR order.
const (
	mimePDF     = "application/pdf"
	mimeXPDF    = "application/x-pdf"
	imagePrefix = "image/"
)

// Cascade holds the three strategies in their canonical roles. Extraction
// never fails: strategy errors are logged and swallowed, and an empty result
// after all strategies simply yields empty text.
type Cascade struct {
	pdfText  Strategy
	pdfOCR   Strategy
	imageOCR Strategy
}

func NewCascade(pdfText, pdfOCR, imageOCR Strategy) *Cascade {
	return &Cascade{pdfText: pdfText, pdfOCR: pdfOCR, imageOCR: imageOCR}
}

// Extract runs the strategies in the order implied by the declared media
// type and stops at the first non-empty trimmed result.
func (c *Cascade) Extract(ctx context.Context, in Input) Extraction {
	declared := NormalizeMIME(in.DeclaredMIME)

	sourceMIME := declared
	if sourceMIME == "" {
		sourceMIME = SniffMIME(in.Data)
	}

	for _, s := range c.order(declared) {
		text, err := s.Extract(ctx, in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "extract: %s: %s\n", s.Name(), truncate(err.Error(), 300))
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return Extraction{Text: text, MIMEType: sourceMIME, Strategy: s.Name()}
		}
	}

	return Extraction{MIMEType: sourceMIME}
}

// order builds the strategy list for a declared type:
//   - PDF family: text layer, then rendered-page OCR (scanned PDFs carry no
//     text layer), then image OCR in case the payload was a mislabeled image;
//   - image/*: image OCR only — an empty recognition result is the answer;
//   - absent or anything else: the generic PDF-then-OCR fallback.
func (c *Cascade) order(declared string) []Strategy {
	switch {
	case declared == mimePDF || declared == mimeXPDF:
		return []Strategy{c.pdfText, c.pdfOCR, c.imageOCR}
	case strings.HasPrefix(declared, imagePrefix):
		return []Strategy{c.imageOCR}
	default:
		return []Strategy{c.pdfText, c.pdfOCR, c.imageOCR}
	}
}

// NormalizeMIME lowercases a media type and strips any parameters
// ("Application/PDF; charset=x" → "application/pdf").
func NormalizeMIME(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.Index(mt, ";"); i > 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// SniffMIME detects the content type from the payload itself. It returns ""
// when the bytes are indistinct (octet-stream), so callers can tell "we
// know" from "we guessed nothing".
func SniffMIME(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	mt := mimetype.Detect(data).String()
	if i := strings.Index(mt, ";"); i > 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "application/octet-stream" {
		return ""
	}
	return mt
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
