// Package pdf provides the two PDF extraction strategies: structural
// text-layer extraction and rendered-page OCR for scanned documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/lumenworks/summarizer-service/internal/extract"
	"github.com/lumenworks/summarizer-service/internal/ocr"
	"github.com/lumenworks/summarizer-service/internal/poppler"
)

// pdfMagic is the required file header; both strategies use it to bail out
// cheaply on payloads that cannot be PDFs.
const pdfMagic = "%PDF-"

func looksLikePDF(data []byte) bool {
	return len(data) >= len(pdfMagic) && string(data[:len(pdfMagic)]) == pdfMagic
}

// TextLayer extracts the embedded text layer page by page. It is pure Go
// and never touches disk.
type TextLayer struct {
	maxBytes int64
}

func NewTextLayer(maxBytes int64) *TextLayer {
	return &TextLayer{maxBytes: maxBytes}
}

func (e *TextLayer) Name() string { return "pdf/text-layer" }

func (e *TextLayer) Extract(ctx context.Context, in extract.Input) (string, error) {
	if e.maxBytes > 0 && int64(len(in.Data)) > e.maxBytes {
		return "", fmt.Errorf("document exceeds %dMB limit", e.maxBytes/(1<<20))
	}
	if !looksLikePDF(in.Data) {
		return "", fmt.Errorf("not a PDF payload")
	}

	reader, err := openReader(in.Data)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			// A single page's failure must not abort the remaining pages.
			fmt.Fprintf(os.Stderr, "pdf: page %d text extraction failed: %v\n", i, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}

	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// openReader isolates NewReader, which panics on some malformed xref tables.
func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed document: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageText isolates GetPlainText, which panics on some malformed content
// streams.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

// ScanOCR handles PDFs with no usable text layer: each page is rasterized
// with poppler and run through OCR. Page failures are isolated the same way
// as in the text-layer strategy.
type ScanOCR struct {
	popplerCfg poppler.Config
	ocrCfg     ocr.Config
	dpi        int
	maxPages   int
	maxBytes   int64
}

func NewScanOCR(popplerCfg poppler.Config, ocrCfg ocr.Config, dpi, maxPages int, maxBytes int64) *ScanOCR {
	if dpi <= 0 {
		dpi = 150
	}
	if maxPages <= 0 {
		maxPages = 20
	}
	return &ScanOCR{
		popplerCfg: popplerCfg,
		ocrCfg:     ocrCfg,
		dpi:        dpi,
		maxPages:   maxPages,
		maxBytes:   maxBytes,
	}
}

func (e *ScanOCR) Name() string { return "pdf/scan-ocr" }

func (e *ScanOCR) Extract(ctx context.Context, in extract.Input) (string, error) {
	if e.maxBytes > 0 && int64(len(in.Data)) > e.maxBytes {
		return "", fmt.Errorf("document exceeds %dMB limit", e.maxBytes/(1<<20))
	}
	if !looksLikePDF(in.Data) {
		return "", fmt.Errorf("not a PDF payload")
	}

	tmp, err := extract.WriteTemp(in.Data, "input.pdf")
	if err != nil {
		return "", err
	}
	defer tmp.Cleanup()

	info, err := poppler.Info(ctx, tmp.Path, e.popplerCfg)
	if err != nil {
		return "", err
	}
	if info.Encrypted {
		return "", fmt.Errorf("PDF is password protected")
	}

	pages := info.Pages
	if pages > e.maxPages {
		pages = e.maxPages
	}

	var texts []string
	for p := 1; p <= pages; p++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		img, err := poppler.RenderPage(ctx, tmp.Path, p, e.dpi, e.popplerCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pdf: render page %d failed: %v\n", p, err)
			continue
		}
		text, err := ocr.Run(ctx, img, e.ocrCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pdf: OCR page %d failed: %v\n", p, err)
			continue
		}
		if text != "" {
			texts = append(texts, text)
		}
	}

	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}
