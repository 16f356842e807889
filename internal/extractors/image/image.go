// Package image provides the raster-image OCR strategy: decode, normalize
// to a standard color representation, recognize.
package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	// Register the decoders for the image types the strategy accepts.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/lumenworks/summarizer-service/internal/extract"
	"github.com/lumenworks/summarizer-service/internal/ocr"
)

// Refuse to decode anything above this many pixels (decompression bombs).
const maxPixels = 50 << 20

type Extractor struct {
	ocrCfg   ocr.Config
	maxBytes int64
}

func New(ocrCfg ocr.Config, maxBytes int64) *Extractor {
	return &Extractor{ocrCfg: ocrCfg, maxBytes: maxBytes}
}

func (e *Extractor) Name() string { return "image/ocr" }

func (e *Extractor) Extract(ctx context.Context, in extract.Input) (string, error) {
	if e.maxBytes > 0 && int64(len(in.Data)) > e.maxBytes {
		return "", fmt.Errorf("image exceeds %dMB limit", e.maxBytes/(1<<20))
	}

	normalized, err := normalizePNG(in.Data)
	if err != nil {
		return "", err
	}

	return ocr.Run(ctx, normalized, e.ocrCfg)
}

// normalizePNG decodes the payload as a raster image, flattens it onto an
// RGBA canvas (palette, grayscale and CMYK inputs all end up in one color
// representation the OCR engine accepts) and re-encodes it as PNG.
func normalizePNG(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	rgba := image.NewRGBA(src.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
