package image

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/lumenworks/summarizer-service/internal/extract"
	"github.com/lumenworks/summarizer-service/internal/ocr"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalizePNG(t *testing.T) {
	t.Parallel()

	src := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(x * 30)})
		}
	}

	out, err := normalizePNG(encodePNG(t, src))
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not valid PNG: %v", err)
	}
	if _, ok := decoded.(*image.RGBA); !ok {
		t.Fatalf("normalized image is %T, want *image.RGBA", decoded)
	}
	if b := decoded.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("bounds = %v", b)
	}
}

func TestNormalizePNGAcceptsJPEG(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := normalizePNG(buf.Bytes()); err != nil {
		t.Fatalf("jpeg input rejected: %v", err)
	}
}

func TestNormalizePNGRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := normalizePNG([]byte("definitely not an image")); err == nil {
		t.Fatal("want error for undecodable payload")
	}
	if _, err := normalizePNG(nil); err == nil {
		t.Fatal("want error for empty payload")
	}
}

func TestExtractorRejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	e := New(ocr.Config{}, 4)
	_, err := e.Extract(context.Background(), extract.Input{Data: []byte("larger than four bytes")})
	if err == nil || !strings.Contains(err.Error(), "limit") {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractorName(t *testing.T) {
	t.Parallel()

	if got := New(ocr.Config{}, 0).Name(); got != "image/ocr" {
		t.Fatalf("Name = %q", got)
	}
}
