// Package ocr runs optical character recognition over raster images by
// shelling out to the tesseract binary. The engine is treated as a black
// box: image bytes in, recognized text out.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

type Config struct {
	Binary   string        // tesseract executable, default "tesseract"
	Language string        // traineddata language, default "eng"
	Timeout  time.Duration // per-invocation timeout, default 30s
}

func (c Config) withDefaults() Config {
	out := c
	if strings.TrimSpace(out.Binary) == "" {
		out.Binary = "tesseract"
	}
	if strings.TrimSpace(out.Language) == "" {
		out.Language = "eng"
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	return out
}

// Recognized text larger than this is almost certainly garbage output.
const maxOCRTextBytes = 10<<20 + 1

// Run feeds image bytes to tesseract over stdin and returns the trimmed
// recognized text. An image with no legible characters yields "" and no
// error.
func Run(ctx context.Context, image []byte, cfg Config) (string, error) {
	cfg = cfg.withDefaults()

	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	return withConcurrencyLimit(ctx, func() (string, error) {
		runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		cmd := exec.CommandContext(runCtx,
			cfg.Binary,
			"stdin", "stdout",
			"-l", cfg.Language,
			"--psm", "3",
		)
		cmd.Stdin = bytes.NewReader(image)

		stdoutPipe, err := cmd.StdoutPipe()
		if err != nil {
			return "", fmt.Errorf("stdout pipe: %w", err)
		}
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Start(); err != nil {
			return "", fmt.Errorf("start %s: %w", cfg.Binary, err)
		}

		out, readErr := io.ReadAll(io.LimitReader(stdoutPipe, maxOCRTextBytes))
		waitErr := cmd.Wait()

		if readErr != nil {
			_ = cmd.Process.Kill()
			return "", fmt.Errorf("read stdout: %w", readErr)
		}
		if int64(len(out)) >= maxOCRTextBytes {
			return "", fmt.Errorf("recognized text too large")
		}
		if waitErr != nil {
			return "", classifyTesseractErr(waitErr, runCtx, stderr.String())
		}

		return strings.TrimSpace(string(out)), nil
	})
}

func classifyTesseractErr(err error, ctx context.Context, stderr string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("tesseract timeout: %w", ctx.Err())
	}

	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		if containsAny(stderr,
			"Error in pixReadMem",
			"Unsupported image type",
			"Image file not found",
		) {
			return fmt.Errorf("image could not be decoded by OCR engine")
		}
		if containsAny(stderr,
			"Error opening data file",
			"Failed loading language",
			"tessdata",
		) {
			return fmt.Errorf("OCR language data not installed: %s", truncate(stderr, 200))
		}
		return fmt.Errorf("tesseract failed: %s", truncate(stderr, 300))
	}
	return fmt.Errorf("tesseract failed: %w", err)
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
