// Package poppler wraps the poppler-utils binaries used by the scanned-PDF
// path: pdfinfo for page counts and pdftoppm for rendering pages to raster
// images that can be fed to OCR.
package poppler

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	PDFInfoTimeout time.Duration
	RenderTimeout  time.Duration
}

// Sensible defaults if you pass zeros.
func (c Config) withDefaults() Config {
	out := c
	if out.PDFInfoTimeout <= 0 {
		out.PDFInfoTimeout = 5 * time.Second
	}
	if out.RenderTimeout <= 0 {
		out.RenderTimeout = 20 * time.Second
	}
	return out
}

type PDFInfo struct {
	Pages     int
	Encrypted bool
	Raw       string // full pdfinfo stdout (for debugging if needed)
}

var (
	pageCountRegex = regexp.MustCompile(`(?m)^Pages:\s+(\d+)\s*$`)
	// pdfinfo may append permission detail after "yes", e.g.
	// "Encrypted: yes (print:no copy:no)".
	encryptedRegex = regexp.MustCompile(`(?mi)^Encrypted:\s+yes\b`)
)

// Info runs pdfinfo once and extracts page count + encryption flag.
func Info(ctx context.Context, pdfPath string, cfg Config) (PDFInfo, error) {
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.PDFInfoTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pdfinfo", pdfPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return PDFInfo{}, classifyPopplerErr("pdfinfo", err, ctx, stderr.String())
	}

	out := stdout.String()

	pages, err := parsePages(out)
	if err != nil {
		return PDFInfo{}, err
	}

	return PDFInfo{
		Pages:     pages,
		Encrypted: encryptedRegex.MatchString(out),
		Raw:       out,
	}, nil
}

// RenderPage rasterizes one page to PNG via pdftoppm, writing to stdout so
// no intermediate file is needed. Output is capped to avoid OOM on
// pathological documents.
func RenderPage(ctx context.Context, pdfPath string, page, dpi int, cfg Config) ([]byte, error) {
	cfg = cfg.withDefaults()

	if page < 1 {
		return nil, fmt.Errorf("invalid page number: %d (must be >= 1)", page)
	}
	if dpi <= 0 {
		dpi = 150
	}

	// Cap rendered output to 30 MiB per page
	const maxPageBytes = 30<<20 + 1

	ctx, cancel := context.WithTimeout(ctx, cfg.RenderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx,
		"pdftoppm",
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		pdfPath,
	)

	img, stderrStr, err := runCommandCaptureLimited(cmd, maxPageBytes)
	if err != nil {
		return nil, classifyRenderErr(err, ctx, stderrStr, page)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no output for page %d", page)
	}
	return img, nil
}

// --- internals ---

func parsePages(pdfinfoOut string) (int, error) {
	matches := pageCountRegex.FindStringSubmatch(pdfinfoOut)
	if len(matches) == 2 {
		n, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, fmt.Errorf("pdfinfo: invalid page count: %w", err)
		}
		return validatePages(n)
	}

	// Fallback: scan lines to handle formatting variations across poppler builds
	sc := bufio.NewScanner(strings.NewReader(pdfinfoOut))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(strings.ToLower(line), "pages:") {
			rest := strings.TrimSpace(line[len("Pages:"):])
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				continue
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return 0, fmt.Errorf("pdfinfo: invalid page count: %w", err)
			}
			return validatePages(n)
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("pdfinfo: scan failed: %w", err)
	}

	return 0, fmt.Errorf("pdfinfo: pages field not found in output")
}

func validatePages(count int) (int, error) {
	if count <= 0 || count > 50000 {
		return 0, fmt.Errorf("pdfinfo: unreasonable page count: %d", count)
	}
	return count, nil
}

// runCommandCaptureLimited runs cmd and captures stdout up to maxBytes
// (inclusive of sentinel). Stderr is captured fully for error reporting.
func runCommandCaptureLimited(cmd *exec.Cmd, maxBytes int64) (stdout []byte, stderrText string, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", fmt.Errorf("stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("start: %w", err)
	}

	lr := io.LimitReader(stdoutPipe, maxBytes)
	outBytes, readErr := io.ReadAll(lr)

	waitErr := cmd.Wait()
	stderrStr := strings.TrimSpace(stderr.String())

	if readErr != nil {
		_ = cmd.Process.Kill()
		return nil, stderrStr, fmt.Errorf("read stdout: %w", readErr)
	}

	if int64(len(outBytes)) >= maxBytes {
		return nil, stderrStr, fmt.Errorf("output exceeds limit")
	}

	if waitErr != nil {
		return nil, stderrStr, waitErr
	}

	return outBytes, stderrStr, nil
}

// isHelpOrUsageOutput returns true when stderr looks like a poppler
// usage / help dump rather than an actual processing error.
func isHelpOrUsageOutput(stderr string) bool {
	return strings.Contains(stderr, "version ") && strings.Contains(stderr, "Usage:")
}

func classifyPopplerErr(tool string, err error, ctx context.Context, stderr string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s timeout: %w", tool, ctx.Err())
	}
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		if isHelpOrUsageOutput(stderr) {
			logPopplerErr(tool, stderr, 0)
			return fmt.Errorf("%s failed (bad invocation): %s", tool, truncate(stderr, 200))
		}

		if containsAny(stderr,
			"Incorrect password",
			"Command Line Error: Incorrect password",
		) {
			logPopplerErr(tool, stderr, 0)
			return fmt.Errorf("PDF is password protected")
		}
		if containsAny(stderr,
			"PDF file is damaged",
			"Syntax Error",
			"Couldn't find trailer dictionary",
			"May not be a PDF file",
		) {
			logPopplerErr(tool, stderr, 0)
			return fmt.Errorf("PDF appears to be damaged or invalid")
		}
		return fmt.Errorf("%s failed: %s", tool, stderr)
	}
	return fmt.Errorf("%s failed: %w", tool, err)
}

func classifyRenderErr(err error, ctx context.Context, stderr string, page int) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("pdftoppm timeout on page %d", page)
	}

	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		if isHelpOrUsageOutput(stderr) {
			logPopplerErr("pdftoppm", stderr, page)
			return fmt.Errorf("pdftoppm page %d failed (bad invocation)", page)
		}
		if containsAny(stderr, "Incorrect password", "Command Line Error: Incorrect password") {
			logPopplerErr("pdftoppm", stderr, page)
			return fmt.Errorf("PDF is password protected")
		}
		if containsAny(stderr, "PDF file is damaged", "Syntax Error", "Couldn't find trailer dictionary", "May not be a PDF file") {
			logPopplerErr("pdftoppm", stderr, page)
			return fmt.Errorf("PDF file is damaged or corrupted")
		}
		return fmt.Errorf("pdftoppm page %d failed: %s", page, stderr)
	}

	if err != nil && strings.Contains(err.Error(), "output exceeds limit") {
		return fmt.Errorf("rendered page %d too large", page)
	}

	return fmt.Errorf("pdftoppm page %d failed: %w", page, err)
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func logPopplerErr(tool, stderr string, page int) {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		return
	}
	msg = truncate(msg, 500)
	if page > 0 {
		fmt.Fprintf(os.Stderr, "%s error (page %d): %s\n", tool, page, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "%s error: %s\n", tool, msg)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
