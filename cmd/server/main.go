package main

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/lumenworks/summarizer-service/internal/config"
	"github.com/lumenworks/summarizer-service/internal/extract"
	imageextractor "github.com/lumenworks/summarizer-service/internal/extractors/image"
	pdfextractor "github.com/lumenworks/summarizer-service/internal/extractors/pdf"
	"github.com/lumenworks/summarizer-service/internal/genai"
	"github.com/lumenworks/summarizer-service/internal/ocr"
	"github.com/lumenworks/summarizer-service/internal/poppler"
	"github.com/lumenworks/summarizer-service/internal/service"
)

// summarizer is what the handlers need from the pipeline; tests swap in a
// stub.
type summarizer interface {
	Summarize(ctx context.Context, req service.Request) service.Response
}

var (
	cfg config.Config

	requestSem *semaphore.Weighted
	pipeline   summarizer

	// Per-IP rate limiters
	limiters = &sync.Map{}

	metrics = &serverMetrics{}
)

type serverMetrics struct {
	mu            sync.RWMutex
	totalRequests int64
	activeReqs    int64
}

func (m *serverMetrics) incActive() {
	m.mu.Lock()
	m.activeReqs++
	m.totalRequests++
	m.mu.Unlock()
}
func (m *serverMetrics) decActive() {
	m.mu.Lock()
	m.activeReqs--
	m.mu.Unlock()
}
func (m *serverMetrics) get() (total, active int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalRequests, m.activeReqs
}

func main() {
	_ = godotenv.Load()

	var err error
	cfg, err = config.LoadWithFile()
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	requestSem = semaphore.NewWeighted(cfg.MaxConcurrentRequests)
	ocr.SetConcurrencyLimit(cfg.MaxOCRConcurrent)

	popplerCfg := poppler.Config{
		PDFInfoTimeout: cfg.PDFInfoTimeout,
		RenderTimeout:  cfg.PDFRenderTimeout,
	}
	ocrCfg := ocr.Config{
		Binary:   cfg.TesseractBinary,
		Language: cfg.OCRLanguage,
		Timeout:  cfg.OCRTimeout,
	}

	cascade := extract.NewCascade(
		pdfextractor.NewTextLayer(cfg.MaxPDFBytes),
		pdfextractor.NewScanOCR(popplerCfg, ocrCfg, cfg.RenderDPI, cfg.MaxOCRPages, cfg.MaxPDFBytes),
		imageextractor.New(ocrCfg, cfg.MaxImageBytes),
	)

	var external genai.Provider
	if cfg.SummarizerBackend == "gemini" {
		external = genai.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiAPIURL, cfg.GeminiTimeout)
	}

	pipeline = service.New(cascade, external, service.Options{
		DefaultMaxSentences: cfg.DefaultMaxSentences,
		SystemInstruction:   cfg.SystemInstruction,
	})

	for _, bin := range []string{cfg.TesseractBinary, "pdftoppm", "pdfinfo"} {
		if _, err := exec.LookPath(bin); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s not found in PATH (OCR fallback will fail)\n", bin)
		}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/metrics", withInternalAuth(handleMetrics))

	mux.HandleFunc("/api/summarize",
		withRateLimit(
			withMethod("POST",
				withConcurrencyLimit(handleSummarize))))

	maxHeaderBytes := 1 << 20
	if cfg.MaxHeaderBytes > 0 {
		maxHeaderBytes = cfg.MaxHeaderBytes
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withLogging(withRecovery(withCORS(mux))),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	go cleanupRateLimiters()

	fmt.Printf("docsumm listening on %s (backend: %s, max concurrent: %d, OCR: %d)\n",
		srv.Addr, cfg.SummarizerBackend, cfg.MaxConcurrentRequests, cfg.MaxOCRConcurrent)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func cleanupRateLimiters() {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		total, active := metrics.get()
		fmt.Printf("[stats] active=%d total=%d goroutines=%d mem=%dMB\n",
			active, total, runtime.NumGoroutine(), m.Alloc/(1<<20))

		limiters = &sync.Map{}
	}
}

// ---------- Request payload ----------

// The summarize endpoint accepts the inline-data content shape: the document
// travels base64-encoded inside contents[].parts[].inlineData, an optional
// text part carries the user prompt.

type summarizeRequest struct {
	Contents []requestContent `json:"contents"`
	Options  map[string]any   `json:"options"`
}

type requestContent struct {
	Role  string        `json:"role"`
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	InlineData *inlineData `json:"inlineData"`
	Text       string      `json:"text"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// parseParts pulls the first inline document and the first text prompt out
// of the request. A request without inline file data is malformed.
func parseParts(req summarizeRequest) (data []byte, mimeType, prompt string, err error) {
	for _, content := range req.Contents {
		for _, part := range content.Parts {
			switch {
			case part.InlineData != nil && data == nil:
				if part.InlineData.Data == "" {
					continue
				}
				decoded, decErr := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if decErr != nil {
					return nil, "", "", fmt.Errorf("invalid base64 data")
				}
				data = decoded
				mimeType = part.InlineData.MIMEType
			case part.Text != "" && prompt == "":
				prompt = part.Text
			}
		}
	}
	if data == nil {
		return nil, "", "", fmt.Errorf("no inline file data found")
	}
	return data, mimeType, prompt, nil
}

// ---------- Handlers ----------

func handleHealth(w http.ResponseWriter, r *http.Request) {
	_, active := metrics.get()
	status := "healthy"
	code := http.StatusOK

	ratio := cfg.HealthDegradeRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.9
	}

	if active >= int64(float64(cfg.MaxConcurrentRequests)*ratio) {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"active":  active,
		"version": "1.0.0",
	})
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	total, active := metrics.get()

	writeJSON(w, http.StatusOK, map[string]any{
		"activeRequests": active,
		"totalRequests":  total,
		"goroutines":     runtime.NumGoroutine(),
		"memAllocMB":     m.Alloc / (1 << 20),
		"memSysMB":       m.Sys / (1 << 20),
	})
}

func handleSummarize(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[summarizeRequest](r, cfg.MaxJSONBodyBytes)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "Invalid JSON payload")
		return
	}

	if len(req.Contents) == 0 {
		writeErr(w, http.StatusBadRequest, "validation_failed", "Missing 'contents' array")
		return
	}

	data, mimeType, prompt, err := parseParts(req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "validation_failed", capitalize(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cfg.SummarizeTimeout)
	defer cancel()

	fmt.Printf("summarize: extracting text (mime=%s, %d bytes)\n",
		sanitizeLogString(mimeType), len(data))

	res := pipeline.Summarize(ctx, service.Request{
		Data:         data,
		DeclaredMIME: mimeType,
		Prompt:       prompt,
		MaxSentences: intOption(req.Options, "maxSentences", 0),
	})

	writeJSON(w, http.StatusOK, res)
}

// ---------- Middleware ----------

func withMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeErr(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method must be "+method)
			return
		}
		next(w, r)
	}
}

// withInternalAuth guards operator endpoints. With no secret configured the
// check is disabled (single-tenant deployments behind a private network).
func withInternalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shared := cfg.InternalSharedSecret
		if shared != "" {
			got := r.Header.Get("X-Internal-Auth")
			if subtle.ConstantTimeCompare([]byte(got), []byte(shared)) != 1 {
				writeErr(w, http.StatusUnauthorized, "unauthorized", "Invalid authentication")
				return
			}
		}
		next(w, r)
	}
}

func withConcurrencyLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requestSem.Acquire(r.Context(), 1); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "capacity", "Service at capacity")
			return
		}
		defer requestSem.Release(1)

		metrics.incActive()
		defer metrics.decActive()

		next(w, r)
	}
}

func withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		limiter := getRateLimiter(ip)

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			writeErr(w, http.StatusTooManyRequests, "rate_limit", "Rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				fmt.Fprintf(os.Stderr, "panic: %v\n", err)
				writeErr(w, http.StatusInternalServerError, "internal_error", "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := allowedOrigin(r.Header.Get("Origin"), cfg.AllowedOrigins); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Internal-Auth")
			if origin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowedOrigin(origin string, allowed []string) string {
	for _, a := range allowed {
		if a == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(a, origin) {
			return origin
		}
	}
	return ""
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrapWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		fmt.Printf("%s %s -> %d (%s)\n",
			r.Method, sanitizeLogString(r.URL.Path), ww.status, time.Since(start))
	})
}

type wrapWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrapWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// ---------- Helpers ----------

func getRateLimiter(ip string) *rate.Limiter {
	if v, ok := limiters.Load(ip); ok {
		return v.(*rate.Limiter)
	}

	every := cfg.RateLimitEvery
	if every <= 0 {
		every = 600 * time.Millisecond // ~100/min
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}

	limiter := rate.NewLimiter(rate.Every(every), burst)
	limiters.Store(ip, limiter)
	return limiter
}

func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.Index(ip, ","); idx > 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func sanitizeLogString(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func intOption(options map[string]any, key string, fallback int) int {
	if options == nil {
		return fallback
	}
	v, ok := options[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case float32:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return int(i)
		}
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err == nil {
			return i
		}
	}
	return fallback
}

func parseJSON[T any](r *http.Request, limit int64) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&out); err != nil {
		return out, err
	}

	// Ensure there's nothing else after the first JSON value
	if err := dec.Decode(new(any)); err != io.EOF {
		if err == nil {
			return out, fmt.Errorf("unexpected trailing data")
		}
		return out, err
	}

	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
