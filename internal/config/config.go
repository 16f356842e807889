package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port           string
	AllowedOrigins []string

	// Secrets
	InternalSharedSecret string
	GeminiAPIKey         string

	// Limits
	MaxJSONBodyBytes int64
	MaxPDFBytes      int64
	MaxImageBytes    int64

	// Summarizer
	DefaultMaxSentences int
	SummarizerBackend   string // "extractive" or "gemini"
	SystemInstruction   string

	// Concurrency
	MaxConcurrentRequests int64
	MaxOCRConcurrent      int64

	// Server timeouts
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// Request timeouts
	SummarizeTimeout time.Duration

	// Poppler / OCR
	PDFInfoTimeout   time.Duration
	PDFRenderTimeout time.Duration
	OCRTimeout       time.Duration
	TesseractBinary  string
	OCRLanguage      string
	RenderDPI        int
	MaxOCRPages      int

	// Gemini backend
	GeminiModel   string
	GeminiAPIURL  string
	GeminiTimeout time.Duration

	// rate limiting (per IP)
	RateLimitEvery time.Duration
	RateLimitBurst int

	// housekeeping
	CleanupInterval time.Duration

	// health
	HealthDegradeRatio float64

	// http
	MaxHeaderBytes int
}

func Load() Config {
	return Config{
		Port:           envStr("PORT", "5200"),
		AllowedOrigins: envList("ALLOWED_ORIGINS", []string{"*"}),

		InternalSharedSecret: envStr("INTERNAL_SHARED_SECRET", ""),
		GeminiAPIKey:         envStr("GEMINI_API_KEY", ""),

		MaxJSONBodyBytes: int64(envInt("MAX_JSON_BODY_BYTES", 32<<20)),
		MaxPDFBytes:      int64(envInt("MAX_PDF_BYTES", int(20<<20))),
		MaxImageBytes:    int64(envInt("MAX_IMAGE_BYTES", int(20<<20))),

		DefaultMaxSentences: envInt("DEFAULT_MAX_SENTENCES", 4),
		SummarizerBackend:   envStr("SUMMARIZER_BACKEND", "extractive"),
		SystemInstruction:   envStr("SYSTEM_INSTRUCTION", "You are a precise assistant that summarizes documents."),

		MaxConcurrentRequests: int64(envInt("MAX_CONCURRENT_REQUESTS", 15)),
		MaxOCRConcurrent:      int64(envInt("MAX_OCR_CONCURRENT", 3)),

		ReadHeaderTimeout: envDur("READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:       envDur("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:      envDur("WRITE_TIMEOUT", 180*time.Second),
		IdleTimeout:       envDur("IDLE_TIMEOUT", 60*time.Second),

		SummarizeTimeout: envDur("SUMMARIZE_TIMEOUT", 120*time.Second),

		PDFInfoTimeout:   envDur("PDFINFO_TIMEOUT", 5*time.Second),
		PDFRenderTimeout: envDur("PDF_RENDER_TIMEOUT", 20*time.Second),
		OCRTimeout:       envDur("OCR_TIMEOUT", 30*time.Second),
		TesseractBinary:  envStr("TESSERACT_CMD", "tesseract"),
		OCRLanguage:      envStr("OCR_LANGUAGE", "eng"),
		RenderDPI:        envInt("RENDER_DPI", 150),
		MaxOCRPages:      envInt("MAX_OCR_PAGES", 20),

		GeminiModel:   envStr("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiAPIURL:  envStr("GEMINI_API_URL", ""),
		GeminiTimeout: envDur("GEMINI_TIMEOUT", 30*time.Second),

		RateLimitEvery: envDur("RATE_LIMIT_EVERY", 600*time.Millisecond),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 20),

		CleanupInterval: envDur("CLEANUP_INTERVAL", 5*time.Minute),

		HealthDegradeRatio: envFloat("HEALTH_DEGRADE_RATIO", 0.9),

		MaxHeaderBytes: envInt("MAX_HEADER_BYTES", 1<<20),
	}
}

// LoadWithFile loads the env-driven config and, when CONFIG_FILE points at a
// YAML file, overlays the file's values on top. Env vars provide the base;
// the file wins where it sets a field.
func LoadWithFile() (Config, error) {
	cfg := Load()

	path := envStr("CONFIG_FILE", "")
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config file: %w", err)
	}
	if err := applyFile(&cfg, data); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// fileOverrides is the YAML config-file schema. Pointer fields distinguish
// "unset" from zero values.
type fileOverrides struct {
	Port                *string  `yaml:"port"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
	DefaultMaxSentences *int     `yaml:"default_max_sentences"`
	SummarizerBackend   *string  `yaml:"summarizer_backend"`
	SystemInstruction   *string  `yaml:"system_instruction"`
	TesseractBinary     *string  `yaml:"tesseract_binary"`
	OCRLanguage         *string  `yaml:"ocr_language"`
	RenderDPI           *int     `yaml:"render_dpi"`
	MaxOCRPages         *int     `yaml:"max_ocr_pages"`
	GeminiModel         *string  `yaml:"gemini_model"`
}

func applyFile(cfg *Config, data []byte) error {
	var f fileOverrides
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}

	if f.Port != nil {
		cfg.Port = *f.Port
	}
	if len(f.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.AllowedOrigins
	}
	if f.DefaultMaxSentences != nil && *f.DefaultMaxSentences > 0 {
		cfg.DefaultMaxSentences = *f.DefaultMaxSentences
	}
	if f.SummarizerBackend != nil {
		cfg.SummarizerBackend = *f.SummarizerBackend
	}
	if f.SystemInstruction != nil {
		cfg.SystemInstruction = *f.SystemInstruction
	}
	if f.TesseractBinary != nil {
		cfg.TesseractBinary = *f.TesseractBinary
	}
	if f.OCRLanguage != nil {
		cfg.OCRLanguage = *f.OCRLanguage
	}
	if f.RenderDPI != nil && *f.RenderDPI > 0 {
		cfg.RenderDPI = *f.RenderDPI
	}
	if f.MaxOCRPages != nil && *f.MaxOCRPages > 0 {
		cfg.MaxOCRPages = *f.MaxOCRPages
	}
	if f.GeminiModel != nil {
		cfg.GeminiModel = *f.GeminiModel
	}
	return nil
}

func (c Config) Validate() error {
	switch c.SummarizerBackend {
	case "extractive":
	case "gemini":
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("SUMMARIZER_BACKEND=gemini requires GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown SUMMARIZER_BACKEND %q (want extractive or gemini)", c.SummarizerBackend)
	}

	if s := strings.TrimSpace(c.InternalSharedSecret); s != "" && len(s) < 32 {
		return fmt.Errorf("INTERNAL_SHARED_SECRET must be at least 32 characters when set")
	}
	if c.DefaultMaxSentences < 1 {
		return fmt.Errorf("DEFAULT_MAX_SENTENCES must be >= 1")
	}
	return nil
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func envDur(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
