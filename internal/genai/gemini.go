package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGeminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultGeminiModel  = "gemini-2.5-flash"

	geminiMaxRetries = 1
	geminiRetryDelay = 2 * time.Second
)

// Gemini talks to Google's generateContent API. Requests carry the document
// as an inline-data part next to the prompt text, mirroring the payload the
// service itself accepts.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGemini(apiKey, model, baseURL string, timeout time.Duration) *Gemini {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultGeminiAPIURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *Gemini) Name() string { return "gemini" }

// Wire types — only the fields we actually use.

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (g *Gemini) Summarize(ctx context.Context, doc []byte, mimeType, systemInstruction, prompt string) (string, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return "", fmt.Errorf("gemini: API key not configured")
	}
	if len(doc) == 0 {
		return "", fmt.Errorf("gemini: empty document")
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "application/octet-stream"
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = "Summarize this document."
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MIMEType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(doc),
				}},
				{Text: prompt},
			},
		}},
	}
	if strings.TrimSpace(systemInstruction) != "" {
		reqBody.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: systemInstruction}},
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= geminiMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(geminiRetryDelay * time.Duration(attempt)):
			}
		}

		summary, err := g.generate(ctx, bodyBytes)
		if err == nil {
			return summary, nil
		}
		lastErr = err

		// Don't retry client errors (4xx)
		if isClientError(err) {
			break
		}
	}

	return "", lastErr
}

func (g *Gemini) generate(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request: %w", err)
	}
	defer resp.Body.Close()

	var parsed geminiResponse
	dec := json.NewDecoder(io.LimitReader(resp.Body, 10<<20))
	if err := dec.Decode(&parsed); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Message: "unparseable error body"}
		}
		return "", fmt.Errorf("gemini: decode: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
		if parsed.Error != nil {
			apiErr.Status = parsed.Error.Status
			apiErr.Message = parsed.Error.Message
		}
		return "", apiErr
	}

	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates returned")
	}

	var b strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("gemini: empty candidate text")
	}
	return out, nil
}
