// Package genai defines the optional external generative-model collaborator.
// It is a capability interface kept fully decoupled from the deterministic
// extractive pipeline: when a provider is configured and fails, callers fall
// back to the local pipeline instead of surfacing an error.
package genai

import (
	"context"
	"fmt"
)

// Provider summarizes a document with an external generative model.
type Provider interface {
	// Summarize sends the raw document plus instructions and returns the
	// generated summary text.
	Summarize(ctx context.Context, doc []byte, mimeType, systemInstruction, prompt string) (string, error)

	// Name returns the provider name for logging.
	Name() string
}

// APIError is a non-2xx answer from the remote model service.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("genai %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

func isClientError(err error) bool {
	if ae, ok := err.(*APIError); ok {
		return ae.StatusCode >= 400 && ae.StatusCode < 500
	}
	return false
}
