// Package providers implements clients for external dependencies
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"linkhub.app/config"
	"linkhub.app/errors"
)

// BioSuggester generates short profile bios from keywords.
type BioSuggester interface {
	SuggestBio(ctx context.Context, keywords string) (string, error)
}

// AIProvider calls the external completion API. It performs no failure
// isolation itself; callers wrap it with a circuit breaker.
type AIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAIProvider creates a client for the configured completion API
func NewAIProvider(config *config.AIConfig) *AIProvider {
	return &AIProvider{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		// The circuit breaker enforces the per-request timeout through ctx;
		// this is a backstop for calls made outside it.
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
}

// SuggestBio asks the completion API for a one-paragraph bio.
func (p *AIProvider) SuggestBio(ctx context.Context, keywords string) (string, error) {
	if strings.TrimSpace(keywords) == "" {
		return "", errors.NewValidationError("keywords cannot be empty")
	}

	body, err := json.Marshal(completionRequest{
		Model: "gpt-4o-mini",
		Messages: []completionMessage{
			{Role: "system", Content: "Write a short, friendly link-in-bio introduction. One paragraph, no hashtags."},
			{Role: "user", Content: keywords},
		},
	})
	if err != nil {
		return "", errors.NewInternalError("encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/chat/completions", p.baseURL), bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternalError("build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.NewUpstreamFailureError("failed to call completion API", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewUpstreamFailureError(
			fmt.Sprintf("completion API returned status code %d", resp.StatusCode), nil)
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.NewUpstreamFailureError("failed to decode completion response", err)
	}

	if len(result.Choices) == 0 {
		return "", errors.NewUpstreamFailureError("completion response contained no choices", nil)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
