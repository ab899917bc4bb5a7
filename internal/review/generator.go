// Package review wraps the external model provider that produces the actual
// code feedback. The service layer only sees the Generator interface.
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loki135/CodeSensei/internal/config"
)

// Generator produces review text for a piece of code. Implementations are
// expected to be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, code, language, reviewType string) (string, error)
}

// HTTPGenerator calls a Cohere-style generate endpoint.
type HTTPGenerator struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
}

func NewHTTPGenerator(cfg config.ReviewConfig) *HTTPGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGenerator{
		client:    &http.Client{Timeout: timeout},
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
	Message string `json:"message"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, code, language, reviewType string) (string, error) {
	prompt := fmt.Sprintf(
		"Review this %s code for %s issues and provide feedback on code quality, potential bugs, and suggestions for improvement:\n\n%s",
		language, reviewType, code,
	)

	body, err := json.Marshal(generateRequest{
		Model:       g.model,
		Prompt:      prompt,
		MaxTokens:   g.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read generator response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode generator response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generator returned %d: %s", resp.StatusCode, parsed.Message)
	}
	if len(parsed.Generations) == 0 {
		return "", fmt.Errorf("generator returned no generations")
	}
	return parsed.Generations[0].Text, nil
}
