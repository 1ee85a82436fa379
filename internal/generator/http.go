package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lakefence/internal/domain"
	"lakefence/internal/observability"
)

const defaultTimeout = 30 * time.Second

// HTTPGenerator calls an external NL-to-SQL service over JSON.
type HTTPGenerator struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPGenerator(url, apiKey string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPGenerator{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Prompt string            `json:"prompt"`
	Schema domain.ViewSchema `json:"schema"`
}

type generateResponse struct {
	SQL   string `json:"sql"`
	Error string `json:"error,omitempty"`
}

func (g *HTTPGenerator) GenerateSQL(ctx context.Context, prompt string, schema domain.ViewSchema) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt, Schema: schema})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		observability.GeneratorRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		observability.GeneratorRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("read generator response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		observability.GeneratorRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		observability.GeneratorRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("decode generator response: %w", err)
	}
	if out.Error != "" {
		observability.GeneratorRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("generator: %s", out.Error)
	}
	if out.SQL == "" {
		observability.GeneratorRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("generator returned no SQL")
	}

	observability.GeneratorRequestsTotal.WithLabelValues("ok").Inc()
	return out.SQL, nil
}
