package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError carries the server's error payload.
type APIError struct {
	HTTPStatus int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.HTTPStatus)
}

// Client is a minimal HTTP client for the lakefence API.
type Client struct {
	host   string
	apiKey string
	token  string
	http   *http.Client
}

func NewClient(host, apiKey, token string) *Client {
	return &Client{
		host:   strings.TrimRight(host, "/"),
		apiKey: apiKey,
		token:  token,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// RowSet mirrors the server's query result payload.
type RowSet struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
}

// Query executes SQL for the given tenant.
func (c *Client) Query(ctx context.Context, tenantID, sqlText string) (*RowSet, error) {
	var out RowSet
	err := c.do(ctx, http.MethodPost, "/v1/query",
		map[string]string{"tenant_id": tenantID, "sql": sqlText}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Answer mirrors the server's /v1/ask payload.
type Answer struct {
	SQL    string `json:"sql"`
	Result RowSet `json:"result"`
	Tenant string `json:"tenant_id"`
}

// Ask sends a natural-language prompt for the given tenant.
func (c *Client) Ask(ctx context.Context, tenantID, prompt string) (*Answer, error) {
	var out Answer
	err := c.do(ctx, http.MethodPost, "/v1/ask",
		map[string]string{"tenant_id": tenantID, "prompt": prompt}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ContextRecord is one active tenant context record.
type ContextRecord struct {
	SessionKey string `json:"session_key"`
	TenantID   string `json:"tenant_id"`
	CreatedAt  string `json:"created_at"`
}

// Contexts lists active tenant context records.
func (c *Client) Contexts(ctx context.Context) ([]ContextRecord, error) {
	var out struct {
		Contexts []ContextRecord `json:"contexts"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/contexts", nil, &out); err != nil {
		return nil, err
	}
	return out.Contexts, nil
}

// Grants lists the tenants the caller may declare.
func (c *Client) Grants(ctx context.Context) ([]string, error) {
	var out struct {
		Tenants []string `json:"tenants"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/grants", nil, &out); err != nil {
		return nil, err
	}
	return out.Tenants, nil
}

// AuditEntry is one audit log record.
type AuditEntry struct {
	Principal  string  `json:"principal"`
	TenantID   string  `json:"tenant_id"`
	SQL        string  `json:"sql"`
	Status     string  `json:"status"`
	Error      *string `json:"error,omitempty"`
	DurationMs *int64  `json:"duration_ms,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// Audit lists recent audit entries.
func (c *Client) Audit(ctx context.Context, limit int) ([]AuditEntry, error) {
	var out struct {
		Entries []AuditEntry `json:"entries"`
	}
	path := "/v1/audit"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// SchemaColumn is one column of the view schema.
type SchemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema describes the queryable view.
type Schema struct {
	Table   string         `json:"table"`
	Columns []SchemaColumn `json:"columns"`
}

// ViewSchema fetches the queryable view's schema.
func (c *Client) ViewSchema(ctx context.Context) (*Schema, error) {
	var out Schema
	if err := c.do(ctx, http.MethodGet, "/v1/schema", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
