// Package remote talks to the catalog and query execution endpoints over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kyleking/catalog-chat/internal/catalog"
	"github.com/kyleking/catalog-chat/internal/draft"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/logging"
)

const (
	catalogPath = "/start/catalog"
	chatPath    = "/chat/"
)

// Client calls the backend API with an optional bearer token
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sets the bearer token sent on every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a client for baseURL with the given request timeout
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the normalized API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is the execution endpoint reply
type Response struct {
	AnswerText    string                   `json:"answer_text"`
	Answer        string                   `json:"answer"`
	ResultPreview []map[string]interface{} `json:"result_preview"`
	Error         string                   `json:"error,omitempty"`
}

// Text returns the answer, preferring answer_text
func (r *Response) Text() string {
	if t := strings.TrimSpace(r.AnswerText); t != "" {
		return t
	}

	return strings.TrimSpace(r.Answer)
}

// FetchRows implements catalog.Source against GET /start/catalog
func (c *Client) FetchRows(ctx context.Context) ([]catalog.Row, error) {
	body, err := c.do(ctx, http.MethodGet, catalogPath, nil)
	if err != nil {
		return nil, err
	}

	rows, err := catalog.DecodePayload(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeCatalog,
			"Catálogo inválido: resposta não contém 'items' como array.")
	}

	return rows, nil
}

// Execute posts req to /chat/{strategy}. An error field in an otherwise
// successful reply is returned as an execution error.
func (c *Client) Execute(ctx context.Context, strategy string, req draft.Request) (*Response, error) {
	body, err := c.do(ctx, http.MethodPost, chatPath+strings.Trim(strategy, "/"), req)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to parse execution response")
	}

	if strings.TrimSpace(resp.Error) != "" {
		return &resp, errors.New(errors.ErrTypeExecution, resp.Error)
	}

	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reader io.Reader

	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger := logging.WithFields(map[string]interface{}{
		"method": method,
		"path":   path,
	})

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeNetwork, "failed to make request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeNetwork, "failed to read response")
	}

	logger.WithFields(map[string]interface{}{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(errors.ErrTypeNetwork, errorDetail(resp.StatusCode, body))
	}

	return body, nil
}

// errorDetail extracts detail or message from an error body, falling back to
// the status and raw body
func errorDetail(status int, body []byte) string {
	var payload struct {
		Detail  interface{} `json:"detail"`
		Message string      `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}

		if strings.TrimSpace(payload.Message) != "" {
			return payload.Message
		}
	}

	return fmt.Sprintf("API request failed with status %d: %s", status, strings.TrimSpace(string(body)))
}
