package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL  = "VIDEOCHAT_API_URL"
	envSession = "VIDEOCHAT_SESSION"

	defaultAPIURL = "http://localhost:8080"

	// Ingestion blocks until the index is built, which can take minutes for
	// long videos.
	defaultTimeout = 10 * time.Minute

	userAgent = "videochat-cli"
)

// APIClient talks to a videochatd server. Every call takes a context so an
// interrupted command abandons the request; the server then cancels the
// in-flight ingest or ask.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClientWithCmd resolves the base URL from the --api-url flag, then
// VIDEOCHAT_API_URL, then the saved config, then the default. A nil cmd skips
// the flag.
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	var baseURL string
	if cmd != nil {
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil {
			baseURL = flagURL
		}
	}
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if baseURL == "" {
		globalConfig, err := LoadGlobalConfig()
		if err != nil {
			return nil, err
		}
		if globalConfig != nil {
			baseURL = globalConfig.APIURL
		}
	}
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	return NewAPIClientWithConfig(baseURL), nil
}

// NewAPIClient loads .env and builds a client for cmd.
func NewAPIClient(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()
	return NewAPIClientWithCmd(cmd)
}

// NewAPIClientWithConfig creates an APIClient for an explicit base URL.
func NewAPIClientWithConfig(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// envelope is the server's response body: data on success, error and code
// on failure.
type envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// APIError is a non-2xx answer from the server. Code carries the domain
// error code such as NOT_READY or ACQUISITION_ERROR.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// HasCode reports whether err is an APIError with the given code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// do sends body as JSON and decodes the data member of the reply into out.
// A nil out discards the payload.
func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Error}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

func sessionPath(id string, parts ...string) string {
	p := "/sessions/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *APIClient) CreateSession(ctx context.Context) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, &s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

func (c *APIClient) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodGet, sessionPath(id), nil, &s); err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (c *APIClient) DeleteSession(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, sessionPath(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (c *APIClient) ResetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "reset"), nil, &s); err != nil {
		return nil, fmt.Errorf("failed to reset session: %w", err)
	}
	return &s, nil
}

// Ingest blocks until the server has indexed the transcript behind locator.
func (c *APIClient) Ingest(ctx context.Context, id, locator string) (*Session, error) {
	var s Session
	req := map[string]string{"locator": locator}
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "ingest"), req, &s); err != nil {
		return nil, fmt.Errorf("failed to ingest: %w", err)
	}
	return &s, nil
}

func (c *APIClient) Ask(ctx context.Context, id, question string) (*Answer, error) {
	var a Answer
	req := map[string]string{"question": question}
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "ask"), req, &a); err != nil {
		return nil, fmt.Errorf("failed to ask: %w", err)
	}
	return &a, nil
}

func (c *APIClient) History(ctx context.Context, id string) ([]Turn, error) {
	var h struct {
		Turns []Turn `json:"turns"`
	}
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "history"), nil, &h); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return h.Turns, nil
}
