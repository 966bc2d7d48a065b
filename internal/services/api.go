// API service for making HTTP requests to the school backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/roster/internal/shared"
)

const (
	defaultBaseURL  = "http://127.0.0.1:5000"
	requestIDHeader = "X-Request-ID"
)

// APIService provides methods for making HTTP requests to the backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
	maxRetries int
	backoff    time.Duration
}

// Option configures an [APIService].
type Option func(*APIService)

// WithRetry sets the retry budget for idempotent requests. Zero disables retries.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(a *APIService) {
		a.maxRetries = max(maxRetries, 0)
		a.backoff = backoff
	}
}

// WithLogger sets the logger used for request and retry diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(a *APIService) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAPIService creates a new API service instance for the backend at baseURL.
func NewAPIService(baseURL string, client *http.Client, opts ...Option) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewHTTPClient builds the backend client. A non-empty token is sent as a bearer token.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	var client *http.Client
	if token == "" {
		client = &http.Client{}
	} else {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	}
	client.Timeout = timeout
	return client
}

// BaseURL returns the backend base URL without a trailing slash.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
	RequestID  string
}

// OK reports whether the response has a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err converts a non-2xx response into an error wrapping [shared.ErrAPIRequest].
//
// The backend's "message" or "error" body field is included when present.
func (r *APIResponse) Err() error {
	if r.OK() {
		return nil
	}

	msg := http.StatusText(r.StatusCode)
	if obj, ok := r.JSONData.(map[string]any); ok {
		for _, field := range []string{"message", "error"} {
			if s, ok := obj[field].(string); ok && s != "" {
				msg = s
				break
			}
		}
	}

	switch {
	case r.StatusCode >= 500:
		return fmt.Errorf("%w: %w: status %d: %s", shared.ErrAPIRequest, shared.ErrServiceUnavailable, r.StatusCode, msg)
	case r.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w: status %d: %s", shared.ErrAPIRequest, shared.ErrRecordNotFound, r.StatusCode, msg)
	}
	return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, r.StatusCode, msg)
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data. POST is never retried.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, data)
}

// Put performs a PUT request with the given JSON data.
func (a *APIService) Put(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPut, path, data)
}

// Delete performs a DELETE request to the specified path.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodDelete, path, nil)
}

// Do sends a request, retrying idempotent methods on transport errors and 5xx responses.
//
// A non-2xx response is returned without error; callers decide via [APIResponse.Err].
func (a *APIService) Do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	retries := a.maxRetries
	if method == http.MethodPost {
		retries = 0
	}

	var (
		resp    *APIResponse
		lastErr error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		resp, lastErr = a.do(ctx, method, path, data)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if lastErr == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if attempt < retries {
			wait := a.backoff * (1 << uint(attempt))
			a.logger.Warn("retrying request",
				"method", method, "path", path,
				"attempt", attempt+1, "max_retries", retries,
				"backoff", wait, "error", retryReason(resp, lastErr))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return resp, nil
}

func retryReason(resp *APIResponse, err error) any {
	if err != nil {
		return err
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	a.logger.Debug("sending request", "method", method, "path", path, "request_id", requestID)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
		RequestID:  requestID,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

func (a *APIService) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return a.baseURL + path
}
