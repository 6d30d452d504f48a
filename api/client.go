package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "cinerec"

// TokenSource supplies the bearer token for authenticated calls.
// An empty token means the request is sent anonymously.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to TokenSource
type TokenFunc func() string

// Token implements TokenSource
func (f TokenFunc) Token() string {
	return f()
}

// RequestOptions carries the query parameters and JSON body of a request
type RequestOptions struct {
	Params url.Values
	Body   any
}

// Client represents a recommendation service API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	tokens     atomic.Pointer[TokenSource]
	logger     zerolog.Logger
}

// NewClient creates a new API client. baseURL includes the /api prefix.
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("api URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api URL scheme %q", u.Scheme)
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  defaultUserAgent,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// BaseURL returns the normalized base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTokenSource sets the token source used for the Authorization header.
// Safe to call while requests are in flight.
func (c *Client) SetTokenSource(ts TokenSource) {
	if ts == nil {
		c.tokens.Store(nil)
		return
	}
	c.tokens.Store(&ts)
}

func (c *Client) token() string {
	ts := c.tokens.Load()
	if ts == nil || *ts == nil {
		return ""
	}
	return (*ts).Token()
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	return c.Request(ctx, http.MethodGet, path, RequestOptions{Params: params}, out)
}

// Post performs a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Request(ctx, http.MethodPost, path, RequestOptions{Body: body}, out)
}

// Put performs a PUT request with a JSON body
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Request(ctx, http.MethodPut, path, RequestOptions{Body: body}, out)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Request(ctx, http.MethodDelete, path, RequestOptions{}, out)
}

// Request performs a single HTTP request and decodes the JSON response into out.
// Failures of the round trip are returned as *Error. A body that cannot be
// encoded or a request that cannot be built fails with a plain error before
// anything is sent. There are no retries.
func (c *Client) Request(ctx context.Context, method, path string, opts RequestOptions, out any) error {
	endpoint := c.baseURL + path
	if len(opts.Params) > 0 {
		endpoint += "?" + opts.Params.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Kind: KindNetwork, Method: method, Path: path, Err: err}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("method", method).
			Str("path", path).
			Str("request_id", requestID).
			Msg("API request failed")
		return &Error{Kind: KindNetwork, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Kind:       kindForStatus(resp.StatusCode),
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, resp.Status),
			Body:       string(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{
			Kind:       KindDecode,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(data),
			Err:        err,
		}
	}

	return nil
}

// errorBody covers the error shapes the service emits:
// {"detail": "..."}, {"detail": [{"msg": "..."}]}, {"message": "..."} and {"error": "..."}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type detailItem struct {
	Msg string `json:"msg"`
}

func errorMessage(data []byte, fallback string) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		if s := strings.TrimSpace(string(data)); s != "" && len(s) < 512 {
			return s
		}
		return fallback
	}

	if len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []detailItem
		if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Error != "" {
		return body.Error
	}
	return fallback
}
