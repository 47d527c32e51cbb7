package roomapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 8 << 20

type Config struct {
	// Base of the marketplace API, e.g. https://backend-roomfinder-api.onrender.com
	BaseURL string

	Timeout time.Duration

	// Extra attempts for GET requests that fail transiently.
	Retries      int
	RetryBackoff time.Duration

	// Set only when the marketplace deduplicates on Idempotency-Key; keyed
	// POSTs are then retried too.
	HonorsIdempotencyKey bool

	Client *http.Client
	Logger *slog.Logger
}

// Client talks to the marketplace REST API on behalf of a signed-in user.
// Every call takes the user's bearer token explicitly.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	retries    int
	backoff    time.Duration
	keyedRetry bool
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("roomapi: base_url is required")
	}
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("roomapi: unsupported scheme %q", u.Scheme)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}

	c := &Client{
		baseURL:    u,
		httpClient: client,
		logger:     logger,
		retries:    retries,
		backoff:    cfg.RetryBackoff,
		keyedRetry: cfg.HonorsIdempotencyKey,
	}
	logger.Info("roomapi client initialized", "baseURL", u.Redacted(), "retries", retries)
	return c, nil
}

type request struct {
	method         string
	segments       []string
	token          string
	contentType    string
	idempotencyKey string
	body           func() (io.Reader, error)
	// skip {"data": ...} unwrapping
	raw            bool
}

// retryable reports whether a failed attempt may be sent again without
// creating a second side effect upstream.
func (c *Client) retryable(r request) bool {
	switch r.method {
	case http.MethodGet, http.MethodHead:
		return true
	}
	return c.keyedRetry && r.idempotencyKey != ""
}

func jsonBody(v any) (func() (io.Reader, error), error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return func() (io.Reader, error) { return bytes.NewReader(b), nil }, nil
}

// endpoint joins path segments onto the base URL, escaping each one.
func (c *Client) endpoint(segments ...string) *url.URL {
	u := *c.baseURL
	raw := make([]string, len(segments))
	escaped := make([]string, len(segments))
	for i, s := range segments {
		raw[i] = s
		escaped[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.Join(raw, "/")
	u.RawPath = strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	return &u
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	attempts := 1
	if c.retryable(req) {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(time.Duration(attempt) * c.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		err := c.once(ctx, req, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) || ctx.Err() != nil {
			return err
		}
		if attempt+1 < attempts {
			c.logger.Warn("roomapi transient failure, retrying",
				"method", req.method,
				"path", strings.Join(req.segments, "/"),
				"attempt", attempt+1,
				"err", err,
			)
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		b, err := req.body()
		if err != nil {
			return err
		}
		body = b
	}

	endpoint := c.endpoint(req.segments...)
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("roomapi %s %s: %w", req.method, endpoint.Path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp, b)
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	decode := decodeData
	if req.raw {
		decode = json.Unmarshal
	}
	if err := decode(b, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.method, endpoint.Path, err)
	}
	return nil
}

// decodeData accepts both {"data": ...} envelopes and bare payloads.
func decodeData(b []byte, out any) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err == nil {
			if data, ok := env["data"]; ok && len(data) > 0 && string(data) != "null" {
				return json.Unmarshal(data, out)
			}
		}
	}
	return json.Unmarshal(trimmed, out)
}

// Message is the acknowledgement body of mutating endpoints.
type Message struct {
	Message string `json:"message"`
}
