package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultTimeout    = 20 * time.Second
	defaultUserAgent  = "gamedex/1.0"
)

// Config holds client configuration.
// MaxRetries of 0 selects the default of 3; a negative value disables retries.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	UserAgent      string
	HTTPClient     *http.Client
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client performs HTTP requests with a uniform status check and retry policy.
type Client struct {
	httpClient     httpDoer
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	userAgent      string
	newBoundary    func() string
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	maxBackoff := cfg.MaxBackoff
	if maxBackoff < cfg.InitialBackoff {
		maxBackoff = cfg.InitialBackoff
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		httpClient:     httpClient,
		maxRetries:     maxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     maxBackoff,
		userAgent:      userAgent,
		newBoundary:    randomBoundary,
		logger:         logger.With("component", "fetch"),
	}
}

func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil, "")
}

func (c *Client) Post(ctx context.Context, rawURL string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, rawURL, body, "application/json")
}

func (c *Client) Put(ctx context.Context, rawURL string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodPut, rawURL, body, "application/json")
}

func (c *Client) Patch(ctx context.Context, rawURL string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodPatch, rawURL, body, "application/json")
}

// GetJSON fetches rawURL and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	data, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &Error{Kind: ErrInvalidData, Err: err}
	}
	return nil
}

// Do sends the request, retrying the whole request up to maxRetries times on
// any failure, and returns the body of a 200 response.
func (c *Client) Do(ctx context.Context, method, rawURL string, body []byte, contentType string) ([]byte, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || u.Host == "" {
		return nil, &Error{Kind: ErrBadURL, Err: err}
	}

	attempts := c.maxRetries + 1
	var data []byte
	for attempt := 1; attempt <= attempts; attempt++ {
		data, err = c.doRequest(ctx, method, u, body, contentType)
		if err == nil {
			return data, nil
		}

		if attempt == attempts || ctx.Err() != nil {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"method", method,
			"path", u.Path,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		if backoff <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, &Error{Kind: ErrRequestFailed, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}

	c.logger.Error("request failed", "method", method, "path", u.Path, "attempts", attempts, "error", err)
	return nil, err
}

func (c *Client) doRequest(ctx context.Context, method string, u *url.URL, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &Error{Kind: ErrBadURL, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrRequestFailed, Err: err}
	}
	if resp == nil || resp.Body == nil {
		return nil, &Error{Kind: ErrInvalidResponse}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Kind: ErrStatusCode, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidResponse, Err: err}
	}
	return data, nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}
