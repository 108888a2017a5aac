package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// Requester issues authenticated JSON requests against the API. Paths are
// relative to the configured base URL.
type Requester interface {
	Request(ctx context.Context, method, path string, body any, query url.Values) (*Response, error)
}

// BlobStore moves raw bytes to and from pre-signed blob URLs.
type BlobStore interface {
	Upload(ctx context.Context, blobURL string, r io.Reader) error
	Download(ctx context.Context, blobURL string) ([]byte, error)
}

// Response is a successful (2xx) API answer.
type Response struct {
	StatusCode int
	Body       []byte
}

// Empty reports whether the response carries no payload.
func (r *Response) Empty() bool {
	return r == nil || r.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(r.Body)) == 0
}

// Decode unmarshals the body into out. An empty response leaves out untouched.
func (r *Response) Decode(out any) error {
	if r.Empty() {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Map decodes the body as a JSON object. An empty response yields nil.
func (r *Response) Map() (map[string]any, error) {
	if r.Empty() {
		return nil, nil
	}
	var m map[string]any
	if err := r.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Client talks to the Oplus REST API and to the blob store behind it.
type Client struct {
	cfg    *Config
	api    *http.Client
	blob   *http.Client
	tokens *tokenCache
	logger hclog.Logger
}

var (
	_ Requester = (*Client)(nil)
	_ BlobStore = (*Client)(nil)
)

// Option customises a Client.
type Option func(*clientOptions)

type clientOptions struct {
	tokenSource oauth2.TokenSource
	base        http.RoundTripper
}

// WithTokenSource replaces the refresh-token exchange with ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *clientOptions) { o.tokenSource = ts }
}

// WithRoundTripper sets the round tripper underneath authentication.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.base = rt }
}

// New creates a transport client. No network call is made until the first
// request.
func New(cfg *Config, logger hclog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("transport config is required")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}
	cfg.applyDefaults()

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.base == nil {
		o.base = cfg.newHTTPTransport()
	}

	plain := &http.Client{Timeout: cfg.Timeout, Transport: o.base}

	tokens := newTokenCache(cfg, plain, logger.Named("token"))
	if o.tokenSource != nil {
		tokens = staticSourceCache(o.tokenSource)
	}

	// The bearer header is set per API request, so token exchange and blob
	// transfers share one unauthenticated client.
	return &Client{
		cfg:    cfg,
		api:    plain,
		blob:   plain,
		tokens: tokens,
		logger: logger,
	}, nil
}

// BaseURL returns the API root without trailing slash.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Close releases idle connections.
func (c *Client) Close() {
	c.api.CloseIdleConnections()
}

// Request executes an API request. Non-2xx statuses are returned as
// *HTTPError; nothing is retried.
func (c *Client) Request(ctx context.Context, method, path string, body any, query url.Values) (*Response, error) {
	endpoint := c.buildURL(path, query)

	hasBody := !isNil(body)

	var bodyReader io.Reader
	if hasBody {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	tok.SetAuthHeader(req)

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request", "method", req.Method, "url", endpoint, "request_id", requestID)

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("api response", "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Method:     req.Method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// isNil reports whether body carries nothing to send, including typed nils
// such as a nil map.
func isNil(body any) bool {
	if body == nil {
		return true
	}
	switch v := reflect.ValueOf(body); v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// buildURL constructs a URL with query parameters. Absolute URLs are used
// as given.
func (c *Client) buildURL(path string, query url.Values) string {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		raw = c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
	}

	if len(query) == 0 {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw + "?" + query.Encode()
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
