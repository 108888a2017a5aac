package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Oplus API root.
const DefaultBaseURL = "https://oplus-back.openergy.fr/api/v1"

// TokenFunc supplies the API (refresh) token on demand. It lets callers source
// credentials from a secret store or an interactive prompt of their own
// without the client ever reading from the console.
type TokenFunc func(ctx context.Context) (string, error)

// Config contains configuration for the Oplus transport.
//
// Example configuration (HCL):
//
//	base_url  = "https://oplus-back.openergy.fr/api/v1"
//	api_token = env.OPLUS_API_TOKEN
//	timeout   = "30s"
type Config struct {
	// BaseURL is the API root, e.g. "https://oplus-back.openergy.fr/api/v1".
	// A trailing slash is ignored.
	BaseURL string `hcl:"base_url" json:"baseUrl"`

	// APIToken is the long-lived refresh token issued by the platform.
	APIToken string `hcl:"api_token,optional" json:"-"`

	// TokenFunc is consulted when APIToken is empty.
	TokenFunc TokenFunc `json:"-"`

	// TLSVerify controls TLS certificate verification
	// Set to false only for development/testing with self-signed certs
	TLSVerify *bool `hcl:"tls_verify,optional" json:"tlsVerify,omitempty"`

	// Timeout for a single HTTP exchange (not for polling loops).
	// Default: 30 seconds
	Timeout time.Duration `hcl:"timeout,optional" json:"timeout,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	tlsVerify := true
	return &Config{
		BaseURL:   DefaultBaseURL,
		TLSVerify: &tlsVerify,
		Timeout:   30 * time.Second,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https scheme, got: %s", parsedURL.Scheme)
	}

	if c.APIToken == "" && c.TokenFunc == nil {
		return fmt.Errorf("api_token or a token callback is required")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got: %v", c.Timeout)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.TLSVerify == nil {
		c.TLSVerify = DefaultConfig().TLSVerify
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

// token returns the configured refresh token.
func (c *Config) token(ctx context.Context) (string, error) {
	if c.APIToken != "" {
		return c.APIToken, nil
	}
	tok, err := c.TokenFunc(ctx)
	if err != nil {
		return "", fmt.Errorf("error obtaining api token: %w", err)
	}
	if tok == "" {
		return "", fmt.Errorf("%w: empty api token", ErrInvalidCredentials)
	}
	return tok, nil
}

// newHTTPTransport creates the base round tripper shared by API and blob
// clients.
func (c *Config) newHTTPTransport() *http.Transport {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if c.TLSVerify != nil && !*c.TLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return transport
}
