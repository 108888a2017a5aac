package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

const (
	tokenRefreshPath = "oteams/token/refresh"

	// earlyExpiry is how long before expiry a token is considered stale.
	earlyExpiry = time.Second
)

// tokenCache hands out the current access token, fetching a new one when it
// is within earlyExpiry of expiring. Fetches run under the caller's context.
type tokenCache struct {
	fetch func(ctx context.Context) (*oauth2.Token, error)
	now   func() time.Time

	mu  sync.Mutex
	tok *oauth2.Token
}

// Token returns a valid access token.
func (c *tokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tok != nil && c.tok.AccessToken != "" &&
		(c.tok.Expiry.IsZero() || c.tok.Expiry.Sub(c.now()) > earlyExpiry) {
		return c.tok, nil
	}
	tok, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.tok = tok
	return tok, nil
}

// staticSourceCache wraps a caller-supplied oauth2.TokenSource.
func staticSourceCache(ts oauth2.TokenSource) *tokenCache {
	return &tokenCache{
		fetch: func(context.Context) (*oauth2.Token, error) { return ts.Token() },
		now:   time.Now,
	}
}

// refreshTokenSource exchanges the platform refresh token for short-lived
// access tokens.
type refreshTokenSource struct {
	cfg      *Config
	tokenURL string
	client   *http.Client
	logger   hclog.Logger
	now      func() time.Time

	refresh string
}

func newTokenCache(cfg *Config, client *http.Client, logger hclog.Logger) *tokenCache {
	src := &refreshTokenSource{
		cfg:      cfg,
		tokenURL: cfg.BaseURL + "/" + tokenRefreshPath,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}
	return &tokenCache{fetch: src.exchange, now: time.Now}
}

// exchange posts the refresh token for a new access token. Callers
// serialise through tokenCache.
func (s *refreshTokenSource) exchange(ctx context.Context) (*oauth2.Token, error) {
	if s.refresh == "" {
		tok, err := s.cfg.token(ctx)
		if err != nil {
			return nil, err
		}
		s.refresh = tok
	}

	refreshExp, err := tokenExpiry(s.refresh)
	if err != nil {
		return nil, err
	}
	if refreshExp.Sub(s.now()) < earlyExpiry {
		return nil, fmt.Errorf("%w: api token expired", ErrInvalidCredentials)
	}

	body, err := json.Marshal(map[string]string{"refresh": s.refresh})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: api token was refused by the server", ErrInvalidCredentials)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Method:     http.MethodPost,
			URL:        s.tokenURL,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	var payload struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	accessExp, err := tokenExpiry(payload.Access)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("refreshed access token", "expires", accessExp)

	return &oauth2.Token{
		AccessToken: payload.Access,
		TokenType:   "Bearer",
		Expiry:      accessExp,
	}, nil
}

// tokenExpiry reads the exp claim of a JWT without verifying its signature;
// the server is the only party able to verify it.
func tokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: could not decode the given token: %v", ErrInvalidCredentials, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid exp claim: %v", ErrInvalidCredentials, err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("%w: token has no exp claim", ErrInvalidCredentials)
	}

	return exp.Time, nil
}
