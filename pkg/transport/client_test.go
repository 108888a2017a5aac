package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

// newTestServer serves the token endpoint plus the given API handler.
func newTestServer(t *testing.T, access string, refreshes *int32, api http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/oteams/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		if refreshes != nil {
			atomic.AddInt32(refreshes, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access": access})
	})
	mux.HandleFunc("/api/v1/", api)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, refresh string) *Client {
	t.Helper()
	c, err := New(&Config{
		BaseURL:  srv.URL + "/api/v1/",
		APIToken: refresh,
		Timeout:  5 * time.Second,
	}, hclog.NewNullLogger())
	require.NoError(t, err)
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		errorMsg string
	}{
		{
			name:   "Valid config",
			config: &Config{BaseURL: "https://oplus.example.com/api/v1", APIToken: "tok"},
		},
		{
			name: "Token callback instead of token",
			config: &Config{
				BaseURL:   "https://oplus.example.com/api/v1",
				TokenFunc: func(context.Context) (string, error) { return "tok", nil },
			},
		},
		{
			name:     "Missing base URL",
			config:   &Config{APIToken: "tok"},
			errorMsg: "base_url",
		},
		{
			name:     "Missing credentials",
			config:   &Config{BaseURL: "https://oplus.example.com"},
			errorMsg: "api_token",
		},
		{
			name:     "Invalid URL scheme",
			config:   &Config{BaseURL: "ftp://oplus.example.com", APIToken: "tok"},
			errorMsg: "scheme",
		},
		{
			name:     "Negative timeout",
			config:   &Config{BaseURL: "https://oplus.example.com", APIToken: "tok", Timeout: -time.Second},
			errorMsg: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestClient_Request(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	refresh := signedToken(t, time.Now().Add(24*time.Hour))

	srv := newTestServer(t, access, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ossgeometry/geometries/g1", r.URL.Path)
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "1", r.URL.Query().Get("expand"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "B", body["name"])

		json.NewEncoder(w).Encode(map[string]any{"id": "g1", "name": "B", "extra": 1})
	})

	c := newTestClient(t, srv, refresh)
	resp, err := c.Request(context.Background(), "patch", "ossgeometry/geometries/g1",
		map[string]any{"name": "B"}, Params(map[string]any{"expand": 1, "skip": nil}))
	require.NoError(t, err)

	m, err := resp.Map()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "g1", "name": "B", "extra": float64(1)}, m)
}

func TestClient_Request_ReusesAccessToken(t *testing.T) {
	var refreshes int32
	access := signedToken(t, time.Now().Add(time.Hour))
	refresh := signedToken(t, time.Now().Add(24*time.Hour))

	srv := newTestServer(t, access, &refreshes, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, srv, refresh)
	for i := 0; i < 3; i++ {
		resp, err := c.Request(context.Background(), http.MethodDelete, "oteams/projects/p1", nil, nil)
		require.NoError(t, err)
		assert.True(t, resp.Empty())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestClient_Request_NilMapSendsNoBody(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	refresh := signedToken(t, time.Now().Add(24*time.Hour))

	srv := newTestServer(t, access, nil, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, srv, refresh)

	var fields map[string]any
	_, err := c.Request(context.Background(), http.MethodPatch, "oteams/organizations/o1/take_up_seat", fields, nil)
	require.NoError(t, err)
}

func TestClient_TokenRefreshFollowsRequestContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := newTestClient(t, srv, signedToken(t, time.Now().Add(time.Hour)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Request(ctx, http.MethodGet, "oteams/organizations", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_Request_HTTPErrors(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	refresh := signedToken(t, time.Now().Add(24*time.Hour))

	srv := newTestServer(t, access, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/missing":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Not found."})
		default:
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream down")
		}
	})
	c := newTestClient(t, srv, refresh)

	_, err := c.Request(context.Background(), http.MethodGet, "missing", nil, nil)
	require.Error(t, err)
	assert.True(t, IsClientError(err))
	assert.False(t, IsServerError(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Contains(t, err.Error(), "Not found.")

	_, err = c.Request(context.Background(), http.MethodGet, "broken", nil, nil)
	require.Error(t, err)
	assert.True(t, IsServerError(err))
	assert.Contains(t, err.Error(), "upstream down")
}

func TestClient_InvalidCredentials(t *testing.T) {
	t.Run("expired refresh token", func(t *testing.T) {
		srv := newTestServer(t, "unused", nil, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("api must not be reached")
		})
		c := newTestClient(t, srv, signedToken(t, time.Now().Add(-time.Minute)))

		_, err := c.Request(context.Background(), http.MethodGet, "oteams/organizations", nil, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCredentials))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("undecodable token", func(t *testing.T) {
		srv := newTestServer(t, "unused", nil, func(w http.ResponseWriter, r *http.Request) {})
		c := newTestClient(t, srv, "not-a-jwt")

		_, err := c.Request(context.Background(), http.MethodGet, "oteams/organizations", nil, nil)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("refused by server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()
		c := newTestClient(t, srv, signedToken(t, time.Now().Add(time.Hour)))

		_, err := c.Request(context.Background(), http.MethodGet, "oteams/organizations", nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Contains(t, err.Error(), "refused")
	})
}

func TestClient_TokenFunc(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	refresh := signedToken(t, time.Now().Add(time.Hour))
	srv := newTestServer(t, access, nil, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data": []}`)
	})

	calls := 0
	c, err := New(&Config{
		BaseURL: srv.URL + "/api/v1",
		TokenFunc: func(context.Context) (string, error) {
			calls++
			return refresh, nil
		},
	}, nil)
	require.NoError(t, err)

	_, err = c.Request(context.Background(), http.MethodGet, "oteams/projects", nil, nil)
	require.NoError(t, err)
	_, err = c.Request(context.Background(), http.MethodGet, "oteams/projects", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_UploadDownload(t *testing.T) {
	var uploaded []byte
	blobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, "BlockBlob", r.Header.Get("x-ms-blob-type"))
			uploaded, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			if r.URL.Path == "/missing" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write(uploaded)
		}
	}))
	defer blobSrv.Close()

	apiSrv := newTestServer(t, "unused", nil, func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(t, apiSrv, "unused")

	ctx := context.Background()
	require.NoError(t, c.Upload(ctx, blobSrv.URL+"/container/file.ogw?sig=secret", strings.NewReader("geometry")))
	assert.Equal(t, "geometry", string(uploaded))

	data, err := c.Download(ctx, blobSrv.URL+"/container/file.ogw?sig=secret")
	require.NoError(t, err)
	assert.Equal(t, "geometry", string(data))

	_, err = c.Download(ctx, blobSrv.URL+"/missing?sig=secret")
	require.Error(t, err)
	assert.True(t, IsClientError(err))
	assert.NotContains(t, err.Error(), "secret")
}

func TestClient_WaitForOnline(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "unused")
	require.NoError(t, c.WaitForOnline(context.Background(), 5*time.Second, time.Millisecond))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestClient_WaitForOnline_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "unused")
	err := c.WaitForOnline(context.Background(), 50*time.Millisecond, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	err = c.WaitForOnline(context.Background(), 0, time.Millisecond)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)

	err = c.WaitForOnline(context.Background(), time.Second, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval must be positive")
}
