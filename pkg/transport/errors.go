package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when the API token is expired,
	// undecodable, or refused by the server.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTimeout is returned by WaitForOnline when the API did not come up
	// within the allotted time.
	ErrTimeout = errors.New("timed out waiting for api")
)

// HTTPError is a non-2xx answer from the API or the blob store.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	kind := "server error"
	if e.ClientFault() {
		kind = "client error"
	}
	return fmt.Sprintf("%s %s: %s (status %d): %s", e.Method, e.URL, kind, e.StatusCode, e.detail())
}

// ClientFault reports a 4xx status.
func (e *HTTPError) ClientFault() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ServerFault reports a 5xx status.
func (e *HTTPError) ServerFault() bool {
	return e.StatusCode >= 500
}

// detail extracts the most useful part of the error body.
func (e *HTTPError) detail() string {
	var apiErr struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &apiErr); err == nil {
		switch {
		case apiErr.Detail != "":
			return apiErr.Detail
		case apiErr.Error != "":
			return apiErr.Error
		case apiErr.Message != "":
			return apiErr.Message
		}
	}
	return string(e.Body)
}

// IsClientError reports whether err wraps a 4xx HTTPError.
func IsClientError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.ClientFault()
}

// IsServerError reports whether err wraps a 5xx HTTPError.
func IsServerError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.ServerFault()
}

// StatusCode returns the HTTP status wrapped in err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
