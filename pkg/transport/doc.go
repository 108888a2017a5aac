// Package transport is the HTTP layer of the Oplus client.
//
// It owns the token lifecycle (refresh token exchanged for short-lived
// access tokens at oteams/token/refresh), JSON request/response exchange with
// the REST API, and raw transfers to pre-signed blob URLs.
//
// # Error Handling
//
// Non-2xx answers are returned as *HTTPError, distinguishing client (4xx)
// from server (5xx) faults. Rejected or expired tokens yield
// ErrInvalidCredentials. Nothing is retried: the first failure surfaces.
//
// # Security
//
//   - Bearer token authentication on API calls only
//   - Blob transfers never carry the bearer header
//   - SAS query strings are stripped from error messages
package transport
