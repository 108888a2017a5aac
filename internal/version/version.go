// Package version holds the build version, set with
// -ldflags "-X github.com/openergy/oplus/internal/version.Version=...".
package version

var Version = "0.0.0-dev"
