// Package artifact stores the files moved in and out of the platform:
// downloaded exports and results, and import sources.
package artifact

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Sink receives downloaded artifacts.
type Sink interface {
	// Put stores data under name and returns where it ended up.
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// Source provides artifacts to import.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Tee writes every artifact to all of its sinks.
type Tee []Sink

// Put implements Sink. It tries every sink and aggregates failures. The
// returned location lists the successful ones, comma separated.
func (t Tee) Put(ctx context.Context, name string, data []byte) (string, error) {
	var (
		result    *multierror.Error
		locations []string
	)
	for _, s := range t {
		loc, err := s.Put(ctx, name, data)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ","), result.ErrorOrNil()
}

// Chain reads an artifact from the first source holding it.
type Chain []Source

// Open implements Source. Failures are aggregated when no source has name.
func (c Chain) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	var result *multierror.Error
	for _, s := range c {
		rc, err := s.Open(ctx, name)
		if err == nil {
			return rc, nil
		}
		result = multierror.Append(result, err)
	}
	if result == nil {
		return nil, fmt.Errorf("no source configured for %s", name)
	}
	return nil, result
}

// cleanName rejects names escaping the store root.
func cleanName(name string) (string, error) {
	name = strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	if name == "" {
		return "", fmt.Errorf("artifact name is required")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("artifact name %q escapes the store", name)
		}
	}
	return name, nil
}
