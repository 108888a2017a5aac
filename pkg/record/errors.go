package record

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrTooManyPages stops offset pagination that never runs dry.
var ErrTooManyPages = errors.New("maximum number of pages reached")

// FieldNotFoundError means the server never returned the requested field.
// It is distinct from transport errors, which mean the server could not be
// asked at all.
type FieldNotFoundError struct {
	Route string
	ID    string
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found on %s/%s", e.Field, e.Route, e.ID)
}

// RecordNotFoundError is returned when a lookup that must match exactly one
// record matched none.
type RecordNotFoundError struct {
	Route  string
	Filter url.Values
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("no record found in %s matching %s", e.Route, describeFilter(e.Filter))
}

// MultipleRecordsFoundError is returned when a lookup that must match exactly
// one record matched several. Matches describes each of them.
type MultipleRecordsFoundError struct {
	Route   string
	Filter  url.Values
	Matches []string
}

func (e *MultipleRecordsFoundError) Error() string {
	return fmt.Sprintf("%d records found in %s matching %s: %s",
		len(e.Matches), e.Route, describeFilter(e.Filter), strings.Join(e.Matches, ", "))
}

func describeFilter(filter url.Values) string {
	if len(filter) == 0 {
		return "<no filter>"
	}
	return filter.Encode()
}
