package record

import (
	"context"
	"net/url"
	"strconv"
)

// ListResponse is one page of a collection.
type ListResponse struct {
	Data       []map[string]any `json:"data"`
	NextMarker *string          `json:"next_marker"`
}

// PageFunc fetches one page with the given query.
type PageFunc func(ctx context.Context, query url.Values) (*ListResponse, error)

// Paginator walks a collection page by page, calling fn for each element.
type Paginator interface {
	Paginate(ctx context.Context, fetch PageFunc, filter url.Values, fn func(fields map[string]any) error) error
}

// OffsetPaginator pages with start/length parameters and stops on the first
// empty page.
type OffsetPaginator struct {
	// PageSize is sent as "length". Default: 100
	PageSize int

	// MaxPages bounds the walk. Default: 100
	MaxPages int
}

// Paginate implements Paginator.
func (p OffsetPaginator) Paginate(ctx context.Context, fetch PageFunc, filter url.Values, fn func(map[string]any) error) error {
	size, maxPages := p.PageSize, p.MaxPages
	if size <= 0 {
		size = 100
	}
	if maxPages <= 0 {
		maxPages = 100
	}

	offset := 0
	for i := 0; i < maxPages; i++ {
		q := cloneValues(filter)
		q.Set("length", strconv.Itoa(size))
		if offset > 0 {
			q.Set("start", strconv.Itoa(offset))
		}

		page, err := fetch(ctx, q)
		if err != nil {
			return err
		}
		if len(page.Data) == 0 {
			return nil
		}
		for _, fields := range page.Data {
			if err := fn(fields); err != nil {
				return err
			}
		}
		offset += len(page.Data)
	}

	return ErrTooManyPages
}

// CursorPaginator follows the next_marker returned with each page until it
// is null.
type CursorPaginator struct{}

// Paginate implements Paginator.
func (CursorPaginator) Paginate(ctx context.Context, fetch PageFunc, filter url.Values, fn func(map[string]any) error) error {
	marker := ""
	for {
		q := cloneValues(filter)
		if marker != "" {
			q.Set("next_marker", marker)
		}

		page, err := fetch(ctx, q)
		if err != nil {
			return err
		}
		for _, fields := range page.Data {
			if err := fn(fields); err != nil {
				return err
			}
		}

		if page.NextMarker == nil || *page.NextMarker == "" || *page.NextMarker == marker {
			return nil
		}
		marker = *page.NextMarker
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
