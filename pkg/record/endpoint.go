// Package record maps REST collections of the Oplus API to endpoints and
// their instances to mutable Record handles.
package record

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/openergy/oplus/pkg/task"
	"github.com/openergy/oplus/pkg/transport"
)

// Endpoint is one REST collection, e.g. "ossgeometry/geometries".
type Endpoint struct {
	route        string
	requester    transport.Requester
	paginator    Paginator
	pollInterval time.Duration
	logger       hclog.Logger
}

// EndpointOption customises an Endpoint.
type EndpointOption func(*Endpoint)

// WithPaginator sets how ForEach walks the collection.
func WithPaginator(p Paginator) EndpointOption {
	return func(e *Endpoint) { e.paginator = p }
}

// WithPollInterval sets the interval used when a delete answers with a task.
func WithPollInterval(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.pollInterval = d }
}

// WithLogger sets the endpoint logger.
func WithLogger(l hclog.Logger) EndpointOption {
	return func(e *Endpoint) { e.logger = l }
}

// NewEndpoint creates an endpoint for route. Offset pagination is the
// default.
func NewEndpoint(requester transport.Requester, route string, opts ...EndpointOption) *Endpoint {
	e := &Endpoint{
		route:        strings.Trim(route, "/"),
		requester:    requester,
		paginator:    OffsetPaginator{},
		pollInterval: task.DefaultPollInterval,
		logger:       hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("record").With("route", e.route)
	return e
}

// Route returns the collection path.
func (e *Endpoint) Route() string {
	return e.route
}

// Requester returns the transport the endpoint talks through.
func (e *Endpoint) Requester() transport.Requester {
	return e.requester
}

// PollInterval returns the interval used to wait on tasks.
func (e *Endpoint) PollInterval() time.Duration {
	return e.pollInterval
}

// Nested returns the endpoint of a sub-collection of instance id, e.g.
// "<route>/<id>/simulations". Options of e are kept unless overridden.
func (e *Endpoint) Nested(id, sub string, opts ...EndpointOption) *Endpoint {
	n := &Endpoint{
		route:        e.route + "/" + id + "/" + strings.Trim(sub, "/"),
		requester:    e.requester,
		paginator:    e.paginator,
		pollInterval: e.pollInterval,
		logger:       e.logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("route", n.route)
	return n
}

// FromFields builds a record from data already at hand. No request is made.
func (e *Endpoint) FromFields(fields map[string]any) *Record {
	return &Record{endpoint: e, fields: fields}
}

// Create posts a new instance.
func (e *Endpoint) Create(ctx context.Context, fields map[string]any) (*Record, error) {
	resp, err := e.requester.Request(ctx, http.MethodPost, e.route, fields, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create record in %s: %w", e.route, err)
	}
	m, err := resp.Map()
	if err != nil {
		return nil, err
	}
	rec := e.FromFields(m)
	e.logger.Debug("record created", "id", rec.ID())
	return rec, nil
}

// Retrieve fetches one instance by id.
func (e *Endpoint) Retrieve(ctx context.Context, id string, query url.Values) (*Record, error) {
	fields, err := e.get(ctx, id, query)
	if err != nil {
		return nil, err
	}
	return e.FromFields(fields), nil
}

func (e *Endpoint) get(ctx context.Context, id string, query url.Values) (map[string]any, error) {
	resp, err := e.requester.Request(ctx, http.MethodGet, e.route+"/"+id, nil, query)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s/%s: %w", e.route, id, err)
	}
	fields, err := resp.Map()
	if err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("empty answer retrieving %s/%s", e.route, id)
	}
	return fields, nil
}

// Page is one page of records.
type Page struct {
	Records    []*Record
	NextMarker string
}

// List fetches a single page. query carries filters and pagination
// parameters as the collection expects them.
func (e *Endpoint) List(ctx context.Context, query url.Values) (*Page, error) {
	lr, err := e.fetchPage(ctx, query)
	if err != nil {
		return nil, err
	}
	page := &Page{Records: make([]*Record, 0, len(lr.Data))}
	for _, fields := range lr.Data {
		page.Records = append(page.Records, e.FromFields(fields))
	}
	if lr.NextMarker != nil {
		page.NextMarker = *lr.NextMarker
	}
	return page, nil
}

func (e *Endpoint) fetchPage(ctx context.Context, query url.Values) (*ListResponse, error) {
	resp, err := e.requester.Request(ctx, http.MethodGet, e.route, nil, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", e.route, err)
	}
	var lr ListResponse
	if err := resp.Decode(&lr); err != nil {
		return nil, err
	}
	return &lr, nil
}

// ForEach walks every record matching filter. Returning an error from fn
// stops the walk.
func (e *Endpoint) ForEach(ctx context.Context, filter url.Values, fn func(*Record) error) error {
	return e.paginator.Paginate(ctx, e.fetchPage, filter, func(fields map[string]any) error {
		return fn(e.FromFields(fields))
	})
}

// All collects every record matching filter.
func (e *Endpoint) All(ctx context.Context, filter url.Values) ([]*Record, error) {
	var out []*Record
	err := e.ForEach(ctx, filter, func(r *Record) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetOne returns the only record matching filter and, when given, match.
func (e *Endpoint) GetOne(ctx context.Context, filter url.Values, match func(*Record) bool) (*Record, error) {
	var found []*Record
	err := e.ForEach(ctx, filter, func(r *Record) error {
		if match == nil || match(r) {
			found = append(found, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, &RecordNotFoundError{Route: e.route, Filter: filter}
	case 1:
		return found[0], nil
	default:
		matches := make([]string, 0, len(found))
		for _, r := range found {
			matches = append(matches, r.String())
		}
		return nil, &MultipleRecordsFoundError{Route: e.route, Filter: filter, Matches: matches}
	}
}

// MatchField matches records whose field equals value.
func MatchField(field string, value any) func(*Record) bool {
	return func(r *Record) bool {
		v, err := r.Get(field)
		return err == nil && reflect.DeepEqual(v, value)
	}
}
