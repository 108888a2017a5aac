package record

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/openergy/oplus/pkg/task"
	"github.com/openergy/oplus/pkg/transport"
)

// Record is a local handle on one server instance. Its field mapping is
// always exactly what the server last returned for the whole instance: it is
// replaced wholesale on reload and update, never merged. A Record is not safe
// for concurrent use.
type Record struct {
	endpoint *Endpoint
	fields   map[string]any
}

// ID returns the instance id, or "" if the server sent none.
func (r *Record) ID() string {
	return idOf(r.fields)
}

// Endpoint returns the collection the record belongs to.
func (r *Record) Endpoint() *Endpoint {
	return r.endpoint
}

// Route returns the collection path.
func (r *Record) Route() string {
	return r.endpoint.route
}

// Path returns the instance path.
func (r *Record) Path() string {
	return r.endpoint.route + "/" + r.ID()
}

// Fields returns a shallow copy of the field mapping.
func (r *Record) Fields() map[string]any {
	return maps.Clone(r.fields)
}

// Has reports whether the server returned field name.
func (r *Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Get returns the raw value of field name or a *FieldNotFoundError.
func (r *Record) Get(name string) (any, error) {
	v, ok := r.fields[name]
	if !ok {
		return nil, &FieldNotFoundError{Route: r.endpoint.route, ID: r.ID(), Field: name}
	}
	return v, nil
}

// GetString returns field name as a string. A null value yields "".
func (r *Record) GetString(name string) (string, error) {
	v, err := r.Get(name)
	if err != nil {
		return "", err
	}
	switch tv := v.(type) {
	case nil:
		return "", nil
	case string:
		return tv, nil
	default:
		return "", fmt.Errorf("field %q of %s is %T, not a string", name, r.Path(), v)
	}
}

// GetBool returns field name as a bool. A null value yields false.
func (r *Record) GetBool(name string) (bool, error) {
	v, err := r.Get(name)
	if err != nil {
		return false, err
	}
	switch tv := v.(type) {
	case nil:
		return false, nil
	case bool:
		return tv, nil
	default:
		return false, fmt.Errorf("field %q of %s is %T, not a bool", name, r.Path(), v)
	}
}

// GetFloat returns field name as a number.
func (r *Record) GetFloat(name string) (float64, error) {
	v, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("field %q of %s is %T, not a number", name, r.Path(), v)
	}
	return f, nil
}

// Ref returns field name as a relation.
func (r *Record) Ref(name string) (Ref, error) {
	v, err := r.Get(name)
	if err != nil {
		return Ref{}, err
	}
	ref, err := RefOf(v)
	if err != nil {
		return Ref{}, fmt.Errorf("field %q of %s: %w", name, r.Path(), err)
	}
	return ref, nil
}

// Decode copies the field mapping into out, a pointer to a struct whose
// fields are tagged with `json:"..."` names.
func (r *Record) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(r.fields); err != nil {
		return fmt.Errorf("failed to decode %s: %w", r.Path(), err)
	}
	return nil
}

// String implements fmt.Stringer.
func (r *Record) String() string {
	if name, ok := r.fields["name"].(string); ok {
		return fmt.Sprintf("<%s: %s (%s)>", r.endpoint.route, name, r.ID())
	}
	return fmt.Sprintf("<%s: %s>", r.endpoint.route, r.ID())
}

// Reload fetches the instance and replaces the field mapping.
func (r *Record) Reload(ctx context.Context) error {
	fields, err := r.endpoint.get(ctx, r.ID(), nil)
	if err != nil {
		return err
	}
	r.fields = fields
	return nil
}

// Update sends a partial update (PATCH). The field mapping becomes the
// server's answer, which may hold more than what was sent.
func (r *Record) Update(ctx context.Context, fields map[string]any) error {
	return r.write(ctx, http.MethodPatch, r.Path(), fields)
}

// Replace sends a full update (PUT).
func (r *Record) Replace(ctx context.Context, fields map[string]any) error {
	return r.write(ctx, http.MethodPut, r.Path(), fields)
}

func (r *Record) write(ctx context.Context, method, path string, fields map[string]any) error {
	resp, err := r.endpoint.requester.Request(ctx, method, path, fields, nil)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", r.Path(), err)
	}
	m, err := resp.Map()
	if err != nil {
		return err
	}
	if m == nil {
		// Nothing to mirror; fetch the whole instance instead.
		return r.Reload(ctx)
	}
	r.fields = m
	return nil
}

// Delete removes the instance. When the server answers with a task the call
// blocks until the task succeeds. The handle must not be used afterwards.
func (r *Record) Delete(ctx context.Context) error {
	resp, err := r.endpoint.requester.Request(ctx, http.MethodDelete, r.Path(), nil, nil)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.Path(), err)
	}

	body, err := resp.Map()
	if err != nil {
		return err
	}
	taskID, ok := task.IDFromResponse(body)
	if !ok {
		return nil
	}

	r.endpoint.logger.Debug("delete is asynchronous", "id", r.ID(), "task_id", taskID)
	h := task.New(r.endpoint.requester, taskID, r.endpoint.logger)
	if _, err := h.WaitForCompletion(ctx, r.endpoint.pollInterval); err != nil {
		return err
	}
	return h.Err("delete")
}

// DetailAction invokes a named sub-operation on the instance, e.g.
// "<route>/<id>/import_data", and returns the decoded answer (nil when
// empty).
func (r *Record) DetailAction(ctx context.Context, action, method string, body any, query url.Values) (map[string]any, error) {
	resp, err := r.DetailActionResponse(ctx, action, method, body, query)
	if err != nil {
		return nil, err
	}
	return resp.Map()
}

// DetailActionResponse is DetailAction without decoding.
func (r *Record) DetailActionResponse(ctx context.Context, action, method string, body any, query url.Values) (*transport.Response, error) {
	if method == "" {
		method = http.MethodGet
	}
	path := r.Path() + "/" + strings.Trim(action, "/")
	resp, err := r.endpoint.requester.Request(ctx, strings.ToUpper(method), path, body, query)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", strings.ToUpper(method), path, err)
	}
	return resp, nil
}
