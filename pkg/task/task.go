// Package task tracks asynchronous platform operations (imports, exports,
// simulation starts) through their user-task resource.
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/openergy/oplus/pkg/transport"
)

const (
	// Route is the collection of user tasks.
	Route = "osstasks/user_tasks"

	// StatusOK is the only terminal status code meaning success.
	StatusOK = 200

	// DefaultPollInterval matches the platform's documented polling period.
	DefaultPollInterval = 200 * time.Millisecond

	responseKey = "user_task"
)

// State of a task as last observed.
type State int

const (
	Pending State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// status is the task resource as served by the API.
type status struct {
	Finished   bool           `json:"finished"`
	StatusCode *int           `json:"status_code"`
	Message    *string        `json:"message"`
	Response   map[string]any `json:"response"`
	Data       map[string]any `json:"data"`
	OutText    string         `json:"_out_text"`
}

// Handle polls one asynchronous server operation to completion. A Handle is
// not safe for concurrent use.
type Handle struct {
	id        string
	requester transport.Requester
	logger    hclog.Logger

	st  status
	raw map[string]any
}

// New wraps task id. No request is made until the first reload.
func New(requester transport.Requester, id string, logger hclog.Logger) *Handle {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Handle{
		id:        id,
		requester: requester,
		logger:    logger.With("task_id", id),
		raw:       map[string]any{"finished": false},
	}
}

// IDFromResponse extracts the task id from a detail-action answer of the
// form {"user_task": "<id>"}.
func IDFromResponse(body map[string]any) (string, bool) {
	if body == nil {
		return "", false
	}
	id, ok := body[responseKey].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ID returns the task identifier.
func (h *Handle) ID() string {
	return h.id
}

// Reload fetches the task and replaces the local state. Once the task is
// finished Reload does nothing: terminal states are stable.
func (h *Handle) Reload(ctx context.Context) error {
	if h.st.Finished {
		return nil
	}

	resp, err := h.requester.Request(ctx, http.MethodGet, Route+"/"+h.id, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to reload task %s: %w", h.id, err)
	}

	var raw map[string]any
	if err := resp.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode task %s: %w", h.id, err)
	}
	var st status
	if err := json.Unmarshal(resp.Body, &st); err != nil {
		return fmt.Errorf("failed to decode task %s: %w", h.id, err)
	}

	h.st, h.raw = st, raw
	h.logger.Trace("task reloaded", "finished", st.Finished)
	return nil
}

// State reports the last observed state without contacting the server.
func (h *Handle) State() State {
	switch {
	case !h.st.Finished:
		return Pending
	case h.st.StatusCode != nil && *h.st.StatusCode == StatusOK:
		return Succeeded
	default:
		return Failed
	}
}

// ensureFresh reloads unless the task is already known to be finished, so
// accessors never hand out a stale pending placeholder.
func (h *Handle) ensureFresh(ctx context.Context) error {
	if h.st.Finished {
		return nil
	}
	return h.Reload(ctx)
}

// Finished reports whether the task reached a terminal state.
func (h *Handle) Finished(ctx context.Context) (bool, error) {
	if err := h.ensureFresh(ctx); err != nil {
		return false, err
	}
	return h.st.Finished, nil
}

// StatusCode returns the terminal status code, or 0 while pending or when
// the server sent none.
func (h *Handle) StatusCode(ctx context.Context) (int, error) {
	if err := h.ensureFresh(ctx); err != nil {
		return 0, err
	}
	if h.st.StatusCode == nil {
		return 0, nil
	}
	return *h.st.StatusCode, nil
}

// Message returns the server's diagnostic text.
func (h *Handle) Message(ctx context.Context) (string, error) {
	if err := h.ensureFresh(ctx); err != nil {
		return "", err
	}
	if h.st.Message == nil {
		return "", nil
	}
	return *h.st.Message, nil
}

// Representation returns a copy of the task resource as last fetched.
func (h *Handle) Representation(ctx context.Context) (map[string]any, error) {
	if err := h.ensureFresh(ctx); err != nil {
		return nil, err
	}
	return maps.Clone(h.raw), nil
}

// ResultBlobURL returns the blob URL produced by a finished task, looked up
// in the "data" payload first and the "response" payload second.
func (h *Handle) ResultBlobURL() (string, error) {
	if !h.st.Finished {
		return "", fmt.Errorf("task %s is not finished", h.id)
	}
	for _, payload := range []map[string]any{h.st.Data, h.st.Response} {
		if u, ok := payload["blob_url"].(string); ok && u != "" {
			return u, nil
		}
	}
	return "", fmt.Errorf("task %s result has no blob_url", h.id)
}

// Err returns an *OperationFailedError if the task failed, nil if it
// succeeded. It must be called after the task finished.
func (h *Handle) Err(operation string) error {
	switch h.State() {
	case Succeeded:
		return nil
	case Pending:
		return fmt.Errorf("%s: task %s is still pending", operation, h.id)
	}

	failure := &OperationFailedError{
		Operation: operation,
		TaskID:    h.id,
		Output:    h.st.OutText,
	}
	if h.st.StatusCode != nil {
		failure.StatusCode = *h.st.StatusCode
	}
	if h.st.Message != nil {
		failure.Message = *h.st.Message
	}
	return failure
}

// WaitOption configures WaitForCompletion.
type WaitOption func(*waitOptions)

type waitOptions struct {
	timeout time.Duration
}

// WithTimeout bounds the wait. Without it WaitForCompletion blocks until the
// task finishes, a request fails, or ctx is done.
func WithTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) { o.timeout = d }
}

// WaitForCompletion reloads the task every interval until it finishes and
// reports whether it succeeded (terminal status code 200). A request error
// aborts the wait immediately.
func (h *Handle) WaitForCompletion(ctx context.Context, interval time.Duration, opts ...WaitOption) (bool, error) {
	var o waitOptions
	for _, opt := range opts {
		opt(&o)
	}

	waitCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	polls := 0
	for !h.st.Finished {
		polls++
		if err := h.Reload(waitCtx); err != nil {
			return false, h.waitErr(ctx, waitCtx, err)
		}
		if h.st.Finished {
			break
		}
		if err := Sleep(waitCtx, interval); err != nil {
			return false, h.waitErr(ctx, waitCtx, err)
		}
	}

	h.logger.Debug("task finished", "state", h.State(), "polls", polls)
	return h.State() == Succeeded, nil
}

func (h *Handle) waitErr(parent, waitCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w %s", ErrWaitTimeout, h.id)
	}
	return err
}

// Sleep waits d or until ctx is done. A non-positive d only checks ctx.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
