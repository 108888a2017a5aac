package task

import (
	"errors"
	"fmt"
	"strings"
)

// ErrWaitTimeout is returned when an optional wait timeout elapses before the
// task finishes.
var ErrWaitTimeout = errors.New("timed out waiting for task")

// OperationFailedError reports a task that reached a failure terminal state.
// Message and Output are the server's text, verbatim.
type OperationFailedError struct {
	Operation  string
	TaskID     string
	StatusCode int
	Message    string
	Output     string
}

func (e *OperationFailedError) Error() string {
	var b strings.Builder
	op := e.Operation
	if op == "" {
		op = "operation"
	}
	fmt.Fprintf(&b, "%s failed (task %s, status %d). Error:\n%s", op, e.TaskID, e.StatusCode, e.Message)
	if e.Output != "" {
		b.WriteString("\n")
		b.WriteString(e.Output)
	}
	return b.String()
}
