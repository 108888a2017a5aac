package oplus

import (
	"testing"

	"github.com/openergy/oplus/pkg/task"
	"github.com/openergy/oplus/pkg/transport/transporttest"
)

func newTestClient(t *testing.T) (*Client, *transporttest.Fake) {
	t.Helper()
	fake := transporttest.New()
	return NewWithTransport(fake, WithPollInterval(0), WithSimulationPollInterval(0)), fake
}

func taskPath(id string) string {
	return task.Route + "/" + id
}

func taskPending() transporttest.Reply {
	return transporttest.JSON(map[string]any{"finished": false})
}

func taskDone(code int, message string, data map[string]any) transporttest.Reply {
	return transporttest.JSON(map[string]any{
		"finished":    true,
		"status_code": code,
		"message":     message,
		"data":        data,
		"_out_text":   "worker output",
	})
}

func countMethod(fake *transporttest.Fake, method string) int {
	n := 0
	for _, c := range fake.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}
