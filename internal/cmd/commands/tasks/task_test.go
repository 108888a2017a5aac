package tasks

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openergy/oplus/internal/cmd/base/basetest"
	"github.com/openergy/oplus/pkg/transport/transporttest"
)

const taskPath = "osstasks/user_tasks/t1"

func TestTask_Show(t *testing.T) {
	env := basetest.New(t)
	env.Fake.On(http.MethodGet, taskPath, transporttest.JSON(map[string]any{"finished": false}))

	code := (&Command{Command: env.Command}).Run([]string{"-format", "json", "t1"})

	require.Equal(t, 0, code, env.Errors())
	assert.JSONEq(t, `{"finished":false}`, env.Output())
	assert.Equal(t, 1, env.Fake.Count(http.MethodGet, taskPath))
}

func TestTask_WaitSuccess(t *testing.T) {
	env := basetest.New(t)
	env.Fake.On(http.MethodGet, taskPath,
		transporttest.JSON(map[string]any{"finished": false}),
		transporttest.JSON(map[string]any{"finished": true, "status_code": 200, "message": "done"}),
	)

	code := (&Command{Command: env.Command}).Run([]string{"-wait", "t1"})

	require.Equal(t, 0, code, env.Errors())
	assert.Contains(t, env.Output(), "message: done")
	assert.Equal(t, 2, env.Fake.Count(http.MethodGet, taskPath))
}

func TestTask_WaitFailure(t *testing.T) {
	env := basetest.New(t)
	env.Fake.On(http.MethodGet, taskPath,
		transporttest.JSON(map[string]any{"finished": true, "status_code": 500, "message": "Import crashed."}),
	)

	code := (&Command{Command: env.Command}).Run([]string{"-wait", "t1"})

	assert.Equal(t, 1, code)
	assert.Contains(t, env.Errors(), "Import crashed.")
}

func TestTask_MissingID(t *testing.T) {
	env := basetest.New(t)
	assert.Equal(t, 1, (&Command{Command: env.Command}).Run(nil))
	assert.Empty(t, env.Fake.Calls())
}
