package simulations

import (
	"net/http"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openergy/oplus/internal/cmd/base/basetest"
	"github.com/openergy/oplus/pkg/transport/transporttest"
)

const (
	groupPath = "osssimulations/simulation_groups/sg1"
	simPath   = groupPath + "/simulations/s1"
	multiPath = "osssimulations/multi_simulation_groups/sg1"
	taskPath  = "osstasks/user_tasks/t1"
)

func TestRun_WaitsForGroup(t *testing.T) {
	env := basetest.New(t)
	env.Fake.
		On(http.MethodGet, groupPath,
			transporttest.JSON(map[string]any{"id": "sg1", "name": "batch", "working": false}),
			transporttest.JSON(map[string]any{"id": "sg1", "name": "batch", "working": true}),
			transporttest.JSON(map[string]any{"id": "sg1", "name": "batch", "working": false, "status": "success"}),
		).
		On(http.MethodPost, groupPath+"/run", transporttest.JSON(map[string]any{"user_task": "t1"})).
		On(http.MethodGet, taskPath, transporttest.JSON(map[string]any{"finished": true, "status_code": 200}))

	code := (&RunCommand{Command: env.Command}).Run([]string{"-run-old-versions", "-wait", "sg1"})

	require.Equal(t, 0, code, env.Errors())
	assert.Contains(t, env.Output(), `finished with status "success"`)
	assert.Equal(t, 3, env.Fake.Count(http.MethodGet, groupPath))

	for _, c := range env.Fake.Calls() {
		if c.Method == http.MethodPost {
			assert.Equal(t, "true", c.Query.Get("run_old_versions"))
		}
	}
}

func TestRun_Detach(t *testing.T) {
	env := basetest.New(t)
	env.Fake.
		On(http.MethodGet, groupPath, transporttest.JSON(map[string]any{"id": "sg1"})).
		On(http.MethodPost, groupPath+"/run", transporttest.JSON(map[string]any{"user_task": "t1"}))

	code := (&RunCommand{Command: env.Command}).Run([]string{"-detach", "sg1"})

	require.Equal(t, 0, code, env.Errors())
	assert.Equal(t, "t1\n", env.Output())
	assert.Equal(t, 0, env.Fake.Count(http.MethodGet, taskPath))
}

func TestRun_StartFailure(t *testing.T) {
	env := basetest.New(t)
	env.Fake.
		On(http.MethodGet, groupPath, transporttest.JSON(map[string]any{"id": "sg1"})).
		On(http.MethodPost, groupPath+"/run", transporttest.JSON(map[string]any{"user_task": "t1"})).
		On(http.MethodGet, taskPath, transporttest.JSON(map[string]any{"finished": true, "status_code": 500, "message": "No simulation to run."}))

	code := (&RunCommand{Command: env.Command}).Run([]string{"sg1"})

	assert.Equal(t, 1, code)
	assert.Contains(t, env.Errors(), "No simulation to run.")
}

func TestRun_DetachAndWaitConflict(t *testing.T) {
	env := basetest.New(t)
	assert.Equal(t, 1, (&RunCommand{Command: env.Command}).Run([]string{"-detach", "-wait", "sg1"}))
	assert.Empty(t, env.Fake.Calls())
}

func TestWait_SimulationWithLogs(t *testing.T) {
	env := basetest.New(t)
	env.Fake.
		On(http.MethodGet, groupPath, transporttest.JSON(map[string]any{"id": "sg1"})).
		On(http.MethodGet, simPath,
			transporttest.JSON(map[string]any{"id": "s1", "status": "running", "logs": "starting"}),
			transporttest.JSON(map[string]any{"id": "s1", "status": "running", "logs": "starting"}),
			transporttest.JSON(map[string]any{"id": "s1", "status": "success", "logs": "starting\ndone"}),
		)

	code := (&WaitCommand{Command: env.Command}).Run([]string{"-logs", "sg1", "s1"})

	require.Equal(t, 0, code, env.Errors())
	out := env.Output()
	assert.Contains(t, out, "starting\n")
	assert.Contains(t, out, "done\n")
	assert.Contains(t, out, `finished with status "success"`)
}

func TestWait_SimulationFailed(t *testing.T) {
	env := basetest.New(t)
	env.Fake.
		On(http.MethodGet, groupPath, transporttest.JSON(map[string]any{"id": "sg1"})).
		On(http.MethodGet, simPath, transporttest.JSON(map[string]any{"id": "s1", "status": "error"}))

	code := (&WaitCommand{Command: env.Command}).Run([]string{"sg1", "s1"})

	assert.Equal(t, 1, code)
	assert.Contains(t, env.Errors(), `status "error"`)
}

func TestAdd_MultiSimulation(t *testing.T) {
	env := basetest.New(t)
	env.Fake.
		On(http.MethodGet, multiPath, transporttest.JSON(map[string]any{"id": "sg1"})).
		On(http.MethodPost, multiPath+"/add_simulation", transporttest.JSON(map[string]any{"id": "s9", "name": "base"}))

	code := (&AddCommand{Command: env.Command}).Run([]string{
		"-format", "json",
		"-name", "base", "-weather", "w1", "-geometry", "g1", "-obat", "o1",
		"-start", "2024-01-01", "-end", "December 31, 2024",
		"sg1",
	})

	require.Equal(t, 0, code, env.Errors())
	assert.JSONEq(t, `{"id":"s9","name":"base"}`, env.Output())

	var body map[string]any
	for _, c := range env.Fake.Calls() {
		if c.Method == http.MethodPost {
			body, _ = c.Body.(map[string]any)
		}
	}
	require.NotNil(t, body)
	assert.Equal(t, "2024-01-01T00:00:00", body["start"])
	assert.Equal(t, "2024-12-31T23:59:59", body["end"])
	assert.Nil(t, body["variant"])
	assert.NotContains(t, body, "substitute_modifications")
}

func TestAdd_Validation(t *testing.T) {
	for name, args := range map[string][]string{
		"missing start":           {"-name", "n", "-end", "2024-01-01", "sg1"},
		"bad date":                {"-name", "n", "-start", "not a date", "-end", "2024-01-01", "sg1"},
		"modifications not multi": {"-name", "n", "-start", "2024-01-01", "-end", "2024-01-02", "-modifications", "{}", "sg1"},
		"bad modifications":       {"-kind", "generic", "-name", "n", "-start", "2024-01-01", "-end", "2024-01-02", "-modifications", "{", "sg1"},
	} {
		t.Run(name, func(t *testing.T) {
			env := basetest.New(t)
			assert.Equal(t, 1, (&AddCommand{Command: env.Command}).Run(args))
			assert.Empty(t, env.Fake.Calls())
		})
	}
}

func TestAdd_MonoUnsupported(t *testing.T) {
	env := basetest.New(t)

	code := (&AddCommand{Command: env.Command}).Run([]string{
		"-kind", "mono", "-name", "n", "-start", "2024-01-01", "-end", "2024-01-02", "sg1",
	})

	assert.Equal(t, 1, code)
	assert.Contains(t, env.Errors(), "not supported")
}

func TestResult_Simulation(t *testing.T) {
	env := basetest.New(t)
	env.Fake.
		On(http.MethodGet, groupPath, transporttest.JSON(map[string]any{"id": "sg1"})).
		On(http.MethodGet, simPath, transporttest.JSON(map[string]any{"id": "s1", "status": "success"})).
		On(http.MethodGet, simPath+"/out_zones", transporttest.JSON(map[string]any{"blob_url": "https://blob.example.com/z"}))
	env.Fake.SetBlob("https://blob.example.com/z", []byte("zone,area\nz1,10\n"))

	code := (&ResultCommand{Command: env.Command}).Run([]string{"sg1", "s1", "out_zones"})

	require.Equal(t, 0, code, env.Errors())
	data, err := afero.ReadFile(env.Fs, "s1-out_zones.csv")
	require.NoError(t, err)
	assert.Equal(t, "zone,area\nz1,10\n", string(data))
}

func TestResult_GroupNotFinished(t *testing.T) {
	env := basetest.New(t)
	env.Fake.On(http.MethodGet, multiPath, transporttest.JSON(map[string]any{"id": "sg1", "status": "running"}))

	code := (&ResultCommand{Command: env.Command}).Run([]string{"sg1", "out_zones"})

	assert.Equal(t, 1, code)
	assert.Contains(t, env.Errors(), `"running"`)
}
