package oplus

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openergy/oplus/pkg/task"
	"github.com/openergy/oplus/pkg/transport/transporttest"
)

const groupPath = RouteMultiSimulationGroups + "/sg1"

func TestRun_WaitsForStart(t *testing.T) {
	c, fake := newTestClient(t)
	fake.
		On(http.MethodPost, groupPath+"/run", transporttest.JSON(map[string]any{"user_task": "t1"})).
		On(http.MethodGet, taskPath("t1"), taskPending(), taskDone(200, "", nil))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))

	h, err := g.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, task.Succeeded, h.State())
	assert.Equal(t, "false", fake.Calls()[0].Query.Get("run_old_versions"))
	assert.Equal(t, 2, fake.Count(http.MethodGet, taskPath("t1")))
}

func TestRun_StartFailure(t *testing.T) {
	c, fake := newTestClient(t)
	fake.
		On(http.MethodPost, groupPath+"/run", transporttest.JSON(map[string]any{"user_task": "t1"})).
		On(http.MethodGet, taskPath("t1"), taskDone(500, "No simulation to run.", nil))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))

	_, err := g.Run(context.Background(), RunOptions{RunOldVersions: true})

	var startErr *SimulationStartError
	require.ErrorAs(t, err, &startErr)
	assert.Contains(t, err.Error(), "No simulation to run.")
	var failed *task.OperationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 500, failed.StatusCode)
	assert.Equal(t, "true", fake.Calls()[0].Query.Get("run_old_versions"))
}

func TestRun_Detach(t *testing.T) {
	c, fake := newTestClient(t)
	fake.On(http.MethodPost, groupPath+"/run", transporttest.JSON(map[string]any{"user_task": "t1"}))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))

	h, err := g.Run(context.Background(), RunOptions{Detach: true})
	require.NoError(t, err)
	assert.Equal(t, "t1", h.ID())
	assert.Equal(t, task.Pending, h.State())
	assert.Len(t, fake.Calls(), 1)
}

func TestGroup_WaitForCompletion(t *testing.T) {
	c, fake := newTestClient(t)
	fake.On(http.MethodGet, groupPath,
		transporttest.JSON(map[string]any{"id": "sg1", "working": true}),
		transporttest.JSON(map[string]any{"id": "sg1", "working": true}),
		transporttest.JSON(map[string]any{"id": "sg1", "working": false, "status": "success"}))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1", "working": false}))

	require.NoError(t, g.WaitForCompletion(context.Background()))
	assert.Equal(t, 3, fake.Count(http.MethodGet, groupPath))
	status, err := g.Status()
	require.NoError(t, err)
	assert.Equal(t, "success", status)
}

func TestGroup_WaitForCompletionCancelled(t *testing.T) {
	c, fake := newTestClient(t)
	fake.On(http.MethodGet, groupPath, transporttest.JSON(map[string]any{"id": "sg1", "working": true}))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.WaitForCompletionEvery(ctx, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGroup_AddSimulation(t *testing.T) {
	c, fake := newTestClient(t)
	fake.
		On(http.MethodPost, groupPath+"/add_simulation", transporttest.JSON(map[string]any{"id": "s1", "name": "base"})).
		On(http.MethodPost, RouteGenericSimulationGroups+"/gg1/add_simulation", transporttest.JSON(map[string]any{"id": "s2"}))
	multi := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))
	generic := c.GenericSimulationGroupOf(c.GenericSimulationGroups.FromFields(map[string]any{"id": "gg1"}))
	spec := SimulationSpec{
		Name:       "base",
		WeatherID:  "w1",
		GeometryID: "g1",
		ObatID:     "o1",
		Start:      time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	ctx := context.Background()

	sim, err := multi.AddSimulation(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, "s1", sim.ID())
	assert.Equal(t, groupPath+"/simulations", sim.Route())
	assert.Same(t, multi.SimulationGroup, sim.Group())
	assert.Equal(t, map[string]any{
		"name":                     "base",
		"weather_id":               "w1",
		"geometry_id":              "g1",
		"obat_id":                  "o1",
		"start":                    "2019-01-01T00:00:00",
		"end":                      "2019-01-02T23:59:59",
		"variant":                  nil,
		"outputs_detail_nfen12831": false,
		"outputs_report":           false,
	}, fake.Calls()[0].Body)

	spec.Variant = "v2"
	spec.SubstituteModifications = map[string]any{"zones": "x"}
	_, err = generic.AddSimulation(ctx, spec)
	require.NoError(t, err)
	body := fake.Calls()[1].Body.(map[string]any)
	assert.Equal(t, "v2", body["variant"])
	assert.Equal(t, map[string]any{"zones": "x"}, body["substitute_modifications"])

	spec.End = spec.Start.AddDate(0, 0, -1)
	_, err = multi.AddSimulation(ctx, spec)
	assert.Error(t, err)
	assert.Len(t, fake.Calls(), 2)
}

func TestGroup_UpdateAndDeleteSimulation(t *testing.T) {
	c, fake := newTestClient(t)
	fake.
		On(http.MethodPatch, groupPath+"/update_simulation", transporttest.JSON(map[string]any{"id": "s1", "name": "renamed"})).
		On(http.MethodDelete, groupPath+"/delete_simulation", transporttest.NoContent())
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))
	ctx := context.Background()

	_, err := g.UpdateSimulation(ctx, map[string]any{"name": "renamed"})
	assert.Error(t, err)

	sim, err := g.UpdateSimulation(ctx, map[string]any{"id": "s1", "name": "renamed"})
	require.NoError(t, err)
	name, err := sim.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "renamed", name)

	require.NoError(t, g.DeleteSimulation(ctx, "s1"))
	assert.Equal(t, map[string]any{"id": "s1"}, fake.Calls()[1].Body)
}

func TestGroup_Simulations(t *testing.T) {
	c, fake := newTestClient(t)
	sims := groupPath + "/simulations"
	fake.On(http.MethodGet, sims,
		transporttest.JSON(map[string]any{"data": []any{map[string]any{"id": "s1", "name": "a"}}, "next_marker": "m"}),
		transporttest.JSON(map[string]any{"data": []any{map[string]any{"id": "s2", "name": "b"}}, "next_marker": nil}))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))

	all, err := g.AllSimulations(context.Background(), "success")
	require.NoError(t, err)
	require.Len(t, all, 2)
	calls := fake.Calls()
	assert.Equal(t, "success", calls[0].Query.Get("status"))
	assert.Equal(t, "m", calls[1].Query.Get("next_marker"))
}

func TestGroup_SimulationByName(t *testing.T) {
	c, fake := newTestClient(t)
	fake.On(http.MethodGet, groupPath+"/simulations",
		transporttest.JSON(map[string]any{"data": []any{
			map[string]any{"id": "s1", "name": "a"},
			map[string]any{"id": "s2", "name": "b"},
		}, "next_marker": nil}))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))

	sim, err := g.SimulationByName(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "s2", sim.ID())

	_, err = g.SimulationByName(context.Background(), "z")
	assert.Error(t, err)
}

func TestMonoGroup(t *testing.T) {
	c, fake := newTestClient(t)
	mono := RouteMonoSimulationGroups + "/m1"
	fake.
		On(http.MethodGet, RouteObats+"/o1", transporttest.JSON(map[string]any{"id": "o1"})).
		On(http.MethodGet, mono+"/simulations", transporttest.JSON(map[string]any{"data": []any{}, "next_marker": nil}))
	g := c.MonoSimulationGroupOf(c.MonoSimulationGroups.FromFields(map[string]any{
		"id":              "m1",
		"config_obat":     "o1",
		"config_geometry": nil,
		"config_weather":  map[string]any{"id": "w1"},
	}))
	ctx := context.Background()

	obat, err := g.Obat(ctx)
	require.NoError(t, err)
	assert.Equal(t, "o1", obat.ID())

	geo, err := g.Geometry(ctx)
	require.NoError(t, err)
	assert.Nil(t, geo)

	w, err := g.Weather(ctx)
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID())

	sim, err := g.SingleSimulation(ctx)
	require.NoError(t, err)
	assert.Nil(t, sim)
	assert.Len(t, fake.Calls(), 2)
}

func TestSimulation_WaitForCompletionPrintsNewLogs(t *testing.T) {
	c, fake := newTestClient(t)
	simPath := groupPath + "/simulations/s1"
	fake.On(http.MethodGet, simPath,
		transporttest.JSON(map[string]any{"id": "s1", "status": "running", "logs": "starting\n"}),
		transporttest.JSON(map[string]any{"id": "s1", "status": "running", "logs": "starting\nzone 1 done"}),
		transporttest.JSON(map[string]any{"id": "s1", "status": "success", "logs": "starting\nzone 1 done\nfinished"}))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))
	sim := g.SimulationOf(g.Simulations().FromFields(map[string]any{"id": "s1"}))

	var logs bytes.Buffer
	require.NoError(t, sim.WaitForCompletion(context.Background(), &logs))

	assert.Equal(t, "starting\nzone 1 done\nfinished\n", logs.String())
	assert.Equal(t, 3, fake.Count(http.MethodGet, simPath))
}

func TestNewLogLines(t *testing.T) {
	assert.Equal(t, "", newLogLines([]string{"a"}, []string{"a "}))
	assert.Equal(t, "b", newLogLines([]string{"a"}, []string{"a", "b"}))
	assert.Equal(t, "x", newLogLines([]string{"a", "b"}, []string{"x"}))
}

func TestSimulation_Results(t *testing.T) {
	c, fake := newTestClient(t)
	simPath := groupPath + "/simulations/s1"
	fake.On(http.MethodGet, simPath+"/out_zones", transporttest.JSON(map[string]any{"blob_url": blobOut}))
	fake.SetBlob(blobOut, []byte("zone,area\nz1,12.5\nz2,30\n"))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))
	ctx := context.Background()

	running := g.SimulationOf(g.Simulations().FromFields(map[string]any{"id": "s1", "status": "running"}))
	_, err := running.Result(ctx, "out_zones")
	assert.ErrorIs(t, err, ErrResultsUnavailable)
	assert.Empty(t, fake.Calls())

	done := g.SimulationOf(g.Simulations().FromFields(map[string]any{"id": "s1", "status": "success"}))
	_, err = done.Result(ctx, "out_monthly_comfort_all")
	assert.Error(t, err)

	table, err := done.ResultTable(ctx, "out_zones")
	require.NoError(t, err)
	assert.Equal(t, []string{"zone", "area"}, table.Header)
	area, err := table.Column("area")
	require.NoError(t, err)
	assert.Equal(t, []string{"12.5", "30"}, area)
}

func TestGroup_Results(t *testing.T) {
	c, fake := newTestClient(t)
	fake.On(http.MethodGet, groupPath+"/out_monthly_consumption_ep", transporttest.JSON(map[string]any{"blob_url": blobOut}))
	fake.SetBlob(blobOut, []byte("month,ep\n1,3\n"))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1", "status": "success"}))

	table, err := g.ResultTable(context.Background(), "out_monthly_consumption_ep")
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestSimulation_HourlyCSV(t *testing.T) {
	c, fake := newTestClient(t)
	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	w, err := zw.Create("hourly.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("datetime,t\n2019-01-01 00:00:00,4.2\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	fake.On(http.MethodGet, groupPath+"/simulations/s1/hourly_csv", transporttest.JSON(map[string]any{"blob_url": blobOut}))
	fake.SetBlob(blobOut, archive.Bytes())
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))
	sim := g.SimulationOf(g.Simulations().FromFields(map[string]any{"id": "s1"}))

	table, err := sim.HourlyTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"datetime", "t"}, table.Header)
	assert.Equal(t, [][]string{{"2019-01-01 00:00:00", "4.2"}}, table.Rows)
}

func TestSimulation_HourlyColumns(t *testing.T) {
	c, fake := newTestClient(t)
	fake.On(http.MethodGet, groupPath+"/simulations/s1/generic_viz", transporttest.JSON(map[string]any{
		"container_url": "https://blob.example.com/viz/",
		"sas_token":     "sig=3",
	}))
	fake.SetBlob("https://blob.example.com/viz/metadata.json?sig=3", []byte(`{"series": [
		{"topic": "energy", "name": "heating", "ozg": null, "azg": "a1", "zone": "z1", "unit": "kWh",
		 "energy_type": "ef", "energy_category": "heating", "use": null}
	]}`))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))
	sim := g.SimulationOf(g.Simulations().FromFields(map[string]any{"id": "s1"}))

	series, err := sim.HourlyColumns(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "energy|heating||a1|z1|kWh|ef|heating|", series[0].Ref())
}

func TestSimulation_Relations(t *testing.T) {
	c, fake := newTestClient(t)
	fake.On(http.MethodGet, RouteWeathers+"/w1", transporttest.JSON(map[string]any{"id": "w1", "name": "Paris"}))
	g := c.MultiSimulationGroupOf(c.MultiSimulationGroups.FromFields(map[string]any{"id": "sg1"}))
	sim := g.SimulationOf(g.Simulations().FromFields(map[string]any{"id": "s1", "weather_id": "w1", "obat_id": nil}))

	w, err := sim.Weather(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.Contains(w.String(), "Paris"))

	o, err := sim.Obat(context.Background())
	require.NoError(t, err)
	assert.Nil(t, o)
}
