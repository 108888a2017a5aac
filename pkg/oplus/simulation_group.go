package oplus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/openergy/oplus/pkg/record"
	"github.com/openergy/oplus/pkg/task"
	"github.com/openergy/oplus/pkg/transport"
)

// SimulationGroup is a set of simulations run together. The mono, multi and
// generic kinds embed it.
type SimulationGroup struct {
	*record.Record
	c *Client
}

// SimulationGroupOf returns a typed view of rec.
func (c *Client) SimulationGroupOf(rec *record.Record) *SimulationGroup {
	return &SimulationGroup{Record: rec, c: c}
}

// SimulationGroup retrieves group id from the collection of all kinds.
func (c *Client) SimulationGroup(ctx context.Context, id string) (*SimulationGroup, error) {
	rec, err := c.SimulationGroups.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return c.SimulationGroupOf(rec), nil
}

// RunOptions tunes SimulationGroup.Run.
type RunOptions struct {
	// RunOldVersions reruns simulations whose inputs did not change.
	RunOldVersions bool

	// Detach returns as soon as the run task is created instead of waiting
	// for the simulations to be started.
	Detach bool
}

// Run starts the simulations of the group and returns the run task. Unless
// opts.Detach is set it waits for the task and reports a failure as a
// *SimulationStartError.
func (g *SimulationGroup) Run(ctx context.Context, opts RunOptions) (*task.Handle, error) {
	query := transport.Params(map[string]any{"run_old_versions": opts.RunOldVersions})
	resp, err := g.DetailAction(ctx, "run", http.MethodPost, nil, query)
	if err != nil {
		return nil, err
	}
	taskID, ok := task.IDFromResponse(resp)
	if !ok {
		return nil, fmt.Errorf("run of %s: %w", g.Path(), ErrNoTask)
	}

	h := g.c.Task(taskID)
	if opts.Detach {
		return h, nil
	}

	g.c.logger.Info("waiting for simulations to start", "group", g.ID(), "task_id", taskID)
	if _, err := h.WaitForCompletion(ctx, g.c.pollInterval); err != nil {
		return h, err
	}
	if err := h.Err("simulation start"); err != nil {
		return h, &SimulationStartError{GroupID: g.ID(), Err: err}
	}
	return h, nil
}

// Working reports whether simulations of the group are still running, as
// last fetched.
func (g *SimulationGroup) Working() (bool, error) {
	return g.GetBool("working")
}

// Status returns the group status, as last fetched.
func (g *SimulationGroup) Status() (string, error) {
	return g.GetString("status")
}

// WaitForCompletion reloads the group every poll interval until it stops
// working. It always reloads at least once.
func (g *SimulationGroup) WaitForCompletion(ctx context.Context) error {
	return g.WaitForCompletionEvery(ctx, g.c.pollInterval)
}

// WaitForCompletionEvery is WaitForCompletion with an explicit period.
func (g *SimulationGroup) WaitForCompletionEvery(ctx context.Context, interval time.Duration) error {
	reloads := 0
	for {
		if err := g.Reload(ctx); err != nil {
			return err
		}
		reloads++

		working, err := g.Working()
		if err != nil {
			return err
		}
		if !working {
			status, _ := g.Status()
			g.c.logger.Info("simulation group finished", "group", g.ID(), "status", status, "reloads", reloads)
			return nil
		}
		if err := task.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// Simulations returns the endpoint of the group simulations. It pages by
// cursor.
func (g *SimulationGroup) Simulations() *record.Endpoint {
	return g.Endpoint().Nested(g.ID(), "simulations", record.WithPaginator(record.CursorPaginator{}))
}

// SimulationOf returns a typed view of rec, a simulation of g.
func (g *SimulationGroup) SimulationOf(rec *record.Record) *Simulation {
	return &Simulation{Record: rec, c: g.c, group: g}
}

// ForEachSimulation walks the simulations of the group, restricted to status
// when not empty.
func (g *SimulationGroup) ForEachSimulation(ctx context.Context, status string, fn func(*Simulation) error) error {
	filter := url.Values{}
	if status != "" {
		filter.Set("status", status)
	}
	return g.Simulations().ForEach(ctx, filter, func(rec *record.Record) error {
		return fn(g.SimulationOf(rec))
	})
}

// AllSimulations collects the simulations of the group. Prefer
// ForEachSimulation on large groups.
func (g *SimulationGroup) AllSimulations(ctx context.Context, status string) ([]*Simulation, error) {
	var out []*Simulation
	err := g.ForEachSimulation(ctx, status, func(s *Simulation) error {
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var errStop = errors.New("stop")

// SimulationByName returns the first simulation called name. Filtering is
// done client side.
func (g *SimulationGroup) SimulationByName(ctx context.Context, name string) (*Simulation, error) {
	var found *Simulation
	err := g.ForEachSimulation(ctx, "", func(s *Simulation) error {
		if n, _ := s.GetString("name"); n == name {
			found = s
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if found == nil {
		return nil, &record.RecordNotFoundError{Route: g.Simulations().Route(), Filter: url.Values{"name": {name}}}
	}
	return found, nil
}

// Simulation retrieves simulation id of the group.
func (g *SimulationGroup) Simulation(ctx context.Context, id string) (*Simulation, error) {
	rec, err := g.Simulations().Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return g.SimulationOf(rec), nil
}

// MonoSimulationGroup runs a single simulation configured on the group.
type MonoSimulationGroup struct {
	*SimulationGroup
}

// MonoSimulationGroupOf returns a typed view of rec.
func (c *Client) MonoSimulationGroupOf(rec *record.Record) *MonoSimulationGroup {
	return &MonoSimulationGroup{SimulationGroup: c.SimulationGroupOf(rec)}
}

// MonoSimulationGroup retrieves mono group id.
func (c *Client) MonoSimulationGroup(ctx context.Context, id string) (*MonoSimulationGroup, error) {
	rec, err := c.MonoSimulationGroups.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return c.MonoSimulationGroupOf(rec), nil
}

// Obat resolves the configured obat, or nil.
func (g *MonoSimulationGroup) Obat(ctx context.Context) (*Obat, error) {
	rec, err := resolveField(ctx, g.Record, "config_obat", g.c.Obats)
	if err != nil || rec == nil {
		return nil, err
	}
	return g.c.ObatOf(rec), nil
}

// Geometry resolves the configured geometry, or nil.
func (g *MonoSimulationGroup) Geometry(ctx context.Context) (*Geometry, error) {
	rec, err := resolveField(ctx, g.Record, "config_geometry", g.c.Geometries)
	if err != nil || rec == nil {
		return nil, err
	}
	return g.c.GeometryOf(rec), nil
}

// Weather resolves the configured weather, or nil.
func (g *MonoSimulationGroup) Weather(ctx context.Context) (*Weather, error) {
	rec, err := resolveField(ctx, g.Record, "config_weather", g.c.Weathers)
	if err != nil || rec == nil {
		return nil, err
	}
	return g.c.WeatherOf(rec), nil
}

// SingleSimulation returns the simulation of the group, or nil before the
// first run.
func (g *MonoSimulationGroup) SingleSimulation(ctx context.Context) (*Simulation, error) {
	var first *Simulation
	err := g.ForEachSimulation(ctx, "", func(s *Simulation) error {
		first = s
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return first, nil
}

// SimulationSpec describes a simulation added to a multi or generic group.
type SimulationSpec struct {
	Name       string
	WeatherID  string
	GeometryID string
	ObatID     string

	// Start and End are whole days; End is inclusive.
	Start time.Time
	End   time.Time

	Variant string

	// SubstituteModifications is only sent to generic groups.
	SubstituteModifications map[string]any

	OutputsDetailNFEN12831 bool
	OutputsReport          bool
}

// The API takes whole days: start at midnight, end on the last second.
const (
	startOfDay = "T00:00:00"
	endOfDay   = "T23:59:59"
)

func (s SimulationSpec) validate() error {
	switch {
	case s.Name == "":
		return errors.New("simulation name is required")
	case s.WeatherID == "" || s.GeometryID == "" || s.ObatID == "":
		return errors.New("simulation needs a weather, a geometry and an obat")
	case s.End.Before(s.Start):
		return fmt.Errorf("simulation end %s is before start %s", s.End.Format(time.DateOnly), s.Start.Format(time.DateOnly))
	}
	return nil
}

func (s SimulationSpec) body(generic bool) map[string]any {
	var variant any
	if s.Variant != "" {
		variant = s.Variant
	}
	body := map[string]any{
		"name":                     s.Name,
		"weather_id":               s.WeatherID,
		"geometry_id":              s.GeometryID,
		"obat_id":                  s.ObatID,
		"start":                    s.Start.Format(time.DateOnly) + startOfDay,
		"end":                      s.End.Format(time.DateOnly) + endOfDay,
		"variant":                  variant,
		"outputs_detail_nfen12831": s.OutputsDetailNFEN12831,
		"outputs_report":           s.OutputsReport,
	}
	if generic {
		body["substitute_modifications"] = s.SubstituteModifications
	}
	return body
}

func (g *SimulationGroup) addSimulation(ctx context.Context, spec SimulationSpec, generic bool) (*Simulation, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	resp, err := g.DetailAction(ctx, "add_simulation", http.MethodPost, spec.body(generic), nil)
	if err != nil {
		return nil, err
	}
	sim := g.SimulationOf(g.Simulations().FromFields(resp))
	g.c.logger.Info("simulation added", "group", g.ID(), "simulation", sim.ID())
	return sim, nil
}

func (g *SimulationGroup) deleteSimulation(ctx context.Context, id string) error {
	_, err := g.DetailAction(ctx, "delete_simulation", http.MethodDelete, map[string]any{"id": id}, nil)
	return err
}

// MultiSimulationGroup runs simulations combining existing inputs.
type MultiSimulationGroup struct {
	*SimulationGroup
}

// MultiSimulationGroupOf returns a typed view of rec.
func (c *Client) MultiSimulationGroupOf(rec *record.Record) *MultiSimulationGroup {
	return &MultiSimulationGroup{SimulationGroup: c.SimulationGroupOf(rec)}
}

// MultiSimulationGroup retrieves multi group id.
func (c *Client) MultiSimulationGroup(ctx context.Context, id string) (*MultiSimulationGroup, error) {
	rec, err := c.MultiSimulationGroups.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return c.MultiSimulationGroupOf(rec), nil
}

// AddSimulation adds a simulation to the group.
func (g *MultiSimulationGroup) AddSimulation(ctx context.Context, spec SimulationSpec) (*Simulation, error) {
	return g.addSimulation(ctx, spec, false)
}

// UpdateSimulation changes fields of a simulation of the group; fields must
// carry its "id".
func (g *MultiSimulationGroup) UpdateSimulation(ctx context.Context, fields map[string]any) (*Simulation, error) {
	if _, ok := fields["id"]; !ok {
		return nil, errors.New("simulation id is required")
	}
	resp, err := g.DetailAction(ctx, "update_simulation", http.MethodPatch, fields, nil)
	if err != nil {
		return nil, err
	}
	return g.SimulationOf(g.Simulations().FromFields(resp)), nil
}

// DeleteSimulation removes simulation id from the group.
func (g *MultiSimulationGroup) DeleteSimulation(ctx context.Context, id string) error {
	return g.deleteSimulation(ctx, id)
}

// Result downloads a group-level result table (see GroupResults).
func (g *MultiSimulationGroup) Result(ctx context.Context, name string) ([]byte, error) {
	return fetchResult(ctx, g.c, g.Record, GroupResults, name)
}

// ResultTable is Result parsed as CSV.
func (g *MultiSimulationGroup) ResultTable(ctx context.Context, name string) (*Table, error) {
	data, err := g.Result(ctx, name)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// GenericSimulationGroup runs simulations whose obat may be modified per
// simulation.
type GenericSimulationGroup struct {
	*SimulationGroup
}

// GenericSimulationGroupOf returns a typed view of rec.
func (c *Client) GenericSimulationGroupOf(rec *record.Record) *GenericSimulationGroup {
	return &GenericSimulationGroup{SimulationGroup: c.SimulationGroupOf(rec)}
}

// GenericSimulationGroup retrieves generic group id.
func (c *Client) GenericSimulationGroup(ctx context.Context, id string) (*GenericSimulationGroup, error) {
	rec, err := c.GenericSimulationGroups.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return c.GenericSimulationGroupOf(rec), nil
}

// AddSimulation adds a simulation to the group.
func (g *GenericSimulationGroup) AddSimulation(ctx context.Context, spec SimulationSpec) (*Simulation, error) {
	return g.addSimulation(ctx, spec, true)
}

// DeleteSimulation removes simulation id from the group.
func (g *GenericSimulationGroup) DeleteSimulation(ctx context.Context, id string) error {
	return g.deleteSimulation(ctx, id)
}

func resolveField(ctx context.Context, rec *record.Record, field string, ep *record.Endpoint) (*record.Record, error) {
	ref, err := rec.Ref(field)
	if err != nil {
		return nil, err
	}
	return ep.Resolve(ctx, ref)
}
