package oplus

import (
	"context"
	"fmt"
	"maps"
	"net/url"

	"github.com/openergy/oplus/pkg/record"
)

// Geometry formats accepted at creation.
const (
	GeometryFormatFloorspace = "floorspace"
	GeometryFormatImport     = "import"
)

// Project groups the inputs and simulation groups of a study.
type Project struct {
	*record.Record
	c *Client
}

// ProjectOf returns a typed view of rec.
func (c *Client) ProjectOf(rec *record.Record) *Project {
	return &Project{Record: rec, c: c}
}

// Organization resolves the owning organization.
func (p *Project) Organization(ctx context.Context) (*Organization, error) {
	ref, err := p.Ref("organization")
	if err != nil {
		return nil, err
	}
	rec, err := p.c.Organizations.Resolve(ctx, ref)
	if err != nil || rec == nil {
		return nil, err
	}
	return p.c.OrganizationOf(rec), nil
}

func (p *Project) createChild(ctx context.Context, ep *record.Endpoint, name string, extra map[string]any) (*record.Record, error) {
	if _, ok := extra["project"]; ok {
		return nil, fmt.Errorf("cannot pass a project, using %q", p.ID())
	}
	fields := maps.Clone(extra)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["name"] = name
	fields["project"] = p.ID()
	return ep.Create(ctx, fields)
}

func (p *Project) children(ctx context.Context, ep *record.Endpoint) ([]*record.Record, error) {
	return ep.All(ctx, url.Values{"project": {p.ID()}})
}

func (p *Project) child(ctx context.Context, ep *record.Endpoint, name string) (*record.Record, error) {
	return ep.GetOne(ctx, url.Values{"project": {p.ID()}}, record.MatchField("name", name))
}

// CreateGeometry creates a geometry of format GeometryFormatFloorspace or
// GeometryFormatImport.
func (p *Project) CreateGeometry(ctx context.Context, name, format string) (*Geometry, error) {
	if format != GeometryFormatFloorspace && format != GeometryFormatImport {
		return nil, fmt.Errorf("geometry format must be %q or %q, got: %q", GeometryFormatImport, GeometryFormatFloorspace, format)
	}
	rec, err := p.createChild(ctx, p.c.Geometries, name, map[string]any{"format": format})
	if err != nil {
		return nil, err
	}
	return p.c.GeometryOf(rec), nil
}

// Geometry returns the geometry called name.
func (p *Project) Geometry(ctx context.Context, name string) (*Geometry, error) {
	rec, err := p.child(ctx, p.c.Geometries, name)
	if err != nil {
		return nil, err
	}
	return p.c.GeometryOf(rec), nil
}

// Geometries lists the project geometries.
func (p *Project) Geometries(ctx context.Context) ([]*Geometry, error) {
	recs, err := p.children(ctx, p.c.Geometries)
	if err != nil {
		return nil, err
	}
	out := make([]*Geometry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, p.c.GeometryOf(rec))
	}
	return out, nil
}

// CreateObat creates an empty obat.
func (p *Project) CreateObat(ctx context.Context, name string) (*Obat, error) {
	rec, err := p.createChild(ctx, p.c.Obats, name, nil)
	if err != nil {
		return nil, err
	}
	return p.c.ObatOf(rec), nil
}

// Obat returns the obat called name.
func (p *Project) Obat(ctx context.Context, name string) (*Obat, error) {
	rec, err := p.child(ctx, p.c.Obats, name)
	if err != nil {
		return nil, err
	}
	return p.c.ObatOf(rec), nil
}

// Obats lists the project obats.
func (p *Project) Obats(ctx context.Context) ([]*Obat, error) {
	recs, err := p.children(ctx, p.c.Obats)
	if err != nil {
		return nil, err
	}
	out := make([]*Obat, 0, len(recs))
	for _, rec := range recs {
		out = append(out, p.c.ObatOf(rec))
	}
	return out, nil
}

// CreateWeather creates a weather. An empty format means WeatherFormatGeneric.
func (p *Project) CreateWeather(ctx context.Context, name, format string) (*Weather, error) {
	if format == "" {
		format = WeatherFormatGeneric
	}
	rec, err := p.createChild(ctx, p.c.Weathers, name, map[string]any{"format": format})
	if err != nil {
		return nil, err
	}
	return p.c.WeatherOf(rec), nil
}

// Weather returns the weather called name.
func (p *Project) Weather(ctx context.Context, name string) (*Weather, error) {
	rec, err := p.child(ctx, p.c.Weathers, name)
	if err != nil {
		return nil, err
	}
	return p.c.WeatherOf(rec), nil
}

// Weathers lists the project weathers.
func (p *Project) Weathers(ctx context.Context) ([]*Weather, error) {
	recs, err := p.children(ctx, p.c.Weathers)
	if err != nil {
		return nil, err
	}
	out := make([]*Weather, 0, len(recs))
	for _, rec := range recs {
		out = append(out, p.c.WeatherOf(rec))
	}
	return out, nil
}

// CreateMonoSimulationGroup creates a mono simulation group. extra carries
// its configuration, e.g. config_obat.
func (p *Project) CreateMonoSimulationGroup(ctx context.Context, name string, extra map[string]any) (*MonoSimulationGroup, error) {
	rec, err := p.createChild(ctx, p.c.MonoSimulationGroups, name, extra)
	if err != nil {
		return nil, err
	}
	return p.c.MonoSimulationGroupOf(rec), nil
}

// CreateMultiSimulationGroup creates an empty multi simulation group.
func (p *Project) CreateMultiSimulationGroup(ctx context.Context, name string) (*MultiSimulationGroup, error) {
	rec, err := p.createChild(ctx, p.c.MultiSimulationGroups, name, nil)
	if err != nil {
		return nil, err
	}
	return p.c.MultiSimulationGroupOf(rec), nil
}

// CreateGenericSimulationGroup creates an empty generic simulation group.
func (p *Project) CreateGenericSimulationGroup(ctx context.Context, name string) (*GenericSimulationGroup, error) {
	rec, err := p.createChild(ctx, p.c.GenericSimulationGroups, name, nil)
	if err != nil {
		return nil, err
	}
	return p.c.GenericSimulationGroupOf(rec), nil
}

// SimulationGroups lists the project simulation groups of every kind.
func (p *Project) SimulationGroups(ctx context.Context) ([]*SimulationGroup, error) {
	recs, err := p.children(ctx, p.c.SimulationGroups)
	if err != nil {
		return nil, err
	}
	out := make([]*SimulationGroup, 0, len(recs))
	for _, rec := range recs {
		out = append(out, p.c.SimulationGroupOf(rec))
	}
	return out, nil
}
