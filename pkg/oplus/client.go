package oplus

import (
	"context"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/openergy/oplus/pkg/record"
	"github.com/openergy/oplus/pkg/task"
	"github.com/openergy/oplus/pkg/transport"
)

// Collection routes.
const (
	RouteGeometries                      = "ossgeometry/geometries"
	RouteFloorspaces                     = "ossgeometry/floorspaces"
	RouteObats                           = "ossbat/obats"
	RouteObatContents                    = "ossbat/obat_contents"
	RouteWeathers                        = "ossweather/weathers"
	RouteGenericWeatherSeries            = "ossweather/generic_weather_series"
	RouteHistoricalWeatherSeries         = "ossweather/historical_weather_series"
	RouteOpenergyHistoricalWeatherSeries = "ossweather/openergy_historical_weather_series"
	RouteSimulationGroups                = "osssimulations/simulation_groups"
	RouteMonoSimulationGroups            = "osssimulations/mono_simulation_groups"
	RouteMultiSimulationGroups           = "osssimulations/multi_simulation_groups"
	RouteGenericSimulationGroups         = "osssimulations/generic_simulation_groups"
	RouteUsers                           = "oteams/users"
	RouteOrganizations                   = "oteams/organizations"
	RouteProjects                        = "oteams/projects"
	RouteUserOrganizationPermissions     = "oteams/user_organization_permissions"
)

// DefaultSimulationPollInterval is the reload period of
// Simulation.WaitForCompletion.
const DefaultSimulationPollInterval = 3 * time.Second

// Transport is what the client needs from the network.
type Transport interface {
	transport.Requester
	transport.BlobStore
}

// Client is the entry point to the platform.
type Client struct {
	transport Transport
	logger    hclog.Logger

	pollInterval    time.Duration
	simPollInterval time.Duration

	Geometries                      *record.Endpoint
	Floorspaces                     *record.Endpoint
	Obats                           *record.Endpoint
	ObatContents                    *record.Endpoint
	Weathers                        *record.Endpoint
	GenericWeatherSeries            *record.Endpoint
	HistoricalWeatherSeries         *record.Endpoint
	OpenergyHistoricalWeatherSeries *record.Endpoint
	SimulationGroups                *record.Endpoint
	MonoSimulationGroups            *record.Endpoint
	MultiSimulationGroups           *record.Endpoint
	GenericSimulationGroups         *record.Endpoint
	Users                           *record.Endpoint
	Organizations                   *record.Endpoint
	Projects                        *record.Endpoint
	UserOrganizationPermissions     *record.Endpoint
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPollInterval sets the period used to poll user tasks and simulation
// groups. Default: task.DefaultPollInterval
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithSimulationPollInterval sets the period used to reload a running
// simulation. Default: DefaultSimulationPollInterval
func WithSimulationPollInterval(d time.Duration) Option {
	return func(c *Client) { c.simPollInterval = d }
}

// New creates a client talking HTTP to the API described by cfg.
func New(cfg *transport.Config, opts ...Option) (*Client, error) {
	c := newClient(opts)
	tc, err := transport.New(cfg, c.logger.Named("transport"))
	if err != nil {
		return nil, err
	}
	c.setTransport(tc)
	return c, nil
}

// NewWithTransport creates a client over an existing transport.
func NewWithTransport(t Transport, opts ...Option) *Client {
	c := newClient(opts)
	c.setTransport(t)
	return c
}

func newClient(opts []Option) *Client {
	c := &Client{
		logger:          hclog.NewNullLogger(),
		pollInterval:    task.DefaultPollInterval,
		simPollInterval: DefaultSimulationPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("oplus")
	return c
}

func (c *Client) setTransport(t Transport) {
	c.transport = t

	ep := func(route string) *record.Endpoint {
		return record.NewEndpoint(t, route,
			record.WithLogger(c.logger),
			record.WithPollInterval(c.pollInterval))
	}

	c.Geometries = ep(RouteGeometries)
	c.Floorspaces = ep(RouteFloorspaces)
	c.Obats = ep(RouteObats)
	c.ObatContents = ep(RouteObatContents)
	c.Weathers = ep(RouteWeathers)
	c.GenericWeatherSeries = ep(RouteGenericWeatherSeries)
	c.HistoricalWeatherSeries = ep(RouteHistoricalWeatherSeries)
	c.OpenergyHistoricalWeatherSeries = ep(RouteOpenergyHistoricalWeatherSeries)
	c.SimulationGroups = ep(RouteSimulationGroups)
	c.MonoSimulationGroups = ep(RouteMonoSimulationGroups)
	c.MultiSimulationGroups = ep(RouteMultiSimulationGroups)
	c.GenericSimulationGroups = ep(RouteGenericSimulationGroups)
	c.Users = ep(RouteUsers)
	c.Organizations = ep(RouteOrganizations)
	c.Projects = ep(RouteProjects)
	c.UserOrganizationPermissions = ep(RouteUserOrganizationPermissions)
}

// Transport returns the underlying transport.
func (c *Client) Transport() Transport {
	return c.transport
}

// Endpoint returns the endpoint serving route, or a new one for routes the
// client does not predefine.
func (c *Client) Endpoint(route string) *record.Endpoint {
	for _, ep := range []*record.Endpoint{
		c.Geometries, c.Floorspaces, c.Obats, c.ObatContents, c.Weathers,
		c.GenericWeatherSeries, c.HistoricalWeatherSeries, c.OpenergyHistoricalWeatherSeries,
		c.SimulationGroups, c.MonoSimulationGroups, c.MultiSimulationGroups, c.GenericSimulationGroups,
		c.Users, c.Organizations, c.Projects, c.UserOrganizationPermissions,
	} {
		if ep.Route() == route {
			return ep
		}
	}
	return record.NewEndpoint(c.transport, route,
		record.WithLogger(c.logger),
		record.WithPollInterval(c.pollInterval))
}

// Task returns a handle on user task id.
func (c *Client) Task(id string) *task.Handle {
	return task.New(c.transport, id, c.logger.Named("task"))
}

// PollInterval returns the task polling period.
func (c *Client) PollInterval() time.Duration {
	return c.pollInterval
}

// Close releases network resources held by the transport.
func (c *Client) Close() {
	if closer, ok := c.transport.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Organization returns the organization called name.
func (c *Client) Organization(ctx context.Context, name string) (*Organization, error) {
	rec, err := c.Organizations.GetOne(ctx, url.Values{"name": {name}}, record.MatchField("name", name))
	if err != nil {
		return nil, err
	}
	return &Organization{Record: rec, c: c}, nil
}

// Project returns the project called projectName in organization orgName.
func (c *Client) Project(ctx context.Context, orgName, projectName string) (*Project, error) {
	org, err := c.Organization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	return org.Project(ctx, projectName)
}
