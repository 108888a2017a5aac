package simulations

import (
	"context"
	"flag"
	"fmt"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/pkg/oplus"
)

// ResultHourly selects the hourly outputs of a simulation.
const ResultHourly = "hourly"

// ResultCommand downloads a result of a simulation or of a multi group.
type ResultCommand struct {
	*base.Command

	flagConfig string
	flagName   string
}

func (c *ResultCommand) Synopsis() string {
	return "Download a simulation or simulation group result"
}

func (c *ResultCommand) Help() string {
	return `Usage: oplus result [options] GROUP_ID [SIMULATION_ID] RESULT

  Writes RESULT to the configured artifact store. With SIMULATION_ID,
  RESULT is a simulation result (for example "out_zones") or "hourly"
  for the hourly csv; otherwise it is a result of the multi simulation
  group.` + c.Flags().Help()
}

func (c *ResultCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("result", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL configuration file. Defaults to $OPLUS_CONFIG.")
	f.StringVar(&c.flagName, "name", "", "Artifact name. Defaults to ID-RESULT.csv.")
	return f
}

func (c *ResultCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) < 2 || len(args) > 3 {
		return c.Fail("expected GROUP_ID [SIMULATION_ID] RESULT\n\n%s", c.Help())
	}

	client, cfg, err := c.Client(c.flagConfig)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	sink, err := c.Sink(cfg)
	if err != nil {
		return c.Fail("%v", err)
	}

	ctx, cancel := c.Context()
	defer cancel()

	owner, data, err := c.fetch(ctx, client, args)
	if err != nil {
		return c.Fail("%v", err)
	}

	result := args[len(args)-1]
	name := c.flagName
	if name == "" {
		name = owner + "-" + result + ".csv"
	}
	loc, err := sink.Put(ctx, name, data)
	if err != nil {
		return c.Fail("error writing %s: %v", name, err)
	}
	c.UI.Info(fmt.Sprintf("wrote %s", loc))
	return 0
}

// fetch returns the id of the result owner and the result bytes.
func (c *ResultCommand) fetch(ctx context.Context, client *oplus.Client, args []string) (string, []byte, error) {
	if len(args) == 2 {
		group, err := client.MultiSimulationGroup(ctx, args[0])
		if err != nil {
			return "", nil, fmt.Errorf("error retrieving group: %w", err)
		}
		data, err := group.Result(ctx, args[1])
		return group.ID(), data, err
	}

	group, err := client.SimulationGroup(ctx, args[0])
	if err != nil {
		return "", nil, fmt.Errorf("error retrieving group: %w", err)
	}
	sim, err := group.Simulation(ctx, args[1])
	if err != nil {
		return "", nil, fmt.Errorf("error retrieving simulation: %w", err)
	}
	if args[2] == ResultHourly {
		data, err := sim.HourlyCSV(ctx)
		return sim.ID(), data, err
	}
	data, err := sim.Result(ctx, args[2])
	return sim.ID(), data, err
}
