package simulations

import (
	"flag"
	"fmt"
	"io"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/pkg/oplus"
)

// WaitCommand blocks until a group or one of its simulations is done.
type WaitCommand struct {
	*base.Command

	flagConfig string
	flagLogs   bool
}

func (c *WaitCommand) Synopsis() string {
	return "Wait for a simulation group or simulation to finish"
}

func (c *WaitCommand) Help() string {
	return `Usage: oplus wait [options] GROUP_ID [SIMULATION_ID]

  Without SIMULATION_ID, waits while the group is working. With it, waits
  while the simulation is running and exits non-zero unless it succeeded.` + c.Flags().Help()
}

func (c *WaitCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("wait", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL configuration file. Defaults to $OPLUS_CONFIG.")
	f.BoolVar(&c.flagLogs, "logs", false, "Print simulation logs as they grow.")
	return f
}

func (c *WaitCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) < 1 || len(args) > 2 {
		return c.Fail("expected GROUP_ID [SIMULATION_ID]\n\n%s", c.Help())
	}

	client, _, err := c.Client(c.flagConfig)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	ctx, cancel := c.Context()
	defer cancel()

	group, err := client.SimulationGroup(ctx, args[0])
	if err != nil {
		return c.Fail("error retrieving group: %v", err)
	}

	if len(args) == 1 {
		if err := group.WaitForCompletion(ctx); err != nil {
			return c.Fail("error waiting for %s: %v", group, err)
		}
		status, _ := group.Status()
		c.UI.Info(fmt.Sprintf("%s finished with status %q", group, status))
		return 0
	}

	sim, err := group.Simulation(ctx, args[1])
	if err != nil {
		return c.Fail("error retrieving simulation: %v", err)
	}
	var logs io.Writer
	if c.flagLogs {
		logs = base.Writer{UI: c.UI}
	}
	if err := sim.WaitForCompletion(ctx, logs); err != nil {
		return c.Fail("error waiting for %s: %v", sim, err)
	}
	status, _ := sim.Status()
	if status != oplus.StatusSuccess {
		return c.Fail("%s finished with status %q", sim, status)
	}
	c.UI.Info(fmt.Sprintf("%s finished with status %q", sim, status))
	return 0
}
