package simulations

import (
	"flag"
	"fmt"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/pkg/oplus"
)

// RunCommand starts the simulations of a group.
type RunCommand struct {
	*base.Command

	flagConfig         string
	flagRunOldVersions bool
	flagDetach         bool
	flagWait           bool
}

func (c *RunCommand) Synopsis() string {
	return "Run the simulations of a simulation group"
}

func (c *RunCommand) Help() string {
	return `Usage: oplus run [options] GROUP_ID

  Starts the group and waits until its simulations are started. With -wait,
  also waits until the group is no longer working.` + c.Flags().Help()
}

func (c *RunCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("run", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL configuration file. Defaults to $OPLUS_CONFIG.")
	f.BoolVar(&c.flagRunOldVersions, "run-old-versions", false, "Rerun simulations whose inputs did not change.")
	f.BoolVar(&c.flagDetach, "detach", false, "Return once the run task is created.")
	f.BoolVar(&c.flagWait, "wait", false, "Wait for the group to finish.")
	return f
}

func (c *RunCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) != 1 {
		return c.Fail("expected GROUP_ID\n\n%s", c.Help())
	}
	if c.flagDetach && c.flagWait {
		return c.Fail("-detach and -wait cannot be combined")
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

	h, err := group.Run(ctx, oplus.RunOptions{
		RunOldVersions: c.flagRunOldVersions,
		Detach:         c.flagDetach,
	})
	if err != nil {
		return c.Fail("%v", err)
	}
	if c.flagDetach {
		c.UI.Output(h.ID())
		return 0
	}
	c.UI.Info(fmt.Sprintf("started %s", group))

	if !c.flagWait {
		return 0
	}
	if err := group.WaitForCompletion(ctx); err != nil {
		return c.Fail("error waiting for %s: %v", group, err)
	}
	status, _ := group.Status()
	c.UI.Info(fmt.Sprintf("%s finished with status %q", group, status))
	return 0
}
