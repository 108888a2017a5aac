package records

import (
	"flag"
	"fmt"

	"github.com/openergy/oplus/internal/cmd/base"
)

// DeleteCommand deletes a record, waiting for the deletion task if the
// server answers with one.
type DeleteCommand struct {
	*base.Command

	flagConfig string
}

func (c *DeleteCommand) Synopsis() string {
	return "Delete a record"
}

func (c *DeleteCommand) Help() string {
	return `Usage: oplus delete [options] ROUTE ID` + c.Flags().Help()
}

func (c *DeleteCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("delete", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL configuration file. Defaults to $OPLUS_CONFIG.")
	return f
}

func (c *DeleteCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) != 2 {
		return c.Fail("expected ROUTE ID\n\n%s", c.Help())
	}

	client, _, err := c.Client(c.flagConfig)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	ctx, cancel := c.Context()
	defer cancel()

	rec := client.Endpoint(args[0]).FromFields(map[string]any{"id": args[1]})
	if err := rec.Delete(ctx); err != nil {
		return c.Fail("error deleting %s: %v", rec.Path(), err)
	}
	c.UI.Info(fmt.Sprintf("deleted %s", rec.Path()))
	return 0
}
