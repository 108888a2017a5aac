package records

import (
	"flag"

	"github.com/openergy/oplus/internal/cmd/base"
)

// UpdateCommand patches fields of a record.
type UpdateCommand struct {
	*base.Command

	common  base.CommonFlags
	flagSet base.KeyValues
}

func (c *UpdateCommand) Synopsis() string {
	return "Update fields of a record"
}

func (c *UpdateCommand) Help() string {
	return `Usage: oplus update [options] ROUTE ID

  Sends the -set fields as a partial update and prints the record as the
  server returns it. Keys are converted to snake_case; values are JSON when
  they parse (numbers, booleans, null, objects) and strings otherwise.` + c.Flags().Help()
}

func (c *UpdateCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("update", flag.ContinueOnError))
	c.common.Register(f)
	f.Var(&c.flagSet, "set", "Field to update as key=value. Can be repeated.")
	return f
}

func (c *UpdateCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) != 2 {
		return c.Fail("expected ROUTE ID\n\n%s", c.Help())
	}
	if len(c.flagSet) == 0 {
		return c.Fail("nothing to update, use -set key=value")
	}

	client, _, err := c.Client(c.common.Config)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	ctx, cancel := c.Context()
	defer cancel()

	rec := client.Endpoint(args[0]).FromFields(map[string]any{"id": args[1]})
	if err := rec.Update(ctx, fieldsFromFlags(c.flagSet)); err != nil {
		return c.Fail("error updating %s: %v", rec.Path(), err)
	}

	if err := base.Print(c.UI, c.common.Format, rec.Fields()); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}
