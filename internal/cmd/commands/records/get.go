package records

import (
	"errors"
	"flag"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/pkg/record"
)

var errLimit = errors.New("limit reached")

// GetCommand prints one record or lists a collection.
type GetCommand struct {
	*base.Command

	common     base.CommonFlags
	flagFilter base.KeyValues
	flagLimit  int
}

func (c *GetCommand) Synopsis() string {
	return "Print a record or list a collection"
}

func (c *GetCommand) Help() string {
	return `Usage: oplus get [options] ROUTE [ID]

  Prints the record ID of ROUTE (for example "oplus/geometries"). Without
  ID, lists the collection, optionally filtered.` + c.Flags().Help()
}

func (c *GetCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("get", flag.ContinueOnError))
	c.common.Register(f)
	f.Var(&c.flagFilter, "filter", "Filter as key=value. Can be repeated.")
	f.IntVar(&c.flagLimit, "limit", 0, "Stop after this many records. 0 means all.")
	return f
}

func (c *GetCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) < 1 || len(args) > 2 {
		return c.Fail("expected ROUTE [ID]\n\n%s", c.Help())
	}

	client, _, err := c.Client(c.common.Config)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	ctx, cancel := c.Context()
	defer cancel()

	ep := client.Endpoint(args[0])

	if len(args) == 2 {
		rec, err := ep.Retrieve(ctx, args[1], nil)
		if err != nil {
			return c.Fail("error retrieving record: %v", err)
		}
		if err := base.Print(c.UI, c.common.Format, rec.Fields()); err != nil {
			return c.Fail("%v", err)
		}
		return 0
	}

	var out []map[string]any
	err = ep.ForEach(ctx, filterFromFlags(c.flagFilter), func(rec *record.Record) error {
		out = append(out, rec.Fields())
		if c.flagLimit > 0 && len(out) >= c.flagLimit {
			return errLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return c.Fail("error listing %s: %v", args[0], err)
	}
	c.Log.Debug("listed records", "route", args[0], "count", len(out))

	if err := base.Print(c.UI, c.common.Format, out); err != nil {
		return c.Fail("%v", err)
	}
	return 0
}
