package tasks

import (
	"flag"
	"time"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/pkg/task"
)

// Command shows a user task, optionally waiting for it to finish.
type Command struct {
	*base.Command

	common      base.CommonFlags
	flagWait    bool
	flagTimeout time.Duration
}

func (c *Command) Synopsis() string {
	return "Show or wait for an asynchronous task"
}

func (c *Command) Help() string {
	return `Usage: oplus task [options] ID

  Prints the task as served by the API. With -wait, polls until the task is
  finished and exits non-zero if it failed.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("task", flag.ContinueOnError))
	c.common.Register(f)
	f.BoolVar(&c.flagWait, "wait", false, "Wait for the task to finish.")
	f.DurationVar(&c.flagTimeout, "timeout", 0, "Give up waiting after this long. 0 waits forever.")
	return f
}

func (c *Command) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}
	args = flags.Args()
	if len(args) != 1 {
		return c.Fail("expected a task ID\n\n%s", c.Help())
	}

	client, _, err := c.Client(c.common.Config)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	ctx, cancel := c.Context()
	defer cancel()

	h := client.Task(args[0])
	if c.flagWait {
		var opts []task.WaitOption
		if c.flagTimeout > 0 {
			opts = append(opts, task.WithTimeout(c.flagTimeout))
		}
		if _, err := h.WaitForCompletion(ctx, client.PollInterval(), opts...); err != nil {
			return c.Fail("error waiting for task %s: %v", h.ID(), err)
		}
	}

	rep, err := h.Representation(ctx)
	if err != nil {
		return c.Fail("error reading task %s: %v", h.ID(), err)
	}
	if err := base.Print(c.UI, c.common.Format, rep); err != nil {
		return c.Fail("%v", err)
	}

	if c.flagWait {
		if err := h.Err("task"); err != nil {
			return c.Fail("%v", err)
		}
	}
	return 0
}
