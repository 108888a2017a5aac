package ping

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/openergy/oplus/internal/cmd/base"
)

// Command waits for the API to answer.
type Command struct {
	*base.Command

	flagConfig  string
	flagTimeout time.Duration
	flagEvery   time.Duration
}

type onlineWaiter interface {
	WaitForOnline(ctx context.Context, timeout, every time.Duration) error
}

func (c *Command) Synopsis() string {
	return "Wait until the Oplus API is reachable"
}

func (c *Command) Help() string {
	return `Usage: oplus ping [options]

  Polls the API until it answers or the timeout expires.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("ping", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL configuration file. Defaults to $OPLUS_CONFIG.")
	f.DurationVar(&c.flagTimeout, "timeout", time.Minute, "Give up after this long.")
	f.DurationVar(&c.flagEvery, "every", 2*time.Second, "Delay between attempts.")
	return f
}

func (c *Command) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		return c.Fail("error parsing flags: %v", err)
	}

	client, cfg, err := c.Client(c.flagConfig)
	if err != nil {
		return c.Fail("%v", err)
	}
	defer client.Close()

	w, ok := client.Transport().(onlineWaiter)
	if !ok {
		return c.Fail("transport does not support health checks")
	}

	ctx, cancel := c.Context()
	defer cancel()

	start := time.Now()
	if err := w.WaitForOnline(ctx, c.flagTimeout, c.flagEvery); err != nil {
		return c.Fail("%s is not reachable: %v", cfg.BaseURL, err)
	}
	c.UI.Info(fmt.Sprintf("%s is online (%s)", cfg.BaseURL, time.Since(start).Round(time.Millisecond)))
	return 0
}
