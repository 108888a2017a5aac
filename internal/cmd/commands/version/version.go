package version

import (
	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version of the oplus CLI"
}

func (c *Command) Help() string {
	return "Usage: oplus version"
}

func (c *Command) Run(args []string) int {
	c.UI.Output(version.Version)
	return 0
}
