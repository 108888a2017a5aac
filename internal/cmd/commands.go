package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/internal/cmd/commands/ping"
	"github.com/openergy/oplus/internal/cmd/commands/records"
	"github.com/openergy/oplus/internal/cmd/commands/simulations"
	"github.com/openergy/oplus/internal/cmd/commands/tasks"
	"github.com/openergy/oplus/internal/cmd/commands/transfer"
	"github.com/openergy/oplus/internal/cmd/commands/version"
)

// Commands is the mapping of all available oplus commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := &base.Command{
		Log: log,
		UI:  ui,
	}

	Commands = map[string]cli.CommandFactory{
		"add-simulation": func() (cli.Command, error) {
			return &simulations.AddCommand{Command: b}, nil
		},
		"delete": func() (cli.Command, error) {
			return &records.DeleteCommand{Command: b}, nil
		},
		"export": func() (cli.Command, error) {
			return &transfer.ExportCommand{Command: b}, nil
		},
		"get": func() (cli.Command, error) {
			return &records.GetCommand{Command: b}, nil
		},
		"import": func() (cli.Command, error) {
			return &transfer.ImportCommand{Command: b}, nil
		},
		"ping": func() (cli.Command, error) {
			return &ping.Command{Command: b}, nil
		},
		"result": func() (cli.Command, error) {
			return &simulations.ResultCommand{Command: b}, nil
		},
		"run": func() (cli.Command, error) {
			return &simulations.RunCommand{Command: b}, nil
		},
		"task": func() (cli.Command, error) {
			return &tasks.Command{Command: b}, nil
		},
		"update": func() (cli.Command, error) {
			return &records.UpdateCommand{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
		"wait": func() (cli.Command, error) {
			return &simulations.WaitCommand{Command: b}, nil
		},
	}
}
