// Package basetest wires commands to a scripted transport and an in-memory
// filesystem.
package basetest

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/openergy/oplus/internal/cmd/base"
	"github.com/openergy/oplus/internal/config"
	"github.com/openergy/oplus/pkg/oplus"
	"github.com/openergy/oplus/pkg/transport/transporttest"
)

// Env is a command environment for tests.
type Env struct {
	Command *base.Command
	UI      *cli.MockUi
	Fake    *transporttest.Fake
	Fs      afero.Fs
}

// New returns an environment whose commands talk to a fake transport with
// zero poll intervals and write artifacts to an in-memory filesystem.
func New(t *testing.T) *Env {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvAPIToken, "")

	env := &Env{
		UI:   cli.NewMockUi(),
		Fake: transporttest.New(),
		Fs:   afero.NewMemMapFs(),
	}
	env.Command = &base.Command{
		Log: hclog.NewNullLogger(),
		UI:  env.UI,
		Fs:  env.Fs,
		NewClient: func(_ *config.Config, opts ...oplus.Option) (*oplus.Client, error) {
			opts = append(opts, oplus.WithPollInterval(0), oplus.WithSimulationPollInterval(0))
			return oplus.NewWithTransport(env.Fake, opts...), nil
		},
	}
	return env
}

// Output returns what the command printed on stdout.
func (e *Env) Output() string {
	return e.UI.OutputWriter.String()
}

// Errors returns what the command printed on stderr.
func (e *Env) Errors() string {
	return e.UI.ErrorWriter.String()
}
