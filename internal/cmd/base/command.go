package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/openergy/oplus/internal/config"
	"github.com/openergy/oplus/pkg/artifact"
	"github.com/openergy/oplus/pkg/oplus"
)

// Command is embedded by every oplus subcommand.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui

	// Fs is where import sources are read and artifacts written.
	Fs afero.Fs

	// NewClient builds the API client. Nil means oplus.New.
	NewClient func(cfg *config.Config, opts ...oplus.Option) (*oplus.Client, error)
}

// Context returns a context cancelled on interrupt.
func (c *Command) Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// LoadConfig reads the configuration file named by path, falling back to
// $OPLUS_CONFIG, and sets the log level.
func (c *Command) LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Log.SetLevel(cfg.Level())
	return cfg, nil
}

// Client loads the configuration and connects to the API.
func (c *Command) Client(configPath string) (*oplus.Client, *config.Config, error) {
	cfg, err := c.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	opts := []oplus.Option{
		oplus.WithLogger(c.Log),
		oplus.WithPollInterval(cfg.TaskPollInterval()),
		oplus.WithSimulationPollInterval(cfg.SimulationPoll()),
	}

	newClient := c.NewClient
	if newClient == nil {
		newClient = func(cfg *config.Config, opts ...oplus.Option) (*oplus.Client, error) {
			return oplus.New(cfg.Transport(c.askToken), opts...)
		}
	}
	client, err := newClient(cfg, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating client: %w", err)
	}
	return client, cfg, nil
}

// askToken prompts for the API token when none is configured.
func (c *Command) askToken(ctx context.Context) (string, error) {
	tok, err := c.UI.AskSecret(fmt.Sprintf("Oplus API token (or set %s):", config.EnvAPIToken))
	if err != nil {
		return "", err
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", errors.New("no api token given")
	}
	return tok, nil
}

// Sink returns where downloaded artifacts go.
func (c *Command) Sink(cfg *config.Config) (artifact.Sink, error) {
	return cfg.Sink(c.fs(), c.Log)
}

// OpenArtifact opens name from the configured artifact stores.
func (c *Command) OpenArtifact(ctx context.Context, cfg *config.Config, name string) (io.ReadCloser, error) {
	src, err := cfg.Source(c.fs(), c.Log)
	if err != nil {
		return nil, err
	}
	return src.Open(ctx, name)
}

// Open opens a local file to import.
func (c *Command) Open(path string) (io.ReadCloser, error) {
	return artifact.Open(c.fs(), path)
}

func (c *Command) fs() afero.Fs {
	if c.Fs == nil {
		return afero.NewOsFs()
	}
	return c.Fs
}

// Fail reports err and returns the exit code.
func (c *Command) Fail(format string, args ...any) int {
	c.UI.Error(fmt.Sprintf(format, args...))
	return 1
}
