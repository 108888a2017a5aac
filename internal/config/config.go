// Package config loads the oplus command configuration from an HCL file and
// the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"

	"github.com/openergy/oplus/pkg/artifact"
	"github.com/openergy/oplus/pkg/task"
	"github.com/openergy/oplus/pkg/transport"
)

// Environment overrides.
const (
	EnvBaseURL  = "OPLUS_BASE_URL"
	EnvAPIToken = "OPLUS_API_TOKEN"
	EnvConfig   = "OPLUS_CONFIG"
)

// Config is the oplus command configuration.
//
// Example configuration (HCL):
//
//	base_url      = "https://oplus-back.openergy.fr/api/v1"
//	api_token     = env.OPLUS_API_TOKEN
//	timeout       = "30s"
//	poll_interval = "200ms"
//	log_level     = "info"
//
//	artifacts {
//	  local_dir = "./out"
//	  s3 {
//	    bucket = "results"
//	    region = "eu-west-3"
//	  }
//	}
type Config struct {
	BaseURL   string `hcl:"base_url,optional"`
	APIToken  string `hcl:"api_token,optional"`
	TLSVerify *bool  `hcl:"tls_verify,optional"`

	// Durations are Go duration strings, e.g. "30s".
	Timeout                string `hcl:"timeout,optional"`
	PollInterval           string `hcl:"poll_interval,optional"`
	SimulationPollInterval string `hcl:"simulation_poll_interval,optional"`

	LogLevel string `hcl:"log_level,optional"`

	Artifacts *Artifacts `hcl:"artifacts,block"`
}

// Artifacts configures where downloaded files go.
type Artifacts struct {
	LocalDir string             `hcl:"local_dir,optional"`
	S3       *artifact.S3Config `hcl:"s3,block"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		BaseURL:                transport.DefaultBaseURL,
		Timeout:                "30s",
		PollInterval:           task.DefaultPollInterval.String(),
		SimulationPollInterval: "3s",
		LogLevel:               "info",
	}
}

// Load reads path, applies defaults and environment overrides, and
// validates the result. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	if path == "" {
		return finish(&Config{})
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	var cfg Config
	if err := hclsimple.DecodeFile(path, evalContext(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}
	return finish(&cfg)
}

// Parse is Load for in-memory content. filename only names the source in
// diagnostics and must end in ".hcl".
func Parse(filename string, src []byte) (*Config, error) {
	var cfg Config
	if err := hclsimple.Decode(filename, src, evalContext(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return finish(&cfg)
}

// evalContext exposes the process environment to HCL as env.NAME.
func evalContext() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Timeout == "" {
		c.Timeout = d.Timeout
	}
	if c.PollInterval == "" {
		c.PollInterval = d.PollInterval
	}
	if c.SimulationPollInterval == "" {
		c.SimulationPollInterval = d.SimulationPollInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.APIToken = v
	}
}

var logLevels = []any{"trace", "debug", "info", "warn", "error", "off"}

// Validate checks the configuration. A missing API token is not an error
// here: commands that need one ask for it.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.By(duration)),
		validation.Field(&c.PollInterval, validation.By(interval)),
		validation.Field(&c.SimulationPollInterval, validation.By(interval)),
		validation.Field(&c.LogLevel, validation.In(logLevels...)),
	)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Artifacts != nil && c.Artifacts.S3 != nil {
		if err := c.Artifacts.S3.Validate(); err != nil {
			return fmt.Errorf("invalid artifacts.s3 configuration: %w", err)
		}
	}
	return nil
}

func duration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration such as \"30s\"")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// interval is a duration that must also be above zero, so waits never
// poll the API back to back.
func interval(value any) error {
	if err := duration(value); err != nil {
		return err
	}
	s, _ := value.(string)
	if d, _ := time.ParseDuration(s); s != "" && d <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// Transport returns the transport configuration. tokenFunc is consulted
// when no API token is configured.
func (c *Config) Transport(tokenFunc transport.TokenFunc) *transport.Config {
	return &transport.Config{
		BaseURL:   c.BaseURL,
		APIToken:  c.APIToken,
		TokenFunc: tokenFunc,
		TLSVerify: c.TLSVerify,
		Timeout:   mustDuration(c.Timeout),
	}
}

// TaskPollInterval returns the user task polling period.
func (c *Config) TaskPollInterval() time.Duration {
	return mustDuration(c.PollInterval)
}

// SimulationPoll returns the simulation reload period.
func (c *Config) SimulationPoll() time.Duration {
	return mustDuration(c.SimulationPollInterval)
}

// Level returns the configured log level.
func (c *Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}

// Sink builds the artifact sink: the local directory (working directory
// when unset), plus S3 when configured.
func (c *Config) Sink(fs afero.Fs, logger hclog.Logger) (artifact.Sink, error) {
	local, remote, err := c.stores(fs, logger)
	if err != nil {
		return nil, err
	}
	if remote == nil {
		return local, nil
	}
	return artifact.Tee{local, remote}, nil
}

// Source builds the artifact source for imports. Names are looked up in
// the local directory first, then in S3 when configured.
func (c *Config) Source(fs afero.Fs, logger hclog.Logger) (artifact.Source, error) {
	local, remote, err := c.stores(fs, logger)
	if err != nil {
		return nil, err
	}
	if remote == nil {
		return local, nil
	}
	return artifact.Chain{local, remote}, nil
}

func (c *Config) stores(fs afero.Fs, logger hclog.Logger) (*artifact.FileStore, *artifact.S3Store, error) {
	dir := ""
	if c.Artifacts != nil {
		dir = c.Artifacts.LocalDir
	}
	local := artifact.NewFileStore(fs, dir)
	if c.Artifacts == nil || c.Artifacts.S3 == nil {
		return local, nil, nil
	}

	remote, err := artifact.NewS3Store(*c.Artifacts.S3, logger)
	if err != nil {
		return nil, nil, err
	}
	return local, remote, nil
}
