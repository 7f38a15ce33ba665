// Package config loads and validates viewsync configuration files.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/roach88/viewsync/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// Config is the serve configuration. Zero-value fields in a file keep their
// defaults.
type Config struct {
	Listen         string        `yaml:"listen"`
	Path           string        `yaml:"path"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	UpdateTimeout  time.Duration `yaml:"update_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	SendBuffer     int           `yaml:"send_buffer"`
	OutputDir      string        `yaml:"output_dir"`
	Journal        string        `yaml:"journal"`  // sqlite path, empty disables the journal
	Document       string        `yaml:"document"` // YAML document, empty serves the built-in demo
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:         "127.0.0.1:8765",
		Path:           "/ws",
		PollInterval:   engine.DefaultPollInterval,
		UpdateTimeout:  engine.DefaultUpdateTimeout,
		CommandTimeout: engine.DefaultCommandTimeout,
		SendBuffer:     16,
		OutputDir:      ".",
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ExpandPaths replaces a leading ~ in the file system settings with the
// user's home directory.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.OutputDir, &c.Journal, &c.Document} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks cfg against the embedded CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.Unify(ctx.Encode(c.view()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: cueerrors.Details(err, nil)}
	}
	return nil
}

// view is the shape the schema constrains.
func (c Config) view() map[string]any {
	return map[string]any{
		"listen":          c.Listen,
		"path":            c.Path,
		"poll_interval":   c.PollInterval.Milliseconds(),
		"update_timeout":  c.UpdateTimeout.Milliseconds(),
		"command_timeout": c.CommandTimeout.Milliseconds(),
		"send_buffer":     c.SendBuffer,
		"output_dir":      c.OutputDir,
		"journal":         c.Journal,
		"document":        c.Document,
	}
}

// ValidationError reports schema violations.
type ValidationError struct {
	Details string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + e.Details
}

// EngineOptions maps the timing settings to engine options.
func (c Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithPollInterval(c.PollInterval),
		engine.WithUpdateTimeout(c.UpdateTimeout),
		engine.WithCommandTimeout(c.CommandTimeout),
	}
}
