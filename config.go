package arbor

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the arbor.toml runtime configuration.
type Config struct {
	// Debug turns on tree and thread-affinity assertions.
	Debug bool `toml:"debug"`
	// Verbosity is the commonlog verbosity; 0 logs errors only.
	Verbosity int `toml:"verbosity"`
	// LogFile is a log file path. Empty logs to stderr.
	LogFile string `toml:"log-file"`
	// ExternalUIThread lets a host frame loop own the UI thread.
	ExternalUIThread bool `toml:"external-ui-thread"`
	// Kinds maps extra component type names onto built-in behaviors
	// ("view" or "scroll").
	Kinds map[string]string `toml:"kinds"`
	// Viewport is the root frame size.
	Viewport Viewport `toml:"viewport"`
}

// Viewport is the root view size.
type Viewport struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Verbosity: 1,
		Viewport:  Viewport{Width: 360, Height: 640},
	}
}

// LoadConfig reads a TOML configuration file. Unset keys keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses TOML configuration data.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Warningf("config: unknown keys %v", undecoded)
	}
	return cfg, nil
}

// Registry returns a KindRegistry with the built-in kinds plus cfg.Kinds.
func (c *Config) Registry() (*KindRegistry, error) {
	r := NewKindRegistry()
	for name, builtin := range c.Kinds {
		if err := r.Alias(name, builtin); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// TaskRunnerOptions returns the runner options described by c.
func (c *Config) TaskRunnerOptions() TaskRunnerOptions {
	return TaskRunnerOptions{
		ExternalUIThread: c.ExternalUIThread,
		Debug:            c.Debug,
	}
}

// RootFrame returns the root view frame for the configured viewport.
func (c *Config) RootFrame() Rect {
	return Rect{Width: c.Viewport.Width, Height: c.Viewport.Height}
}
