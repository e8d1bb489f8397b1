// Package config handles bytevm.toml runner configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"bytevm/pkg/vm"
)

// FileName is the configuration file looked up next to a program.
const FileName = "bytevm.toml"

// Config is the runner configuration. Command-line flags override it.
type Config struct {
	Machine Machine `toml:"machine"`
	Log     Log     `toml:"log"`
}

// Machine holds the limits and tracing switches passed to the vm.
type Machine struct {
	MaxDepth int  `toml:"max_depth"`
	MaxSteps int  `toml:"max_steps"` // 0 = unlimited
	Trace    bool `toml:"trace"`
}

type Log struct {
	Verbose bool `toml:"verbose"`
	NoColor bool `toml:"no_color"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Machine: Machine{MaxDepth: vm.DefaultMaxDepth},
	}
}

// Load reads a TOML file over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(string(data), path)
}

// Parse decodes TOML text; name is used in error messages.
func Parse(text, name string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(text, c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", name, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Machine.MaxDepth < 0 {
		return fmt.Errorf("machine.max_depth must not be negative, got %d", c.Machine.MaxDepth)
	}
	if c.Machine.MaxSteps < 0 {
		return fmt.Errorf("machine.max_steps must not be negative, got %d", c.Machine.MaxSteps)
	}
	return nil
}
