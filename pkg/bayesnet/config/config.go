package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// Ledger drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config holds the settings of an inference run
type Config struct {
	Output  string  `yaml:"output"`
	Workers int     `yaml:"workers"`
	Ledger  Ledger  `yaml:"ledger"`
	Metrics Metrics `yaml:"metrics"`
	Log     Log     `yaml:"log"`
}

// Ledger selects where answered queries are recorded
type Ledger struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Metrics configures the Prometheus textfile export
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// Log configures the logger
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Output:  "output.txt",
		Workers: 1,
		Ledger: Ledger{
			Driver: DriverMemory,
			DSN:    ":memory:",
		},
		Log: Log{Level: "info"},
	}
}

// Load reads a YAML config file on top of Default.
// An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %v: %w", path, err, internalerr.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot use
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d: %w", c.Workers, internalerr.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("output path is empty: %w", internalerr.ErrInvalidConfig)
	}
	switch c.Ledger.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Ledger.DSN == "" {
			return fmt.Errorf("sqlite ledger needs a dsn: %w", internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("unknown ledger driver %q: %w", c.Ledger.Driver, internalerr.ErrInvalidConfig)
	}
	return nil
}
