package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

func TestLoadDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "output.txt", cfg.Output)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, DriverMemory, cfg.Ledger.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Output:  "answers.txt",
		Workers: 4,
		Ledger:  Ledger{Driver: DriverSQLite, DSN: "file:ledger.db"},
		Metrics: Metrics{Textfile: "bayesnet.prom"},
		Log:     Log{Level: "debug"},
	}, cfg)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "output.txt", cfg.Output)
	assert.Equal(t, DriverMemory, cfg.Ledger.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(write("bad.yaml", "workers: [1, 2\n"))
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	_, err = Load(write("zero.yaml", "workers: 0\n"))
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	_, err = Load(write("driver.yaml", "ledger:\n  driver: postgres\n"))
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"sqlite with dsn", func(c *Config) { c.Ledger = Ledger{Driver: DriverSQLite, DSN: "ledger.db"} }, true},
		{"sqlite without dsn", func(c *Config) { c.Ledger = Ledger{Driver: DriverSQLite} }, false},
		{"negative workers", func(c *Config) { c.Workers = -2 }, false},
		{"empty output", func(c *Config) { c.Output = "  " }, false},
		{"unknown driver", func(c *Config) { c.Ledger.Driver = "redis" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
			}
		})
	}
}
