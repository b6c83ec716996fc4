package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/antpos/internal/geo"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "antposd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoad_LayersOnDefaults(t *testing.T) {
	path := writeConfig(t, `
[data]
source = "sqlite"
path = "/var/lib/antpos/antpos.db"

[logging]
level = "debug"
format = "json"

[geo]
ellipsoid = "grs80"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourceSQLite, cfg.Data.Source)
	assert.Equal(t, "/var/lib/antpos/antpos.db", cfg.Data.Path)
	assert.True(t, cfg.Data.FallbackEmbedded, "unset keys keep their defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Bind)

	ell, err := cfg.Ellipsoid()
	require.NoError(t, err)
	assert.Equal(t, geo.GRS80, ell)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))

	_, err = Load(writeConfig(t, "[data\nsource ="))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_NegativeToleranceDisablesCheck(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[data]\nlocal_tolerance_m = -1\n"))
	require.NoError(t, err)
	assert.Equal(t, -1.0, cfg.Data.LocalToleranceM)
	assert.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown source", func(c *Config) { c.Data.Source = "ftp" }, "data.source"},
		{"csv without path", func(c *Config) { c.Data.Source = SourceCSV }, "data.path"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty bind", func(c *Config) { c.Server.Bind = "" }, "server.bind"},
		{"unknown ellipsoid", func(c *Config) { c.Geo.Ellipsoid = "Clarke1866" }, "geo.ellipsoid"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
