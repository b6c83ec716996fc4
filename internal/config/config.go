// Package config handles loading, defaulting, and validation of the antposd
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/large-farva/antpos/internal/geo"
)

// Dataset sources understood by [data] source.
const (
	SourceEmbedded = "embedded"
	SourceCSV      = "csv"
	SourceSQLite   = "sqlite"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data    DataConfig    `toml:"data"    json:"data"    yaml:"data"`
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
	Server  ServerConfig  `toml:"server"  json:"server"  yaml:"server"`
	Geo     GeoConfig     `toml:"geo"     json:"geo"     yaml:"geo"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// DataConfig selects where the antenna tables come from. Path is a directory
// of CSV files for the csv source and a database file for sqlite. A negative
// LocalToleranceM disables the recorded local position check.
type DataConfig struct {
	Source           string  `toml:"source"            json:"source"            yaml:"source"`
	Path             string  `toml:"path"              json:"path"              yaml:"path"`
	FallbackEmbedded bool    `toml:"fallback_embedded" json:"fallback_embedded" yaml:"fallback_embedded"`
	LocalToleranceM  float64 `toml:"local_tolerance_m" json:"local_tolerance_m" yaml:"local_tolerance_m"`
}

type LoggingConfig struct {
	Level  string `toml:"level"  json:"level"  yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind" yaml:"bind"`
}

type GeoConfig struct {
	Ellipsoid string `toml:"ellipsoid" json:"ellipsoid" yaml:"ellipsoid"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `toml:"path"    json:"path"    yaml:"path"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Data: DataConfig{
			Source:           SourceEmbedded,
			Path:             "",
			FallbackEmbedded: true,
			LocalToleranceM:  1e-3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Geo: GeoConfig{
			Ellipsoid: "WGS84",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Ellipsoid resolves [geo] ellipsoid. Validate guarantees it succeeds for a
// loaded Config.
func (c Config) Ellipsoid() (geo.Ellipsoid, error) {
	return geo.EllipsoidByName(c.Geo.Ellipsoid)
}

// Validate checks every constraint on cfg.
func Validate(cfg Config) error {
	switch cfg.Data.Source {
	case SourceEmbedded:
	case SourceCSV, SourceSQLite:
		if cfg.Data.Path == "" {
			return fmt.Errorf("data.path must not be empty for source %q", cfg.Data.Source)
		}
	default:
		return fmt.Errorf("data.source must be one of %s, %s, %s", SourceEmbedded, SourceCSV, SourceSQLite)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be debug, info, warn or error")
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return errors.New("logging.format must be text or json")
	}
	if cfg.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	if _, err := cfg.Ellipsoid(); err != nil {
		return fmt.Errorf("geo.ellipsoid: %w", err)
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}
