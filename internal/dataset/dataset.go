// Package dataset loads the raw antenna tables that a registry is built
// from. Tables can come from a directory of CSV files, from a SQLite
// database, or from the sample set compiled into the binary.
package dataset

import (
	"context"
	"fmt"

	"github.com/large-farva/antpos/internal/config"
	"github.com/large-farva/antpos/internal/registry"
)

// Origin describes where a set of tables actually came from.
type Origin struct {
	Source string `json:"source" yaml:"source"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`

	// FallbackReason is set when the configured source failed and the
	// embedded set was used instead.
	FallbackReason string `json:"fallback_reason,omitempty" yaml:"fallback_reason,omitempty"`
}

func (o Origin) String() string {
	s := o.Source
	if o.Path != "" {
		s += ":" + o.Path
	}
	if o.FallbackReason != "" {
		s += " (fallback: " + o.FallbackReason + ")"
	}
	return s
}

// Load reads the tables selected by cfg. When the configured source fails
// and cfg.FallbackEmbedded is set, the embedded sample set is returned
// instead and the failure is recorded in the Origin.
func Load(ctx context.Context, cfg config.DataConfig) (registry.Tables, Origin, error) {
	origin := Origin{Source: cfg.Source, Path: cfg.Path}

	tables, err := loadSource(ctx, cfg)
	if err == nil {
		return tables, origin, nil
	}
	if !cfg.FallbackEmbedded || cfg.Source == config.SourceEmbedded {
		return registry.Tables{}, origin, err
	}

	tables, embErr := Embedded()
	if embErr != nil {
		return registry.Tables{}, origin, fmt.Errorf("all dataset sources exhausted: %w", err)
	}
	return tables, Origin{Source: config.SourceEmbedded, FallbackReason: err.Error()}, nil
}

func loadSource(ctx context.Context, cfg config.DataConfig) (registry.Tables, error) {
	switch cfg.Source {
	case config.SourceEmbedded, "":
		return Embedded()
	case config.SourceCSV:
		return FromDir(cfg.Path)
	case config.SourceSQLite:
		return FromSQLite(ctx, cfg.Path)
	default:
		return registry.Tables{}, fmt.Errorf("unknown dataset source %q", cfg.Source)
	}
}

// Open loads the configured tables and builds a registry from them. A read
// or validation failure of the configured source falls back to the embedded
// set under the same rules as Load.
func Open(ctx context.Context, cfg config.DataConfig, opts ...registry.Option) (*registry.Registry, Origin, error) {
	origin := Origin{Source: cfg.Source, Path: cfg.Path}

	reg, err := build(ctx, cfg, opts)
	if err == nil {
		return reg, origin, nil
	}
	if !cfg.FallbackEmbedded || cfg.Source == config.SourceEmbedded {
		return nil, origin, err
	}

	reg, embErr := build(ctx, config.DataConfig{Source: config.SourceEmbedded}, opts)
	if embErr != nil {
		return nil, origin, fmt.Errorf("all dataset sources exhausted: %w", err)
	}
	return reg, Origin{Source: config.SourceEmbedded, FallbackReason: err.Error()}, nil
}

func build(ctx context.Context, cfg config.DataConfig, opts []registry.Option) (*registry.Registry, error) {
	tables, err := loadSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return registry.New(tables, opts...)
}
