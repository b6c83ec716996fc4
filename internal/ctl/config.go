package ctl

import (
	"fmt"

	"github.com/large-farva/antpos/internal/config"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, f Format) error {
	var cfg config.Config
	ok, err := query(baseURL, "/api/config", f, &cfg)
	if !ok || err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  DAEMON CONFIGURATION"))
	fmt.Fprintln(stdout, rule(50))

	section := func(name string) {
		fmt.Fprintf(stdout, "\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Fprintf(stdout, "    %-20s %v\n", colorize(dim, key+":"), val)
	}

	section("data")
	field("source", cfg.Data.Source)
	field("path", cfg.Data.Path)
	field("fallback_embedded", cfg.Data.FallbackEmbedded)
	field("local_tolerance_m", cfg.Data.LocalToleranceM)

	section("logging")
	field("level", cfg.Logging.Level)
	field("format", cfg.Logging.Format)

	section("server")
	field("bind", cfg.Server.Bind)

	section("geo")
	field("ellipsoid", cfg.Geo.Ellipsoid)

	section("metrics")
	field("enabled", cfg.Metrics.Enabled)
	field("path", cfg.Metrics.Path)

	fmt.Fprintln(stdout)

	return nil
}
