// Antposctl is the command-line client for a running antposd instance. It
// queries stations, antenna fields and coordinate conversions over HTTP and
// streams live events over WebSocket. The geo and ecef conversions can also
// run in-process with --local.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/large-farva/antpos/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "antposd URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output JSON instead of formatted text")
		yamlOut = pflag.Bool("yaml", false, "Output YAML instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter state,log)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --frame are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	format, err := ctl.ParseFormat(*jsonOut, *yamlOut)
	if err != nil {
		fail(err)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	switch cmd {
	// ── Daemon ────────────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, format)

	case "health":
		err = ctl.Health(*host, format)

	case "version":
		err = ctl.VersionInfo(*host, format)

	case "config":
		err = ctl.Config(*host, format)

	case "reload":
		err = ctl.Reload(*host, format)

	// ── Registry queries ──────────────────────────────────────────
	case "stations":
		err = ctl.Stations(*host, format)

	case "station":
		args := need(cmd, subArgs, 1, "STATION")
		err = ctl.Station(*host, args[0], format)

	case "antennas", "phase-centre", "dipoles":
		opts := ctl.FieldOptions{Format: format}
		fieldFlags := pflag.NewFlagSet(cmd, pflag.ExitOnError)
		if cmd != "phase-centre" {
			fieldFlags.StringVar(&opts.Frame, "frame", "", "Coordinate frame (antennas: local|pqr, dipoles: pqr|etrs)")
		}
		_ = fieldFlags.Parse(subArgs)
		args := need(cmd, fieldFlags.Args(), 2, "STATION FIELD")
		opts.Station, opts.Field = args[0], args[1]
		switch cmd {
		case "antennas":
			err = ctl.Antennas(*host, opts)
		case "phase-centre":
			err = ctl.PhaseCentre(*host, opts)
		default:
			err = ctl.Dipoles(*host, opts)
		}

	// ── Conversions ───────────────────────────────────────────────
	case "geo", "ecef":
		opts := ctl.ConvertOptions{Format: format}
		convFlags := pflag.NewFlagSet(cmd, pflag.ExitOnError)
		convFlags.BoolVar(&opts.Local, "local", false, "Compute in-process instead of asking the daemon")
		convFlags.StringVar(&opts.Ellipsoid, "ellipsoid", "WGS84", "Ellipsoid for --local (WGS84, GRS80, WGS72)")
		if cmd == "ecef" {
			convFlags.BoolVar(&opts.Degrees, "deg", false, "Longitude and latitude are in degrees")
		}
		_ = convFlags.Parse(subArgs)
		if cmd == "geo" {
			v := floats(cmd, need(cmd, convFlags.Args(), 3, "X Y Z"))
			err = ctl.Geographic(*host, v, opts)
		} else {
			v := floats(cmd, need(cmd, convFlags.Args(), 3, "LON LAT H"))
			err = ctl.ECEF(*host, v[0], v[1], v[2], opts)
		}

	case "local":
		opts := ctl.LocalOptions{Format: format}
		localFlags := pflag.NewFlagSet(cmd, pflag.ExitOnError)
		localFlags.BoolVar(&opts.Inverse, "inverse", false, "Convert local P Q R to ECEF instead")
		_ = localFlags.Parse(subArgs)
		args := need(cmd, localFlags.Args(), 4, "STATION X Y Z")
		err = ctl.Local(*host, args[0], floats(cmd, args[1:]), opts)

	case "look":
		args := need(cmd, subArgs, 2, "STATION TARGET")
		err = ctl.Look(*host, args[0], args[1], format)

	case "baseline":
		args := need(cmd, subArgs, 2, "FROM TO")
		err = ctl.Baseline(*host, args[0], args[1], format)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		opts := ctl.WatchOptions{Format: format}
		watchFlags := pflag.NewFlagSet(cmd, pflag.ExitOnError)
		watchFlags.StringSliceVar(&opts.Filter, "filter", *filter, "Event types to show")
		watchFlags.IntVar(&opts.Limit, "limit", 0, "Stop after this many events")
		_ = watchFlags.Parse(subArgs)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = ctl.Watch(ctx, *host, opts)
		stop()

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

// need exits with a usage message unless args has exactly n entries.
func need(cmd string, args []string, n int, names string) []string {
	if len(args) != n {
		fmt.Fprintf(os.Stderr, "usage: antposctl %s %s\n", cmd, names)
		os.Exit(2)
	}
	return args
}

func floats(cmd string, args []string) [3]float64 {
	var v [3]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			fail(fmt.Errorf("%s: %q is not a number", cmd, a))
		}
		v[i] = f
	}
	return v
}

func usage() {
	fmt.Print(`
  antposctl: station antenna registry client

  USAGE
    antposctl [flags] <command> [command-flags] [args]

  COMMANDS (daemon)
    status                      Show daemon state, uptime and the dataset served
    health                      Check daemon and component health
    version                     Show CLI and daemon version information
    config                      Show the daemon's running configuration
    reload                      Re-read the config and rebuild the registry

  COMMANDS (registry)
    stations                    List stations with reference positions
    station STATION             Show a station's frame and fields
    antennas STATION FIELD      List antenna positions of a field
    phase-centre STATION FIELD  Show the phase centre of a field
    dipoles STATION FIELD       List HBA dipole positions of a field

  COMMANDS (conversions)
    geo X Y Z                   ECEF to longitude, latitude, height
    ecef LON LAT H              Longitude, latitude, height to ECEF
    local STATION X Y Z         ECEF to the station's P/Q/R frame
    look STATION TARGET         Azimuth, elevation, range to a station or x,y,z
    baseline FROM TO            Vector and distance between two stations

  COMMANDS (live)
    watch                       Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output JSON instead of formatted text
        --yaml          Output YAML instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    antennas:
        --frame local|pqr   Local station coordinates or offsets from the phase centre
    dipoles:
        --frame pqr|etrs    Station P/Q/R or ETRS coordinates
    geo, ecef:
        --local             Compute in-process without a daemon
        --ellipsoid NAME    Ellipsoid for --local (default: WGS84)
    ecef:
        --deg               LON and LAT are degrees
    local:
        --inverse           Convert P Q R to ECEF
    watch:
        --filter TYPE       Event types to show (comma-separated)
        --limit N           Stop after N events

  EXAMPLES
    antposctl status
    antposctl --yaml station CS001
    antposctl antennas --frame pqr CS001 HBA
    antposctl dipoles --frame etrs RS210 HBA
    antposctl geo --local 3826923.942 460915.117 5064643.229
    antposctl ecef --local --deg 6.8678 52.9114 50
    antposctl look CS001 RS210
    antposctl baseline CS001 DE601
    antposctl watch --filter state,dataset_loaded,reload_failed

`)
}
