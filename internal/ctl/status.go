package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string       `json:"name"`
	State         string       `json:"state"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	WSClients     int          `json:"ws_clients"`
	Dataset       *DatasetInfo `json:"dataset"`
}

// DatasetInfo mirrors the dataset block of status and reload responses.
type DatasetInfo struct {
	Generation uint64 `json:"generation"`
	Origin     struct {
		Source         string `json:"source"`
		Path           string `json:"path"`
		FallbackReason string `json:"fallback_reason"`
	} `json:"origin"`
	Stations  int    `json:"stations"`
	Antennas  int    `json:"antennas"`
	Ellipsoid string `json:"ellipsoid"`
	LoadedAt  string `json:"loaded_at"`
}

func (d DatasetInfo) origin() string {
	if d.Origin.Path == "" {
		return d.Origin.Source
	}
	return d.Origin.Source + ":" + d.Origin.Path
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, f Format) error {
	var s StatusResponse
	ok, err := query(baseURL, "/api/status", f, &s)
	if !ok || err != nil {
		return err
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	stateStr := colorize(stateColor(s.State), s.State)

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  ANTPOS STATUS"))
	fmt.Fprintln(stdout, rule(38))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "State:"), stateStr)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Fprintf(stdout, "  %-12s %d\n", colorize(dim, "Watchers:"), s.WSClients)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Host:"), strings.TrimRight(baseURL, "/"))
	if d := s.Dataset; d != nil {
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "  %-12s %d (loaded %s)\n", colorize(dim, "Generation:"), d.Generation, formatLoadedAt(d.LoadedAt))
		fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Origin:"), d.origin())
		if d.Origin.FallbackReason != "" {
			fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Fallback:"), colorize(yellow, d.Origin.FallbackReason))
		}
		fmt.Fprintf(stdout, "  %-12s %d stations, %d antennas\n", colorize(dim, "Contents:"), d.Stations, d.Antennas)
		fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Ellipsoid:"), d.Ellipsoid)
	} else {
		fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Dataset:"), colorize(red, "not loaded"))
	}
	fmt.Fprintln(stdout)

	return nil
}
