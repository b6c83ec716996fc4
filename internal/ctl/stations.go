package ctl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/large-farva/antpos/internal/registry"
)

// Stations lists every station in the daemon's registry.
func Stations(baseURL string, f Format) error {
	var resp struct {
		Stations []struct {
			Name     string     `json:"name"`
			Frame    string     `json:"frame"`
			Position [3]float64 `json:"position"`
			Fields   []string   `json:"fields"`
		} `json:"stations"`
	}
	ok, err := query(baseURL, "/api/stations", f, &resp)
	if !ok || err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  STATIONS"))
	t := newTable("  ", "Name", "Frame", "ETRS X", "ETRS Y", "ETRS Z", "Fields")
	t.alignRight(2, 3, 4)
	for _, s := range resp.Stations {
		t.row(s.Name, s.Frame,
			fmt.Sprintf("%.3f", s.Position[0]),
			fmt.Sprintf("%.3f", s.Position[1]),
			fmt.Sprintf("%.3f", s.Position[2]),
			strings.Join(s.Fields, ","),
		)
	}
	t.flush()
	fmt.Fprintf(stdout, "\n  %s\n\n", colorize(dim, fmt.Sprintf("%d stations", len(resp.Stations))))
	return nil
}

// Station prints the reference frame and fields of one station.
func Station(baseURL, name string, f Format) error {
	var s registry.StationSummary
	ok, err := query(baseURL, "/api/stations/"+url.PathEscape(name), f, &s)
	if !ok || err != nil {
		return err
	}

	ref := s.Reference
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  STATION "+ref.Name))
	fmt.Fprintln(stdout, rule(60))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "ETRS:"), formatVec(ref.Position))
	fmt.Fprintf(stdout, "  %-12s %s, %s, %.3f m\n", colorize(dim, "Geographic:"),
		formatDeg(s.Geographic.Lon), formatDeg(s.Geographic.Lat), s.Geographic.Height)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Frame:"), ref.Frame)
	for i, label := range []string{"P (east):", "Q (north):", "R (up):"} {
		fmt.Fprintf(stdout, "  %-12s %10.7f %10.7f %10.7f\n", colorize(dim, label),
			ref.Rotation[i][0], ref.Rotation[i][1], ref.Rotation[i][2])
	}
	fmt.Fprintln(stdout)

	t := newTable("  ", "Field", "Type", "Antennas", "HBA rot", "Phase centre")
	t.alignRight(2, 3)
	for _, fs := range s.Fields {
		rot, pc := "", ""
		if fs.HBARotationDeg != nil {
			rot = fmt.Sprintf("%.2f°", *fs.HBARotationDeg)
		}
		if fs.PhaseCentre != nil {
			pc = strings.TrimSpace(formatVec(*fs.PhaseCentre))
		}
		t.row(fs.Name, fs.Type, fmt.Sprintf("%d", fs.Antennas), rot, pc)
	}
	t.flush()
	fmt.Fprintln(stdout)
	return nil
}
