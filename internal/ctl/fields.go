package ctl

import (
	"fmt"
	"net/url"

	"github.com/large-farva/antpos/internal/registry"
)

// FieldOptions selects one antenna field and the coordinate frame to show.
type FieldOptions struct {
	Station string
	Field   string
	Frame   string
	Format  Format
}

func (o FieldOptions) path(leaf string) string {
	p := "/api/stations/" + url.PathEscape(o.Station) + "/fields/" + url.PathEscape(o.Field) + "/" + leaf
	if o.Frame != "" {
		p += "?" + url.Values{"frame": {o.Frame}}.Encode()
	}
	return p
}

// Antennas lists the antennas of one field with their ETRS and local
// coordinates, or PQR offsets from the phase centre with --frame pqr.
func Antennas(baseURL string, opts FieldOptions) error {
	var resp struct {
		Station  string                     `json:"station"`
		Field    string                     `json:"field"`
		Frame    string                     `json:"frame"`
		Antennas []registry.AntennaPosition `json:"antennas"`
		PQR      [][3]float64               `json:"pqr"`
	}
	ok, err := query(baseURL, opts.path("antennas"), opts.Format, &resp)
	if !ok || err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header(fmt.Sprintf("  %s %s ANTENNAS (%s)", resp.Station, resp.Field, resp.Frame)))
	var t *table
	if resp.Frame == "pqr" {
		t = newTable("  ", "Field", "#", "P", "Q", "R")
	} else {
		t = newTable("  ", "Field", "#", "ETRS X", "ETRS Y", "ETRS Z", "P", "Q", "R")
	}
	t.alignRight(1, 2, 3, 4, 5, 6, 7)
	for i, a := range resp.Antennas {
		cells := []string{a.Field, fmt.Sprintf("%d", a.Index)}
		if resp.Frame == "pqr" {
			if i < len(resp.PQR) {
				cells = append(cells, coords(resp.PQR[i])...)
			}
		} else {
			cells = append(cells, coords(a.ECEF)...)
			cells = append(cells, coords(a.Local)...)
		}
		t.row(cells...)
	}
	t.flush()
	fmt.Fprintln(stdout)
	return nil
}

// PhaseCentre prints the phase centre of one field in ETRS and geographic
// coordinates.
func PhaseCentre(baseURL string, opts FieldOptions) error {
	opts.Frame = ""
	var resp struct {
		Station    string     `json:"station"`
		Field      string     `json:"field"`
		ECEF       [3]float64 `json:"ecef"`
		Geographic struct {
			Lon    float64 `json:"lon_rad"`
			Lat    float64 `json:"lat_rad"`
			Height float64 `json:"height_m"`
		} `json:"geographic"`
	}
	ok, err := query(baseURL, opts.path("phase-centre"), opts.Format, &resp)
	if !ok || err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header(fmt.Sprintf("  %s %s PHASE CENTRE", resp.Station, resp.Field)))
	fmt.Fprintln(stdout, rule(50))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "ETRS:"), formatVec(resp.ECEF))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Longitude:"), formatDeg(resp.Geographic.Lon))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Latitude:"), formatDeg(resp.Geographic.Lat))
	fmt.Fprintf(stdout, "  %-12s %.3f m\n", colorize(dim, "Height:"), resp.Geographic.Height)
	fmt.Fprintln(stdout)
	return nil
}

// Dipoles lists the HBA dipole positions of one field.
func Dipoles(baseURL string, opts FieldOptions) error {
	var resp struct {
		Station string       `json:"station"`
		Field   string       `json:"field"`
		Frame   string       `json:"frame"`
		Count   int          `json:"count"`
		Dipoles [][3]float64 `json:"dipoles"`
	}
	ok, err := query(baseURL, opts.path("hba-dipoles"), opts.Format, &resp)
	if !ok || err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header(fmt.Sprintf("  %s %s HBA DIPOLES (%s)", resp.Station, resp.Field, resp.Frame)))
	t := newTable("  ", "Tile", "Element", "X", "Y", "Z")
	t.alignRight(0, 1, 2, 3, 4)
	for i, d := range resp.Dipoles {
		t.row(append([]string{fmt.Sprintf("%d", i/16), fmt.Sprintf("%d", i%16)}, coords(d)...)...)
	}
	t.flush()
	fmt.Fprintf(stdout, "\n  %s\n\n", colorize(dim, fmt.Sprintf("%d dipoles", resp.Count)))
	return nil
}

func coords[V ~[3]float64](v V) []string {
	return []string{
		fmt.Sprintf("%.3f", v[0]),
		fmt.Sprintf("%.3f", v[1]),
		fmt.Sprintf("%.3f", v[2]),
	}
}
