package ctl

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/large-farva/antpos/internal/geo"
)

// ConvertOptions controls the geo and ecef commands. With Local set the
// conversion runs in-process on the named ellipsoid and no daemon is
// contacted.
type ConvertOptions struct {
	Local     bool
	Ellipsoid string
	Degrees   bool // ecef: lon/lat given in degrees
	Format    Format
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func vecQuery(keys [3]string, v [3]float64) url.Values {
	q := url.Values{}
	for i, k := range keys {
		q.Set(k, ftoa(v[i]))
	}
	return q
}

type geographicResult struct {
	Lon    float64 `json:"lon_rad"  yaml:"lon_rad"`
	Lat    float64 `json:"lat_rad"  yaml:"lat_rad"`
	LonDeg float64 `json:"lon_deg"  yaml:"lon_deg"`
	LatDeg float64 `json:"lat_deg"  yaml:"lat_deg"`
	Height float64 `json:"height_m" yaml:"height_m"`
}

// Geographic converts an ECEF point to longitude, latitude and height.
func Geographic(baseURL string, v [3]float64, opts ConvertOptions) error {
	var res geographicResult
	if opts.Local {
		ell, err := geo.EllipsoidByName(opts.Ellipsoid)
		if err != nil {
			return err
		}
		g, err := geo.GeographicFromECEF(v, ell)
		if err != nil {
			return err
		}
		res = geographicResult{Lon: g.Lon, Lat: g.Lat, LonDeg: g.LonDeg(), LatDeg: g.LatDeg(), Height: g.Height}
		if opts.Format != FormatText {
			return emit(opts.Format, res)
		}
	} else {
		q := vecQuery([3]string{"x", "y", "z"}, v)
		ok, err := query(baseURL, "/api/geographic?"+q.Encode(), opts.Format, &res)
		if !ok || err != nil {
			return err
		}
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  %-12s %.9f rad  %s\n", colorize(dim, "Longitude:"), res.Lon, formatDeg(res.Lon))
	fmt.Fprintf(stdout, "  %-12s %.9f rad  %s\n", colorize(dim, "Latitude:"), res.Lat, formatDeg(res.Lat))
	fmt.Fprintf(stdout, "  %-12s %.4f m\n", colorize(dim, "Height:"), res.Height)
	fmt.Fprintln(stdout)
	return nil
}

// ECEF converts longitude, latitude and height to an ECEF point. Angles are
// radians unless opts.Degrees is set.
func ECEF(baseURL string, lon, lat, h float64, opts ConvertOptions) error {
	var res struct {
		ECEF [3]float64 `json:"ecef" yaml:"ecef"`
	}
	if opts.Local {
		ell, err := geo.EllipsoidByName(opts.Ellipsoid)
		if err != nil {
			return err
		}
		if opts.Degrees {
			lon, lat = lon*math.Pi/180, lat*math.Pi/180
		}
		res.ECEF = geo.ECEFFromGeographic(lon, lat, h, ell)
		if opts.Format != FormatText {
			return emit(opts.Format, res)
		}
	} else {
		q := vecQuery([3]string{"lon", "lat", "h"}, [3]float64{lon, lat, h})
		if opts.Degrees {
			q.Set("deg", "true")
		}
		ok, err := query(baseURL, "/api/ecef?"+q.Encode(), opts.Format, &res)
		if !ok || err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "\n  %-12s %s\n\n", colorize(dim, "ECEF:"), formatVec(res.ECEF))
	return nil
}

// LocalOptions controls the local command.
type LocalOptions struct {
	Inverse bool // local P/Q/R to ECEF instead of ECEF to local
	Format  Format
}

// Local converts a point between ECEF and a station's local frame.
func Local(baseURL, station string, v [3]float64, opts LocalOptions) error {
	q := vecQuery([3]string{"x", "y", "z"}, v)
	q.Set("station", station)
	if opts.Inverse {
		q.Set("inverse", "true")
	}
	var res struct {
		Station string      `json:"station"`
		Local   *[3]float64 `json:"local"`
		ECEF    *[3]float64 `json:"ecef"`
	}
	ok, err := query(baseURL, "/api/local?"+q.Encode(), opts.Format, &res)
	if !ok || err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	if res.Local != nil {
		fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, res.Station+" PQR:"), formatVec(*res.Local))
	}
	if res.ECEF != nil {
		fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "ECEF:"), formatVec(*res.ECEF))
	}
	fmt.Fprintln(stdout)
	return nil
}

// Look prints azimuth, elevation and range from a station to a target,
// which is either another station or an "x,y,z" ECEF triple.
func Look(baseURL, station, target string, f Format) error {
	q := url.Values{"station": {station}, "target": {target}}
	var res struct {
		Station      string  `json:"station"`
		AzimuthDeg   float64 `json:"azimuth_deg"`
		ElevationDeg float64 `json:"elevation_deg"`
		Range        float64 `json:"range_m"`
	}
	ok, err := query(baseURL, "/api/look-angle?"+q.Encode(), f, &res)
	if !ok || err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  LOOK ANGLE FROM "+res.Station))
	fmt.Fprintln(stdout, rule(38))
	fmt.Fprintf(stdout, "  %-12s %.4f°\n", colorize(dim, "Azimuth:"), res.AzimuthDeg)
	fmt.Fprintf(stdout, "  %-12s %.4f°\n", colorize(dim, "Elevation:"), res.ElevationDeg)
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Range:"), formatDistance(res.Range))
	fmt.Fprintln(stdout)
	return nil
}

// Baseline prints the vector and distance between two station references.
func Baseline(baseURL, from, to string, f Format) error {
	q := url.Values{"from": {from}, "to": {to}}
	var res struct {
		From     string     `json:"from"`
		To       string     `json:"to"`
		Distance float64    `json:"distance_m"`
		ECEF     [3]float64 `json:"ecef"`
		Local    [3]float64 `json:"local"`
	}
	ok, err := query(baseURL, "/api/baseline?"+q.Encode(), f, &res)
	if !ok || err != nil {
		return err
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header(fmt.Sprintf("  BASELINE %s -> %s", res.From, res.To)))
	fmt.Fprintln(stdout, rule(60))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "Length:"), formatDistance(res.Distance))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, "ECEF:"), formatVec(res.ECEF))
	fmt.Fprintf(stdout, "  %-12s %s\n", colorize(dim, res.From+" PQR:"), formatVec(res.Local))
	fmt.Fprintln(stdout)
	return nil
}
