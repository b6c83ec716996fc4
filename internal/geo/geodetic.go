package geo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// latitudeTolerance bounds the change between successive latitude
	// estimates, in radians. About 10 µm at the Earth's surface.
	latitudeTolerance = 1.6e-12

	maxLatitudeIterations = 64
)

// Geographic is a position as geodetic longitude and latitude in radians and
// height above the ellipsoid in metres.
type Geographic struct {
	Lon    float64 `json:"lon_rad" yaml:"lon_rad"`
	Lat    float64 `json:"lat_rad" yaml:"lat_rad"`
	Height float64 `json:"height_m" yaml:"height_m"`
}

// LonDeg returns the longitude in degrees.
func (g Geographic) LonDeg() float64 { return g.Lon * 180 / math.Pi }

// LatDeg returns the latitude in degrees.
func (g Geographic) LatDeg() float64 { return g.Lat * 180 / math.Pi }

// GeographicFromECEF converts a Cartesian position to geodetic coordinates
// using a fixed-point iteration on the latitude.
//
// Points on the polar axis get longitude 0. The Earth's centre and non-finite
// input return a *DomainError, as does a point so deep inside the ellipsoid
// that the iteration does not settle.
func GeographicFromECEF(v Vec3, ell Ellipsoid) (Geographic, error) {
	if !v.IsFinite() {
		return Geographic{}, &DomainError{Op: "GeographicFromECEF", Input: v, Reason: "non-finite coordinate"}
	}
	if v == (Vec3{}) {
		return Geographic{}, &DomainError{Op: "GeographicFromECEF", Input: v, Reason: "latitude undefined at the Earth's centre"}
	}

	x, y, z := v[0], v[1], v[2]
	lon := 0.0
	if x != 0 || y != 0 {
		lon = math.Atan2(y, x)
	}
	r := math.Hypot(x, y)
	e2 := ell.E2()

	lat := math.Atan2(z, r)
	converged := false
	for i := 0; i < maxLatitudeIterations; i++ {
		next := math.Atan2(z+e2*ell.A*ell.NormalizedEarthRadius(lat)*math.Sin(lat), r)
		delta := math.Abs(next - lat)
		lat = next
		if delta <= latitudeTolerance {
			converged = true
			break
		}
	}
	if !converged {
		return Geographic{}, &DomainError{Op: "GeographicFromECEF", Input: v, Reason: "latitude iteration did not converge"}
	}

	s, c := math.Sin(lat), math.Cos(lat)
	h := r*c + z*s - ell.A*math.Sqrt(1-e2*s*s)
	return Geographic{Lon: lon, Lat: lat, Height: h}, nil
}

// ECEFFromGeographic converts geodetic coordinates to a Cartesian position.
func ECEFFromGeographic(lonRad, latRad, height float64, ell Ellipsoid) Vec3 {
	c := ell.NormalizedEarthRadius(latRad)
	s := c * (1 - ell.F) * (1 - ell.F)
	cosLat, sinLat := math.Cos(latRad), math.Sin(latRad)
	return Vec3{
		(ell.A*c + height) * cosLat * math.Cos(lonRad),
		(ell.A*c + height) * cosLat * math.Sin(lonRad),
		(ell.A*s + height) * sinLat,
	}
}

// GeographicFromECEFBatch converts every row of an N×3 matrix. The result is
// N×3 with columns lon, lat, height. The first failing row aborts the batch.
func GeographicFromECEFBatch(points mat.Matrix, ell Ellipsoid) (*mat.Dense, error) {
	row := 0
	out, err := mapRows(points, func(v Vec3) (Vec3, error) {
		g, err := GeographicFromECEF(v, ell)
		if err != nil {
			return Vec3{}, fmt.Errorf("row %d: %w", row, err)
		}
		row++
		return Vec3{g.Lon, g.Lat, g.Height}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
