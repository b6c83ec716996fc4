package geo

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Ellipsoid is an oblate reference ellipsoid given by its equatorial radius
// A in metres and its flattening F.
type Ellipsoid struct {
	Name string
	A    float64
	F    float64
}

// Reference ellipsoids. WGS84 is what the antenna tables are expressed in.
var (
	WGS84 = Ellipsoid{Name: "WGS84", A: 6378137.0, F: 1 / 298.257223563}
	GRS80 = Ellipsoid{Name: "GRS80", A: 6378137.0, F: 1 / 298.257222101}
	WGS72 = Ellipsoid{Name: "WGS72", A: 6378135.0, F: 1 / 298.26}
)

var ellipsoids = map[string]Ellipsoid{
	"WGS84": WGS84,
	"GRS80": GRS80,
	"WGS72": WGS72,
}

// EllipsoidByName looks up a reference ellipsoid, ignoring case.
func EllipsoidByName(name string) (Ellipsoid, error) {
	e, ok := ellipsoids[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Ellipsoid{}, fmt.Errorf("geo: unknown ellipsoid %q (known: %s)", name, strings.Join(EllipsoidNames(), ", "))
	}
	return e, nil
}

// EllipsoidNames lists the known ellipsoids in sorted order.
func EllipsoidNames() []string {
	names := make([]string, 0, len(ellipsoids))
	for n := range ellipsoids {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// E2 returns the first eccentricity squared.
func (e Ellipsoid) E2() float64 {
	return e.F * (2 - e.F)
}

// B returns the polar radius in metres.
func (e Ellipsoid) B() float64 {
	return e.A * (1 - e.F)
}

// NormalizedEarthRadius returns the radius of the ellipsoid at the given
// geodetic latitude, in units of the equatorial radius.
func (e Ellipsoid) NormalizedEarthRadius(latRad float64) float64 {
	c, s := math.Cos(latRad), math.Sin(latRad)
	return 1 / math.Sqrt(c*c+(1-e.F)*(1-e.F)*s*s)
}
