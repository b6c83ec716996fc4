package geo

import "math"

// LookAngles is the direction and distance from an observer to a target.
type LookAngles struct {
	Azimuth   float64 `json:"azimuth_rad" yaml:"azimuth_rad"` // from north through east, [0, 2π)
	Elevation float64 `json:"elevation_rad" yaml:"elevation_rad"`
	Range     float64 `json:"range_m" yaml:"range_m"`
}

// AzimuthDeg returns the azimuth in degrees.
func (l LookAngles) AzimuthDeg() float64 { return l.Azimuth * 180 / math.Pi }

// ElevationDeg returns the elevation in degrees.
func (l LookAngles) ElevationDeg() float64 { return l.Elevation * 180 / math.Pi }

// LookAngle returns azimuth, elevation and range of target as seen from
// observer, both given in ECEF. Coincident points have no direction and
// return a *DomainError.
func LookAngle(observer, target Vec3, ell Ellipsoid) (LookAngles, error) {
	rot, err := RotationMatrixFromReference(observer, ell)
	if err != nil {
		return LookAngles{}, err
	}
	enu := ECEFToLocal(target, observer, rot)
	rng := enu.Norm()
	if rng == 0 {
		return LookAngles{}, &DomainError{Op: "LookAngle", Input: target, Reason: "target coincides with observer"}
	}
	az := math.Atan2(enu[0], enu[1])
	if az < 0 {
		az += 2 * math.Pi
	}
	return LookAngles{
		Azimuth:   az,
		Elevation: math.Asin(enu[2] / rng),
		Range:     rng,
	}, nil
}

// Distance returns the straight-line distance between two ECEF points.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Norm()
}
