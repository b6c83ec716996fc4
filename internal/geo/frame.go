package geo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ECEFToLocal expresses an ECEF position in the local frame anchored at ref,
// where rot maps ECEF offsets to local axes.
func ECEFToLocal(v, ref Vec3, rot Matrix3) Vec3 {
	return rot.MulVec(v.Sub(ref))
}

// LocalToECEF is the inverse of ECEFToLocal for an orthonormal rot.
func LocalToECEF(v, ref Vec3, rot Matrix3) Vec3 {
	return ref.Add(rot.T().MulVec(v))
}

// ECEFToLocalBatch applies ECEFToLocal to every row of an N×3 matrix.
func ECEFToLocalBatch(points mat.Matrix, ref Vec3, rot Matrix3) (*mat.Dense, error) {
	return mapRows(points, func(v Vec3) (Vec3, error) {
		return ECEFToLocal(v, ref, rot), nil
	})
}

// LocalToECEFBatch applies LocalToECEF to every row of an N×3 matrix.
func LocalToECEFBatch(points mat.Matrix, ref Vec3, rot Matrix3) (*mat.Dense, error) {
	return mapRows(points, func(v Vec3) (Vec3, error) {
		return LocalToECEF(v, ref, rot), nil
	})
}

// NormalVectorEllipsoid returns the outward unit normal to the ellipsoid at
// the given geodetic longitude and latitude.
func NormalVectorEllipsoid(lonRad, latRad float64) Vec3 {
	return Vec3{
		math.Cos(latRad) * math.Cos(lonRad),
		math.Cos(latRad) * math.Sin(lonRad),
		math.Sin(latRad),
	}
}

// NormalVectorMeridianPlane returns the unit normal of the meridian plane
// through p, pointing west.
func NormalVectorMeridianPlane(p Vec3) (Vec3, error) {
	h := math.Hypot(p[0], p[1])
	if h == 0 || !p.IsFinite() {
		return Vec3{}, &DomainError{Op: "NormalVectorMeridianPlane", Input: p, Reason: "meridian undefined on the polar axis"}
	}
	return Vec3{p[1] / h, -p[0] / h, 0}, nil
}

// ProjectionMatrix builds the local frame at ref whose R axis is normal.
// Q lies in the meridian plane pointing north and P completes a right-handed
// set pointing east. The returned matrix has P, Q and R as its columns, so it
// maps local coordinates to ECEF offsets.
func ProjectionMatrix(ref, normal Vec3) (Matrix3, error) {
	if normal.Norm() == 0 || !normal.IsFinite() {
		return Matrix3{}, &DomainError{Op: "ProjectionMatrix", Input: normal, Reason: "zero or non-finite normal vector"}
	}
	r := normal.Unit()
	mn, err := NormalVectorMeridianPlane(ref)
	if err != nil {
		return Matrix3{}, err
	}
	q := mn.Cross(r)
	if q.Norm() < 1e-12 {
		return Matrix3{}, &DomainError{Op: "ProjectionMatrix", Input: normal, Reason: "normal lies in the meridian-plane normal direction"}
	}
	q = q.Unit()
	p := q.Cross(r).Unit()
	return MatrixFromColumns(p, q, r), nil
}

// RotationMatrixFromReference returns the ECEF-to-local rotation for a
// station reference point: its rows are the east, north and up unit vectors
// of the tangent plane to ell at ref. On the polar axis the meridian is the
// one at longitude 0, matching GeographicFromECEF.
func RotationMatrixFromReference(ref Vec3, ell Ellipsoid) (Matrix3, error) {
	g, err := GeographicFromECEF(ref, ell)
	if err != nil {
		return Matrix3{}, err
	}
	if ref[0] == 0 && ref[1] == 0 {
		return enuRotation(g.Lon, g.Lat), nil
	}
	m, err := ProjectionMatrix(ref, NormalVectorEllipsoid(g.Lon, g.Lat))
	if err != nil {
		return Matrix3{}, err
	}
	return m.T(), nil
}

// LocalNorthToECEF returns the matrix whose columns are the east, north and
// up unit vectors at ref, mapping local-north coordinates to ECEF offsets.
func LocalNorthToECEF(ref Vec3, ell Ellipsoid) (Matrix3, error) {
	rot, err := RotationMatrixFromReference(ref, ell)
	if err != nil {
		return Matrix3{}, err
	}
	return rot.T(), nil
}

// enuRotation is the ECEF-to-east/north/up rotation at a geodetic longitude
// and latitude.
func enuRotation(lonRad, latRad float64) Matrix3 {
	sinLon, cosLon := math.Sincos(lonRad)
	sinLat, cosLat := math.Sincos(latRad)
	return Matrix3{
		{-sinLon, cosLon, 0},
		{-sinLat * cosLon, -sinLat * sinLon, cosLat},
		{cosLat * cosLon, cosLat * sinLon, sinLat},
	}
}
