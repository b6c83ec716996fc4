// Package geo converts between Earth-centred Cartesian coordinates (ECEF/ETRS),
// station-local P/Q/R coordinates and geographic longitude, latitude and height
// on a reference ellipsoid.
//
// Everything in this package is a pure function over value types, so it can be
// called from any number of goroutines without synchronisation.
package geo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vec3 is a Cartesian 3-vector in metres.
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns s·v.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Unit returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Matrix3 is a row-major 3×3 matrix.
type Matrix3 [3][3]float64

// Identity3 is the 3×3 identity matrix.
var Identity3 = Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// MatrixFromColumns builds a matrix whose columns are c0, c1 and c2.
func MatrixFromColumns(c0, c1, c2 Vec3) Matrix3 {
	return Matrix3{
		{c0[0], c1[0], c2[0]},
		{c0[1], c1[1], c2[1]},
		{c0[2], c1[2], c2[2]},
	}
}

// MulVec returns m·v.
func (m Matrix3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// Mul returns m·o.
func (m Matrix3) Mul(o Matrix3) Matrix3 {
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return out
}

// T returns the transpose of m.
func (m Matrix3) T() Matrix3 {
	return Matrix3{
		{m[0][0], m[1][0], m[2][0]},
		{m[0][1], m[1][1], m[2][1]},
		{m[0][2], m[1][2], m[2][2]},
	}
}

// Row returns row i of m.
func (m Matrix3) Row(i int) Vec3 {
	return Vec3(m[i])
}

// Col returns column j of m.
func (m Matrix3) Col(j int) Vec3 {
	return Vec3{m[0][j], m[1][j], m[2][j]}
}

// IsOrthonormal reports whether m·mᵀ equals the identity within tol.
func (m Matrix3) IsOrthonormal(tol float64) bool {
	a := m.Dense()
	var p mat.Dense
	p.Mul(a, a.T())
	return mat.EqualApprox(&p, mat.NewDiagDense(3, []float64{1, 1, 1}), tol)
}

// Dense returns m as a gonum matrix.
func (m Matrix3) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

// VecsToDense stacks vectors into an N×3 matrix. An empty slice yields an
// empty matrix.
func VecsToDense(vs []Vec3) *mat.Dense {
	if len(vs) == 0 {
		return &mat.Dense{}
	}
	data := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		data = append(data, v[0], v[1], v[2])
	}
	return mat.NewDense(len(vs), 3, data)
}

// DenseToVecs splits an N×3 matrix into its row vectors.
func DenseToVecs(m mat.Matrix) ([]Vec3, error) {
	if isEmpty(m) {
		return nil, nil
	}
	r, c := m.Dims()
	if c != 3 {
		return nil, shapeError(r, c)
	}
	out := make([]Vec3, r)
	for i := range out {
		out[i] = Vec3{m.At(i, 0), m.At(i, 1), m.At(i, 2)}
	}
	return out, nil
}

// mapRows applies fn to every row of an N×3 matrix. Each row goes through
// exactly the same code path as the single-vector form.
func mapRows(points mat.Matrix, fn func(Vec3) (Vec3, error)) (*mat.Dense, error) {
	if isEmpty(points) {
		return &mat.Dense{}, nil
	}
	r, c := points.Dims()
	if c != 3 {
		return nil, shapeError(r, c)
	}
	out := mat.NewDense(r, 3, nil)
	for i := 0; i < r; i++ {
		v, err := fn(Vec3{points.At(i, 0), points.At(i, 1), points.At(i, 2)})
		if err != nil {
			return nil, err
		}
		out.SetRow(i, v[:])
	}
	return out, nil
}

func isEmpty(m mat.Matrix) bool {
	if d, ok := m.(*mat.Dense); ok && d.IsEmpty() {
		return true
	}
	r, c := m.Dims()
	return r == 0 || c == 0
}
