package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// Stored CS001 axes as PQR to ETRS, columns P, Q, R.
var cs001PQRToETRS = Matrix3{
	{-0.11957595283017786, -0.7919803924956642, 0.5987225145317059},
	{0.9928250558405318, -0.0953862007192316, 0.07211020182744866},
	{0.0, 0.6030493600152181, 0.7977038732419668},
}

func TestRotationMatrixFromReference(t *testing.T) {
	rot, err := RotationMatrixFromReference(cs001, WGS84)
	require.NoError(t, err)
	assert.True(t, rot.IsOrthonormal(1e-12))

	assertMatrixInDelta(t, cs001PQRToETRS.T(), rot, 1e-9)

	g, err := GeographicFromECEF(cs001, WGS84)
	require.NoError(t, err)
	up := NormalVectorEllipsoid(g.Lon, g.Lat)
	assert.InDelta(t, 1, rot.Row(2).Dot(up), 1e-12)
	// East is horizontal, north points towards +z.
	assert.InDelta(t, 0, rot.Row(0)[2], 1e-12)
	assert.Greater(t, rot.Row(1)[2], 0.0)
}

func TestLocalNorthToECEF(t *testing.T) {
	rot, err := RotationMatrixFromReference(cs001, WGS84)
	require.NoError(t, err)
	ln, err := LocalNorthToECEF(cs001, WGS84)
	require.NoError(t, err)
	assert.Equal(t, rot.T(), ln)
	assertMatrixInDelta(t, Identity3, rot.Mul(ln), 1e-12)
}

func TestLocalRoundTrip(t *testing.T) {
	rot, err := RotationMatrixFromReference(cs001, WGS84)
	require.NoError(t, err)

	for _, v := range []Vec3{
		cs001,
		{3826913.451229, 460922.501147, 5064650.436554},
		{3830246.738, 461774.447, 5062020.922},
		{4034084.202, 487013.411, 4900225.807},
	} {
		local := ECEFToLocal(v, cs001, rot)
		back := LocalToECEF(local, cs001, rot)
		assert.InDelta(t, 0, Distance(v, back), 1e-6)
	}

	assert.Equal(t, Vec3{}, ECEFToLocal(cs001, cs001, rot))
}

func TestLocalBatchMatchesSingle(t *testing.T) {
	rot, err := RotationMatrixFromReference(cs001, WGS84)
	require.NoError(t, err)

	vs := []Vec3{
		{3826913.451229, 460922.501147, 5064650.436554},
		{3826926.047505, 460908.328502, 5064642.261349},
		{3826924.994695, 460908.462518, 5064643.036960},
	}
	local, err := ECEFToLocalBatch(VecsToDense(vs), cs001, rot)
	require.NoError(t, err)
	for i, v := range vs {
		single := ECEFToLocal(v, cs001, rot)
		assert.Equal(t, single[:], local.RawRowView(i))
	}

	ecef, err := LocalToECEFBatch(local, cs001, rot)
	require.NoError(t, err)
	got, err := DenseToVecs(ecef)
	require.NoError(t, err)
	for i, v := range vs {
		assert.Equal(t, LocalToECEF(ECEFToLocal(v, cs001, rot), cs001, rot), got[i])
	}
}

func TestBatchShapes(t *testing.T) {
	out, err := ECEFToLocalBatch(&mat.Dense{}, cs001, Identity3)
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())

	_, err = ECEFToLocalBatch(mat.NewDense(2, 2, nil), cs001, Identity3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2×2")
}

func TestProjectionMatrix(t *testing.T) {
	g, err := GeographicFromECEF(cs001, WGS84)
	require.NoError(t, err)
	m, err := ProjectionMatrix(cs001, NormalVectorEllipsoid(g.Lon, g.Lat))
	require.NoError(t, err)
	assert.True(t, m.IsOrthonormal(1e-12))
	// Right-handed: P × Q = R.
	r := m.Col(0).Cross(m.Col(1))
	for i := 0; i < 3; i++ {
		assert.InDelta(t, m.Col(2)[i], r[i], 1e-12)
	}

	// A normal that is not the ellipsoid normal is still honoured as R.
	tilted := Vec3{0.5986681964690662, 0.0721270660565894, 0.7977431145917486}
	m, err = ProjectionMatrix(Vec3{3826577.066, 461022.948, 5064892.786}, tilted)
	require.NoError(t, err)
	assert.InDelta(t, 1, m.Col(2).Dot(tilted.Unit()), 1e-12)
}

func TestProjectionMatrix_DomainErrors(t *testing.T) {
	_, err := ProjectionMatrix(cs001, Vec3{})
	assert.True(t, errors.Is(err, ErrDomain))

	_, err = ProjectionMatrix(Vec3{0, 0, 6356752}, Vec3{0, 0, 1})
	assert.True(t, errors.Is(err, ErrDomain))

	_, err = RotationMatrixFromReference(Vec3{}, WGS84)
	assert.True(t, errors.Is(err, ErrDomain))
}

func TestRotationMatrixFromReference_PolarAxis(t *testing.T) {
	b := WGS84.B()

	north, err := RotationMatrixFromReference(Vec3{0, 0, b + 10}, WGS84)
	require.NoError(t, err)
	assertMatrixInDelta(t, Matrix3{{0, 1, 0}, {-1, 0, 0}, {0, 0, 1}}, north, 1e-15)

	south, err := RotationMatrixFromReference(Vec3{0, 0, -b}, WGS84)
	require.NoError(t, err)
	assertMatrixInDelta(t, Matrix3{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}}, south, 1e-15)

	// Off the axis the closed form agrees with the meridian-plane construction.
	rot, err := RotationMatrixFromReference(cs001, WGS84)
	require.NoError(t, err)
	g, err := GeographicFromECEF(cs001, WGS84)
	require.NoError(t, err)
	assertMatrixInDelta(t, rot, enuRotation(g.Lon, g.Lat), 1e-12)

	la, err := LookAngle(Vec3{0, 0, b}, Vec3{1000, 0, b}, WGS84)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, la.Azimuth, 1e-9)
	assert.InDelta(t, 0, la.Elevation, 1e-9)
}

func TestNormalVectorMeridianPlane(t *testing.T) {
	n, err := NormalVectorMeridianPlane(Vec3{1, 0, 5})
	require.NoError(t, err)
	assert.Equal(t, Vec3{0, -1, 0}, n)

	_, err = NormalVectorMeridianPlane(Vec3{0, 0, 5})
	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "NormalVectorMeridianPlane", de.Op)
}

func TestIsOrthonormal(t *testing.T) {
	assert.True(t, Identity3.IsOrthonormal(1e-15))

	c, s := math.Cos(0.3), math.Sin(0.3)
	rz := Matrix3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
	assert.True(t, rz.IsOrthonormal(1e-12))

	skewed := rz
	skewed[0][0] += 1e-3
	assert.False(t, skewed.IsOrthonormal(1e-6))
}

func assertMatrixInDelta(t *testing.T, want, got Matrix3, delta float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, want[i][j], got[i][j], delta, "element %d,%d", i, j)
		}
	}
}
