package registry

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/antpos/internal/geo"
)

const (
	testReferences = `station,etrs_x,etrs_y,etrs_z,axes
CS001,3826923.942,460915.117,5064643.229,-0.11957595283017786,-0.7919803924956642,0.5987225145317059,0.9928250558405318,-0.0953862007192316,0.07211020182744866,0.0,0.6030493600152181,0.7977038732419668
CS002,3826577.066,461022.948,5064892.786,0.5986681964690662,0.0721270660565894,0.7977431145917486
RS210,3830246.738,461774.447,5062020.922,-0.11969325872144929,-0.7915656432894024,0.5992473247169944,0.9928109204761197,-0.09543113334391227,0.0722452418644732,-6.938893903907228e-18,0.6035865564710094,0.7972974782648373
DE601,4034084.202,487013.411,4900225.807`

	testAntennas = `station,field,antenna_type,antenna_id,etrs_x,etrs_y,etrs_z,local_x,local_y
RS210,LBA,LBA,0,3830246.738000,461774.447000,5062020.922000,0.000000,0.000000
RS210,LBA,LBA,1,3830244.720158,461774.203665,5062022.462980,-0.000064,2.550591
RS210,LBA,LBA,2,3830245.400900,461776.552063,5062021.737850,2.249971,1.349950
RS210,LBA,LBA,3,3830247.537323,461776.809482,5062020.106639,2.249824,-1.350312
RS210,LBA,LBA,4,3830248.755842,461774.690335,5062019.381020,0.000064,-2.550591
RS210,HBA,HBA,0,3830210.009326,461749.370572,5062050.800271,-20.499977,49.500351
RS210,HBA,HBA,1,3830209.410741,461754.334612,5062050.800114,-15.499977,49.500352
CS001,HBA0,HBA,0,3826926.436228,460941.101323,5064639.006494,25.499637,-7.000305
CS001,HBA0,HBA,1,3826925.839316,460946.065565,5064639.007783,30.499637,-7.000305
CS001,HBA1,HBA,24,3826901.475643,460878.165373,5064663.431047,-34.000065,33.500421
CS001,HBA1,HBA,25,3826900.879152,460883.129666,5064663.432896,-29.000065,33.500420
CS002,LBA,LBA,0,3826577.066000,461022.948000,5064892.786000,0.000000,0.000000
CS002,LBA,LBA,1,3826567.519924,461030.299105,5064899.282358,8.440174,10.776476
DE601,LBA,LBA,0,4034084.202000,487013.411000,4900225.807000,0.000000,0.000000
DE601,LBA,LBA,1,4034083.877103,487027.002496,4900224.727949,13.532462,-1.694446`

	testPhaseCentres = `station,field,etrs_x,etrs_y,etrs_z
RS210,LBA,3830246.738,461774.447,5062020.922
RS210,HBA,3830207.731,461751.614,5062052.309
CS001,HBA0,3826924.158,460943.345,5064640.515
CS001,HBA1,3826899.197,460880.409,5064664.939
CS001,HBA,3826911.678,460911.877,5064652.727
CS002,LBA,3826577.066,461022.948,5064892.786
DE601,LBA,4034084.202,487013.411,4900225.807`

	testHBARotations = `station,hba0_deg,hba1_deg
CS001,24.0,24.0
RS210,-20.0,`
)

func parseTable(name, text string) Table {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	t := Table{Name: name, Header: strings.Split(lines[0], ",")}
	for _, l := range lines[1:] {
		t.Rows = append(t.Rows, strings.Split(l, ","))
	}
	return t
}

func testTables() Tables {
	return Tables{
		Antennas:     parseTable(TableAntennas, testAntennas),
		PhaseCentres: parseTable(TablePhaseCentres, testPhaseCentres),
		References:   parseTable(TableReferences, testReferences),
		HBARotations: parseTable(TableHBARotations, testHBARotations),
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(testTables())
	require.NoError(t, err)
	return r
}

func assertVecInDelta(t *testing.T, want, got geo.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}

func TestAntennaPositions_RS210LBA(t *testing.T) {
	r := newTestRegistry(t)

	ants, err := r.AntennaPositions("RS210", "LBA")
	require.NoError(t, err)
	require.Len(t, ants, 5)

	want := []geo.Vec3{
		{0, 0, 0},
		{-6.356078928660928e-05, 2.5505909473481587, 0.0018532520334646474},
		{2.2499713909365773, 1.3499499659227154, 0.0013023351835922403},
		{2.2498243544113383, -1.350311898100415, -0.00041501681647715394},
		{6.356e-05, -2.55059095, -0.00185325},
	}
	for i, a := range ants {
		assert.Equal(t, i, a.Index)
		assert.Equal(t, "RS210", a.Station)
		assert.Equal(t, "LBA", a.Type)
		assertVecInDelta(t, want[i], a.Local, 1e-6, "antenna %d", i)
	}
}

func TestAntennaPositions_LocalInvariant(t *testing.T) {
	r := newTestRegistry(t)
	for name := range r.StationNames() {
		ref, err := r.StationReference(name)
		require.NoError(t, err)
		fields, err := r.Fields(name)
		require.NoError(t, err)
		for _, f := range fields {
			ants, err := r.AntennaPositions(name, f)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			require.NoError(t, err)
			for _, a := range ants {
				assert.Equal(t, geo.ECEFToLocal(a.ECEF, ref.Position, ref.Rotation), a.Local)
			}
		}
	}
}

func TestAntennaPositions_ReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)
	ants, err := r.AntennaPositions("RS210", "LBA")
	require.NoError(t, err)
	ants[0].ECEF = geo.Vec3{}

	again, err := r.AntennaPositions("RS210", "LBA")
	require.NoError(t, err)
	assert.NotEqual(t, geo.Vec3{}, again[0].ECEF)
}

func TestAntennaPositions_SplitHBAAlias(t *testing.T) {
	r := newTestRegistry(t)
	ants, err := r.AntennaPositions("CS001", "HBA")
	require.NoError(t, err)

	var got []string
	for _, a := range ants {
		got = append(got, a.Field)
	}
	assert.Equal(t, []string{"HBA0", "HBA0", "HBA1", "HBA1"}, got)
	assert.Equal(t, 24, ants[2].Index)
}

func TestStationNames(t *testing.T) {
	r := newTestRegistry(t)
	want := []string{"CS001", "CS002", "DE601", "RS210"}

	assert.Equal(t, want, slices.Collect(r.StationNames()))
	assert.Equal(t, want, slices.Collect(r.StationNames()), "sequence must be restartable")

	var first []string
	for n := range r.StationNames() {
		first = append(first, n)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, want[:2], first)
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 15, r.AntennaCount())
}

func TestNotFound(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.StationReference("ZZ999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "station", nf.Kind)
	assert.Equal(t, "ZZ999", nf.Key)

	_, err = r.RotationMatrix("ZZ999")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.AntennaPositions("ZZ999", "LBA")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.PhaseCentre("ZZ999", "LBA")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.AntennaPositions("RS210", "HBA7")
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "field", nf.Kind)

	_, err = r.PhaseCentre("DE601", "HBA")
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "phase centre", nf.Kind)

	_, err = r.HBARotation("CS001", "HBA")
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "hba rotation", nf.Kind)
}

func TestLookupsIgnoreCase(t *testing.T) {
	r := newTestRegistry(t)
	pc, err := r.PhaseCentre(" rs210", "lba")
	require.NoError(t, err)
	assert.Equal(t, geo.Vec3{3830246.738, 461774.447, 5062020.922}, pc)
}

func TestRotations(t *testing.T) {
	r := newTestRegistry(t)
	frames := map[string]FrameSource{
		"CS001": FrameMatrix,
		"CS002": FrameNormal,
		"DE601": FrameEllipsoid,
		"RS210": FrameMatrix,
	}
	for name := range r.StationNames() {
		ref, err := r.StationReference(name)
		require.NoError(t, err)
		assert.Equal(t, frames[name], ref.Frame, name)

		rot, err := r.RotationMatrix(name)
		require.NoError(t, err)
		assert.True(t, rot.IsOrthonormal(1e-9), name)

		// The up axis follows the ellipsoid normal at the reference.
		g, err := geo.GeographicFromECEF(ref.Position, geo.WGS84)
		require.NoError(t, err)
		assert.InDelta(t, 1, rot.Row(2).Dot(geo.NormalVectorEllipsoid(g.Lon, g.Lat)), 1e-9, name)

		for _, v := range []geo.Vec3{{1, 2, 3}, {-1e6, 4e5, 6.3e6}, ref.Position} {
			back := geo.LocalToECEF(geo.ECEFToLocal(v, ref.Position, rot), ref.Position, rot)
			assert.InDelta(t, 0, geo.Distance(v, back)/math.Max(v.Norm(), ref.Position.Norm()), 1e-9, name)
		}
	}

	derived, err := geo.RotationMatrixFromReference(geo.Vec3{4034084.202, 487013.411, 4900225.807}, geo.WGS84)
	require.NoError(t, err)
	rot, err := r.RotationMatrix("DE601")
	require.NoError(t, err)
	assert.Equal(t, derived, rot)
}

func TestPQRToLocalNorth(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range []string{"DE601", "CS001", "CS002"} {
		m, err := r.PQRToLocalNorth(name)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				assert.InDelta(t, geo.Identity3[i][j], m[i][j], 1e-9, "%s %d,%d", name, i, j)
			}
		}
	}
	_, err := r.PQRToLocalNorth("ZZ999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAntennaPQR(t *testing.T) {
	r := newTestRegistry(t)

	pqr, err := r.AntennaPQR("RS210", "LBA")
	require.NoError(t, err)
	ants, err := r.AntennaPositions("RS210", "LBA")
	require.NoError(t, err)
	require.Len(t, pqr, len(ants))
	for i := range ants {
		assertVecInDelta(t, ants[i].Local, pqr[i], 1e-9)
	}

	hba, err := r.AntennaPQR("RS210", "HBA")
	require.NoError(t, err)
	pc, err := r.PhaseCentre("RS210", "HBA")
	require.NoError(t, err)
	ref, err := r.StationReference("RS210")
	require.NoError(t, err)
	assertVecInDelta(t, geo.ECEFToLocal(geo.Vec3{3830210.009326, 461749.370572, 5062050.800271}, pc, ref.Rotation), hba[0], 1e-9)
}

func TestSummary(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.Summary("CS001")
	require.NoError(t, err)
	assert.Equal(t, "CS001", s.Reference.Name)
	assert.InDelta(t, 0.9234780446647385, s.Geographic.Lat, 1e-10)

	var names []string
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"HBA", "HBA0", "HBA1"}, names)
	assert.Equal(t, 4, s.Fields[0].Antennas)
	assert.Equal(t, "HBA", s.Fields[0].Type)
	require.NotNil(t, s.Fields[1].HBARotationDeg)
	assert.InDelta(t, 24.0, *s.Fields[1].HBARotationDeg, 1e-12)

	pcs, err := r.PhaseCentres("CS001")
	require.NoError(t, err)
	assert.Len(t, pcs, 3)
}

func TestNew_Malformed(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Tables)
		table  string
		reason string
	}{
		{
			name: "antenna station without reference",
			mutate: func(tb *Tables) {
				tb.Antennas.Rows = append(tb.Antennas.Rows, strings.Split("NL999,LBA,LBA,0,1,2,3,,", ","))
			},
			table:  TableAntennas,
			reason: "no reference row",
		},
		{
			name: "phase centre station without reference",
			mutate: func(tb *Tables) {
				tb.PhaseCentres.Rows = append(tb.PhaseCentres.Rows, strings.Split("NL999,LBA,1,2,3", ","))
			},
			table:  TablePhaseCentres,
			reason: "no reference row",
		},
		{
			name:   "non-numeric coordinate",
			mutate: func(tb *Tables) { tb.Antennas.Rows[1][5] = "north" },
			table:  TableAntennas,
			reason: "antenna position",
		},
		{
			name:   "non-finite coordinate",
			mutate: func(tb *Tables) { tb.PhaseCentres.Rows[0][4] = "NaN" },
			table:  TablePhaseCentres,
			reason: "phase centre",
		},
		{
			name: "duplicate antenna",
			mutate: func(tb *Tables) {
				tb.Antennas.Rows = append(tb.Antennas.Rows, slices.Clone(tb.Antennas.Rows[2]))
			},
			table:  TableAntennas,
			reason: "duplicate antenna RS210 LBA 2",
		},
		{
			name: "duplicate phase centre",
			mutate: func(tb *Tables) {
				tb.PhaseCentres.Rows = append(tb.PhaseCentres.Rows, slices.Clone(tb.PhaseCentres.Rows[0]))
			},
			table:  TablePhaseCentres,
			reason: "duplicate phase centre",
		},
		{
			name:   "rotation not orthonormal",
			mutate: func(tb *Tables) { tb.References.Rows[0][4] = "-0.2" },
			table:  TableReferences,
			reason: "not orthonormal",
		},
		{
			name:   "wrong number of axis values",
			mutate: func(tb *Tables) { tb.References.Rows[3] = append(tb.References.Rows[3], "0.1", "0.2") },
			table:  TableReferences,
			reason: "got 2",
		},
		{
			name:   "recorded local disagrees",
			mutate: func(tb *Tables) { tb.Antennas.Rows[2][7] = "2.2520" },
			table:  TableAntennas,
			reason: "local position",
		},
		{
			name:   "missing column",
			mutate: func(tb *Tables) { tb.PhaseCentres.Header[2] = "x" },
			table:  TablePhaseCentres,
			reason: "missing column etrs_x",
		},
		{
			name:   "duplicate station reference",
			mutate: func(tb *Tables) { tb.References.Rows = append(tb.References.Rows, slices.Clone(tb.References.Rows[3])) },
			table:  TableReferences,
			reason: "duplicate station DE601",
		},
		{
			name:   "bad hba rotation",
			mutate: func(tb *Tables) { tb.HBARotations.Rows[1][1] = "twenty" },
			table:  TableHBARotations,
			reason: "hba0_deg",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tables := testTables()
			tc.mutate(&tables)

			r, err := New(tables)
			require.Error(t, err)
			assert.Nil(t, r)
			assert.True(t, errors.Is(err, ErrMalformedData))

			var me *MalformedDataError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tc.table, me.Table)
			assert.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestNew_LocalToleranceOption(t *testing.T) {
	tables := testTables()
	tables.Antennas.Rows[2][7] = "2.2520"

	_, err := New(tables, WithLocalTolerance(-1))
	require.NoError(t, err)

	_, err = New(tables, WithLocalTolerance(0.01))
	require.NoError(t, err)
}

func TestNew_WithoutHBARotations(t *testing.T) {
	tables := testTables()
	tables.HBARotations = Table{}
	r, err := New(tables, WithEllipsoid(geo.GRS80))
	require.NoError(t, err)
	assert.Equal(t, geo.GRS80, r.Ellipsoid())

	_, err = r.HBADipolePQR("RS210", "HBA")
	assert.ErrorIs(t, err, ErrNotFound)
}
