package dataset

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/antpos/internal/config"
	"github.com/large-farva/antpos/internal/geo"
	"github.com/large-farva/antpos/internal/registry"
)

func TestEmbedded(t *testing.T) {
	tables, err := Embedded()
	require.NoError(t, err)
	assert.Equal(t, registry.TableAntennas, tables.Antennas.Name)
	assert.NotEmpty(t, tables.HBARotations.Rows)

	reg, err := registry.New(tables)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS001", "CS002", "DE601", "RS210"}, slices.Collect(reg.StationNames()))

	pc, err := reg.PhaseCentre("CS001", "LBA")
	require.NoError(t, err)
	assert.Equal(t, geo.Vec3{3826923.942, 460915.117, 5064643.229}, pc)

	g, err := geo.GeographicFromECEF(pc, geo.WGS84)
	require.NoError(t, err)
	assert.InDelta(t, 0.11986, g.Lon, 5e-5)
	assert.InDelta(t, 0.92348, g.Lat, 5e-5)
	assert.InDelta(t, 50.16, g.Height, 5e-3)

	ants, err := reg.AntennaPositions("RS210", "LBA")
	require.NoError(t, err)
	require.Len(t, ants, 8)
	assert.Equal(t, geo.Vec3{}, ants[0].Local)
	assert.InDelta(t, 1.3499499659227154, ants[2].Local[1], 1e-6)

	dipoles, err := reg.HBADipolePQR("CS001", "HBA")
	require.NoError(t, err)
	assert.Len(t, dipoles, 8*16)
}

func TestWriteCSVAndFromDir(t *testing.T) {
	tables, err := Embedded()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteCSV(dir, tables))

	loaded, err := FromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, tables, loaded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, strings.HasSuffix(e.Name(), ".csv"), "leftover %s", e.Name())
	}
}

func TestFromDir_Errors(t *testing.T) {
	_, err := FromDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = FromDir(file)
	assert.ErrorContains(t, err, "not a directory")

	_, err = FromDir(t.TempDir())
	assert.ErrorContains(t, err, registry.TableAntennas)
}

func TestFromFS_OptionalHBARotations(t *testing.T) {
	fsys := fstest.MapFS{
		"etrs-antenna-positions.csv": {Data: []byte("station,field,antenna_type,antenna_id,etrs_x,etrs_y,etrs_z,local_x,local_y\n" +
			"DE601,LBA,LBA,0,4034084.202,487013.411,4900225.807,0,0\n")},
		"etrs-phase-centres.csv": {Data: []byte("station,field,etrs_x,etrs_y,etrs_z\n" +
			"# upstream extraction, 3 decimals\n" +
			"DE601,LBA,4034084.202,487013.411,4900225.807\n")},
		"station-references.csv": {Data: []byte("station,etrs_x,etrs_y,etrs_z,axes\nDE601,4034084.202,487013.411,4900225.807\n")},
	}
	tables, err := FromFS(fsys)
	require.NoError(t, err)
	assert.Empty(t, tables.HBARotations.Header)
	assert.Len(t, tables.PhaseCentres.Rows, 1)

	reg, err := registry.New(tables)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.AntennaCount())
}

func TestReadCSV(t *testing.T) {
	tab, err := ReadCSV(strings.NewReader("station,etrs_x,etrs_y,etrs_z,axes\nA,1,2,3\nB,1,2,3,0,0,1\n"))
	require.NoError(t, err)
	assert.Len(t, tab.Rows[0], 4)
	assert.Len(t, tab.Rows[1], 7)

	_, err = ReadCSV(strings.NewReader(""))
	assert.ErrorContains(t, err, "missing header")

	_, err = ReadCSV(strings.NewReader("a,b\n\"unterminated,1\n"))
	assert.Error(t, err)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	tables, err := Embedded()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "antpos.db")
	require.NoError(t, WriteSQLite(ctx, path, tables))

	fromDB, err := FromSQLite(ctx, path)
	require.NoError(t, err)
	assert.Len(t, fromDB.Antennas.Rows, len(tables.Antennas.Rows))

	want, err := registry.New(tables)
	require.NoError(t, err)
	got, err := registry.New(fromDB)
	require.NoError(t, err)

	assert.Equal(t, slices.Collect(want.StationNames()), slices.Collect(got.StationNames()))
	for name := range want.StationNames() {
		wref, _ := want.StationReference(name)
		gref, err := got.StationReference(name)
		require.NoError(t, err)
		assert.Equal(t, wref, gref)

		fields, err := want.Fields(name)
		require.NoError(t, err)
		for _, f := range fields {
			wa, werr := want.AntennaPositions(name, f)
			ga, gerr := got.AntennaPositions(name, f)
			assert.Equal(t, werr, gerr)
			assert.Equal(t, wa, ga, "%s %s", name, f)

			wr, werr := want.HBARotation(name, f)
			gr, gerr := got.HBARotation(name, f)
			assert.Equal(t, werr == nil, gerr == nil)
			assert.Equal(t, wr, gr)
		}
	}
}

func TestSQLite_PathWithURIDelimiters(t *testing.T) {
	ctx := context.Background()
	tables, err := Embedded()
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "odd?dir#1%2f")
	path := filepath.Join(dir, "antpos?mode=memory#x.db")
	require.NoError(t, WriteSQLite(ctx, path, tables))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "antpos?mode=memory#x.db", entries[0].Name())

	fromDB, err := FromSQLite(ctx, path)
	require.NoError(t, err)
	assert.Len(t, fromDB.Antennas.Rows, len(tables.Antennas.Rows))
	assert.Len(t, fromDB.References.Rows, len(tables.References.Rows))
}

func TestWriteSQLite_RejectsMalformed(t *testing.T) {
	tables, err := Embedded()
	require.NoError(t, err)
	tables.References.Rows = tables.References.Rows[1:]

	dir := t.TempDir()
	path := filepath.Join(dir, "antpos.db")
	err = WriteSQLite(context.Background(), path, tables)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrMalformedData)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFromSQLite_Missing(t *testing.T) {
	_, err := FromSQLite(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_Fallback(t *testing.T) {
	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), "missing")

	_, origin, err := Load(ctx, config.DataConfig{Source: config.SourceCSV, Path: missing})
	require.Error(t, err)
	assert.Equal(t, config.SourceCSV, origin.Source)

	tables, origin, err := Load(ctx, config.DataConfig{Source: config.SourceCSV, Path: missing, FallbackEmbedded: true})
	require.NoError(t, err)
	assert.Equal(t, config.SourceEmbedded, origin.Source)
	assert.NotEmpty(t, origin.FallbackReason)
	assert.Contains(t, origin.String(), "fallback")
	assert.NotEmpty(t, tables.Antennas.Rows)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	reg, origin, err := Open(ctx, config.DataConfig{Source: config.SourceEmbedded})
	require.NoError(t, err)
	assert.Equal(t, "embedded", origin.String())
	assert.Equal(t, 4, reg.Len())

	// A directory whose tables fail validation falls back like a read error.
	tables, err := Embedded()
	require.NoError(t, err)
	tables.Antennas.Rows = append(tables.Antennas.Rows, slices.Clone(tables.Antennas.Rows[0]))
	dir := t.TempDir()
	require.NoError(t, WriteCSV(dir, tables))

	_, _, err = Open(ctx, config.DataConfig{Source: config.SourceCSV, Path: dir})
	assert.ErrorIs(t, err, registry.ErrMalformedData)

	reg, origin, err = Open(ctx, config.DataConfig{Source: config.SourceCSV, Path: dir, FallbackEmbedded: true})
	require.NoError(t, err)
	assert.Equal(t, config.SourceEmbedded, origin.Source)
	assert.Contains(t, origin.FallbackReason, "duplicate antenna")
	assert.Equal(t, 4, reg.Len())
}
