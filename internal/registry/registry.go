// Package registry is an immutable, typed index of station reference frames,
// antenna positions, phase centres and HBA tile rotations.
//
// A Registry is built once by New from raw Tables, validated completely, and
// never modified afterwards, so any number of goroutines may query it.
package registry

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"strconv"

	"github.com/large-farva/antpos/internal/geo"
)

const (
	// DefaultLocalTolerance is how far a recorded local_x/local_y may sit
	// from the computed local position, in metres.
	DefaultLocalTolerance = 1e-3

	// orthonormalTolerance bounds |R·Rᵀ − I| for explicit rotations.
	orthonormalTolerance = 1e-6
)

type options struct {
	ellipsoid      geo.Ellipsoid
	localTolerance float64
}

// Option configures New.
type Option func(*options)

// WithEllipsoid sets the ellipsoid used to derive station frames. The
// default is WGS84.
func WithEllipsoid(e geo.Ellipsoid) Option {
	return func(o *options) { o.ellipsoid = e }
}

// WithLocalTolerance overrides DefaultLocalTolerance. A negative value
// disables the check.
func WithLocalTolerance(metres float64) Option {
	return func(o *options) { o.localTolerance = metres }
}

type field struct {
	name        string
	antennas    []AntennaPosition
	phaseCentre *geo.Vec3
	hbaRotation *float64 // radians
}

type station struct {
	ref    StationReference
	fields map[string]*field
}

func (s *station) field(name string) *field {
	f, ok := s.fields[name]
	if !ok {
		f = &field{name: name}
		s.fields[name] = f
	}
	return f
}

// Registry answers lookups over a validated antenna dataset.
type Registry struct {
	ell      geo.Ellipsoid
	stations map[string]*station
	names    []string
	antennas int
}

// New parses and validates tables and builds every index. Any problem is
// reported as a *MalformedDataError and no Registry is returned.
func New(t Tables, opts ...Option) (*Registry, error) {
	o := options{ellipsoid: geo.WGS84, localTolerance: DefaultLocalTolerance}
	for _, fn := range opts {
		fn(&o)
	}

	r := &Registry{ell: o.ellipsoid, stations: make(map[string]*station)}
	if err := r.loadReferences(t.References); err != nil {
		return nil, err
	}
	if err := r.loadPhaseCentres(t.PhaseCentres); err != nil {
		return nil, err
	}
	if err := r.loadHBARotations(t.HBARotations); err != nil {
		return nil, err
	}
	if err := r.loadAntennas(t.Antennas, o.localTolerance); err != nil {
		return nil, err
	}

	r.names = make([]string, 0, len(r.stations))
	for name := range r.stations {
		r.names = append(r.names, name)
	}
	slices.Sort(r.names)
	return r, nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

func (r *Registry) loadReferences(t Table) error {
	t.Name = tableName(t.Name, TableReferences)
	idx, err := t.columnIndex(ReferenceColumns)
	if err != nil {
		return err
	}
	for i, rec := range t.Rows {
		row := i + 1
		name := normalize(cell(rec, idx["station"]))
		if name == "" {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "empty station name"}
		}
		if _, dup := r.stations[name]; dup {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "duplicate station " + name}
		}
		pos, err := parseVec(rec, idx["etrs_x"], idx["etrs_y"], idx["etrs_z"])
		if err != nil {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "reference position", Err: err}
		}

		axes, err := parseAxes(rec, idx["axes"])
		if err != nil {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "axes", Err: err}
		}

		ref := StationReference{Name: name, Position: pos}
		switch len(axes) {
		case 9:
			pqrToETRS := geo.Matrix3{
				{axes[0], axes[1], axes[2]},
				{axes[3], axes[4], axes[5]},
				{axes[6], axes[7], axes[8]},
			}
			ref.Rotation, ref.Frame = pqrToETRS.T(), FrameMatrix
		case 3:
			m, err := geo.ProjectionMatrix(pos, geo.Vec3{axes[0], axes[1], axes[2]})
			if err != nil {
				return &MalformedDataError{Table: t.Name, Row: row, Reason: "normal vector", Err: err}
			}
			ref.Rotation, ref.Frame = m.T(), FrameNormal
		case 0:
			rot, err := geo.RotationMatrixFromReference(pos, r.ell)
			if err != nil {
				return &MalformedDataError{Table: t.Name, Row: row, Reason: "deriving frame", Err: err}
			}
			ref.Rotation, ref.Frame = rot, FrameEllipsoid
		default:
			return &MalformedDataError{Table: t.Name, Row: row, Reason: fmt.Sprintf("want 0, 3 or 9 axis values, got %d", len(axes))}
		}
		if !ref.Rotation.IsOrthonormal(orthonormalTolerance) {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "rotation of " + name + " is not orthonormal"}
		}

		r.stations[name] = &station{ref: ref, fields: make(map[string]*field)}
	}
	return nil
}

func (r *Registry) loadPhaseCentres(t Table) error {
	t.Name = tableName(t.Name, TablePhaseCentres)
	idx, err := t.columnIndex(PhaseCentreColumns)
	if err != nil {
		return err
	}
	for i, rec := range t.Rows {
		row := i + 1
		st, err := r.referencedStation(t.Name, row, cell(rec, idx["station"]))
		if err != nil {
			return err
		}
		fname := normalize(cell(rec, idx["field"]))
		if fname == "" {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "empty field name"}
		}
		pos, err := parseVec(rec, idx["etrs_x"], idx["etrs_y"], idx["etrs_z"])
		if err != nil {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "phase centre", Err: err}
		}
		f := st.field(fname)
		if f.phaseCentre != nil {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "duplicate phase centre " + st.ref.Name + " " + fname}
		}
		f.phaseCentre = &pos
	}
	return nil
}

func (r *Registry) loadHBARotations(t Table) error {
	if len(t.Header) == 0 && len(t.Rows) == 0 {
		return nil
	}
	t.Name = tableName(t.Name, TableHBARotations)
	idx, err := t.columnIndex(HBARotationColumns)
	if err != nil {
		return err
	}
	for i, rec := range t.Rows {
		row := i + 1
		st, err := r.referencedStation(t.Name, row, cell(rec, idx["station"]))
		if err != nil {
			return err
		}
		hba0, err := parseFloat(cell(rec, idx["hba0_deg"]))
		if err != nil {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "hba0_deg", Err: err}
		}
		set := func(name string, deg float64) error {
			f := st.field(name)
			if f.hbaRotation != nil {
				return &MalformedDataError{Table: t.Name, Row: row, Reason: "duplicate rotation " + st.ref.Name + " " + name}
			}
			rad := deg * math.Pi / 180
			f.hbaRotation = &rad
			return nil
		}

		raw1 := cell(rec, idx["hba1_deg"])
		if raw1 == "" {
			if err := set("HBA", hba0); err != nil {
				return err
			}
			continue
		}
		hba1, err := parseFloat(raw1)
		if err != nil {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "hba1_deg", Err: err}
		}
		if err := set("HBA0", hba0); err != nil {
			return err
		}
		if err := set("HBA1", hba1); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadAntennas(t Table, tol float64) error {
	t.Name = tableName(t.Name, TableAntennas)
	idx, err := t.columnIndex(AntennaColumns)
	if err != nil {
		return err
	}
	type key struct {
		station, field string
		index          int
	}
	seen := make(map[key]int, len(t.Rows))

	for i, rec := range t.Rows {
		row := i + 1
		st, err := r.referencedStation(t.Name, row, cell(rec, idx["station"]))
		if err != nil {
			return err
		}
		fname := normalize(cell(rec, idx["field"]))
		typ := normalize(cell(rec, idx["antenna_type"]))
		if fname == "" || typ == "" {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "empty field or antenna type"}
		}
		index, err := strconv.Atoi(cell(rec, idx["antenna_id"]))
		if err != nil {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "antenna_id", Err: err}
		}
		k := key{st.ref.Name, fname, index}
		if first, dup := seen[k]; dup {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: fmt.Sprintf("duplicate antenna %s %s %d (first at row %d)", k.station, k.field, k.index, first)}
		}
		seen[k] = row

		ecef, err := parseVec(rec, idx["etrs_x"], idx["etrs_y"], idx["etrs_z"])
		if err != nil {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "antenna position", Err: err}
		}
		local := geo.ECEFToLocal(ecef, st.ref.Position, st.ref.Rotation)
		if err := checkRecordedLocal(rec, idx["local_x"], idx["local_y"], local, tol); err != nil {
			return &MalformedDataError{Table: t.Name, Row: row, Reason: "local position", Err: err}
		}

		f := st.field(fname)
		f.antennas = append(f.antennas, AntennaPosition{
			Station: st.ref.Name,
			Field:   fname,
			Type:    typ,
			Index:   index,
			ECEF:    ecef,
			Local:   local,
		})
		r.antennas++
	}
	return nil
}

func (r *Registry) referencedStation(table string, row int, raw string) (*station, error) {
	name := normalize(raw)
	st, ok := r.stations[name]
	if !ok {
		return nil, &MalformedDataError{Table: table, Row: row, Reason: fmt.Sprintf("station %q has no reference row", name)}
	}
	return st, nil
}

func checkRecordedLocal(rec []string, ix, iy int, local geo.Vec3, tol float64) error {
	if tol < 0 {
		return nil
	}
	for axis, i := range []int{ix, iy} {
		raw := cell(rec, i)
		if raw == "" {
			continue
		}
		v, err := parseFloat(raw)
		if err != nil {
			return err
		}
		if d := math.Abs(v - local[axis]); d > tol {
			return fmt.Errorf("recorded %c=%g differs from computed %g by %.4g m", 'x'+rune(axis), v, local[axis], d)
		}
	}
	return nil
}

func tableName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func parseVec(rec []string, ix, iy, iz int) (geo.Vec3, error) {
	var v geo.Vec3
	for axis, i := range []int{ix, iy, iz} {
		f, err := parseFloat(cell(rec, i))
		if err != nil {
			return geo.Vec3{}, err
		}
		v[axis] = f
	}
	return v, nil
}

// parseAxes reads the trailing axis values starting at column from. Trailing
// blanks are ignored so writers that pad records are accepted.
func parseAxes(rec []string, from int) ([]float64, error) {
	if from >= len(rec) {
		return nil, nil
	}
	raw := rec[from:]
	for len(raw) > 0 && cell(raw, len(raw)-1) == "" {
		raw = raw[:len(raw)-1]
	}
	out := make([]float64, 0, len(raw))
	for i := range raw {
		v, err := parseFloat(cell(raw, i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

func (r *Registry) station(name string) (*station, error) {
	st, ok := r.stations[normalize(name)]
	if !ok {
		return nil, stationNotFound(name)
	}
	return st, nil
}

// Ellipsoid returns the ellipsoid station frames were derived on.
func (r *Registry) Ellipsoid() geo.Ellipsoid { return r.ell }

// Len returns the number of stations.
func (r *Registry) Len() int { return len(r.names) }

// AntennaCount returns the number of antenna rows across all stations.
func (r *Registry) AntennaCount() int { return r.antennas }

// StationReference returns the reference frame of a station.
func (r *Registry) StationReference(name string) (StationReference, error) {
	st, err := r.station(name)
	if err != nil {
		return StationReference{}, err
	}
	return st.ref, nil
}

// RotationMatrix returns the ECEF-to-local rotation of a station.
func (r *Registry) RotationMatrix(name string) (geo.Matrix3, error) {
	st, err := r.station(name)
	if err != nil {
		return geo.Matrix3{}, err
	}
	return st.ref.Rotation, nil
}

// StationNames yields every station name in lexicographic order. The
// sequence may be ranged over any number of times.
func (r *Registry) StationNames() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, n := range r.names {
			if !yield(n) {
				return
			}
		}
	}
}

// Fields lists the fields of a station that have antennas or a phase centre,
// sorted.
func (r *Registry) Fields(name string) ([]string, error) {
	st, err := r.station(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(st.fields))
	for fname, f := range st.fields {
		if len(f.antennas) > 0 || f.phaseCentre != nil {
			out = append(out, fname)
		}
	}
	slices.Sort(out)
	return out, nil
}

// AntennaPositions returns the antennas of a field in table order. For split
// HBA stations, field "HBA" without rows of its own resolves to the HBA0
// antennas followed by the HBA1 antennas.
func (r *Registry) AntennaPositions(stationName, fieldName string) ([]AntennaPosition, error) {
	st, err := r.station(stationName)
	if err != nil {
		return nil, err
	}
	fname := normalize(fieldName)
	if f, ok := st.fields[fname]; ok && len(f.antennas) > 0 {
		return slices.Clone(f.antennas), nil
	}
	if fname == "HBA" {
		var out []AntennaPosition
		for _, sub := range []string{"HBA0", "HBA1"} {
			if f, ok := st.fields[sub]; ok {
				out = append(out, f.antennas...)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, fieldNotFound(st.ref.Name, fname)
}

// PhaseCentre returns the ECEF phase centre of a field.
func (r *Registry) PhaseCentre(stationName, fieldName string) (geo.Vec3, error) {
	st, err := r.station(stationName)
	if err != nil {
		return geo.Vec3{}, err
	}
	fname := normalize(fieldName)
	f, ok := st.fields[fname]
	if !ok || f.phaseCentre == nil {
		return geo.Vec3{}, &NotFoundError{Kind: "phase centre", Key: st.ref.Name + " " + fname}
	}
	return *f.phaseCentre, nil
}

// PhaseCentres returns every phase centre of a station, ordered by field.
func (r *Registry) PhaseCentres(stationName string) ([]PhaseCentre, error) {
	fields, err := r.Fields(stationName)
	if err != nil {
		return nil, err
	}
	st, _ := r.station(stationName)
	var out []PhaseCentre
	for _, fname := range fields {
		if pc := st.fields[fname].phaseCentre; pc != nil {
			out = append(out, PhaseCentre{Station: st.ref.Name, Field: fname, ECEF: *pc})
		}
	}
	return out, nil
}

// AntennaPQR returns antenna positions relative to the field's phase centre,
// expressed in the station frame.
func (r *Registry) AntennaPQR(stationName, fieldName string) ([]geo.Vec3, error) {
	ants, err := r.AntennaPositions(stationName, fieldName)
	if err != nil {
		return nil, err
	}
	pc, err := r.PhaseCentre(stationName, fieldName)
	if err != nil {
		return nil, err
	}
	st, _ := r.station(stationName)

	ecef := make([]geo.Vec3, len(ants))
	for i, a := range ants {
		ecef[i] = a.ECEF
	}
	pqr, err := geo.ECEFToLocalBatch(geo.VecsToDense(ecef), pc, st.ref.Rotation)
	if err != nil {
		return nil, err
	}
	return geo.DenseToVecs(pqr)
}

// PQRToLocalNorth returns the matrix taking station P/Q/R coordinates to
// local east/north/up at the station reference. It is the identity for
// frames derived from the ellipsoid.
func (r *Registry) PQRToLocalNorth(name string) (geo.Matrix3, error) {
	st, err := r.station(name)
	if err != nil {
		return geo.Matrix3{}, err
	}
	ln, err := geo.LocalNorthToECEF(st.ref.Position, r.ell)
	if err != nil {
		return geo.Matrix3{}, err
	}
	return ln.T().Mul(st.ref.Rotation.T()), nil
}

// Summary describes a station and all of its fields.
func (r *Registry) Summary(name string) (StationSummary, error) {
	st, err := r.station(name)
	if err != nil {
		return StationSummary{}, err
	}
	g, err := geo.GeographicFromECEF(st.ref.Position, r.ell)
	if err != nil {
		return StationSummary{}, err
	}
	fields, _ := r.Fields(name)
	out := StationSummary{Reference: st.ref, Geographic: g, Fields: make([]FieldSummary, 0, len(fields))}
	for _, fname := range fields {
		f := st.fields[fname]
		fs := FieldSummary{Name: fname, Antennas: len(f.antennas), PhaseCentre: f.phaseCentre}
		if len(f.antennas) > 0 {
			fs.Type = f.antennas[0].Type
		} else if ants, err := r.AntennaPositions(name, fname); err == nil {
			fs.Type, fs.Antennas = ants[0].Type, len(ants)
		}
		if f.hbaRotation != nil {
			deg := *f.hbaRotation * 180 / math.Pi
			fs.HBARotationDeg = &deg
		}
		out.Fields = append(out.Fields, fs)
	}
	return out, nil
}
