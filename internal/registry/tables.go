package registry

import "strings"

// Table names, shared by every dataset source.
const (
	TableAntennas     = "etrs-antenna-positions"
	TablePhaseCentres = "etrs-phase-centres"
	TableReferences   = "station-references"
	TableHBARotations = "hba-rotations"
)

// Column sets each table must carry. References may be followed by zero,
// three or nine axis values starting at the "axes" column.
var (
	AntennaColumns     = []string{"station", "field", "antenna_type", "antenna_id", "etrs_x", "etrs_y", "etrs_z", "local_x", "local_y"}
	PhaseCentreColumns = []string{"station", "field", "etrs_x", "etrs_y", "etrs_z"}
	ReferenceColumns   = []string{"station", "etrs_x", "etrs_y", "etrs_z", "axes"}
	HBARotationColumns = []string{"station", "hba0_deg", "hba1_deg"}
)

// Table is one raw input table: a header and its string records, exactly as
// a loader read them. All parsing and validation happens in New.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Tables is the complete raw input for a Registry. HBARotations may be
// empty, in which case no HBA dipole layouts are available.
type Tables struct {
	Antennas     Table
	PhaseCentres Table
	References   Table
	HBARotations Table
}

// columnIndex maps every required column name to its position in the header.
func (t Table) columnIndex(required []string) (map[string]int, error) {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, &MalformedDataError{Table: t.Name, Reason: "missing column " + name}
		}
	}
	return idx, nil
}

// cell returns the trimmed value at column i, or "" when the record is short.
func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// normalize canonicalises station and field identifiers.
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
