package registry

import "github.com/large-farva/antpos/internal/geo"

// FrameSource records how a station's rotation was obtained.
type FrameSource string

const (
	FrameMatrix    FrameSource = "matrix"    // explicit 3×3 axes in the reference table
	FrameNormal    FrameSource = "normal"    // R axis given, P and Q derived
	FrameEllipsoid FrameSource = "ellipsoid" // derived from the ellipsoid normal
)

// StationReference is the origin and orientation of a station's local frame.
// Rotation maps ECEF offsets to local P/Q/R coordinates; its transpose maps
// back.
type StationReference struct {
	Name     string      `json:"name" yaml:"name"`
	Position geo.Vec3    `json:"position" yaml:"position"`
	Rotation geo.Matrix3 `json:"rotation" yaml:"rotation"`
	Frame    FrameSource `json:"frame" yaml:"frame"`
}

// AntennaPosition is one antenna of a field. Local always equals
// Rotation·(ECEF − reference position) of the owning station.
type AntennaPosition struct {
	Station string   `json:"station" yaml:"station"`
	Field   string   `json:"field" yaml:"field"`
	Type    string   `json:"type" yaml:"type"`
	Index   int      `json:"index" yaml:"index"`
	ECEF    geo.Vec3 `json:"ecef" yaml:"ecef"`
	Local   geo.Vec3 `json:"local" yaml:"local"`
}

// PhaseCentre is the nominal electrical centre of one antenna field.
type PhaseCentre struct {
	Station string   `json:"station" yaml:"station"`
	Field   string   `json:"field" yaml:"field"`
	ECEF    geo.Vec3 `json:"ecef" yaml:"ecef"`
}

// FieldSummary describes one antenna field of a station.
type FieldSummary struct {
	Name           string    `json:"name" yaml:"name"`
	Type           string    `json:"type" yaml:"type"`
	Antennas       int       `json:"antennas" yaml:"antennas"`
	PhaseCentre    *geo.Vec3 `json:"phase_centre,omitempty" yaml:"phase_centre,omitempty"`
	HBARotationDeg *float64  `json:"hba_rotation_deg,omitempty" yaml:"hba_rotation_deg,omitempty"`
}

// StationSummary is everything known about a station, in one value.
type StationSummary struct {
	Reference  StationReference `json:"reference" yaml:"reference"`
	Geographic geo.Geographic   `json:"geographic" yaml:"geographic"`
	Fields     []FieldSummary   `json:"fields" yaml:"fields"`
}
