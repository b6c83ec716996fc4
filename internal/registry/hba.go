package registry

import (
	"math"

	"github.com/large-farva/antpos/internal/geo"
)

const (
	// HBAElementPitch is the spacing of dipoles within an HBA tile, in metres.
	HBAElementPitch = 1.25

	// HBATileSize is the number of dipoles along each side of a tile.
	HBATileSize = 4
)

// hbaTileOffsets are the unrotated dipole offsets in a tile, row by row from
// the +Q edge, in units of HBAElementPitch.
var hbaTileOffsets = func() [HBATileSize * HBATileSize][2]float64 {
	var out [HBATileSize * HBATileSize][2]float64
	half := float64(HBATileSize-1) / 2
	for row := 0; row < HBATileSize; row++ {
		for col := 0; col < HBATileSize; col++ {
			out[row*HBATileSize+col] = [2]float64{float64(col) - half, half - float64(row)}
		}
	}
	return out
}()

// HBARotation returns the tile rotation of an HBA field in radians. Split
// stations have rotations for HBA0 and HBA1 only.
func (r *Registry) HBARotation(stationName, fieldName string) (float64, error) {
	st, err := r.station(stationName)
	if err != nil {
		return 0, err
	}
	fname := normalize(fieldName)
	f, ok := st.fields[fname]
	if !ok || f.hbaRotation == nil {
		return 0, &NotFoundError{Kind: "hba rotation", Key: st.ref.Name + " " + fname}
	}
	return *f.hbaRotation, nil
}

// HBADipolePQR returns the position of every dipole of an HBA field relative
// to the field's phase centre in the station frame, sixteen per tile in tile
// order. Each tile is rotated by the rotation of the field it belongs to, so
// the combined "HBA" field of a split station mixes both rotations.
func (r *Registry) HBADipolePQR(stationName, fieldName string) ([]geo.Vec3, error) {
	ants, err := r.AntennaPositions(stationName, fieldName)
	if err != nil {
		return nil, err
	}
	tiles, err := r.AntennaPQR(stationName, fieldName)
	if err != nil {
		return nil, err
	}

	out := make([]geo.Vec3, 0, len(tiles)*len(hbaTileOffsets))
	for i, tile := range tiles {
		if ants[i].Type != "HBA" {
			return nil, &NotFoundError{Kind: "hba field", Key: ants[i].Station + " " + normalize(fieldName)}
		}
		rot, err := r.HBARotation(ants[i].Station, ants[i].Field)
		if err != nil {
			return nil, err
		}
		c, s := math.Cos(rot), math.Sin(rot)
		for _, off := range hbaTileOffsets {
			dp := off[0] * HBAElementPitch
			dq := off[1] * HBAElementPitch
			out = append(out, geo.Vec3{
				tile[0] + c*dp + s*dq,
				tile[1] - s*dp + c*dq,
				tile[2],
			})
		}
	}
	return out, nil
}

// HBADipoleETRS returns the ECEF position of every dipole of an HBA field,
// in the same order as HBADipolePQR.
func (r *Registry) HBADipoleETRS(stationName, fieldName string) ([]geo.Vec3, error) {
	pqr, err := r.HBADipolePQR(stationName, fieldName)
	if err != nil {
		return nil, err
	}
	pc, err := r.PhaseCentre(stationName, fieldName)
	if err != nil {
		return nil, err
	}
	rot, err := r.RotationMatrix(stationName)
	if err != nil {
		return nil, err
	}
	ecef, err := geo.LocalToECEFBatch(geo.VecsToDense(pqr), pc, rot)
	if err != nil {
		return nil, err
	}
	return geo.DenseToVecs(ecef)
}
