package dataset

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

// Rows come back in rowid order, which is the order they were written in.
const (
	selectReferencesSQL = `
SELECT station, etrs_x, etrs_y, etrs_z, axes
FROM station_references
ORDER BY rowid`

	selectPhaseCentresSQL = `
SELECT station, field, etrs_x, etrs_y, etrs_z
FROM phase_centres
ORDER BY rowid`

	selectAntennasSQL = `
SELECT station, field, antenna_type, antenna_id, etrs_x, etrs_y, etrs_z, local_x, local_y
FROM antennas
ORDER BY rowid`

	selectHBARotationsSQL = `
SELECT station, hba0_deg, hba1_deg
FROM hba_rotations
ORDER BY rowid`

	insertReferenceSQL = `
INSERT INTO station_references (station, etrs_x, etrs_y, etrs_z, axes)
VALUES (?, ?, ?, ?, ?)`

	insertPhaseCentreSQL = `
INSERT INTO phase_centres (station, field, etrs_x, etrs_y, etrs_z)
VALUES (?, ?, ?, ?, ?)`

	insertAntennaSQL = `
INSERT INTO antennas (station, field, antenna_type, antenna_id, etrs_x, etrs_y, etrs_z, local_x, local_y)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertHBARotationSQL = `
INSERT INTO hba_rotations (station, hba0_deg, hba1_deg)
VALUES (?, ?, ?)`
)
