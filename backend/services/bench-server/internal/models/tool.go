package models

import "time"

// Tool is a calibrated instrument technicians record against manual steps.
type Tool struct {
	ID             int64     `db:"id" json:"id"`
	AssetTag       string    `db:"asset_tag" json:"asset_tag"`
	Name           string    `db:"name" json:"name"`
	Category       string    `db:"category" json:"category"`
	CalibrationDue time.Time `db:"calibration_due" json:"calibration_due"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CalibrationValid reports whether the tool may be used at the given time.
func (t Tool) CalibrationValid(at time.Time) bool {
	return t.Active && at.Before(t.CalibrationDue)
}
