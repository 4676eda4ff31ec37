package models

import "time"

type AdvisorySource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// AdvisoryResult is the advisory payload returned to callers and cached as JSON.
// Degraded marks results built from a failure path; those are never cached.
type AdvisoryResult struct {
	Summary      string           `json:"summary"`
	KeyIntervals []string         `json:"keyIntervals"`
	Sources      []AdvisorySource `json:"sources"`
	SafetyNote   string           `json:"safetyNote"`
	Degraded     bool             `json:"degraded,omitempty"`
}

// AdvisoryRecord is one cache row, unique per (VehicleID, Area).
type AdvisoryRecord struct {
	VehicleID int64       `json:"vehicleId" bson:"vehicle_id"`
	Area      ServiceArea `json:"area" bson:"area"`
	Payload   string      `json:"payload" bson:"payload"`
	CreatedAt time.Time   `json:"createdAt" bson:"created_at"`
	ExpiresAt time.Time   `json:"expiresAt" bson:"expires_at"`
}

// IsFresh reports whether the record may be served at now. A record whose
// expiry equals now is already expired.
func (r *AdvisoryRecord) IsFresh(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

type AdvisoryQuery struct {
	VehicleID int64          `json:"vehicleId" validate:"gt=0"`
	Vehicle   VehicleContext `json:"vehicle"`
	Area      ServiceArea    `json:"area" validate:"oneof=engine_oil timing brakes air_filter cabin_filter brake_fluid coolant battery inspection"`
}
