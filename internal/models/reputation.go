package models

import "time"

// ReputationSnapshot is the computed reputation of one identity at a point
// in time. Score runs 0-100 with 50 meaning no signal either way.
type ReputationSnapshot struct {
	Address          string    `json:"address"`
	Score            float64   `json:"score"`
	AttestationCount int       `json:"attestation_count"`
	ComputedAt       time.Time `json:"computed_at"`
}
