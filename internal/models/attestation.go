package models

import "time"

// Attestation is a trust statement one identity makes about another.
// Weight runs from -100 (full distrust) to 100 (full trust).
type Attestation struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"subject"`
	Attester  string    `json:"attester"`
	Weight    int       `json:"weight"`
	Statement string    `json:"statement,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AttestationFilter provides criteria for listing attestations
type AttestationFilter struct {
	Subject  string
	Attester string
	Limit    int
	Offset   int
}
