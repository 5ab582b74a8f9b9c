package models

import "encoding/json"

// IdentityStateResponse wraps the raw on-ledger identity record for API responses
type IdentityStateResponse struct {
	Address string          `json:"address"`
	State   json.RawMessage `json:"state"`
}

// AttestationListResponse represents a paginated list of attestations
type AttestationListResponse struct {
	Subject      string        `json:"subject"`
	Attestations []Attestation `json:"attestations"`
	Total        int           `json:"total"`
}

// EventsFeedResponse represents one page of the gateway's event feed
type EventsFeedResponse struct {
	Events []json.RawMessage `json:"events"`
	Cursor string            `json:"cursor,omitempty"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
