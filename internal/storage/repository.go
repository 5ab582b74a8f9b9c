package storage

import (
	"context"
	"errors"

	"trustlens/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// Repository defines the interface for all storage operations
type Repository interface {
	// Attestations
	SaveAttestation(ctx context.Context, attestation *models.Attestation) error
	ListAttestations(ctx context.Context, filter models.AttestationFilter) ([]models.Attestation, error)
	CountAttestations(ctx context.Context, subject string) (int, error)

	// Reputation snapshots
	UpsertReputation(ctx context.Context, snapshot *models.ReputationSnapshot) error
	GetReputation(ctx context.Context, address string) (*models.ReputationSnapshot, error)

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}
