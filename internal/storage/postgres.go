package storage

import (
	"context"
	"errors"
	"fmt"

	"trustlens/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// SaveAttestation saves an attestation and fills in its generated ID and timestamp
func (r *PostgresRepository) SaveAttestation(ctx context.Context, attestation *models.Attestation) error {
	query := `
		INSERT INTO attestations (subject, attester, weight, statement)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		attestation.Subject,
		attestation.Attester,
		attestation.Weight,
		attestation.Statement,
	).Scan(&attestation.ID, &attestation.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save attestation: %w", err)
	}

	return nil
}

// ListAttestations lists attestations matching the filter, newest first
func (r *PostgresRepository) ListAttestations(ctx context.Context, filter models.AttestationFilter) ([]models.Attestation, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, subject, attester, weight, statement, created_at
		FROM attestations
		WHERE ($1 = '' OR subject = $1)
		  AND ($2 = '' OR attester = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, filter.Subject, filter.Attester, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list attestations: %w", err)
	}
	defer rows.Close()

	var attestations []models.Attestation
	for rows.Next() {
		var a models.Attestation
		if err := rows.Scan(&a.ID, &a.Subject, &a.Attester, &a.Weight, &a.Statement, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attestation: %w", err)
		}
		attestations = append(attestations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attestations: %w", err)
	}

	return attestations, nil
}

// CountAttestations counts attestations about a subject
func (r *PostgresRepository) CountAttestations(ctx context.Context, subject string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attestations WHERE subject = $1`, subject,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attestations: %w", err)
	}
	return count, nil
}

// UpsertReputation inserts or replaces the reputation snapshot for an address
func (r *PostgresRepository) UpsertReputation(ctx context.Context, snapshot *models.ReputationSnapshot) error {
	query := `
		INSERT INTO reputation_snapshots (address, score, attestation_count, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE SET
			score = EXCLUDED.score,
			attestation_count = EXCLUDED.attestation_count,
			computed_at = EXCLUDED.computed_at
	`

	_, err := r.pool.Exec(ctx, query,
		snapshot.Address,
		snapshot.Score,
		snapshot.AttestationCount,
		snapshot.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reputation snapshot: %w", err)
	}

	return nil
}

// GetReputation retrieves the reputation snapshot for an address
func (r *PostgresRepository) GetReputation(ctx context.Context, address string) (*models.ReputationSnapshot, error) {
	query := `
		SELECT address, score, attestation_count, computed_at
		FROM reputation_snapshots
		WHERE address = $1
	`

	var snapshot models.ReputationSnapshot
	err := r.pool.QueryRow(ctx, query, address).Scan(
		&snapshot.Address,
		&snapshot.Score,
		&snapshot.AttestationCount,
		&snapshot.ComputedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reputation for %s: %w", address, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reputation snapshot: %w", err)
	}

	return &snapshot, nil
}

// Ping verifies the database connection is alive
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
