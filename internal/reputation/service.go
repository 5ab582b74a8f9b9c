package reputation

import (
	"context"
	"fmt"
	"math"
	"time"

	"trustlens/internal/metrics"
	"trustlens/internal/models"
	"trustlens/internal/storage"
)

// neutralScore is the score of an identity nobody has attested about.
const neutralScore = 50.0

// Service computes and persists reputation snapshots from attestations.
type Service struct {
	repo     storage.Repository
	halfLife time.Duration
}

// NewService creates a reputation service. halfLife controls how fast old
// attestations lose influence; a zero or negative value disables decay.
func NewService(repo storage.Repository, halfLife time.Duration) *Service {
	return &Service{repo: repo, halfLife: halfLife}
}

// Recompute recalculates the reputation of address from all stored
// attestations, persists the snapshot, and returns it.
func (s *Service) Recompute(ctx context.Context, address string) (*models.ReputationSnapshot, error) {
	attestations, err := s.repo.ListAttestations(ctx, models.AttestationFilter{
		Subject: address,
		Limit:   1000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load attestations for %s: %w", address, err)
	}

	snapshot := &models.ReputationSnapshot{
		Address:          address,
		Score:            Score(attestations, time.Now(), s.halfLife),
		AttestationCount: len(attestations),
		ComputedAt:       time.Now().UTC(),
	}

	if err := s.repo.UpsertReputation(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist reputation for %s: %w", address, err)
	}

	metrics.ReputationsComputed.Inc()
	return snapshot, nil
}

// Score maps a set of attestations onto a 0-100 reputation score. Each
// attestation's weight (-100..100) is discounted by 0.5^(age/halfLife), and
// the decayed weighted average is centered on the neutral score. No
// attestations means no signal: the neutral score.
func Score(attestations []models.Attestation, now time.Time, halfLife time.Duration) float64 {
	if len(attestations) == 0 {
		return neutralScore
	}

	var weightSum, decaySum float64
	for _, a := range attestations {
		decay := 1.0
		if halfLife > 0 {
			age := now.Sub(a.CreatedAt)
			if age > 0 {
				decay = math.Pow(0.5, float64(age)/float64(halfLife))
			}
		}
		weightSum += float64(clampWeight(a.Weight)) * decay
		decaySum += decay
	}

	if decaySum == 0 {
		return neutralScore
	}

	score := neutralScore + (weightSum/decaySum)/2
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clampWeight(w int) int {
	if w < -100 {
		return -100
	}
	if w > 100 {
		return 100
	}
	return w
}
