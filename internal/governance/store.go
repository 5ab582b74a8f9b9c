package governance

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"trustlens/internal/metrics"
)

// DisputeStatus is the lifecycle state of a dispute.
type DisputeStatus string

const (
	StatusOpen     DisputeStatus = "open"
	StatusUpheld   DisputeStatus = "upheld"
	StatusRejected DisputeStatus = "rejected"
)

var (
	ErrDisputeNotFound = errors.New("governance: dispute not found")
	ErrDisputeClosed   = errors.New("governance: dispute already resolved")
	ErrAlreadyVoted    = errors.New("governance: voter already cast a vote")
	ErrQuorumNotMet    = errors.New("governance: quorum not met")
)

// Dispute is a challenge against an identity's reputation standing.
type Dispute struct {
	ID        string        `json:"id"`
	Subject   string        `json:"subject"`
	Reason    string        `json:"reason"`
	Status    DisputeStatus `json:"status"`
	Upholds   int           `json:"upholds"`
	Rejects   int           `json:"rejects"`
	CreatedAt time.Time     `json:"created_at"`
}

type disputeRecord struct {
	dispute Dispute
	votes   map[string]bool // voter -> uphold
}

// Store is an in-memory dispute register. Disputes do not survive restarts;
// they are working state for moderators, not ledger data.
type Store struct {
	mu       sync.RWMutex
	disputes map[string]*disputeRecord
	quorum   int
	seq      int
}

// NewStore creates a dispute store. quorum is the minimum number of votes
// required before a dispute can resolve; values below 1 are raised to 1.
func NewStore(quorum int) *Store {
	if quorum < 1 {
		quorum = 1
	}
	return &Store{
		disputes: make(map[string]*disputeRecord),
		quorum:   quorum,
	}
}

// Open registers a new dispute against subject and returns it.
func (s *Store) Open(subject, reason string) Dispute {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	d := Dispute{
		ID:        fmt.Sprintf("d-%d", s.seq),
		Subject:   subject,
		Reason:    reason,
		Status:    StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	s.disputes[d.ID] = &disputeRecord{
		dispute: d,
		votes:   make(map[string]bool),
	}
	metrics.DisputesOpen.Inc()
	return d
}

// Vote records one voter's position on an open dispute. Each voter gets
// exactly one vote.
func (s *Store) Vote(id, voter string, uphold bool) (Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.disputes[id]
	if !ok {
		return Dispute{}, ErrDisputeNotFound
	}
	if rec.dispute.Status != StatusOpen {
		return Dispute{}, ErrDisputeClosed
	}
	if _, voted := rec.votes[voter]; voted {
		return Dispute{}, ErrAlreadyVoted
	}

	rec.votes[voter] = uphold
	if uphold {
		rec.dispute.Upholds++
	} else {
		rec.dispute.Rejects++
	}
	return rec.dispute, nil
}

// Resolve closes an open dispute by simple majority once quorum is met.
// Ties stay open.
func (s *Store) Resolve(id string) (Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.disputes[id]
	if !ok {
		return Dispute{}, ErrDisputeNotFound
	}
	if rec.dispute.Status != StatusOpen {
		return Dispute{}, ErrDisputeClosed
	}
	if rec.dispute.Upholds+rec.dispute.Rejects < s.quorum {
		return Dispute{}, ErrQuorumNotMet
	}
	if rec.dispute.Upholds == rec.dispute.Rejects {
		return Dispute{}, fmt.Errorf("governance: dispute %s is tied, more votes needed", id)
	}

	if rec.dispute.Upholds > rec.dispute.Rejects {
		rec.dispute.Status = StatusUpheld
	} else {
		rec.dispute.Status = StatusRejected
	}
	metrics.DisputesOpen.Dec()
	return rec.dispute, nil
}

// Get returns a dispute by id.
func (s *Store) Get(id string) (Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.disputes[id]
	if !ok {
		return Dispute{}, ErrDisputeNotFound
	}
	return rec.dispute, nil
}

// List returns all disputes, open and resolved.
func (s *Store) List() []Dispute {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Dispute, 0, len(s.disputes))
	for _, rec := range s.disputes {
		out = append(out, rec.dispute)
	}
	return out
}
