package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"trustlens/internal/governance"
	"trustlens/internal/metrics"
	"trustlens/internal/models"
	"trustlens/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "TrustLens",
		"version":     "1.0.0",
		"description": "Trust and reputation API backed by an on-ledger trust registry",
		"endpoints": map[string]string{
			"GET /":                                  "This page - Service information",
			"GET /health":                            "Health check endpoint",
			"GET /metrics":                           "Prometheus metrics for monitoring",
			"GET /identities/{address}":              "Live on-ledger identity state via the contract gateway",
			"GET /identities/{address}/reputation":   "Computed reputation score",
			"GET /identities/{address}/attestations": "Attestations about an identity (supports ?limit=, ?offset=)",
			"POST /attestations":                     "Record a new attestation",
			"GET /events":                            "Contract event feed page (supports ?cursor=)",
			"POST /disputes":                         "Open a dispute",
			"GET /disputes":                          "List disputes",
			"POST /disputes/{id}/votes":              "Cast a vote on a dispute",
			"POST /disputes/{id}/resolve":            "Resolve a dispute once quorum is met",
		},
	}

	s.writeJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := s.repository.Ping(r.Context()); err != nil {
		slog.Error("Health check failed", "error", err)
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"service":   "trustlens",
	})
}

// handleMetrics exposes Prometheus metrics
// GET /metrics
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleGetIdentityState fetches the live on-ledger identity record
// GET /identities/{address}
func (s *Server) handleGetIdentityState(w http.ResponseWriter, r *http.Request, address string) {
	if !isValidAddress(address) {
		s.sendError(w, "Invalid address format", http.StatusBadRequest)
		return
	}

	state, err := s.gateway.GetIdentityState(r.Context(), address)
	if err != nil {
		s.sendGatewayError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, models.IdentityStateResponse{
		Address: address,
		State:   state,
	})
}

// handleGetReputation returns the computed reputation for an identity,
// recomputing it on demand
// GET /identities/{address}/reputation
func (s *Server) handleGetReputation(w http.ResponseWriter, r *http.Request, address string) {
	if !isValidAddress(address) {
		s.sendError(w, "Invalid address format", http.StatusBadRequest)
		return
	}

	snapshot, err := s.reputation.Recompute(r.Context(), address)
	if err != nil {
		slog.Error("Failed to compute reputation", "address", address, "error", err)
		metrics.ErrorsTotal.WithLabelValues("reputation").Inc()
		s.sendError(w, "Failed to compute reputation", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, snapshot)
}

// handleListAttestations lists attestations about an identity
// GET /identities/{address}/attestations?limit=&offset=
func (s *Server) handleListAttestations(w http.ResponseWriter, r *http.Request, address string) {
	if !isValidAddress(address) {
		s.sendError(w, "Invalid address format", http.StatusBadRequest)
		return
	}

	limit, offset := parsePagination(r)
	attestations, err := s.repository.ListAttestations(r.Context(), models.AttestationFilter{
		Subject: address,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		slog.Error("Failed to list attestations", "address", address, "error", err)
		metrics.ErrorsTotal.WithLabelValues("storage").Inc()
		s.sendError(w, "Failed to list attestations", http.StatusInternalServerError)
		return
	}

	total, err := s.repository.CountAttestations(r.Context(), address)
	if err != nil {
		slog.Error("Failed to count attestations", "address", address, "error", err)
		total = len(attestations)
	}

	if attestations == nil {
		attestations = []models.Attestation{}
	}
	s.writeJSON(w, http.StatusOK, models.AttestationListResponse{
		Subject:      address,
		Attestations: attestations,
		Total:        total,
	})
}

// handleAttestations records a new attestation
// POST /attestations
func (s *Server) handleAttestations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Subject   string `json:"subject"`
		Attester  string `json:"attester"`
		Weight    int    `json:"weight"`
		Statement string `json:"statement"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !isValidAddress(body.Subject) || !isValidAddress(body.Attester) {
		s.sendError(w, "Invalid subject or attester address", http.StatusBadRequest)
		return
	}
	if body.Weight < -100 || body.Weight > 100 {
		s.sendError(w, "Weight must be between -100 and 100", http.StatusBadRequest)
		return
	}

	attestation := &models.Attestation{
		Subject:   body.Subject,
		Attester:  body.Attester,
		Weight:    body.Weight,
		Statement: body.Statement,
	}
	if err := s.repository.SaveAttestation(r.Context(), attestation); err != nil {
		slog.Error("Failed to save attestation", "error", err)
		metrics.ErrorsTotal.WithLabelValues("storage").Inc()
		s.sendError(w, "Failed to save attestation", http.StatusInternalServerError)
		return
	}

	metrics.AttestationsSaved.Inc()
	s.writeJSON(w, http.StatusCreated, attestation)
}

// handleEvents returns one page of the contract event feed
// GET /events?cursor=
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page, err := s.gateway.GetContractEvents(r.Context(), r.URL.Query().Get("cursor"))
	if err != nil {
		s.sendGatewayError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, models.EventsFeedResponse{
		Events: page.Events,
		Cursor: page.Cursor,
	})
}

// handleDisputes opens or lists disputes
// POST /disputes, GET /disputes
func (s *Server) handleDisputes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.disputes.List())

	case http.MethodPost:
		var body struct {
			Subject string `json:"subject"`
			Reason  string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.sendError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if !isValidAddress(body.Subject) {
			s.sendError(w, "Invalid subject address", http.StatusBadRequest)
			return
		}
		if body.Reason == "" {
			s.sendError(w, "Reason is required", http.StatusBadRequest)
			return
		}
		s.writeJSON(w, http.StatusCreated, s.disputes.Open(body.Subject, body.Reason))

	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetDispute returns one dispute
// GET /disputes/{id}
func (s *Server) handleGetDispute(w http.ResponseWriter, r *http.Request, id string) {
	dispute, err := s.disputes.Get(id)
	if err != nil {
		s.sendError(w, "Dispute not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, dispute)
}

// handleVote casts a vote on a dispute
// POST /disputes/{id}/votes
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Voter  string `json:"voter"`
		Uphold bool   `json:"uphold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Voter == "" {
		s.sendError(w, "Voter is required", http.StatusBadRequest)
		return
	}

	dispute, err := s.disputes.Vote(id, body.Voter, body.Uphold)
	if err != nil {
		s.sendError(w, err.Error(), disputeErrorStatus(err))
		return
	}
	s.writeJSON(w, http.StatusOK, dispute)
}

// handleResolveDispute resolves a dispute once quorum is met
// POST /disputes/{id}/resolve
func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request, id string) {
	dispute, err := s.disputes.Resolve(id)
	if err != nil {
		s.sendError(w, err.Error(), disputeErrorStatus(err))
		return
	}
	s.writeJSON(w, http.StatusOK, dispute)
}

// disputeErrorStatus maps governance errors to HTTP status codes
func disputeErrorStatus(err error) int {
	switch {
	case errors.Is(err, governance.ErrDisputeNotFound):
		return http.StatusNotFound
	case errors.Is(err, governance.ErrAlreadyVoted),
		errors.Is(err, governance.ErrDisputeClosed),
		errors.Is(err, governance.ErrQuorumNotMet):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
