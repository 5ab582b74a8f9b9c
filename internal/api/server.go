package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trustlens/internal/gateway"
	"trustlens/internal/governance"
	"trustlens/internal/metrics"
	"trustlens/internal/reputation"
	"trustlens/internal/storage"
)

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks, and the trust APIs
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	repository storage.Repository
	gateway    *gateway.Client
	reputation *reputation.Service
	disputes   *governance.Store
	port       int
}

// NewServer creates a new API server instance
func NewServer(
	port int,
	repository storage.Repository,
	gw *gateway.Client,
	rep *reputation.Service,
	disputes *governance.Store,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:        mux,
		repository: repository,
		gateway:    gw,
		reputation: rep,
		disputes:   disputes,
		port:       port,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Identity endpoints
	s.mux.HandleFunc("/identities/", s.instrument("identities", s.handleIdentityRoutes))

	// Attestation endpoints
	s.mux.HandleFunc("/attestations", s.instrument("attestations", s.handleAttestations))

	// Event feed passthrough
	s.mux.HandleFunc("/events", s.instrument("events", s.handleEvents))

	// Dispute endpoints
	s.mux.HandleFunc("/disputes", s.instrument("disputes", s.handleDisputes))
	s.mux.HandleFunc("/disputes/", s.instrument("disputes", s.handleDisputeRoutes))
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests per route and status code
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.APIRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}

// handleIdentityRoutes routes identity sub-endpoints
func (s *Server) handleIdentityRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/identities/")
	parts := strings.Split(path, "/")

	// GET /identities/{address}
	if len(parts) == 1 {
		s.handleGetIdentityState(w, r, parts[0])
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		// GET /identities/{address}/reputation
		case "reputation":
			s.handleGetReputation(w, r, parts[0])
			return
		// GET /identities/{address}/attestations
		case "attestations":
			s.handleListAttestations(w, r, parts[0])
			return
		}
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleDisputeRoutes routes dispute sub-endpoints (with trailing slash)
func (s *Server) handleDisputeRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/disputes/")
	parts := strings.Split(path, "/")

	// GET /disputes/{id}
	if len(parts) == 1 && r.Method == http.MethodGet {
		s.handleGetDispute(w, r, parts[0])
		return
	}

	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		// POST /disputes/{id}/votes
		case "votes":
			s.handleVote(w, r, parts[0])
			return
		// POST /disputes/{id}/resolve
		case "resolve":
			s.handleResolveDispute(w, r, parts[0])
			return
		}
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
