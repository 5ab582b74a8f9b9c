package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"trustlens/internal/gateway"
	"trustlens/internal/models"

	"github.com/stellar/go/strkey"
)

// writeJSON encodes v as the response body with the given status code
func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// sendError writes a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

// sendGatewayError maps a gateway client failure onto an HTTP status.
// Config errors are the caller's fault; everything else is an upstream
// problem surfaced as a gateway-class status.
func (s *Server) sendGatewayError(w http.ResponseWriter, err error) {
	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		s.sendError(w, "Gateway request failed", http.StatusBadGateway)
		return
	}

	slog.Error("Gateway call failed",
		"kind", gerr.Kind,
		"attempts", gerr.Attempts,
		"error", gerr,
	)

	switch gerr.Kind {
	case gateway.KindConfig:
		s.sendError(w, gerr.Message, http.StatusBadRequest)
	case gateway.KindTimeout:
		s.sendError(w, "Gateway timed out", http.StatusGatewayTimeout)
	default:
		s.sendError(w, "Gateway request failed", http.StatusBadGateway)
	}
}

// isValidAddress accepts account (G...) and contract (C...) strkeys
func isValidAddress(address string) bool {
	if strkey.IsValidEd25519PublicKey(address) {
		return true
	}
	if _, err := strkey.Decode(strkey.VersionByteContract, address); err == nil {
		return true
	}
	return false
}

// parsePagination extracts ?limit= and ?offset= with sane bounds
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
