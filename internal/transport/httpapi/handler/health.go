package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks that LNbits is reachable with the service credentials
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	lnbits  Pinger
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(lnbits Pinger, version string) *HealthHandler {
	return &HealthHandler{
		lnbits:  lnbits,
		version: version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
	Uptime  string            `json:"uptime,omitempty"`
}

var startTime = time.Now()

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(startTime).Round(time.Second).String(),
		Checks:  map[string]string{},
	})
}

// GetReadiness handles GET /health/ready
// Ready means a token can be obtained and LNbits answers with it.
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.lnbits.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:  "unavailable",
			Version: h.version,
			Checks:  map[string]string{"lnbits": "unhealthy: " + err.Error()},
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "ready",
		Version: h.version,
		Checks:  map[string]string{"lnbits": "healthy"},
	})
}

// GetLiveness handles GET /health/live
func GetLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
