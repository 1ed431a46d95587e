package handler

import (
	"context"
	"net/http"

	"github.com/kislikjeka/zapfeed/internal/module/allowance"
)

// AllowanceRunner runs one allowance cycle
type AllowanceRunner interface {
	RunOnce(ctx context.Context) (*allowance.Report, error)
}

// AllowanceHandler triggers the allowance job on demand
type AllowanceHandler struct {
	job AllowanceRunner
}

// NewAllowanceHandler creates a new allowance handler
func NewAllowanceHandler(job AllowanceRunner) *AllowanceHandler {
	return &AllowanceHandler{job: job}
}

// RunAllowance handles POST /allowance/run. Per-wallet failures are in the
// report; the status is 200 as long as the run itself completed.
func (h *AllowanceHandler) RunAllowance(w http.ResponseWriter, r *http.Request) {
	report, err := h.job.RunOnce(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
