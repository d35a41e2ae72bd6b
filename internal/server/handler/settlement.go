package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cloutcast/settler/internal/domain"
)

// Runner executes one settlement pass.
type Runner interface {
	Run(ctx context.Context) (domain.RunSummary, error)
}

// SettlementHandler serves the settlement trigger endpoint.
type SettlementHandler struct {
	runner Runner
	logger *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler over the given runner.
func NewSettlementHandler(runner Runner, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		runner: runner,
		logger: logger.With(slog.String("handler", "settlement")),
	}
}

// TriggerRun executes one settlement pass synchronously and returns its
// summary. A pass-wide failure (the market set could not be loaded) returns
// 500 with zeroed counters; everything else is reported through the counters.
// POST /api/settlement/run
func (h *SettlementHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "settlement run triggered",
		slog.String("remote_addr", r.RemoteAddr),
	)

	summary, err := h.runner.Run(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "settlement run failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "settlement run failed")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
