package handler

import (
	"log/slog"
	"net/http"

	"github.com/cloutcast/settler/internal/domain"
)

// PoolHandler serves the reward-pool balance endpoint used by the admin
// dashboard.
type PoolHandler struct {
	ledger domain.LedgerStore
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler over the given ledger store.
func NewPoolHandler(ledger domain.LedgerStore, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{
		ledger: ledger,
		logger: logger.With(slog.String("handler", "pools")),
	}
}

// ListPools returns every reward pool's current balance.
// GET /api/pools
func (h *PoolHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledger.PoolBalances(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list pool balances failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "could not load pool balances")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"pools": balances})
}
