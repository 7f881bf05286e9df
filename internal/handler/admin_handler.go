package handler

import (
	"net/http"

	"shopfront/internal/model"
	"shopfront/internal/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminHandler exposes operator actions. The router gates these behind the
// seller role.
type AdminHandler struct {
	reconciler *payment.Reconciler
	logger     zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(reconciler *payment.Reconciler, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		reconciler: reconciler,
		logger:     logger.With().Str("handler", "admin").Logger(),
	}
}

// Reconcile handles POST /api/admin/orders/{id}/reconcile requests. It
// replays the same reconciliation the webhook path runs, so a manual fix can
// never diverge from automatic behaviour.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, model.ErrInvalidRequest, h.logger)
		return
	}

	outcome, err := h.reconciler.Replay(r.Context(), orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.logger.Info().
		Str("order_id", orderID.String()).
		Bool("updated", outcome.Updated).
		Msg("manual reconciliation replayed")

	writeJSON(w, http.StatusOK, model.ReconcileResponse{
		Received: true,
		Updated:  outcome.Updated,
		OrderID:  outcome.OrderID.String(),
	})
}
