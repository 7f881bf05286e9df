package handler

import (
	"net/http"
	"strconv"

	"shopfront/internal/identity"
	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests. An Idempotency-Key header makes
// the request safely retryable.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	var req model.OrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	resp, err := h.service.Create(r.Context(), caller, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, model.ErrInvalidRequest, h.logger)
		return
	}

	resp, err := h.service.GetByID(r.Context(), caller, orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /api/orders requests. Customers see their own orders;
// sellers see everyone's.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	var (
		orders []model.Order
		err    error
	)
	if caller.IsSeller() {
		query := r.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		offset, _ := strconv.Atoi(query.Get("offset"))
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		if offset < 0 {
			offset = 0
		}
		orders, err = h.service.ListAll(r.Context(), limit, offset)
	} else {
		orders, err = h.service.ListForUser(r.Context(), caller.UserID)
	}
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
	})
}

// UpdateStatus handles PUT /api/orders/{id}/status requests. Seller only;
// the router enforces the role.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, model.ErrInvalidRequest, h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
