package handler

import (
	"net/http"

	"shopfront/internal/identity"
	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/rs/zerolog"
)

// AddressHandler handles shipping address HTTP requests.
type AddressHandler struct {
	service service.AddressService
	logger  zerolog.Logger
}

// NewAddressHandler creates a new address handler.
func NewAddressHandler(service service.AddressService, logger zerolog.Logger) *AddressHandler {
	return &AddressHandler{
		service: service,
		logger:  logger.With().Str("handler", "address").Logger(),
	}
}

// Create handles POST /api/addresses requests.
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	var req model.AddressRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	address, err := h.service.Create(r.Context(), caller.UserID, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"address": address,
	})
}

// List handles GET /api/addresses requests.
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	addresses, err := h.service.ListForUser(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"addresses": addresses,
	})
}
