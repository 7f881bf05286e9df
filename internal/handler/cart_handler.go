package handler

import (
	"net/http"

	"shopfront/internal/identity"
	"shopfront/internal/model"
	"shopfront/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles cart and wishlist HTTP requests.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// GetCart handles GET /api/cart requests.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	cart, err := h.service.GetCart(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// ReplaceCart handles PUT /api/cart requests.
func (h *CartHandler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	var req model.CartRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.ReplaceCart(r.Context(), caller.UserID, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ClearCart handles DELETE /api/cart requests.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	if err := h.service.ClearCart(r.Context(), caller.UserID); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetWishlist handles GET /api/wishlist requests.
func (h *CartHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	wishlist, err := h.service.GetWishlist(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, wishlist)
}

// AddWish handles POST /api/wishlist requests.
func (h *CartHandler) AddWish(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	var req model.WishlistRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.AddWish(r.Context(), caller.UserID, req.ProductID); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true})
}

// RemoveWish handles DELETE /api/wishlist/{productId} requests.
func (h *CartHandler) RemoveWish(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized, h.logger)
		return
	}

	if err := h.service.RemoveWish(r.Context(), caller.UserID, r.PathValue("productId")); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
