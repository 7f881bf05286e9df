package router

import (
	"net/http"

	"shopfront/internal/handler"
	"shopfront/internal/identity"
	"shopfront/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates the HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	cartHandler *handler.CartHandler,
	addressHandler *handler.AddressHandler,
	webhookHandler *handler.WebhookHandler,
	adminHandler *handler.AdminHandler,
	authenticator identity.Authenticator,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Gateway webhook: open endpoint, authenticated by signature.
	mux.HandleFunc("POST /webhooks/payment", webhookHandler.Receive)

	// Catalogue
	mux.HandleFunc("GET /api/products", productHandler.GetAll)
	mux.HandleFunc("GET /api/products/{id}", productHandler.GetByID)

	// Orders
	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders", orderHandler.List)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.GetByID)

	// Cart and wishlist
	mux.HandleFunc("GET /api/cart", cartHandler.GetCart)
	mux.HandleFunc("PUT /api/cart", cartHandler.ReplaceCart)
	mux.HandleFunc("DELETE /api/cart", cartHandler.ClearCart)
	mux.HandleFunc("GET /api/wishlist", cartHandler.GetWishlist)
	mux.HandleFunc("POST /api/wishlist", cartHandler.AddWish)
	mux.HandleFunc("DELETE /api/wishlist/{productId}", cartHandler.RemoveWish)

	// Addresses
	mux.HandleFunc("POST /api/addresses", addressHandler.Create)
	mux.HandleFunc("GET /api/addresses", addressHandler.List)

	// Seller-only routes
	sellerOnly := middleware.RequireSeller(logger)
	mux.Handle("PUT /api/orders/{id}/status", sellerOnly(http.HandlerFunc(orderHandler.UpdateStatus)))
	mux.Handle("POST /api/admin/orders/{id}/reconcile", sellerOnly(http.HandlerFunc(adminHandler.Reconcile)))

	// Apply middleware in order: Recovery -> Logging -> CORS -> Auth
	var h http.Handler = mux
	h = middleware.Auth(authenticator, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
