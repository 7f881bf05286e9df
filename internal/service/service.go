package service

import (
	"context"

	"shopfront/internal/identity"
	"shopfront/internal/model"

	"github.com/google/uuid"
)

// ProductService defines catalogue read operations.
type ProductService interface {
	// GetAll retrieves products with pagination and an optional category filter.
	GetAll(ctx context.Context, category string, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID. Returns nil if not found.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// OrderService defines order operations for customers and sellers.
type OrderService interface {
	// Create validates, prices and persists a new order. COD orders are
	// confirmed immediately; card orders return a gateway redirect URL.
	Create(ctx context.Context, caller identity.Identity, req *model.OrderRequest) (*model.OrderResponse, error)

	// GetByID retrieves one order. Customers see only their own orders;
	// sellers see all.
	GetByID(ctx context.Context, caller identity.Identity, id uuid.UUID) (*model.OrderResponse, error)

	// ListForUser retrieves the caller's orders, most recent first.
	ListForUser(ctx context.Context, userID string) ([]model.Order, error)

	// ListAll retrieves all orders. Seller view.
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// UpdateStatus moves an order through fulfilment states. Seller only.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
}

// CartService defines cart and wishlist operations.
type CartService interface {
	// GetCart retrieves the caller's cart with resolved product details.
	GetCart(ctx context.Context, userID string) (*model.CartResponse, error)

	// ReplaceCart replaces the caller's cart contents.
	ReplaceCart(ctx context.Context, userID string, req *model.CartRequest) error

	// ClearCart empties the caller's cart.
	ClearCart(ctx context.Context, userID string) error

	// AddWish adds a product to the caller's wishlist.
	AddWish(ctx context.Context, userID, productID string) error

	// RemoveWish removes a product from the caller's wishlist.
	RemoveWish(ctx context.Context, userID, productID string) error

	// GetWishlist retrieves the caller's wishlisted products.
	GetWishlist(ctx context.Context, userID string) (*model.WishlistResponse, error)
}

// AddressService defines shipping address operations.
type AddressService interface {
	// Create stores a new address for the caller.
	Create(ctx context.Context, userID string, req *model.AddressRequest) (*model.Address, error)

	// ListForUser retrieves the caller's stored addresses.
	ListForUser(ctx context.Context, userID string) ([]model.Address, error)
}
