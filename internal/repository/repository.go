package repository

import (
	"context"
	"time"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves products with pagination and an optional category filter.
	GetAll(ctx context.Context, category string, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil if not found.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// ValidateProductsExist checks that every provided product ID exists.
	ValidateProductsExist(ctx context.Context, ids []string) error
}

// OrderRepository defines the interface for order data access operations.
// Reconciliation lookups return results ordered most-recently-created first.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	// When the order carries an idempotency key that already exists, no row
	// is written and inserted is false.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) (inserted bool, err error)

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items. Returns nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetByIdempotencyKey retrieves a user's order previously created under key.
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, []model.OrderItem, error)

	// ListByUser retrieves a user's orders, most recent first.
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)

	// ListAll retrieves all orders with pagination, most recent first.
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// UpdateStatus sets the fulfilment status of an order.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error

	// SetGatewaySession stores the gateway checkout session reference on an order.
	SetGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) error

	// MarkPaid flips is_paid from false to true. Returns false when the
	// order was already paid (the write is a no-op).
	MarkPaid(ctx context.Context, id uuid.UUID) (updated bool, err error)

	// FindByGatewaySession retrieves the order bound to a checkout session id.
	FindByGatewaySession(ctx context.Context, sessionID string) (*model.Order, error)

	// FindByUserAndExactDate retrieves a user's orders created at exactly ts.
	FindByUserAndExactDate(ctx context.Context, userID string, ts time.Time) ([]model.Order, error)

	// FindByUserInWindow retrieves a user's orders created between from and to.
	FindByUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]model.Order, error)

	// FindUnpaidCardByUser retrieves a user's unpaid card orders.
	FindUnpaidCardByUser(ctx context.Context, userID string) ([]model.Order, error)

	// FindUnpaidByUserAndAmount retrieves a user's unpaid orders with a matching amount.
	FindUnpaidByUserAndAmount(ctx context.Context, userID string, amountCents int64) ([]model.Order, error)

	// FindLatestUnpaidCardAny retrieves the single most recent unpaid card
	// order across all users. Returns nil when none exists.
	FindLatestUnpaidCardAny(ctx context.Context) (*model.Order, error)
}

// CartRepository defines cart and wishlist data access operations.
type CartRepository interface {
	// GetCart retrieves a user's cart lines.
	GetCart(ctx context.Context, userID string) ([]model.CartItem, error)

	// ReplaceCart atomically replaces the contents of a user's cart.
	ReplaceCart(ctx context.Context, userID string, items []model.CartItem) error

	// ClearCart removes every line from a user's cart.
	ClearCart(ctx context.Context, userID string) error

	// AddWish adds a product to a user's wishlist. Adding twice is a no-op.
	AddWish(ctx context.Context, userID, productID string) error

	// RemoveWish removes a product from a user's wishlist.
	RemoveWish(ctx context.Context, userID, productID string) error

	// ListWishes retrieves the product IDs on a user's wishlist.
	ListWishes(ctx context.Context, userID string) ([]string, error)
}

// AddressRepository defines shipping address data access operations.
type AddressRepository interface {
	// Create stores a new shipping address.
	Create(ctx context.Context, address *model.Address) error

	// GetByID retrieves an address by ID. Returns nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Address, error)

	// ListByUser retrieves a user's stored addresses.
	ListByUser(ctx context.Context, userID string) ([]model.Address, error)
}
