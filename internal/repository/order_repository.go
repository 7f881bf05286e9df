package repository

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `id, user_id, address_id, status, payment_type, amount_cents,
	is_paid, promo_code, gateway_session_id, idempotency_key, created_at, updated_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID,
		&o.UserID,
		&o.AddressID,
		&o.Status,
		&o.PaymentType,
		&o.AmountCents,
		&o.IsPaid,
		&o.PromoCode,
		&o.GatewaySessionID,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction. A
// duplicate idempotency key leaves the table untouched and reports
// inserted=false so the caller can return the original order.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error) {
	query := `
		INSERT INTO orders (id, user_id, address_id, status, payment_type, amount_cents,
			is_paid, promo_code, gateway_session_id, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
	`

	tag, err := tx.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.AddressID,
		order.Status,
		order.PaymentType,
		order.AmountCents,
		order.IsPaid,
		order.PromoCode,
		order.GatewaySessionID,
		order.IdempotencyKey,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return false, fmt.Errorf("failed to create order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Info().
			Str("user_id", order.UserID).
			Msg("duplicate idempotency key, order not inserted")
		return false, nil
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created")

	return true, nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPriceCents)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, query, id), &order)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return &order, items, nil
}

// GetByIdempotencyKey retrieves a user's order previously created under key.
func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, []model.OrderItem, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND idempotency_key = $2`

	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, query, userID, key), &order)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query order by idempotency key")
		return nil, nil, fmt.Errorf("failed to query order by idempotency key: %w", err)
	}

	items, err := r.getItems(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}

	return &order, items, nil
}

func (r *orderRepository) getItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// ListByUser retrieves a user's orders, most recent first.
func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return r.collect(ctx, query, userID)
}

// ListAll retrieves all orders with pagination, most recent first.
func (r *orderRepository) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.collect(ctx, query, limit, offset)
}

// UpdateStatus sets the fulfilment status of an order.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// SetGatewaySession stores the gateway checkout session reference on an order.
func (r *orderRepository) SetGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) error {
	query := `UPDATE orders SET gateway_session_id = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, sessionID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to set gateway session")
		return fmt.Errorf("failed to set gateway session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// MarkPaid flips is_paid from false to true. The WHERE clause makes
// concurrent webhook deliveries converge on a single effective write.
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE orders SET is_paid = TRUE, updated_at = now() WHERE id = $1 AND is_paid = FALSE`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order paid")
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	updated := tag.RowsAffected() > 0
	r.logger.Info().
		Str("order_id", id.String()).
		Bool("updated", updated).
		Msg("order payment flag write")

	return updated, nil
}

// FindByGatewaySession retrieves the order bound to a checkout session id.
func (r *orderRepository) FindByGatewaySession(ctx context.Context, sessionID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway_session_id = $1`

	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, query, sessionID), &order)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to query order by session")
		return nil, fmt.Errorf("failed to query order by session: %w", err)
	}

	return &order, nil
}

// FindByUserAndExactDate retrieves a user's orders created at exactly ts.
func (r *orderRepository) FindByUserAndExactDate(ctx context.Context, userID string, ts time.Time) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND created_at = $2
		ORDER BY created_at DESC
	`
	return r.collect(ctx, query, userID, ts)
}

// FindByUserInWindow retrieves a user's orders created between from and to.
func (r *orderRepository) FindByUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
	`
	return r.collect(ctx, query, userID, from, to)
}

// FindUnpaidCardByUser retrieves a user's unpaid card orders.
func (r *orderRepository) FindUnpaidCardByUser(ctx context.Context, userID string) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND payment_type = $2 AND is_paid = FALSE
		ORDER BY created_at DESC
	`
	return r.collect(ctx, query, userID, model.PaymentCardGateway)
}

// FindUnpaidByUserAndAmount retrieves a user's unpaid orders with a matching amount.
func (r *orderRepository) FindUnpaidByUserAndAmount(ctx context.Context, userID string, amountCents int64) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND amount_cents = $2 AND is_paid = FALSE
		ORDER BY created_at DESC
	`
	return r.collect(ctx, query, userID, amountCents)
}

// FindLatestUnpaidCardAny retrieves the single most recent unpaid card order
// across all users.
func (r *orderRepository) FindLatestUnpaidCardAny(ctx context.Context) (*model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE payment_type = $1 AND is_paid = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`

	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, query, model.PaymentCardGateway), &order)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query latest unpaid card order")
		return nil, fmt.Errorf("failed to query latest unpaid card order: %w", err)
	}

	return &order, nil
}

func (r *orderRepository) collect(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
