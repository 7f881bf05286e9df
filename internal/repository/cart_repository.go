package repository

import (
	"context"
	"fmt"

	"shopfront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements CartRepository using PostgreSQL. Wishlist rows
// live alongside cart rows since both are per-user product references.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetCart retrieves a user's cart lines.
func (r *cartRepository) GetCart(ctx context.Context, userID string) ([]model.CartItem, error) {
	query := `
		SELECT user_id, product_id, quantity, updated_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY product_id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.UserID, &item.ProductID, &item.Quantity, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// ReplaceCart atomically replaces the contents of a user's cart.
func (r *cartRepository) ReplaceCart(ctx context.Context, userID string, items []model.CartItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	if len(items) > 0 {
		batch := &pgx.Batch{}
		for _, item := range items {
			batch.Queue(
				`INSERT INTO cart_items (user_id, product_id, quantity, updated_at) VALUES ($1, $2, $3, now())`,
				userID, item.ProductID, item.Quantity,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < len(items); i++ {
			if _, err = results.Exec(); err != nil {
				results.Close()
				r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to insert cart item")
				return fmt.Errorf("failed to insert cart item: %w", err)
			}
		}
		if err = results.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to commit cart replacement")
		return fmt.Errorf("failed to commit cart replacement: %w", err)
	}

	return nil
}

// ClearCart removes every line from a user's cart.
func (r *cartRepository) ClearCart(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	r.logger.Debug().Str("user_id", userID).Msg("cart cleared")
	return nil
}

// AddWish adds a product to a user's wishlist.
func (r *cartRepository) AddWish(ctx context.Context, userID, productID string) error {
	query := `
		INSERT INTO wishlist_items (user_id, product_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, product_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, userID, productID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Str("product_id", productID).Msg("failed to add wishlist item")
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}

	return nil
}

// RemoveWish removes a product from a user's wishlist.
func (r *cartRepository) RemoveWish(ctx context.Context, userID, productID string) error {
	query := `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`

	if _, err := r.pool.Exec(ctx, query, userID, productID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Str("product_id", productID).Msg("failed to remove wishlist item")
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}

	return nil
}

// ListWishes retrieves the product IDs on a user's wishlist.
func (r *cartRepository) ListWishes(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT product_id FROM wishlist_items WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query wishlist")
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist items: %w", err)
	}

	return ids, nil
}
