package repository

import (
	"context"
	"fmt"

	"shopfront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

const productColumns = "id, name, description, category, price_cents, image_key, created_at"

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.ImageKey, &p.CreatedAt)
}

// GetAll retrieves products with pagination and an optional category filter.
func (r *productRepository) GetAll(ctx context.Context, category string, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR category = $1)
		ORDER BY name
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, category, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Str("category", category).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p model.Product
	err := scanProduct(r.pool.QueryRow(ctx, query, id), &p)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("id_count", len(ids)).Msg("failed to query products by ids")
		return nil, fmt.Errorf("failed to query products by ids: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ValidateProductsExist checks that every provided product ID exists.
func (r *productRepository) ValidateProductsExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `SELECT COUNT(DISTINCT id) FROM products WHERE id = ANY($1)`

	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	distinct := make([]string, 0, len(unique))
	for id := range unique {
		distinct = append(distinct, id)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, distinct).Scan(&count); err != nil {
		r.logger.Error().Err(err).Int("id_count", len(distinct)).Msg("failed to validate products")
		return fmt.Errorf("failed to validate products: %w", err)
	}

	if count != len(distinct) {
		r.logger.Debug().
			Int("requested", len(distinct)).
			Int("found", count).
			Msg("one or more products missing")
		return model.ErrProductNotFound
	}

	return nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}
