package repository

import (
	"context"
	"fmt"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// addressRepository implements AddressRepository using PostgreSQL.
type addressRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool *pgxpool.Pool, logger zerolog.Logger) AddressRepository {
	return &addressRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "address").Logger(),
	}
}

const addressColumns = "id, user_id, line1, line2, city, state, post_code, country, created_at"

func scanAddress(row pgx.Row, a *model.Address) error {
	return row.Scan(&a.ID, &a.UserID, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostCode, &a.Country, &a.CreatedAt)
}

// Create stores a new shipping address.
func (r *addressRepository) Create(ctx context.Context, address *model.Address) error {
	query := `
		INSERT INTO addresses (id, user_id, line1, line2, city, state, post_code, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		address.ID,
		address.UserID,
		address.Line1,
		address.Line2,
		address.City,
		address.State,
		address.PostCode,
		address.Country,
		address.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", address.UserID).Msg("failed to create address")
		return fmt.Errorf("failed to create address: %w", err)
	}

	return nil
}

// GetByID retrieves an address by ID.
func (r *addressRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`

	var a model.Address
	err := scanAddress(r.pool.QueryRow(ctx, query, id), &a)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("address_id", id.String()).Msg("failed to query address")
		return nil, fmt.Errorf("failed to query address: %w", err)
	}

	return &a, nil
}

// ListByUser retrieves a user's stored addresses.
func (r *addressRepository) ListByUser(ctx context.Context, userID string) ([]model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query addresses")
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var addresses []model.Address
	for rows.Next() {
		var a model.Address
		if err := scanAddress(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}
