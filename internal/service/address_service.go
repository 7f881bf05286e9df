package service

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// addressService implements AddressService.
type addressService struct {
	repo   repository.AddressRepository
	logger zerolog.Logger
}

// NewAddressService creates a new address service.
func NewAddressService(repo repository.AddressRepository, logger zerolog.Logger) AddressService {
	return &addressService{
		repo:   repo,
		logger: logger.With().Str("service", "address").Logger(),
	}
}

// Create stores a new shipping address for the caller.
func (s *addressService) Create(ctx context.Context, userID string, req *model.AddressRequest) (*model.Address, error) {
	if req == nil {
		return nil, model.ErrInvalidRequest
	}

	address := &model.Address{
		ID:        uuid.New(),
		UserID:    userID,
		Line1:     req.Line1,
		Line2:     req.Line2,
		City:      req.City,
		State:     req.State,
		PostCode:  req.PostCode,
		Country:   req.Country,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, address); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create address")
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	return address, nil
}

// ListForUser retrieves the caller's stored addresses.
func (s *addressService) ListForUser(ctx context.Context, userID string) ([]model.Address, error) {
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}
