package service

import (
	"context"
	"fmt"

	"shopfront/internal/media"
	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	repo     repository.ProductRepository
	resolver media.Resolver
	logger   zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, resolver media.Resolver, logger zerolog.Logger) ProductService {
	return &productService{
		repo:     repo,
		resolver: resolver,
		logger:   logger.With().Str("service", "product").Logger(),
	}
}

// GetAll retrieves products with pagination and an optional category filter.
func (s *productService) GetAll(ctx context.Context, category string, limit, offset int) ([]model.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.repo.GetAll(ctx, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.resolveImages(ctx, products)
	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, model.ErrInvalidRequest
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	url, err := s.resolver.ImageURL(ctx, product.ImageKey)
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("failed to resolve image URL")
	} else {
		product.ImageURL = url
	}
	return product, nil
}

// resolveImages fills ImageURL on each product. A failed resolution leaves
// the URL empty rather than failing the read.
func (s *productService) resolveImages(ctx context.Context, products []model.Product) {
	for i := range products {
		url, err := s.resolver.ImageURL(ctx, products[i].ImageKey)
		if err != nil {
			s.logger.Warn().Err(err).Str("product_id", products[i].ID).Msg("failed to resolve image URL")
			continue
		}
		products[i].ImageURL = url
	}
}
