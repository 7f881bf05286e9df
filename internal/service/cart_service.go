package service

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/media"
	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	resolver    media.Resolver
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	resolver media.Resolver,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		resolver:    resolver,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// GetCart retrieves the caller's cart with resolved product details.
func (s *cartService) GetCart(ctx context.Context, userID string) (*model.CartResponse, error) {
	items, err := s.cartRepo.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	products, err := s.loadProducts(ctx, productIDsOf(items))
	if err != nil {
		return nil, err
	}

	return &model.CartResponse{Items: items, Products: products}, nil
}

// ReplaceCart replaces the caller's cart contents after validating that
// every referenced product exists.
func (s *cartService) ReplaceCart(ctx context.Context, userID string, req *model.CartRequest) error {
	if req == nil {
		return model.ErrInvalidRequest
	}

	ids := make([]string, 0, len(req.Items))
	now := time.Now()
	items := make([]model.CartItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.ProductID == "" {
			return model.ErrInvalidRequest
		}
		if line.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
		ids = append(ids, line.ProductID)
		items = append(items, model.CartItem{
			UserID:    userID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UpdatedAt: now,
		})
	}

	if len(ids) > 0 {
		if err := s.productRepo.ValidateProductsExist(ctx, ids); err != nil {
			return err
		}
	}

	if err := s.cartRepo.ReplaceCart(ctx, userID, items); err != nil {
		return fmt.Errorf("failed to replace cart: %w", err)
	}
	return nil
}

// ClearCart empties the caller's cart.
func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.cartRepo.ClearCart(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// AddWish adds a product to the caller's wishlist.
func (s *cartService) AddWish(ctx context.Context, userID, productID string) error {
	if productID == "" {
		return model.ErrInvalidRequest
	}
	if err := s.productRepo.ValidateProductsExist(ctx, []string{productID}); err != nil {
		return err
	}
	if err := s.cartRepo.AddWish(ctx, userID, productID); err != nil {
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

// RemoveWish removes a product from the caller's wishlist.
func (s *cartService) RemoveWish(ctx context.Context, userID, productID string) error {
	if productID == "" {
		return model.ErrInvalidRequest
	}
	if err := s.cartRepo.RemoveWish(ctx, userID, productID); err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return nil
}

// GetWishlist retrieves the caller's wishlisted products.
func (s *cartService) GetWishlist(ctx context.Context, userID string) (*model.WishlistResponse, error) {
	ids, err := s.cartRepo.ListWishes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}

	products, err := s.loadProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &model.WishlistResponse{Products: products}, nil
}

// loadProducts fetches products for the given ids and resolves image URLs.
func (s *cartService) loadProducts(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	for i := range products {
		url, err := s.resolver.ImageURL(ctx, products[i].ImageKey)
		if err != nil {
			s.logger.Warn().Err(err).Str("product_id", products[i].ID).Msg("failed to resolve image URL")
			continue
		}
		products[i].ImageURL = url
	}
	return products, nil
}

func productIDsOf(items []model.CartItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}
