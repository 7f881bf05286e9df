package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfront/internal/events"
	"shopfront/internal/gateway"
	"shopfront/internal/identity"
	"shopfront/internal/model"
	"shopfront/internal/pricing"
	"shopfront/internal/promo"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// errIdempotencyConflict signals that the idempotency-key insert lost to a
// concurrent request holding the same key.
var errIdempotencyConflict = errors.New("idempotency key already used")

// orderService implements OrderService.
type orderService struct {
	orderRepo        repository.OrderRepository
	productRepo      repository.ProductRepository
	addressRepo      repository.AddressRepository
	cartRepo         repository.CartRepository
	gateway          gateway.Client
	publisher        events.Publisher
	promoValidator   promo.Validator // nil when promos are disabled
	discountBasisPts int64
	logger           zerolog.Logger
}

// NewOrderService creates a new order service. promoValidator may be nil
// when the promo feature is disabled.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	addressRepo repository.AddressRepository,
	cartRepo repository.CartRepository,
	gw gateway.Client,
	publisher events.Publisher,
	promoValidator promo.Validator,
	discountBasisPts int64,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:        orderRepo,
		productRepo:      productRepo,
		addressRepo:      addressRepo,
		cartRepo:         cartRepo,
		gateway:          gw,
		publisher:        publisher,
		promoValidator:   promoValidator,
		discountBasisPts: discountBasisPts,
		logger:           logger.With().Str("service", "order").Logger(),
	}
}

// Create validates, prices and persists a new order.
//
// COD orders are confirmed immediately: marked paid, cart cleared. Card
// orders stay unpaid with status Placed; the response carries the gateway
// redirect URL and the cart survives until the paid webhook lands, so an
// abandoned checkout never loses the cart.
func (s *orderService) Create(ctx context.Context, caller identity.Identity, req *model.OrderRequest) (*model.OrderResponse, error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		return nil, model.ErrInvalidRequest
	}

	// A repeated idempotency key returns the original order instead of
	// creating a duplicate.
	if req.IdempotencyKey != "" {
		existing, items, err := s.orderRepo.GetByIdempotencyKey(ctx, caller.UserID, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if existing != nil {
			s.logger.Info().
				Str("order_id", existing.ID.String()).
				Msg("idempotency key replay, returning original order")
			return &model.OrderResponse{Success: true, Order: existing, Items: items}, nil
		}
	}

	discountBasisPts := int64(0)
	if req.PromoCode != nil && *req.PromoCode != "" {
		if s.promoValidator == nil {
			return nil, model.ErrInvalidPromoCode
		}
		if err := s.promoValidator.Validate(ctx, *req.PromoCode); err != nil {
			s.logger.Warn().Err(err).Msg("invalid promo code")
			return nil, err
		}
		discountBasisPts = s.discountBasisPts
	}

	address, err := s.addressRepo.GetByID(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	if address == nil || address.UserID != caller.UserID {
		return nil, model.ErrAddressNotFound
	}

	// Authoritative prices come from the catalogue, never the client.
	productIDs := make([]string, len(req.Items))
	for i, item := range req.Items {
		productIDs[i] = item.ProductID
	}
	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	quote, err := pricing.Calculate(req.Items, products, discountBasisPts)
	if err != nil {
		s.logger.Warn().Err(err).Int("item_count", len(req.Items)).Msg("pricing failed")
		return nil, err
	}

	now := time.Now()
	order := &model.Order{
		ID:          uuid.New(),
		UserID:      caller.UserID,
		AddressID:   addressID,
		Status:      model.StatusPlaced,
		PaymentType: req.PaymentType,
		AmountCents: quote.TotalCents,
		IsPaid:      req.PaymentType == model.PaymentCOD,
		PromoCode:   req.PromoCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}

	orderItems := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		unitPrice, err := pricing.UnitPrice(products, item.ProductID)
		if err != nil {
			return nil, err
		}
		orderItems[i] = model.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: unitPrice,
		}
	}

	if err := s.persistOrder(ctx, order, orderItems); err != nil {
		// A concurrent request with the same key won the insert between the
		// pre-check and here; the loser returns the winner's order.
		if errors.Is(err, errIdempotencyConflict) && req.IdempotencyKey != "" {
			existing, items, fetchErr := s.orderRepo.GetByIdempotencyKey(ctx, caller.UserID, req.IdempotencyKey)
			if fetchErr == nil && existing != nil {
				s.logger.Info().
					Str("order_id", existing.ID.String()).
					Msg("lost idempotency-key race, returning winning order")
				return &model.OrderResponse{Success: true, Order: existing, Items: items}, nil
			}
		}
		return nil, err
	}

	if order.PaymentType == model.PaymentCOD {
		return s.confirmCOD(ctx, order, orderItems)
	}

	return s.startCardCheckout(ctx, order, orderItems, products)
}

// persistOrder writes the order and its items in one transaction. A
// concurrent request holding the same idempotency key loses the insert and
// reports errIdempotencyConflict.
func (s *orderService) persistOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	var inserted bool
	if inserted, err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}
	if !inserted {
		err = errIdempotencyConflict
		return err
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// confirmCOD finishes a cash-on-delivery order: the sale is final at
// creation, so the cart clears now.
func (s *orderService) confirmCOD(ctx context.Context, order *model.Order, items []model.OrderItem) (*model.OrderResponse, error) {
	if err := s.cartRepo.ClearCart(ctx, order.UserID); err != nil {
		// The order stands; an uncleaned cart is a nuisance, not a failure.
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to clear cart after COD order")
	}

	if err := s.publisher.PublishOrderPaid(ctx, events.OrderPaidEvent{
		OrderID:     order.ID.String(),
		UserID:      order.UserID,
		AmountCents: order.AmountCents,
		MatchedBy:   "cod",
		OccurredAt:  time.Now(),
	}); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to publish order-paid event")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int64("amount_cents", order.AmountCents).
		Msg("COD order confirmed")

	return &model.OrderResponse{Success: true, Order: order, Items: items}, nil
}

// startCardCheckout asks the gateway for a hosted session. On gateway
// failure the order row stays Placed and unpaid: an orphaned-but-harmless
// record the operator replay action can pick up later.
func (s *orderService) startCardCheckout(ctx context.Context, order *model.Order, items []model.OrderItem, products []model.Product) (*model.OrderResponse, error) {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	checkoutReq := gateway.CheckoutRequest{
		OrderID:   order.ID.String(),
		UserID:    order.UserID,
		AddressID: order.AddressID.String(),
	}
	for _, item := range items {
		checkoutReq.Items = append(checkoutReq.Items, gateway.CheckoutItem{
			Name:            names[item.ProductID],
			UnitAmountCents: item.UnitPriceCents,
			Quantity:        int64(item.Quantity),
		})
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, checkoutReq)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("checkout session creation failed")
		return nil, model.ErrPaymentGateway
	}

	if err := s.orderRepo.SetGatewaySession(ctx, order.ID, sess.ID); err != nil {
		// The session metadata still carries the order id, so
		// reconciliation survives a failed binding.
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to bind gateway session")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("session_id", sess.ID).
		Msg("card checkout started")

	return &model.OrderResponse{
		Success:     true,
		Order:       order,
		Items:       items,
		RedirectURL: sess.RedirectURL,
	}, nil
}

// GetByID retrieves one order, enforcing ownership for customers.
func (s *orderService) GetByID(ctx context.Context, caller identity.Identity, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.UserID != caller.UserID && !caller.IsSeller() {
		return nil, model.ErrForbidden
	}

	return &model.OrderResponse{Success: true, Order: order, Items: items}, nil
}

// ListForUser retrieves the caller's orders.
func (s *orderService) ListForUser(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListAll retrieves all orders. Seller view.
func (s *orderService) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order through fulfilment states.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	if !model.ValidOrderStatus(status) {
		return model.ErrInvalidRequest
	}
	return s.orderRepo.UpdateStatus(ctx, id, status)
}

// validateOrderRequest checks the parts of the request the bind-time
// validator cannot express.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil || req.AddressID == "" || len(req.Items) == 0 {
		return model.ErrInvalidRequest
	}

	if req.PaymentType != model.PaymentCOD && req.PaymentType != model.PaymentCardGateway {
		return model.ErrInvalidRequest
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return model.ErrInvalidRequest
		}
		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
	}

	return nil
}
