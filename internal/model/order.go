package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus tracks fulfilment progress. Payment state is tracked
// separately by IsPaid.
type OrderStatus string

const (
	StatusPlaced     OrderStatus = "Placed"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// ValidOrderStatus reports whether s is one of the known fulfilment states.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentType selects the payment path at checkout.
type PaymentType string

const (
	PaymentCOD         PaymentType = "COD"
	PaymentCardGateway PaymentType = "CardGateway"
)

// Order represents one purchase attempt. AmountCents is computed once at
// creation and never recomputed; IsPaid transitions only false -> true.
type Order struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	UserID           string      `json:"userId" db:"user_id"`
	AddressID        uuid.UUID   `json:"addressId" db:"address_id"`
	Status           OrderStatus `json:"status" db:"status"`
	PaymentType      PaymentType `json:"paymentType" db:"payment_type"`
	AmountCents      int64       `json:"amountCents" db:"amount_cents"`
	IsPaid           bool        `json:"isPaid" db:"is_paid"`
	PromoCode        *string     `json:"promoCode,omitempty" db:"promo_code"`
	GatewaySessionID *string     `json:"gatewaySessionId,omitempty" db:"gateway_session_id"`
	IdempotencyKey   *string     `json:"-" db:"idempotency_key"`
	CreatedAt        time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a line item snapshot. UnitPriceCents is captured from the
// catalogue at creation time, never from the client.
type OrderItem struct {
	ID             uuid.UUID `json:"-" db:"id"`
	OrderID        uuid.UUID `json:"-" db:"order_id"`
	ProductID      string    `json:"productId" db:"product_id"`
	Quantity       int       `json:"quantity" db:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents" db:"unit_price_cents"`
}

// OrderRequest is the payload for creating an order.
type OrderRequest struct {
	AddressID      string             `json:"addressId" validate:"required,uuid4"`
	PaymentType    PaymentType        `json:"paymentType" validate:"required,oneof=COD CardGateway"`
	PromoCode      *string            `json:"promoCode,omitempty"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty"`
	Items          []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemRequest is a single line in an order request.
type OrderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// OrderResponse is returned from order creation and reads.
// RedirectURL is set only for CardGateway orders.
type OrderResponse struct {
	Success     bool        `json:"success"`
	Order       *Order      `json:"order,omitempty"`
	Items       []OrderItem `json:"items,omitempty"`
	RedirectURL string      `json:"redirectUrl,omitempty"`
}

// StatusUpdateRequest is the seller payload for moving an order through
// fulfilment states.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status" validate:"required"`
}

// ReconcileResponse is returned by the webhook endpoint and the operator
// replay action.
type ReconcileResponse struct {
	Received bool   `json:"received"`
	Updated  bool   `json:"updated,omitempty"`
	OrderID  string `json:"orderId,omitempty"`
}
