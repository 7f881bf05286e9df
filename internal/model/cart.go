package model

import "time"

// CartItem is one line in a user's cart, keyed by (user, product).
type CartItem struct {
	UserID    string    `json:"-" db:"user_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartRequest replaces the contents of a user's cart.
type CartRequest struct {
	Items []CartItemRequest `json:"items" validate:"required,dive"`
}

// CartItemRequest is a single cart line in a request.
type CartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CartResponse returns the cart lines with resolved product details.
type CartResponse struct {
	Items    []CartItem `json:"items"`
	Products []Product  `json:"products"`
}

// WishlistRequest adds one product to a user's wishlist.
type WishlistRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// WishlistResponse lists wishlisted products.
type WishlistResponse struct {
	Products []Product `json:"products"`
}
