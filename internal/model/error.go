package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeAddressNotFound    = "ADDRESS_NOT_FOUND"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeInvalidPromoCode   = "INVALID_PROMO_CODE"
	ErrCodeInvalidPromoLength = "INVALID_PROMO_LENGTH"
	ErrCodePaymentGateway     = "PAYMENT_GATEWAY_ERROR"
	ErrCodeSignatureInvalid   = "SIGNATURE_INVALID"
	ErrCodeReconciliationMiss = "RECONCILIATION_MISS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// DomainError carries a stable code alongside a human-readable message.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidRequest     = NewDomainError(ErrCodeInvalidRequest, "Request is missing required fields")
	ErrUnauthorized       = NewDomainError(ErrCodeUnauthorized, "Authentication required")
	ErrForbidden          = NewDomainError(ErrCodeForbidden, "Insufficient role for this operation")
	ErrProductNotFound    = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrOrderNotFound      = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrAddressNotFound    = NewDomainError(ErrCodeAddressNotFound, "Shipping address not found")
	ErrInvalidQuantity    = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidPromoCode   = NewDomainError(ErrCodeInvalidPromoCode, "Promo code must appear in at least two promo source files")
	ErrInvalidPromoLength = NewDomainError(ErrCodeInvalidPromoLength, "Promo code must be between 8 and 10 characters")
	ErrPaymentGateway     = NewDomainError(ErrCodePaymentGateway, "Payment gateway rejected the checkout session")
	ErrSignatureInvalid   = NewDomainError(ErrCodeSignatureInvalid, "Webhook signature verification failed")
	ErrReconciliationMiss = NewDomainError(ErrCodeReconciliationMiss, "No order matched the payment event")
)
