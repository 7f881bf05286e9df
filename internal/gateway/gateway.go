// Package gateway wraps the hosted-payment provider. Orders never talk to
// the provider directly; they go through the Client interface so the
// reconciler and tests can substitute the gateway.
package gateway

import "context"

// CheckoutItem is one gateway line item. UnitAmountCents comes from the
// catalogue, never from the client request.
type CheckoutItem struct {
	Name            string
	UnitAmountCents int64
	Quantity        int64
}

// CheckoutRequest describes a hosted checkout session to create. OrderID,
// UserID and AddressID ride along as opaque session metadata so the paid
// webhook can be correlated back to the order.
type CheckoutRequest struct {
	OrderID   string
	UserID    string
	AddressID string
	Items     []CheckoutItem
}

// CheckoutSession is the created hosted session. RedirectURL is where the
// customer completes payment.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// SessionInfo is the subset of a checkout session the reconciler needs when
// walking back from a payment intent.
type SessionInfo struct {
	ID       string
	Metadata map[string]string
}

// Client is the payment gateway surface used by the order service and the
// reconciler.
type Client interface {
	// CreateCheckoutSession creates a hosted payment session and returns
	// its redirect URL. Failures map to model.ErrPaymentGateway.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// SessionByPaymentIntent finds the checkout session that spawned the
	// given payment intent. Returns nil when the gateway has no session
	// for it.
	SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*SessionInfo, error)
}
