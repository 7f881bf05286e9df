package gateway

import (
	"context"
	"fmt"

	"shopfront/internal/config"
	"shopfront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeGateway implements Client against the Stripe API.
type stripeGateway struct {
	api    *client.API
	cfg    config.GatewayConfig
	logger zerolog.Logger
}

// NewStripeGateway creates a Stripe-backed payment gateway client.
func NewStripeGateway(cfg config.GatewayConfig, logger zerolog.Logger) Client {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &stripeGateway{
		api:    api,
		cfg:    cfg,
		logger: logger.With().Str("component", "stripe-gateway").Logger(),
	}
}

// CreateCheckoutSession creates a hosted payment session with one line item
// per product and the order correlation data attached as session metadata.
func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.cfg.SuccessURL),
		CancelURL:  stripe.String(g.cfg.CancelURL),
	}

	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.cfg.Currency),
				UnitAmount: stripe.Int64(item.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	params.AddMetadata("orderId", req.OrderID)
	params.AddMetadata("userId", req.UserID)
	params.AddMetadata("addressId", req.AddressID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("order_id", req.OrderID).
			Msg("checkout session creation failed")
		return nil, fmt.Errorf("%w: %v", model.ErrPaymentGateway, err)
	}

	g.logger.Info().
		Str("order_id", req.OrderID).
		Str("session_id", sess.ID).
		Msg("checkout session created")

	return &CheckoutSession{
		ID:          sess.ID,
		RedirectURL: sess.URL,
	}, nil
}

// SessionByPaymentIntent finds the checkout session that spawned a payment
// intent. Used when an intent webhook arrives without order metadata.
func (g *stripeGateway) SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*SessionInfo, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := g.api.CheckoutSessions.List(params)
	for iter.Next() {
		sess := iter.CheckoutSession()
		return &SessionInfo{
			ID:       sess.ID,
			Metadata: sess.Metadata,
		}, nil
	}
	if err := iter.Err(); err != nil {
		g.logger.Error().
			Err(err).
			Str("payment_intent_id", paymentIntentID).
			Msg("session lookup by payment intent failed")
		return nil, fmt.Errorf("session lookup by payment intent: %w", err)
	}

	return nil, nil
}

// VerifyWebhook checks the gateway signature over the raw payload. This is a
// hard boundary: unverified payloads are never processed.
func VerifyWebhook(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", model.ErrSignatureInvalid, err)
	}
	return event, nil
}
