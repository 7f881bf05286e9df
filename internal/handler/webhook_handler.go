package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"shopfront/internal/gateway"
	"shopfront/internal/model"
	"shopfront/internal/payment"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

// maxWebhookBody caps the webhook payload size.
const maxWebhookBody = 1 << 16

// WebhookHandler receives payment gateway events. Signature verification is
// the trust boundary: a failed check is a 400 and nothing is processed. Once
// the signature passes, the response is always 200 so the gateway does not
// retry events we consciously could not match.
type WebhookHandler struct {
	reconciler    *payment.Reconciler
	webhookSecret string
	logger        zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(reconciler *payment.Reconciler, webhookSecret string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler:    reconciler,
		webhookSecret: webhookSecret,
		logger:        logger.With().Str("handler", "webhook").Logger(),
	}
}

// Receive handles POST /webhooks/payment requests.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, model.ErrInvalidRequest, h.logger)
		return
	}

	event, err := gateway.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn().Err(err).Msg("webhook signature verification failed")
		writeError(w, model.ErrSignatureInvalid, h.logger)
		return
	}

	outcome := h.dispatch(r, event)

	resp := model.ReconcileResponse{Received: true}
	if outcome != nil {
		resp.Updated = outcome.Updated
		resp.OrderID = outcome.OrderID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// dispatch routes one verified event to the reconciler. Unknown event types
// are acknowledged and dropped.
func (h *WebhookHandler) dispatch(r *http.Request, event stripe.Event) *payment.Outcome {
	logger := h.logger.With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()

	switch event.Type {
	case "payment_intent.succeeded":
		intent, err := parsePaymentIntent(event)
		if err != nil {
			logger.Error().Err(err).Msg("failed to parse payment intent event")
			return nil
		}
		return h.apply(r, logger, intentHints(intent, event), true)

	case "payment_intent.canceled", "payment_intent.payment_failed":
		intent, err := parsePaymentIntent(event)
		if err != nil {
			logger.Error().Err(err).Msg("failed to parse payment intent event")
			return nil
		}
		return h.apply(r, logger, intentHints(intent, event), false)

	case "checkout.session.completed":
		sess, err := parseCheckoutSession(event)
		if err != nil {
			logger.Error().Err(err).Msg("failed to parse checkout session event")
			return nil
		}
		// Completed sessions with deferred payment methods settle later via
		// the payment intent events.
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			logger.Info().Str("payment_status", string(sess.PaymentStatus)).Msg("session completed but not paid, skipping")
			return nil
		}
		return h.apply(r, logger, sessionHints(sess, event), true)

	default:
		logger.Debug().Msg("ignoring unhandled event type")
		return nil
	}
}

// apply runs the reconciler and absorbs its errors: after the signature
// check, failures are logged and reviewed out-of-band, never retried by the
// gateway.
func (h *WebhookHandler) apply(r *http.Request, logger zerolog.Logger, hints payment.Hints, paid bool) *payment.Outcome {
	outcome, err := h.reconciler.Apply(r.Context(), hints, paid)
	if err != nil {
		logger.Warn().Err(err).Msg("reconciliation did not update an order")
		return nil
	}
	return outcome
}

func parsePaymentIntent(event stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func parseCheckoutSession(event stripe.Event) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// intentHints extracts correlation data from a payment intent event. The
// global fallback stays off: an intent without metadata is too thin a signal
// to risk marking an arbitrary order paid.
func intentHints(intent *stripe.PaymentIntent, event stripe.Event) payment.Hints {
	return payment.Hints{
		OrderID:         intent.Metadata["orderId"],
		PaymentIntentID: intent.ID,
		UserID:          intent.Metadata["userId"],
		EventTime:       time.Unix(event.Created, 0),
		AmountCents:     intent.Amount,
	}
}

// sessionHints extracts correlation data from a completed checkout session.
func sessionHints(sess *stripe.CheckoutSession, event stripe.Event) payment.Hints {
	hints := payment.Hints{
		OrderID:             sess.Metadata["orderId"],
		SessionID:           sess.ID,
		UserID:              sess.Metadata["userId"],
		EventTime:           time.Unix(event.Created, 0),
		AmountCents:         sess.AmountTotal,
		AllowGlobalFallback: true,
	}
	if sess.PaymentIntent != nil {
		hints.PaymentIntentID = sess.PaymentIntent.ID
	}
	return hints
}
