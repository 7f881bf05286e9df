// Package payment maps asynchronous gateway events back onto orders and
// flips their paid flag. This is the only component allowed to change
// is_paid, and it only ever moves it false -> true.
package payment

import (
	"context"
	"time"

	"shopfront/internal/events"
	"shopfront/internal/gateway"
	"shopfront/internal/model"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Match labels record which lookup located the order. Anything beyond the
// direct-id matches is a heuristic and gets routed to the review queue.
const (
	MatchMetadata      = "metadata"
	MatchSession       = "session"
	MatchIntentSession = "intent_session"
	MatchUserDate      = "user_date"
	MatchUserWindow    = "user_window"
	MatchUserUnpaid    = "user_latest_unpaid"
	MatchUserAmount    = "user_amount"
	MatchGlobalUnpaid  = "global_latest_unpaid"
	MatchReplay        = "replay"
)

// dateWindow is the tolerance for the approximate-date fallback.
const dateWindow = 5 * time.Minute

// Hints carries the correlation data extracted from one gateway event.
// Zero-valued fields are simply unavailable for that event.
type Hints struct {
	OrderID         string // orderId from session or intent metadata
	SessionID       string // gateway checkout session id
	PaymentIntentID string // gateway payment intent id
	UserID          string // userId from session or intent metadata
	EventTime       time.Time
	AmountCents     int64

	// AllowGlobalFallback enables the system-wide most-recent-unpaid
	// fallback. Only the checkout.session.completed path sets it.
	AllowGlobalFallback bool
}

// Outcome reports what the reconciler did.
type Outcome struct {
	OrderID   uuid.UUID
	Updated   bool
	MatchedBy string
}

// Reconciler locates the order behind a payment event and applies the paid
// flag. Reconciliation is idempotent per order: re-applying the same event
// is a no-op.
type Reconciler struct {
	orders     repository.OrderRepository
	carts      repository.CartRepository
	gateway    gateway.Client
	publisher  events.Publisher
	heuristics bool
	logger     zerolog.Logger
}

// NewReconciler creates a reconciler. When heuristics is false only the
// direct-id lookups run; everything else reports a miss for operator review.
func NewReconciler(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	gw gateway.Client,
	publisher events.Publisher,
	heuristics bool,
	logger zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		orders:     orders,
		carts:      carts,
		gateway:    gw,
		publisher:  publisher,
		heuristics: heuristics,
		logger:     logger.With().Str("component", "reconciler").Logger(),
	}
}

// Apply locates the order for the given hints and moves its paid flag to the
// target value. A paid=false event never un-pays an order; it only records
// that the gateway reported a cancelled intent.
func (r *Reconciler) Apply(ctx context.Context, hints Hints, paid bool) (*Outcome, error) {
	order, matchedBy, err := r.locate(ctx, hints)
	if err != nil {
		return nil, err
	}

	if order == nil {
		r.logger.Warn().
			Str("payment_intent_id", hints.PaymentIntentID).
			Str("session_id", hints.SessionID).
			Str("user_id", hints.UserID).
			Msg("no order matched payment event")
		r.publishReview(ctx, events.ReviewEvent{
			Reason:          "reconciliation_miss",
			UserID:          hints.UserID,
			PaymentIntentID: hints.PaymentIntentID,
			SessionID:       hints.SessionID,
			OccurredAt:      time.Now(),
		})
		return nil, model.ErrReconciliationMiss
	}

	return r.apply(ctx, order, matchedBy, paid, hints.SessionID)
}

// Replay re-runs reconciliation for one known order. This is the operator
// action behind the manual payment-fix endpoint; there is no separate
// force-paid code path.
func (r *Reconciler) Replay(ctx context.Context, orderID uuid.UUID) (*Outcome, error) {
	order, _, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	return r.apply(ctx, order, MatchReplay, true, "")
}

// apply flips the paid flag on a located order and fires the side effects
// that belong to a confirmed payment.
func (r *Reconciler) apply(ctx context.Context, order *model.Order, matchedBy string, paid bool, sessionID string) (*Outcome, error) {
	outcome := &Outcome{OrderID: order.ID, MatchedBy: matchedBy}

	if !paid {
		if order.IsPaid {
			// is_paid never transitions true -> false.
			r.logger.Warn().
				Str("order_id", order.ID.String()).
				Msg("ignoring unpaid event for an already-paid order")
		}
		return outcome, nil
	}

	if order.IsPaid {
		r.logger.Debug().
			Str("order_id", order.ID.String()).
			Msg("order already paid, reconciliation is a no-op")
		return outcome, nil
	}

	updated, err := r.orders.MarkPaid(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	outcome.Updated = updated

	// A concurrent delivery may have won the conditional write; side
	// effects belong to the winner only.
	if !updated {
		return outcome, nil
	}

	// Heuristic matches lacked the session binding; store it so a repeat
	// delivery matches directly next time.
	if sessionID != "" && order.GatewaySessionID == nil {
		if err := r.orders.SetGatewaySession(ctx, order.ID, sessionID); err != nil {
			r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to bind gateway session")
		}
	}

	// Card carts are cleared only here, after the gateway confirmed
	// payment. An abandoned checkout keeps its cart.
	if order.PaymentType == model.PaymentCardGateway {
		if err := r.carts.ClearCart(ctx, order.UserID); err != nil {
			r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to clear cart after payment")
		}
	}

	if err := r.publisher.PublishOrderPaid(ctx, events.OrderPaidEvent{
		OrderID:     order.ID.String(),
		UserID:      order.UserID,
		AmountCents: order.AmountCents,
		MatchedBy:   matchedBy,
		OccurredAt:  time.Now(),
	}); err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to publish order-paid event")
	}

	if isHeuristic(matchedBy) {
		r.publishReview(ctx, events.ReviewEvent{
			Reason:     "heuristic_match",
			OrderID:    order.ID.String(),
			UserID:     order.UserID,
			SessionID:  sessionID,
			MatchedBy:  matchedBy,
			OccurredAt: time.Now(),
		})
	}

	r.logger.Info().
		Str("order_id", order.ID.String()).
		Str("matched_by", matchedBy).
		Msg("order reconciled as paid")

	return outcome, nil
}

// locate walks the fallback chain in strict priority order. The first step
// yielding at least one match short-circuits the chain; when a step yields
// several, the most recently created order wins.
func (r *Reconciler) locate(ctx context.Context, hints Hints) (*model.Order, string, error) {
	// 1. Direct order id from session or intent metadata.
	if hints.OrderID != "" {
		if id, err := uuid.Parse(hints.OrderID); err == nil {
			order, _, err := r.orders.GetByID(ctx, id)
			if err != nil {
				return nil, "", err
			}
			if order != nil {
				return order, MatchMetadata, nil
			}
		}
	}

	// 2a. The session id was bound to the order at creation time.
	if hints.SessionID != "" {
		order, err := r.orders.FindByGatewaySession(ctx, hints.SessionID)
		if err != nil {
			return nil, "", err
		}
		if order != nil {
			return order, MatchSession, nil
		}
	}

	// 2b. Intent without metadata: ask the gateway which checkout session
	// spawned it and use that session's metadata.
	if hints.PaymentIntentID != "" && r.gateway != nil {
		info, err := r.gateway.SessionByPaymentIntent(ctx, hints.PaymentIntentID)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("payment_intent_id", hints.PaymentIntentID).
				Msg("gateway session lookup failed, continuing with fallbacks")
		} else if info != nil {
			if raw := info.Metadata["orderId"]; raw != "" {
				if id, parseErr := uuid.Parse(raw); parseErr == nil {
					order, _, err := r.orders.GetByID(ctx, id)
					if err != nil {
						return nil, "", err
					}
					if order != nil {
						return order, MatchIntentSession, nil
					}
				}
			}
			order, err := r.orders.FindByGatewaySession(ctx, info.ID)
			if err != nil {
				return nil, "", err
			}
			if order != nil {
				return order, MatchIntentSession, nil
			}
		}
	}

	if !r.heuristics {
		return nil, "", nil
	}

	// 3-6. Per-user heuristics, precision over recall.
	if hints.UserID != "" && !hints.EventTime.IsZero() {
		orders, err := r.orders.FindByUserAndExactDate(ctx, hints.UserID, hints.EventTime)
		if err != nil {
			return nil, "", err
		}
		if len(orders) > 0 {
			return &orders[0], MatchUserDate, nil
		}

		from := hints.EventTime.Add(-dateWindow)
		to := hints.EventTime.Add(dateWindow)
		orders, err = r.orders.FindByUserInWindow(ctx, hints.UserID, from, to)
		if err != nil {
			return nil, "", err
		}
		if len(orders) > 0 {
			return &orders[0], MatchUserWindow, nil
		}
	}

	if hints.UserID != "" {
		orders, err := r.orders.FindUnpaidCardByUser(ctx, hints.UserID)
		if err != nil {
			return nil, "", err
		}
		if len(orders) > 0 {
			return &orders[0], MatchUserUnpaid, nil
		}

		if hints.AmountCents > 0 {
			orders, err = r.orders.FindUnpaidByUserAndAmount(ctx, hints.UserID, hints.AmountCents)
			if err != nil {
				return nil, "", err
			}
			if len(orders) > 0 {
				return &orders[0], MatchUserAmount, nil
			}
		}
	}

	// 7. Last resort, session path only: the most recent unpaid card order
	// system-wide. Trades correctness for forward progress.
	if hints.AllowGlobalFallback {
		order, err := r.orders.FindLatestUnpaidCardAny(ctx)
		if err != nil {
			return nil, "", err
		}
		if order != nil {
			return order, MatchGlobalUnpaid, nil
		}
	}

	return nil, "", nil
}

func (r *Reconciler) publishReview(ctx context.Context, evt events.ReviewEvent) {
	if err := r.publisher.PublishReview(ctx, evt); err != nil {
		r.logger.Error().Err(err).Str("reason", evt.Reason).Msg("failed to publish review event")
	}
}

func isHeuristic(matchedBy string) bool {
	switch matchedBy {
	case MatchMetadata, MatchSession, MatchIntentSession, MatchReplay:
		return false
	}
	return true
}
