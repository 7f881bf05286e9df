package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopfront/internal/events"
	"shopfront/internal/gateway"
	"shopfront/internal/model"
	"shopfront/internal/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload produces a Stripe-Signature header value for the payload.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// webhookEvent builds a minimal gateway event envelope.
func webhookEvent(eventType string, object map[string]interface{}) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"id":      "evt_test_1",
		"type":    eventType,
		"created": time.Now().Unix(),
		"data":    map[string]interface{}{"object": object},
	})
	return payload
}

// stubOrderRepo satisfies repository.OrderRepository with canned behaviour
// for the single order the webhook tests operate on.
type stubOrderRepo struct {
	mock.Mock
	order *model.Order
}

func (s *stubOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (s *stubOrderRepo) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error) {
	return false, nil
}
func (s *stubOrderRepo) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	return nil
}
func (s *stubOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	if s.order != nil && s.order.ID == id {
		return s.order, nil, nil
	}
	return nil, nil, nil
}
func (s *stubOrderRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, []model.OrderItem, error) {
	return nil, nil, nil
}
func (s *stubOrderRepo) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	return nil
}
func (s *stubOrderRepo) SetGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) error {
	return nil
}
func (s *stubOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	s.Called(ctx, id)
	if s.order != nil && s.order.ID == id && !s.order.IsPaid {
		s.order.IsPaid = true
		return true, nil
	}
	return false, nil
}
func (s *stubOrderRepo) FindByGatewaySession(ctx context.Context, sessionID string) (*model.Order, error) {
	if s.order != nil && s.order.GatewaySessionID != nil && *s.order.GatewaySessionID == sessionID {
		return s.order, nil
	}
	return nil, nil
}
func (s *stubOrderRepo) FindByUserAndExactDate(ctx context.Context, userID string, ts time.Time) ([]model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) FindByUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) FindUnpaidCardByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) FindUnpaidByUserAndAmount(ctx context.Context, userID string, amountCents int64) ([]model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) FindLatestUnpaidCardAny(ctx context.Context) (*model.Order, error) {
	return nil, nil
}

type stubCartRepo struct{}

func (stubCartRepo) GetCart(ctx context.Context, userID string) ([]model.CartItem, error) {
	return nil, nil
}
func (stubCartRepo) ReplaceCart(ctx context.Context, userID string, items []model.CartItem) error {
	return nil
}
func (stubCartRepo) ClearCart(ctx context.Context, userID string) error             { return nil }
func (stubCartRepo) AddWish(ctx context.Context, userID, productID string) error    { return nil }
func (stubCartRepo) RemoveWish(ctx context.Context, userID, productID string) error { return nil }
func (stubCartRepo) ListWishes(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

type stubGateway struct{}

func (stubGateway) CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	return nil, model.ErrPaymentGateway
}
func (stubGateway) SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*gateway.SessionInfo, error) {
	return nil, nil
}

type recordingPublisher struct {
	paid    []events.OrderPaidEvent
	reviews []events.ReviewEvent
}

func (p *recordingPublisher) PublishOrderPaid(ctx context.Context, evt events.OrderPaidEvent) error {
	p.paid = append(p.paid, evt)
	return nil
}

func (p *recordingPublisher) PublishReview(ctx context.Context, evt events.ReviewEvent) error {
	p.reviews = append(p.reviews, evt)
	return nil
}

func newWebhookHandler(repo *stubOrderRepo, publisher events.Publisher) *WebhookHandler {
	reconciler := payment.NewReconciler(repo, stubCartRepo{}, stubGateway{}, publisher, true, zerolog.Nop())
	return NewWebhookHandler(reconciler, testWebhookSecret, zerolog.Nop())
}

func postWebhook(t *testing.T, h *WebhookHandler, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	h.Receive(rec, req)
	return rec
}

func TestWebhook_RejectsInvalidSignature(t *testing.T) {
	repo := &stubOrderRepo{}
	h := newWebhookHandler(repo, &recordingPublisher{})

	payload := webhookEvent("payment_intent.succeeded", map[string]interface{}{
		"id": "pi_123",
	})

	rec := postWebhook(t, h, payload, signPayload(payload, "whsec_wrong_secret", time.Now()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.ErrCodeSignatureInvalid, resp.Code)
	repo.AssertNotCalled(t, "MarkPaid")
}

func TestWebhook_RejectsMissingSignature(t *testing.T) {
	repo := &stubOrderRepo{}
	h := newWebhookHandler(repo, &recordingPublisher{})

	payload := webhookEvent("payment_intent.succeeded", map[string]interface{}{"id": "pi_123"})
	rec := postWebhook(t, h, payload, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_RejectsTamperedPayload(t *testing.T) {
	repo := &stubOrderRepo{}
	h := newWebhookHandler(repo, &recordingPublisher{})

	payload := webhookEvent("payment_intent.succeeded", map[string]interface{}{"id": "pi_123"})
	signature := signPayload(payload, testWebhookSecret, time.Now())

	tampered := bytes.Replace(payload, []byte("pi_123"), []byte("pi_666"), 1)
	rec := postWebhook(t, h, tampered, signature)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_IntentSucceededMarksPaid(t *testing.T) {
	order := &model.Order{
		ID:          uuid.New(),
		UserID:      "user-1",
		PaymentType: model.PaymentCardGateway,
		AmountCents: 10200,
	}
	repo := &stubOrderRepo{order: order}
	repo.On("MarkPaid", mock.Anything, order.ID).Return()
	publisher := &recordingPublisher{}
	h := newWebhookHandler(repo, publisher)

	payload := webhookEvent("payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_123",
		"amount":   10200,
		"metadata": map[string]string{"orderId": order.ID.String(), "userId": "user-1"},
	})

	rec := postWebhook(t, h, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp model.ReconcileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Received)
	assert.True(t, resp.Updated)
	assert.Equal(t, order.ID.String(), resp.OrderID)
	assert.True(t, order.IsPaid)
	require.Len(t, publisher.paid, 1)
	assert.Equal(t, payment.MatchMetadata, publisher.paid[0].MatchedBy)
}

func TestWebhook_SessionCompletedPaid(t *testing.T) {
	sessionID := "cs_test_456"
	order := &model.Order{
		ID:               uuid.New(),
		UserID:           "user-1",
		PaymentType:      model.PaymentCardGateway,
		AmountCents:      10200,
		GatewaySessionID: &sessionID,
	}
	repo := &stubOrderRepo{order: order}
	repo.On("MarkPaid", mock.Anything, order.ID).Return()
	h := newWebhookHandler(repo, &recordingPublisher{})

	payload := webhookEvent("checkout.session.completed", map[string]interface{}{
		"id":             sessionID,
		"payment_status": "paid",
		"amount_total":   10200,
	})

	rec := postWebhook(t, h, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, order.IsPaid)
}

func TestWebhook_SessionCompletedUnpaidSkipped(t *testing.T) {
	sessionID := "cs_test_789"
	order := &model.Order{
		ID:               uuid.New(),
		UserID:           "user-1",
		PaymentType:      model.PaymentCardGateway,
		GatewaySessionID: &sessionID,
	}
	repo := &stubOrderRepo{order: order}
	h := newWebhookHandler(repo, &recordingPublisher{})

	payload := webhookEvent("checkout.session.completed", map[string]interface{}{
		"id":             sessionID,
		"payment_status": "unpaid",
	})

	rec := postWebhook(t, h, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, order.IsPaid)
	repo.AssertNotCalled(t, "MarkPaid")
}

func TestWebhook_MissStillAcknowledged(t *testing.T) {
	repo := &stubOrderRepo{}
	publisher := &recordingPublisher{}
	h := newWebhookHandler(repo, publisher)

	payload := webhookEvent("payment_intent.succeeded", map[string]interface{}{
		"id":     "pi_orphan",
		"amount": 500,
	})

	rec := postWebhook(t, h, payload, signPayload(payload, testWebhookSecret, time.Now()))

	// The signature passed, so the event is acknowledged even though no
	// order matched; the miss goes to the review queue instead of a retry.
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp model.ReconcileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Received)
	assert.False(t, resp.Updated)
	require.Len(t, publisher.reviews, 1)
	assert.Equal(t, "reconciliation_miss", publisher.reviews[0].Reason)
}

func TestWebhook_IntentCanceledNeverUnpays(t *testing.T) {
	order := &model.Order{
		ID:          uuid.New(),
		UserID:      "user-1",
		PaymentType: model.PaymentCardGateway,
		IsPaid:      true,
	}
	repo := &stubOrderRepo{order: order}
	h := newWebhookHandler(repo, &recordingPublisher{})

	payload := webhookEvent("payment_intent.canceled", map[string]interface{}{
		"id":       "pi_123",
		"metadata": map[string]string{"orderId": order.ID.String()},
	})

	rec := postWebhook(t, h, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, order.IsPaid)
	repo.AssertNotCalled(t, "MarkPaid")
}

func TestWebhook_UnknownEventTypeIgnored(t *testing.T) {
	repo := &stubOrderRepo{}
	h := newWebhookHandler(repo, &recordingPublisher{})

	payload := webhookEvent("customer.created", map[string]interface{}{"id": "cus_1"})
	rec := postWebhook(t, h, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp model.ReconcileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Received)
	assert.False(t, resp.Updated)

	// The ack for an unmatched event carries no order id at all.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "orderId")
	assert.NotContains(t, raw, "updated")
}
