package integration

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
	"shopfront/internal/handler"
	"shopfront/internal/identity"
	"shopfront/internal/media"
	"shopfront/internal/model"
	"shopfront/internal/payment"
	"shopfront/internal/repository"
	"shopfront/internal/router"
	"shopfront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_integration_test"

// tokenAuthenticator resolves fixed test tokens without an external provider.
type tokenAuthenticator struct{}

func (tokenAuthenticator) Verify(_ context.Context, token string) (identity.Identity, error) {
	switch token {
	case "customer-token":
		return identity.Identity{UserID: "user-1", Role: identity.RoleCustomer}, nil
	case "seller-token":
		return identity.Identity{UserID: "seller-1", Role: identity.RoleSeller}, nil
	}
	return identity.Identity{}, model.ErrUnauthorized
}

// fakeGateway hands out deterministic checkout sessions without calling out.
type fakeGateway struct {
	sessions int
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	g.sessions++
	id := fmt.Sprintf("cs_fake_%d", g.sessions)
	return &gateway.CheckoutSession{ID: id, RedirectURL: "https://pay.example/" + id}, nil
}

func (g *fakeGateway) SessionByPaymentIntent(_ context.Context, _ string) (*gateway.SessionInfo, error) {
	return nil, nil
}

type apiFixture struct {
	server *httptest.Server
	orders repository.OrderRepository
	carts  repository.CartRepository
}

func setupAPI(t *testing.T, testDB *TestDB) *apiFixture {
	t.Helper()

	logger := zerolog.Nop()

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(testDB.Pool, logger)
	addressRepo := repository.NewAddressRepository(testDB.Pool, logger)

	gw := &fakeGateway{}
	publisher := events.NopPublisher{}
	resolver := media.NewBaseResolver("")
	reconciler := payment.NewReconciler(orderRepo, cartRepo, gw, publisher, true, logger)

	productService := service.NewProductService(productRepo, resolver, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, addressRepo, cartRepo, gw, publisher, nil, 0, logger)
	cartService := service.NewCartService(cartRepo, productRepo, resolver, logger)
	addressService := service.NewAddressService(addressRepo, logger)

	mux := router.New(
		handler.NewProductHandler(productService, logger),
		handler.NewOrderHandler(orderService, logger),
		handler.NewCartHandler(cartService, logger),
		handler.NewAddressHandler(addressService, logger),
		handler.NewWebhookHandler(reconciler, webhookSecret, logger),
		handler.NewAdminHandler(reconciler, logger),
		tokenAuthenticator{},
		logger,
	)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, orders: orderRepo, carts: cartRepo}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) postSignedWebhook(t *testing.T, payload []byte) *http.Response {
	t.Helper()

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	signature := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/webhooks/payment", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Stripe-Signature", signature)

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeOrderResponse(t *testing.T, resp *http.Response) model.OrderResponse {
	t.Helper()
	defer resp.Body.Close()

	var out model.OrderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPI_CardCheckoutLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	fixture := setupAPI(t, testDB)
	ctx := context.Background()

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)
	addrID := seedAddress(t, testDB.Pool, "user-1")

	// Fill the cart first so the post-payment clear is observable.
	resp := fixture.do(t, http.MethodPut, "/api/cart", "customer-token", model.CartRequest{
		Items: []model.CartItemRequest{{ProductID: "P001", Quantity: 2}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Place a card order: P001 x2 = 2000 cents, 2% tax = 40.
	resp = fixture.do(t, http.MethodPost, "/api/orders", "customer-token", model.OrderRequest{
		AddressID:   addrID.String(),
		PaymentType: model.PaymentCardGateway,
		Items:       []model.OrderItemRequest{{ProductID: "P001", Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeOrderResponse(t, resp)
	require.NotNil(t, created.Order)
	assert.Equal(t, int64(2040), created.Order.AmountCents)
	assert.False(t, created.Order.IsPaid)
	assert.NotEmpty(t, created.RedirectURL)

	// The cart must survive until payment confirms.
	cart, err := fixture.carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart, 1)

	// The gateway reports the session paid.
	payload, _ := json.Marshal(map[string]any{
		"id":      "evt_1",
		"type":    "checkout.session.completed",
		"created": time.Now().Unix(),
		"data": map[string]any{"object": map[string]any{
			"id":             "cs_fake_1",
			"payment_status": "paid",
			"amount_total":   2040,
			"metadata":       map[string]string{"orderId": created.Order.ID.String(), "userId": "user-1"},
		}},
	})
	resp = fixture.postSignedWebhook(t, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var webhookResp model.ReconcileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&webhookResp))
	resp.Body.Close()
	assert.True(t, webhookResp.Received)
	assert.True(t, webhookResp.Updated)
	assert.Equal(t, created.Order.ID.String(), webhookResp.OrderID)

	// Order paid, cart cleared.
	order, _, err := fixture.orders.GetByID(ctx, created.Order.ID)
	require.NoError(t, err)
	assert.True(t, order.IsPaid)

	cart, err = fixture.carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart)

	// A duplicate delivery is acknowledged but changes nothing.
	resp = fixture.postSignedWebhook(t, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&webhookResp))
	resp.Body.Close()
	assert.True(t, webhookResp.Received)
	assert.False(t, webhookResp.Updated)
}

func TestAPI_CODOrderConfirmsImmediately(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	fixture := setupAPI(t, testDB)
	ctx := context.Background()

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)
	addrID := seedAddress(t, testDB.Pool, "user-1")

	resp := fixture.do(t, http.MethodPut, "/api/cart", "customer-token", model.CartRequest{
		Items: []model.CartItemRequest{{ProductID: "P002", Quantity: 1}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = fixture.do(t, http.MethodPost, "/api/orders", "customer-token", model.OrderRequest{
		AddressID:   addrID.String(),
		PaymentType: model.PaymentCOD,
		Items:       []model.OrderItemRequest{{ProductID: "P002", Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeOrderResponse(t, resp)
	assert.True(t, created.Order.IsPaid)
	assert.Empty(t, created.RedirectURL)

	cart, err := fixture.carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func TestAPI_IdempotentOrderCreation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	fixture := setupAPI(t, testDB)

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)
	addrID := seedAddress(t, testDB.Pool, "user-1")

	body := model.OrderRequest{
		AddressID:   addrID.String(),
		PaymentType: model.PaymentCOD,
		Items:       []model.OrderItemRequest{{ProductID: "P001", Quantity: 1}},
	}

	send := func() model.OrderResponse {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		req, err := http.NewRequest(http.MethodPost, fixture.server.URL+"/api/orders", &buf)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer customer-token")
		req.Header.Set("Idempotency-Key", "retry-key-99")

		resp, err := fixture.server.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		return decodeOrderResponse(t, resp)
	}

	first := send()
	second := send()

	assert.Equal(t, first.Order.ID, second.Order.ID)
}

func TestAPI_AuthAndRoles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	fixture := setupAPI(t, testDB)

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)

	// No token.
	resp := fixture.do(t, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Customer cannot hit seller routes.
	resp = fixture.do(t, http.MethodPost, "/api/admin/orders/"+uuid.NewString()+"/reconcile", "customer-token", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Seller replaying an unknown order gets a 404.
	resp = fixture.do(t, http.MethodPost, "/api/admin/orders/"+uuid.NewString()+"/reconcile", "seller-token", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_ManualReconcileReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	fixture := setupAPI(t, testDB)
	ctx := context.Background()

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)
	addrID := seedAddress(t, testDB.Pool, "user-1")

	// An unpaid card order whose webhook never arrived.
	resp := fixture.do(t, http.MethodPost, "/api/orders", "customer-token", model.OrderRequest{
		AddressID:   addrID.String(),
		PaymentType: model.PaymentCardGateway,
		Items:       []model.OrderItemRequest{{ProductID: "P003", Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeOrderResponse(t, resp)

	resp = fixture.do(t, http.MethodPost, "/api/admin/orders/"+created.Order.ID.String()+"/reconcile", "seller-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out model.ReconcileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.True(t, out.Updated)

	order, _, err := fixture.orders.GetByID(ctx, created.Order.ID)
	require.NoError(t, err)
	assert.True(t, order.IsPaid)
}
