package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopfront/internal/events"
	"shopfront/internal/gateway"
	"shopfront/internal/identity"
	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error) {
	args := m.Called(ctx, tx, order)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) SetGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) error {
	args := m.Called(ctx, id, sessionID)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) FindByGatewaySession(ctx context.Context, sessionID string) (*model.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUserAndExactDate(ctx context.Context, userID string, ts time.Time) ([]model.Order, error) {
	args := m.Called(ctx, userID, ts)
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]model.Order, error) {
	args := m.Called(ctx, userID, from, to)
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindUnpaidCardByUser(ctx context.Context, userID string) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindUnpaidByUserAndAmount(ctx context.Context, userID string, amountCents int64) ([]model.Order, error) {
	args := m.Called(ctx, userID, amountCents)
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindLatestUnpaidCardAny(ctx context.Context) (*model.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, category string, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, category, limit, offset)
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) ValidateProductsExist(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// MockAddressRepository is a mock implementation of AddressRepository.
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) Create(ctx context.Context, address *model.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockAddressRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

func (m *MockAddressRepository) ListByUser(ctx context.Context, userID string) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Address), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetCart(ctx context.Context, userID string) ([]model.CartItem, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.CartItem), args.Error(1)
}

func (m *MockCartRepository) ReplaceCart(ctx context.Context, userID string, items []model.CartItem) error {
	args := m.Called(ctx, userID, items)
	return args.Error(0)
}

func (m *MockCartRepository) ClearCart(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockCartRepository) AddWish(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockCartRepository) RemoveWish(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockCartRepository) ListWishes(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

// MockGateway is a mock implementation of gateway.Client.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CheckoutSession), args.Error(1)
}

func (m *MockGateway) SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*gateway.SessionInfo, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SessionInfo), args.Error(1)
}

// MockPublisher is a mock implementation of events.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderPaid(ctx context.Context, evt events.OrderPaidEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockPublisher) PublishReview(ctx context.Context, evt events.ReviewEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// MockPromoValidator is a mock implementation of promo.Validator.
type MockPromoValidator struct {
	mock.Mock
}

func (m *MockPromoValidator) Validate(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockPromoValidator) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

type orderServiceMocks struct {
	orders    *MockOrderRepository
	products  *MockProductRepository
	addresses *MockAddressRepository
	carts     *MockCartRepository
	gw        *MockGateway
	publisher *MockPublisher
	promo     *MockPromoValidator
	tx        *MockTx
}

func newOrderService(t *testing.T) (OrderService, *orderServiceMocks) {
	t.Helper()
	m := &orderServiceMocks{
		orders:    new(MockOrderRepository),
		products:  new(MockProductRepository),
		addresses: new(MockAddressRepository),
		carts:     new(MockCartRepository),
		gw:        new(MockGateway),
		publisher: new(MockPublisher),
		promo:     new(MockPromoValidator),
		tx:        new(MockTx),
	}
	svc := NewOrderService(m.orders, m.products, m.addresses, m.carts, m.gw, m.publisher, m.promo, 1000, zerolog.Nop())
	return svc, m
}

var (
	testCaller  = identity.Identity{UserID: "user-1", Role: identity.RoleCustomer}
	testSeller  = identity.Identity{UserID: "seller-1", Role: identity.RoleSeller}
	testAddrID  = uuid.New()
	testProduct = model.Product{ID: "P001", Name: "Keyboard", PriceCents: 5000, Category: "Peripherals"}
)

func testAddress() *model.Address {
	return &model.Address{ID: testAddrID, UserID: "user-1", Line1: "1 High St", City: "Sydney", State: "NSW", PostCode: "2000", Country: "AU"}
}

func codRequest() *model.OrderRequest {
	return &model.OrderRequest{
		AddressID:   testAddrID.String(),
		PaymentType: model.PaymentCOD,
		Items: []model.OrderItemRequest{
			{ProductID: "P001", Quantity: 2},
		},
	}
}

func cardRequest() *model.OrderRequest {
	req := codRequest()
	req.PaymentType = model.PaymentCardGateway
	return req
}

func TestOrderService_Create_COD(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	m.addresses.On("GetByID", ctx, testAddrID).Return(testAddress(), nil)
	m.products.On("GetByIDs", ctx, []string{"P001"}).Return([]model.Product{testProduct}, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.AnythingOfType("*model.Order")).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.carts.On("ClearCart", ctx, "user-1").Return(nil)
	m.publisher.On("PublishOrderPaid", ctx, mock.AnythingOfType("events.OrderPaidEvent")).Return(nil)

	resp, err := svc.Create(ctx, testCaller, codRequest())

	require.NoError(t, err)
	require.NotNil(t, resp.Order)
	assert.True(t, resp.Order.IsPaid)
	assert.Equal(t, model.StatusPlaced, resp.Order.Status)
	// 2 * 5000 = 10000 subtotal, 2% tax = 200
	assert.Equal(t, int64(10200), resp.Order.AmountCents)
	assert.Empty(t, resp.RedirectURL)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(5000), resp.Items[0].UnitPriceCents)

	m.orders.AssertExpectations(t)
	m.carts.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
	m.gw.AssertNotCalled(t, "CreateCheckoutSession")
}

func TestOrderService_Create_Card(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	m.addresses.On("GetByID", ctx, testAddrID).Return(testAddress(), nil)
	m.products.On("GetByIDs", ctx, []string{"P001"}).Return([]model.Product{testProduct}, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.AnythingOfType("*model.Order")).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.gw.On("CreateCheckoutSession", ctx, mock.AnythingOfType("gateway.CheckoutRequest")).
		Return(&gateway.CheckoutSession{ID: "cs_123", RedirectURL: "https://pay.example/cs_123"}, nil)
	m.orders.On("SetGatewaySession", ctx, mock.AnythingOfType("uuid.UUID"), "cs_123").Return(nil)

	resp, err := svc.Create(ctx, testCaller, cardRequest())

	require.NoError(t, err)
	assert.False(t, resp.Order.IsPaid)
	assert.Equal(t, "https://pay.example/cs_123", resp.RedirectURL)

	// The cart survives until the paid webhook lands.
	m.carts.AssertNotCalled(t, "ClearCart")
	m.publisher.AssertNotCalled(t, "PublishOrderPaid")
	m.gw.AssertExpectations(t)
}

func TestOrderService_Create_GatewayFailureLeavesOrderUnpaid(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	m.addresses.On("GetByID", ctx, testAddrID).Return(testAddress(), nil)
	m.products.On("GetByIDs", ctx, []string{"P001"}).Return([]model.Product{testProduct}, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.AnythingOfType("*model.Order")).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.gw.On("CreateCheckoutSession", ctx, mock.AnythingOfType("gateway.CheckoutRequest")).
		Return(nil, errors.New("gateway timeout"))

	resp, err := svc.Create(ctx, testCaller, cardRequest())

	assert.ErrorIs(t, err, model.ErrPaymentGateway)
	assert.Nil(t, resp)

	// The committed order row stays unpaid; no session binding, no cart
	// clear, no paid event.
	m.orders.AssertNotCalled(t, "SetGatewaySession")
	m.orders.AssertNotCalled(t, "MarkPaid")
	m.carts.AssertNotCalled(t, "ClearCart")
	m.publisher.AssertNotCalled(t, "PublishOrderPaid")
}

func TestOrderService_Create_IdempotencyKeyReplay(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	existing := &model.Order{ID: uuid.New(), UserID: "user-1", AmountCents: 10200, IsPaid: true}
	items := []model.OrderItem{{ProductID: "P001", Quantity: 2, UnitPriceCents: 5000}}

	req := codRequest()
	req.IdempotencyKey = "key-abc"

	m.orders.On("GetByIdempotencyKey", ctx, "user-1", "key-abc").Return(existing, items, nil)

	resp, err := svc.Create(ctx, testCaller, req)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, resp.Order.ID)
	assert.Equal(t, items, resp.Items)

	m.orders.AssertNotCalled(t, "BeginTx")
	m.orders.AssertNotCalled(t, "CreateOrder")
}

func TestOrderService_Create_IdempotencyKeyRaceLoserGetsOriginal(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	winner := &model.Order{ID: uuid.New(), UserID: "user-1", AmountCents: 10200, IsPaid: true}
	winnerItems := []model.OrderItem{{ProductID: "P001", Quantity: 2, UnitPriceCents: 5000}}

	req := codRequest()
	req.IdempotencyKey = "key-race"

	// The key is free at the pre-check, but a concurrent request inserts it
	// before this one reaches the conditional insert.
	m.orders.On("GetByIdempotencyKey", ctx, "user-1", "key-race").Return(nil, nil, nil).Once()
	m.addresses.On("GetByID", ctx, testAddrID).Return(testAddress(), nil)
	m.products.On("GetByIDs", ctx, []string{"P001"}).Return([]model.Product{testProduct}, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.AnythingOfType("*model.Order")).Return(false, nil)
	m.tx.On("Rollback", ctx).Return(nil)
	m.orders.On("GetByIdempotencyKey", ctx, "user-1", "key-race").Return(winner, winnerItems, nil).Once()

	resp, err := svc.Create(ctx, testCaller, req)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, resp.Order.ID)
	assert.Equal(t, winnerItems, resp.Items)

	m.orders.AssertNotCalled(t, "CreateOrderItems")
	m.tx.AssertNotCalled(t, "Commit")
	m.carts.AssertNotCalled(t, "ClearCart")
	m.publisher.AssertNotCalled(t, "PublishOrderPaid")
	m.orders.AssertExpectations(t)
}

func TestOrderService_Create_PromoApplied(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	code := "SAVENOW10"
	req := codRequest()
	req.PromoCode = &code

	m.promo.On("Validate", ctx, code).Return(nil)
	m.addresses.On("GetByID", ctx, testAddrID).Return(testAddress(), nil)
	m.products.On("GetByIDs", ctx, []string{"P001"}).Return([]model.Product{testProduct}, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.AnythingOfType("*model.Order")).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.carts.On("ClearCart", ctx, "user-1").Return(nil)
	m.publisher.On("PublishOrderPaid", ctx, mock.AnythingOfType("events.OrderPaidEvent")).Return(nil)

	resp, err := svc.Create(ctx, testCaller, req)

	require.NoError(t, err)
	// 10000 subtotal, 10% promo = 1000 off, 2% tax on 9000 = 180.
	assert.Equal(t, int64(9180), resp.Order.AmountCents)
	m.promo.AssertExpectations(t)
}

func TestOrderService_Create_InvalidPromo(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	code := "BADCODE99"
	req := codRequest()
	req.PromoCode = &code

	m.promo.On("Validate", ctx, code).Return(model.ErrInvalidPromoCode)

	resp, err := svc.Create(ctx, testCaller, req)

	assert.ErrorIs(t, err, model.ErrInvalidPromoCode)
	assert.Nil(t, resp)
	m.orders.AssertNotCalled(t, "BeginTx")
}

func TestOrderService_Create_AddressNotOwned(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	other := testAddress()
	other.UserID = "someone-else"
	m.addresses.On("GetByID", ctx, testAddrID).Return(other, nil)

	resp, err := svc.Create(ctx, testCaller, codRequest())

	assert.ErrorIs(t, err, model.ErrAddressNotFound)
	assert.Nil(t, resp)
	m.orders.AssertNotCalled(t, "BeginTx")
}

func TestOrderService_Create_InvalidQuantity(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	req := codRequest()
	req.Items[0].Quantity = 0

	resp, err := svc.Create(ctx, testCaller, req)

	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	assert.Nil(t, resp)
	m.addresses.AssertNotCalled(t, "GetByID")
}

func TestOrderService_Create_EmptyItems(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderService(t)

	req := codRequest()
	req.Items = nil

	_, err := svc.Create(ctx, testCaller, req)
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}

func TestOrderService_GetByID_OwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	order := &model.Order{ID: uuid.New(), UserID: "someone-else"}
	m.orders.On("GetByID", ctx, order.ID).Return(order, []model.OrderItem{}, nil)

	_, err := svc.GetByID(ctx, testCaller, order.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	// A seller can read anyone's order.
	resp, err := svc.GetByID(ctx, testSeller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, resp.Order.ID)
}

func TestOrderService_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	id := uuid.New()
	m.orders.On("GetByID", ctx, id).Return(nil, nil, nil)

	_, err := svc.GetByID(ctx, testCaller, id)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderService_UpdateStatus_InvalidStatus(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	err := svc.UpdateStatus(ctx, uuid.New(), model.OrderStatus("Teleported"))
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
	m.orders.AssertNotCalled(t, "UpdateStatus")
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderService(t)

	id := uuid.New()
	m.orders.On("UpdateStatus", ctx, id, model.StatusShipped).Return(nil)

	require.NoError(t, svc.UpdateStatus(ctx, id, model.StatusShipped))
	m.orders.AssertExpectations(t)
}
