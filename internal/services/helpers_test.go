package services_test

import (
	"testing"

	"fulfillment/internal/gateway"
	"fulfillment/internal/models"
	"fulfillment/internal/repositories"
	"fulfillment/internal/services"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Actors shared by the service tests.
var (
	customerActor = models.Actor{ID: "cust-1", Role: models.RoleCustomer}
	otherCustomer = models.Actor{ID: "cust-2", Role: models.RoleCustomer}
	sellerActor   = models.Actor{ID: "seller-1", Role: models.RoleSeller}
	adminActor    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

// MockPaymentGateway is a mock implementation of gateway.PaymentGateway.
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Initiate(amount float64, method models.PaymentMethod, orderRef string) (*gateway.InitiateResult, error) {
	args := m.Called(amount, method, orderRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InitiateResult), args.Error(1)
}

func (m *MockPaymentGateway) Refund(transactionID string, amount float64) error {
	args := m.Called(transactionID, amount)
	return args.Error(0)
}

// MockShippingCarrier is a mock implementation of gateway.ShippingCarrier.
type MockShippingCarrier struct {
	mock.Mock
}

func (m *MockShippingCarrier) CreateShipment(from, to models.Address, parcel gateway.Parcel, carrierCode string) (*gateway.ShipmentBooking, error) {
	args := m.Called(from, to, parcel, carrierCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ShipmentBooking), args.Error(1)
}

// testEnv wires all services over in-memory repositories and mocked
// external collaborators.
type testEnv struct {
	orders    *repositories.MockOrderRepository
	payments  *repositories.MockPaymentRepository
	shipments *repositories.MockShipmentRepository
	returns   *repositories.MockReturnRepository
	ledger    *repositories.MockWebhookLedger
	gateway   *MockPaymentGateway
	carrier   *MockShippingCarrier

	orderService    *services.OrderService
	paymentService  *services.PaymentService
	shipmentService *services.ShipmentService
	returnService   *services.ReturnService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		orders:    repositories.NewMockOrderRepository(),
		payments:  repositories.NewMockPaymentRepository(),
		shipments: repositories.NewMockShipmentRepository(),
		returns:   repositories.NewMockReturnRepository(),
		ledger:    repositories.NewMockWebhookLedger(),
		gateway:   new(MockPaymentGateway),
		carrier:   new(MockShippingCarrier),
	}
	origin := models.Address{Line1: "1 Warehouse Rd", City: "Springfield", PostalCode: "00001", Country: "US"}
	env.orderService = services.NewOrderService(env.orders, env.payments, env.shipments, env.gateway, nil)
	env.paymentService = services.NewPaymentService(env.payments, env.orders, env.ledger, env.gateway, nil)
	env.shipmentService = services.NewShipmentService(env.shipments, env.orders, env.ledger, env.carrier, origin, nil)
	env.returnService = services.NewReturnService(env.returns, env.orders, env.payments, env.gateway, nil)
	return env
}

func testAddress() models.Address {
	return models.Address{Line1: "42 Elm St", City: "Springfield", PostalCode: "12345", Country: "US"}
}

// placeOrder creates the canonical test order: $10 x2 plus $5 x1, total $25.
func (e *testEnv) placeOrder(t *testing.T, actor models.Actor) *models.Order {
	t.Helper()
	order, err := e.orderService.CreateOrder(services.CreateOrderInput{
		SellerID: sellerActor.ID,
		Items: []services.OrderItemInput{
			{ProductID: "prod-1", Quantity: 2, Price: 10.0},
			{ProductID: "prod-2", Quantity: 1, Price: 5.0},
		},
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
	}, actor)
	require.NoError(t, err)
	return order
}

// forceOrderStatus walks the order along the given statuses through the
// repository, bypassing service rules, to set up test preconditions.
func (e *testEnv) forceOrderStatus(t *testing.T, orderID string, statuses ...models.OrderStatus) {
	t.Helper()
	for _, status := range statuses {
		order, err := e.orders.GetByID(orderID)
		require.NoError(t, err)
		require.NoError(t, e.orders.UpdateStatus(orderID, status, order.Version))
	}
}

// seedPayment stores a payment for the order directly in the repository.
func (e *testEnv) seedPayment(t *testing.T, order *models.Order, status models.PaymentStatus) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		OrderID:               order.ID,
		Method:                models.MethodCard,
		Status:                status,
		ExternalTransactionID: "txn-" + order.ID,
		Amount:                order.TotalAmount,
	}
	require.NoError(t, e.payments.Create(payment))
	return payment
}

// seedShipment stores a shipment for the order directly in the repository.
func (e *testEnv) seedShipment(t *testing.T, order *models.Order, status models.ShipmentStatus, tracking string) *models.Shipment {
	t.Helper()
	shipment := &models.Shipment{
		OrderID:        order.ID,
		CarrierCode:    "ups",
		TrackingNumber: tracking,
		Status:         status,
	}
	require.NoError(t, e.shipments.Create(shipment))
	return shipment
}
