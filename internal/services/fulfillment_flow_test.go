package services_test

import (
	"testing"

	"fulfillment/internal/gateway"
	"fulfillment/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestFulfillmentLifecycle walks one order through the whole engine:
// placement, payment, shipping, delivery, and a completed item return.
func TestFulfillmentLifecycle(t *testing.T) {
	env := newTestEnv()

	// Customer places the order.
	order := env.placeOrder(t, customerActor)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 25.0, order.TotalAmount)

	// Customer initiates payment.
	env.gateway.On("Initiate", 25.0, models.MethodCard, order.OrderNumber).
		Return(&gateway.InitiateResult{TransactionID: "txn-flow", RedirectURL: "https://pay.test/txn-flow"}, nil).Once()
	payment, handle, err := env.paymentService.InitiatePayment(order.ID, models.MethodCard, customerActor)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.NotEmpty(t, handle.RedirectURL)

	// The gateway confirms asynchronously; the order starts PROCESSING.
	payment, err = env.paymentService.ApplyGatewayEvent(models.GatewayEvent{
		EventID:               "flow-pay-1",
		ExternalTransactionID: "txn-flow",
		ResultStatus:          "SUCCESS",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, payment.Status)
	current, err := env.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, current.Status)

	// Seller books the shipment.
	env.carrier.On("CreateShipment", mock.Anything, order.ShippingAddress, gateway.Parcel{Pieces: 3}, "dhl").
		Return(&gateway.ShipmentBooking{TrackingNumber: "DHL-FLOW", LabelURL: "https://labels.test/DHL-FLOW"}, nil).Once()
	shipment, err := env.shipmentService.CreateShipment(order.ID, "dhl", sellerActor)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentCreated, shipment.Status)

	// The carrier reports movement, then delivery.
	_, err = env.shipmentService.ApplyCarrierEvent(models.CarrierEvent{
		EventID: "flow-ship-1", TrackingNumber: "DHL-FLOW", CarrierStatus: "in_transit",
	})
	require.NoError(t, err)
	current, err = env.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, current.Status)

	_, err = env.shipmentService.ApplyCarrierEvent(models.CarrierEvent{
		EventID: "flow-ship-2", TrackingNumber: "DHL-FLOW", CarrierStatus: "delivered",
	})
	require.NoError(t, err)
	current, err = env.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, current.Status)

	// Customer returns the $5 item; admin approves and completes it.
	request, err := env.returnService.CreateReturnRequest(order.Items[1].ID, "wrong color", customerActor)
	require.NoError(t, err)
	_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnApproved, "return label sent", adminActor)
	require.NoError(t, err)

	env.gateway.On("Refund", "txn-flow", 5.0).Return(nil).Once()
	request, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnCompleted, "item received", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnCompleted, request.Status)

	// The refund is partial, so the payment stays SUCCESS.
	payment, err = env.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, payment.Status)
	assert.InDelta(t, 5.0, payment.RefundedAmount, 1e-9)

	env.gateway.AssertExpectations(t)
	env.carrier.AssertExpectations(t)
}
