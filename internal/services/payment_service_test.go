package services_test

import (
	"fmt"
	"testing"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/gateway"
	"fulfillment/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentService_InitiatePayment(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)

	env.gateway.On("Initiate", 25.0, models.MethodCard, order.OrderNumber).
		Return(&gateway.InitiateResult{TransactionID: "txn-1"}, nil).Once()

	payment, handle, err := env.paymentService.InitiatePayment(order.ID, models.MethodCard, customerActor)

	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, order.TotalAmount, payment.Amount)
	assert.Equal(t, "txn-1", payment.ExternalTransactionID)
	assert.Equal(t, "txn-1", handle.TransactionID)
	env.gateway.AssertExpectations(t)
}

func TestPaymentService_InitiatePayment_Rejections(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)

	// Not the owner.
	_, _, err := env.paymentService.InitiatePayment(order.ID, models.MethodCard, otherCustomer)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Unknown method.
	_, _, err = env.paymentService.InitiatePayment(order.ID, models.PaymentMethod("CHEQUE"), customerActor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentState)

	// Payment already exists in a non-FAILED state.
	env.seedPayment(t, order, models.PaymentPending)
	_, _, err = env.paymentService.InitiatePayment(order.ID, models.MethodCard, customerActor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentState)

	// Order not PENDING.
	other := env.placeOrder(t, customerActor)
	env.forceOrderStatus(t, other.ID, models.OrderProcessing)
	_, _, err = env.paymentService.InitiatePayment(other.ID, models.MethodCard, customerActor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentState)
}

func TestPaymentService_InitiatePayment_GatewayFailure(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)

	env.gateway.On("Initiate", 25.0, models.MethodCard, order.OrderNumber).
		Return(nil, fmt.Errorf("connection reset")).Once()

	_, _, err := env.paymentService.InitiatePayment(order.ID, models.MethodCard, customerActor)

	assert.ErrorIs(t, err, apperrors.ErrPaymentProcessing)
	// No payment row was written for the failed gateway call.
	_, err = env.payments.GetByOrderID(order.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPaymentService_InitiatePayment_RetryAfterFailure(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentFailed)

	env.gateway.On("Initiate", 25.0, models.MethodPaypal, order.OrderNumber).
		Return(&gateway.InitiateResult{TransactionID: "txn-retry"}, nil).Once()

	retried, _, err := env.paymentService.InitiatePayment(order.ID, models.MethodPaypal, customerActor)

	require.NoError(t, err)
	assert.Equal(t, payment.ID, retried.ID, "retry reuses the existing payment row")
	assert.Equal(t, models.PaymentPending, retried.Status)
	assert.Equal(t, "txn-retry", retried.ExternalTransactionID)
}

func TestPaymentService_ApplyGatewayEvent_Success(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentPending)

	applied, err := env.paymentService.ApplyGatewayEvent(models.GatewayEvent{
		EventID:               "evt1",
		ExternalTransactionID: payment.ExternalTransactionID,
		ResultStatus:          "SUCCESS",
	})

	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, applied.Status)

	// A successful payment advances the order automatically.
	current, err := env.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, current.Status)
}

func TestPaymentService_ApplyGatewayEvent_Idempotent(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentPending)

	event := models.GatewayEvent{
		EventID:               "evt1",
		ExternalTransactionID: payment.ExternalTransactionID,
		ResultStatus:          "SUCCESS",
	}
	_, err := env.paymentService.ApplyGatewayEvent(event)
	require.NoError(t, err)

	// Redelivery of the same event is a ledger-detected no-op.
	_, err = env.paymentService.ApplyGatewayEvent(event)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEvent)

	applied, err := env.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, applied.Status)
	current, err := env.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, current.Status)
}

func TestPaymentService_ApplyGatewayEvent_SuccessResendUnderFreshEventID(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentPending)

	_, err := env.paymentService.ApplyGatewayEvent(models.GatewayEvent{
		EventID:               "evt1",
		ExternalTransactionID: payment.ExternalTransactionID,
		ResultStatus:          "SUCCESS",
	})
	require.NoError(t, err)

	// Same terminal status under a new event id: applied as a no-op, the
	// order does not move again.
	applied, err := env.paymentService.ApplyGatewayEvent(models.GatewayEvent{
		EventID:               "evt2",
		ExternalTransactionID: payment.ExternalTransactionID,
		ResultStatus:          "SUCCESS",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, applied.Status)
	current, err := env.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, current.Status)
}

func TestPaymentService_ApplyGatewayEvent_SuccessOnCancelledOrder(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentPending)

	// The customer cancels while the gateway confirmation is in flight.
	_, err := env.orderService.CancelOrder(order.ID, customerActor)
	require.NoError(t, err)

	// The late SUCCESS is applied to the payment and flagged for manual
	// reconciliation; the cancelled order never moves again.
	applied, err := env.paymentService.ApplyGatewayEvent(models.GatewayEvent{
		EventID:               "evt-late",
		ExternalTransactionID: payment.ExternalTransactionID,
		ResultStatus:          "SUCCESS",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, applied.Status)

	current, err := env.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, current.Status)
}

func TestPaymentService_ApplyGatewayEvent_Failed(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentPending)

	applied, err := env.paymentService.ApplyGatewayEvent(models.GatewayEvent{
		EventID:               "evt-fail",
		ExternalTransactionID: payment.ExternalTransactionID,
		ResultStatus:          "FAILED",
	})

	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, applied.Status)

	// The order stays PENDING so the customer can retry initiation.
	current, err := env.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, current.Status)
}

func TestPaymentService_ApplyGatewayEvent_ResolvesByOrderCorrelation(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	env.seedPayment(t, order, models.PaymentPending)

	applied, err := env.paymentService.ApplyGatewayEvent(models.GatewayEvent{
		EventID:            "evt-corr",
		OrderCorrelationID: order.OrderNumber,
		ResultStatus:       "SUCCESS",
	})

	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, applied.Status)
}

func TestPaymentService_ApplyGatewayEvent_UnresolvedPayment(t *testing.T) {
	env := newTestEnv()

	_, err := env.paymentService.ApplyGatewayEvent(models.GatewayEvent{
		EventID:               "evt-ghost",
		ExternalTransactionID: "txn-ghost",
		ResultStatus:          "SUCCESS",
	})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPaymentService_ApplyGatewayEvent_DisallowedStatusKeepsEventRetryable(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentPending)

	// An unsolicited REFUNDED webhook is rejected, not applied.
	_, err := env.paymentService.ApplyGatewayEvent(models.GatewayEvent{
		EventID:               "evt-refund",
		ExternalTransactionID: payment.ExternalTransactionID,
		ResultStatus:          "REFUNDED",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentState)

	// The event id was not burned in the ledger, so a corrected resend of
	// the same id can still be applied.
	seen, err := env.ledger.Seen(models.ProviderPaymentGateway, "evt-refund")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestPaymentService_Refund(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentSuccess)

	// Admin-only.
	_, err := env.paymentService.Refund(order.ID, customerActor)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	env.gateway.On("Refund", payment.ExternalTransactionID, 25.0).Return(nil).Once()

	refunded, err := env.paymentService.Refund(order.ID, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.Status)
	assert.Equal(t, 25.0, refunded.RefundedAmount)
	env.gateway.AssertExpectations(t)
}

func TestPaymentService_Refund_RequiresSuccess(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	env.seedPayment(t, order, models.PaymentPending)

	_, err := env.paymentService.Refund(order.ID, adminActor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentState)
}

func TestPaymentService_Refund_GatewayFailureLeavesSuccess(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentSuccess)

	env.gateway.On("Refund", payment.ExternalTransactionID, 25.0).Return(fmt.Errorf("gateway down")).Once()

	_, err := env.paymentService.Refund(order.ID, adminActor)
	assert.ErrorIs(t, err, apperrors.ErrRefundFailed)

	untouched, err := env.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, untouched.Status)
	assert.Equal(t, 0.0, untouched.RefundedAmount)
}
