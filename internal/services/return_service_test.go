package services_test

import (
	"fmt"
	"testing"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/models"
	"fulfillment/internal/repositories"
	"fulfillment/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deliveredOrder places the canonical order and walks it to DELIVERED with
// a SUCCESS payment, ready for return-flow tests.
func deliveredOrder(t *testing.T, env *testEnv) (*models.Order, *models.Payment) {
	t.Helper()
	order := env.placeOrder(t, customerActor)
	payment := env.seedPayment(t, order, models.PaymentSuccess)
	env.forceOrderStatus(t, order.ID,
		models.OrderProcessing, models.OrderShipped, models.OrderDelivered)
	return order, payment
}

func TestReturnService_CreateReturnRequest(t *testing.T) {
	env := newTestEnv()
	order, _ := deliveredOrder(t, env)

	request, err := env.returnService.CreateReturnRequest(order.Items[0].ID, "damaged on arrival", customerActor)

	require.NoError(t, err)
	assert.Equal(t, models.ReturnRequested, request.Status)
	assert.Equal(t, order.Items[0].ID, request.OrderItemID)
	assert.Equal(t, customerActor.ID, request.CustomerID)
}

func TestReturnService_CreateReturnRequest_RequiresDelivered(t *testing.T) {
	env := newTestEnv()
	order := env.placeOrder(t, customerActor)
	env.forceOrderStatus(t, order.ID, models.OrderProcessing, models.OrderShipped)

	_, err := env.returnService.CreateReturnRequest(order.Items[0].ID, "changed my mind", customerActor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
}

func TestReturnService_CreateReturnRequest_RequiresOwner(t *testing.T) {
	env := newTestEnv()
	order, _ := deliveredOrder(t, env)

	_, err := env.returnService.CreateReturnRequest(order.Items[0].ID, "not mine", otherCustomer)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestReturnService_CreateReturnRequest_UnknownItem(t *testing.T) {
	env := newTestEnv()

	_, err := env.returnService.CreateReturnRequest("item-ghost", "whatever", customerActor)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReturnService_CreateReturnRequest_OneOpenPerItem(t *testing.T) {
	env := newTestEnv()
	order, _ := deliveredOrder(t, env)

	_, err := env.returnService.CreateReturnRequest(order.Items[0].ID, "damaged", customerActor)
	require.NoError(t, err)

	_, err = env.returnService.CreateReturnRequest(order.Items[0].ID, "damaged again", customerActor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
}

func TestReturnService_CreateReturnRequest_AllowedAfterRejection(t *testing.T) {
	env := newTestEnv()
	order, _ := deliveredOrder(t, env)

	first, err := env.returnService.CreateReturnRequest(order.Items[0].ID, "damaged", customerActor)
	require.NoError(t, err)
	_, err = env.returnService.ResolveReturnRequest(first.ID, models.ReturnRejected, "photos show no damage", adminActor)
	require.NoError(t, err)

	// A rejected request is closed, so the item may be filed again.
	_, err = env.returnService.CreateReturnRequest(order.Items[0].ID, "found the crack", customerActor)
	assert.NoError(t, err)
}

func TestReturnService_ResolveReturnRequest_AdminOnly(t *testing.T) {
	env := newTestEnv()
	order, _ := deliveredOrder(t, env)
	request, err := env.returnService.CreateReturnRequest(order.Items[0].ID, "damaged", customerActor)
	require.NoError(t, err)

	_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnApproved, "", customerActor)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestReturnService_ResolveReturnRequest_TableEnforced(t *testing.T) {
	env := newTestEnv()
	order, _ := deliveredOrder(t, env)
	request, err := env.returnService.CreateReturnRequest(order.Items[0].ID, "damaged", customerActor)
	require.NoError(t, err)

	// REQUESTED cannot jump straight to COMPLETED.
	_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnCompleted, "", adminActor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

	// REJECTED is terminal.
	_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnRejected, "no", adminActor)
	require.NoError(t, err)
	_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnApproved, "", adminActor)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
}

func TestReturnService_Completion_RefundsItemShare(t *testing.T) {
	env := newTestEnv()
	order, payment := deliveredOrder(t, env)

	// Returning the $5 single-quantity item refunds $5, leaving the
	// payment SUCCESS with the partial amount booked.
	request, err := env.returnService.CreateReturnRequest(order.Items[1].ID, "damaged", customerActor)
	require.NoError(t, err)
	_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnApproved, "", adminActor)
	require.NoError(t, err)

	env.gateway.On("Refund", payment.ExternalTransactionID, 5.0).Return(nil).Once()

	completed, err := env.returnService.ResolveReturnRequest(request.ID, models.ReturnCompleted, "received", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnCompleted, completed.Status)

	refunded, err := env.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, refunded.Status)
	assert.InDelta(t, 5.0, refunded.RefundedAmount, 1e-9)
	env.gateway.AssertExpectations(t)
}

func TestReturnService_Completion_FullCoverageFlipsToRefunded(t *testing.T) {
	env := newTestEnv()
	order, payment := deliveredOrder(t, env)

	env.gateway.On("Refund", payment.ExternalTransactionID, 20.0).Return(nil).Once()
	env.gateway.On("Refund", payment.ExternalTransactionID, 5.0).Return(nil).Once()

	for _, itemID := range []string{order.Items[0].ID, order.Items[1].ID} {
		request, err := env.returnService.CreateReturnRequest(itemID, "damaged", customerActor)
		require.NoError(t, err)
		_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnApproved, "", adminActor)
		require.NoError(t, err)
		_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnCompleted, "received", adminActor)
		require.NoError(t, err)
	}

	refunded, err := env.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.Status)
	assert.InDelta(t, 25.0, refunded.RefundedAmount, 1e-9)
}

// flakyReturnRepo loses the version race on the first Update and delegates
// afterwards, simulating a concurrent writer touching the same request.
type flakyReturnRepo struct {
	repositories.ReturnRequestRepository
	conflicted bool
}

func (r *flakyReturnRepo) Update(request *models.ReturnRequest, expectedVersion int) error {
	if !r.conflicted {
		r.conflicted = true
		return fmt.Errorf("return request %s: %w", request.ID, apperrors.ErrConcurrentModification)
	}
	return r.ReturnRequestRepository.Update(request, expectedVersion)
}

func TestReturnService_Completion_ConflictRetryRefundsOnce(t *testing.T) {
	env := newTestEnv()
	order, payment := deliveredOrder(t, env)

	request, err := env.returnService.CreateReturnRequest(order.Items[1].ID, "damaged", customerActor)
	require.NoError(t, err)
	_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnApproved, "", adminActor)
	require.NoError(t, err)

	flaky := &flakyReturnRepo{ReturnRequestRepository: env.returns}
	service := services.NewReturnService(flaky, env.orders, env.payments, env.gateway, nil)

	// One completion means exactly one gateway refund, even when the
	// COMPLETED write has to be retried after a version conflict.
	env.gateway.On("Refund", payment.ExternalTransactionID, 5.0).Return(nil).Once()

	completed, err := service.ResolveReturnRequest(request.ID, models.ReturnCompleted, "received", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnCompleted, completed.Status)

	refunded, err := env.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, refunded.RefundedAmount, 1e-9)
	env.gateway.AssertExpectations(t)
}

func TestReturnService_Completion_RefundFailureLeavesApproved(t *testing.T) {
	env := newTestEnv()
	order, payment := deliveredOrder(t, env)

	request, err := env.returnService.CreateReturnRequest(order.Items[1].ID, "damaged", customerActor)
	require.NoError(t, err)
	_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnApproved, "", adminActor)
	require.NoError(t, err)

	env.gateway.On("Refund", payment.ExternalTransactionID, 5.0).Return(fmt.Errorf("gateway down")).Once()

	_, err = env.returnService.ResolveReturnRequest(request.ID, models.ReturnCompleted, "received", adminActor)
	assert.ErrorIs(t, err, apperrors.ErrRefundFailed)

	// The request stays APPROVED so the resolution can be retried.
	current, err := env.returns.GetByID(request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnApproved, current.Status)

	untouched, err := env.payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, untouched.Status)
	assert.Equal(t, 0.0, untouched.RefundedAmount)
}

func TestReturnService_GetReturnRequest_Visibility(t *testing.T) {
	env := newTestEnv()
	order, _ := deliveredOrder(t, env)
	request, err := env.returnService.CreateReturnRequest(order.Items[0].ID, "damaged", customerActor)
	require.NoError(t, err)

	_, err = env.returnService.GetReturnRequest(request.ID, customerActor)
	assert.NoError(t, err)
	_, err = env.returnService.GetReturnRequest(request.ID, adminActor)
	assert.NoError(t, err)
	_, err = env.returnService.GetReturnRequest(request.ID, otherCustomer)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
