package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/auth"
	"fulfillment/internal/gateway"
	"fulfillment/internal/models"
	"fulfillment/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PaymentService owns the Payment lifecycle: initiation by the customer,
// gateway webhook ingestion, and refunds.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.OrderRepository
	ledger      repositories.WebhookLedger
	gateway     gateway.PaymentGateway
	publisher   EventPublisher
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	orderRepo repositories.OrderRepository,
	ledger repositories.WebhookLedger,
	gw gateway.PaymentGateway,
	publisher EventPublisher,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		ledger:      ledger,
		gateway:     gw,
		publisher:   publisher,
	}
}

// InitiatePayment starts payment for a PENDING order owned by the actor.
// A FAILED payment may be re-initiated (the customer retries); any other
// existing payment is rejected. The gateway call happens before the
// payment row is written, so a gateway timeout surfaces as a retryable
// error without touching state.
func (s *PaymentService) InitiatePayment(orderID string, method models.PaymentMethod, actor models.Actor) (*models.Payment, *gateway.InitiateResult, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, nil, err
	}
	if !auth.IsAdmin(actor) && !auth.IsOrderOwner(actor, order) {
		return nil, nil, fmt.Errorf("actor %s may not pay for order %s: %w", actor.ID, orderID, apperrors.ErrUnauthorized)
	}
	if !method.Valid() {
		return nil, nil, fmt.Errorf("unsupported payment method %q: %w", method, apperrors.ErrInvalidPaymentState)
	}
	if order.Status != models.OrderPending {
		return nil, nil, fmt.Errorf("order %s is %s, payment requires PENDING: %w",
			orderID, order.Status, apperrors.ErrInvalidPaymentState)
	}

	existing, err := s.paymentRepo.GetByOrderID(orderID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, err
	}
	if existing != nil && existing.Status != models.PaymentFailed {
		return nil, nil, fmt.Errorf("order %s already has a payment in %s: %w",
			orderID, existing.Status, apperrors.ErrInvalidPaymentState)
	}

	handle, err := s.gateway.Initiate(order.TotalAmount, method, order.OrderNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("gateway initiation for order %s failed (%v): %w",
			orderID, err, apperrors.ErrPaymentProcessing)
	}

	if existing != nil {
		// Retry after FAILED: reset the same row with the fresh handle.
		existing.Status = models.PaymentPending
		existing.Method = method
		existing.ExternalTransactionID = handle.TransactionID
		if err := s.paymentRepo.Update(existing, existing.Version); err != nil {
			return nil, nil, err
		}
		log.Info().Str("order_id", orderID).Str("payment_id", existing.ID).Msg("payment re-initiated after failure")
		return existing, handle, nil
	}

	payment := &models.Payment{
		ID:                    uuid.New().String(),
		OrderID:               order.ID,
		Method:                method,
		Status:                models.PaymentPending,
		ExternalTransactionID: handle.TransactionID,
		Amount:                order.TotalAmount,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, nil, err
	}
	log.Info().Str("order_id", orderID).Str("payment_id", payment.ID).
		Str("transaction_id", payment.ExternalTransactionID).Msg("payment initiated")
	publishEvent(s.publisher, "payment.initiated", map[string]interface{}{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"amount":     payment.Amount,
	})
	return payment, handle, nil
}

// ApplyGatewayEvent is the sole entry point for payment-gateway webhooks.
// The ledger is consulted first so a redelivery short-circuits as
// ErrDuplicateEvent; the event is recorded only after it was applied, so a
// retryable failure never burns the event id.
func (s *PaymentService) ApplyGatewayEvent(event models.GatewayEvent) (*models.Payment, error) {
	provider := event.Provider
	if provider == "" {
		provider = models.ProviderPaymentGateway
	}
	seen, err := s.ledger.Seen(provider, event.EventID)
	if err != nil {
		return nil, err
	}
	if seen {
		log.Info().Str("event_id", event.EventID).Msg("duplicate gateway event ignored")
		return nil, fmt.Errorf("gateway event %s: %w", event.EventID, apperrors.ErrDuplicateEvent)
	}

	payment, err := s.resolvePayment(event)
	if err != nil {
		return nil, err
	}
	// Late transaction-id assignment: keep the gateway's id once we see it.
	if payment.ExternalTransactionID == "" && event.ExternalTransactionID != "" {
		payment.ExternalTransactionID = event.ExternalTransactionID
		if err := s.paymentRepo.Update(payment, payment.Version); err != nil {
			return nil, err
		}
	}

	var target models.PaymentStatus
	switch strings.ToUpper(strings.TrimSpace(event.ResultStatus)) {
	case "SUCCESS", "SUCCEEDED", "PAID":
		target = models.PaymentSuccess
	case "FAILED", "DECLINED":
		target = models.PaymentFailed
	case "PROCESSING":
		target = models.PaymentProcessing
	default:
		// REFUNDED arrives only through the explicit refund flow; an
		// unsolicited one lands here together with unknown statuses.
		log.Warn().Str("event_id", event.EventID).Str("result_status", event.ResultStatus).
			Msg("gateway event with disallowed result status")
		return nil, fmt.Errorf("gateway event %s carries status %q: %w",
			event.EventID, event.ResultStatus, apperrors.ErrInvalidPaymentState)
	}

	payment, err = transitionPayment(s.paymentRepo, payment.ID, target)
	if err != nil {
		return nil, err
	}

	// A successful payment advances the order. Guarded on PENDING so a
	// second SUCCESS under a fresh event id stays a no-op for the order.
	if target == models.PaymentSuccess {
		order, err := s.orderRepo.GetByID(payment.OrderID)
		if err != nil {
			return nil, err
		}
		switch {
		case order.Status == models.OrderPending:
			if _, err := transitionOrder(s.orderRepo, order.ID, models.OrderProcessing); err != nil {
				return nil, err
			}
		case order.Status.Terminal():
			// Money captured on an order that already ended, e.g. cancelled
			// while the payment was in flight. Nothing here can advance the
			// order; flag the orphaned capture for manual reconciliation.
			log.Warn().Str("order_id", order.ID).Str("order_status", string(order.Status)).
				Str("payment_id", payment.ID).Float64("amount", payment.Amount).
				Msg("successful payment captured on a terminated order")
		}
	}

	if err := s.ledger.Record(provider, event.EventID); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEvent) {
			// A concurrent delivery of the same event won the insert race;
			// the state is already what this event wanted.
			return payment, fmt.Errorf("gateway event %s: %w", event.EventID, apperrors.ErrDuplicateEvent)
		}
		return nil, err
	}

	log.Info().Str("payment_id", payment.ID).Str("event_id", event.EventID).
		Str("status", string(payment.Status)).Msg("gateway event applied")
	publishEvent(s.publisher, "payment.status_changed", map[string]interface{}{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"status":     payment.Status,
	})
	return payment, nil
}

// resolvePayment locates the payment a gateway event targets, first by the
// gateway transaction id, then by the order correlation id.
func (s *PaymentService) resolvePayment(event models.GatewayEvent) (*models.Payment, error) {
	if event.ExternalTransactionID != "" {
		payment, err := s.paymentRepo.GetByExternalTransactionID(event.ExternalTransactionID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	if event.OrderCorrelationID != "" {
		order, err := s.orderRepo.GetByOrderNumber(event.OrderCorrelationID)
		if err == nil {
			return s.paymentRepo.GetByOrderID(order.ID)
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("gateway event %s resolves no payment: %w", event.EventID, apperrors.ErrNotFound)
}

// Refund refunds the full remaining amount of a SUCCESS payment.
// Admin-only; order cancellation uses the shared refund path directly.
func (s *PaymentService) Refund(orderID string, actor models.Actor) (*models.Payment, error) {
	if !auth.IsAdmin(actor) {
		return nil, fmt.Errorf("actor %s may not refund order %s: %w", actor.ID, orderID, apperrors.ErrUnauthorized)
	}
	payment, err := s.paymentRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	payment, err = executeRefund(s.paymentRepo, s.gateway, payment.ID, payment.Amount-payment.RefundedAmount)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_id", orderID).Str("payment_id", payment.ID).Msg("payment refunded")
	publishEvent(s.publisher, "payment.status_changed", map[string]interface{}{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"status":     payment.Status,
	})
	return payment, nil
}
