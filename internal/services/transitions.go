package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/gateway"
	"fulfillment/internal/models"
	"fulfillment/internal/repositories"

	"github.com/rs/zerolog/log"
)

// maxTransitionRetries bounds the optimistic-lock read-compute-write loop
// before ErrConcurrentModification is surfaced to the caller.
const maxTransitionRetries = 3

// amountEpsilon absorbs float rounding when comparing money amounts.
const amountEpsilon = 1e-9

// EventPublisher publishes lifecycle events after successful transitions.
// *rabbitmq.Client satisfies it; a nil publisher disables publishing.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// publishEvent marshals and publishes a lifecycle event. Publishing is
// best-effort: a broker failure is logged, never surfaced to the caller.
func publishEvent(pub EventPublisher, routingKey string, payload interface{}) {
	if pub == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to marshal event payload")
		return
	}
	if err := pub.Publish(routingKey, body); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
	}
}

// transitionOrder is the single transition function for Orders. Both the
// synchronous user path and the webhook-driven path go through it, so the
// transition table is enforced in exactly one place. The write is a
// compare-and-swap on the order's version; on conflict the whole
// read-check-write cycle is retried.
func transitionOrder(repo repositories.OrderRepository, orderID string, to models.OrderStatus) (*models.Order, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		order, err := repo.GetByID(orderID)
		if err != nil {
			return nil, err
		}
		if !order.CanTransitionTo(to) {
			return nil, fmt.Errorf("order %s cannot move from %s to %s: %w",
				orderID, order.Status, to, apperrors.ErrInvalidStatusTransition)
		}
		err = repo.UpdateStatus(order.ID, to, order.Version)
		if errors.Is(err, apperrors.ErrConcurrentModification) {
			continue
		}
		if err != nil {
			return nil, err
		}
		order.Status = to
		order.Version++
		return order, nil
	}
	return nil, fmt.Errorf("order %s: %w", orderID, apperrors.ErrConcurrentModification)
}

// transitionPayment is the single transition function for Payments. A
// transition to the current status is a no-op success: gateways resend
// terminal events, sometimes under fresh event ids.
func transitionPayment(repo repositories.PaymentRepository, paymentID string, to models.PaymentStatus) (*models.Payment, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		payment, err := repo.GetByID(paymentID)
		if err != nil {
			return nil, err
		}
		if payment.Status == to {
			return payment, nil
		}
		if !payment.CanTransitionTo(to) {
			return nil, fmt.Errorf("payment %s cannot move from %s to %s: %w",
				paymentID, payment.Status, to, apperrors.ErrInvalidPaymentState)
		}
		payment.Status = to
		err = repo.Update(payment, payment.Version)
		if errors.Is(err, apperrors.ErrConcurrentModification) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return payment, nil
	}
	return nil, fmt.Errorf("payment %s: %w", paymentID, apperrors.ErrConcurrentModification)
}

// transitionShipment is the single transition function for Shipments.
// Callers decide how a disallowed move is treated (the carrier path turns
// regressions into no-ops); this function only enforces the table.
func transitionShipment(repo repositories.ShipmentRepository, shipmentID string, to models.ShipmentStatus) (*models.Shipment, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		shipment, err := repo.GetByID(shipmentID)
		if err != nil {
			return nil, err
		}
		if !shipment.CanTransitionTo(to) {
			return nil, fmt.Errorf("shipment %s cannot move from %s to %s: %w",
				shipmentID, shipment.Status, to, apperrors.ErrInvalidStatusTransition)
		}
		err = repo.UpdateStatus(shipment.ID, to, shipment.Version)
		if errors.Is(err, apperrors.ErrConcurrentModification) {
			continue
		}
		if err != nil {
			return nil, err
		}
		shipment.Status = to
		shipment.Version++
		return shipment, nil
	}
	return nil, fmt.Errorf("shipment %s: %w", shipmentID, apperrors.ErrConcurrentModification)
}

// syncOrderWithShipments recomputes the order status from the full
// shipment set after a carrier event: the first shipment to leave CREATED
// advances PROCESSING to SHIPPED, and DELIVERED requires every shipment to
// be delivered. The recomputation is deterministic because it always reads
// the complete set.
func syncOrderWithShipments(orderRepo repositories.OrderRepository, shipmentRepo repositories.ShipmentRepository, orderID string) (*models.Order, error) {
	shipments, err := shipmentRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	anyMoving := false
	allDelivered := len(shipments) > 0
	for _, s := range shipments {
		if s.Status == models.ShipmentInTransit || s.Status == models.ShipmentDelivered {
			anyMoving = true
		}
		if s.Status != models.ShipmentDelivered {
			allDelivered = false
		}
	}

	order, err := orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderProcessing && anyMoving {
		order, err = transitionOrder(orderRepo, orderID, models.OrderShipped)
		if err != nil {
			return nil, err
		}
	}
	if order.Status == models.OrderShipped && allDelivered {
		order, err = transitionOrder(orderRepo, orderID, models.OrderDelivered)
		if err != nil {
			return nil, err
		}
	}
	return order, nil
}

// executeRefund performs the gateway leg first and flips payment state
// only after the acknowledgement, so a gateway failure leaves the payment
// in SUCCESS and surfaces ErrRefundFailed. The payment moves to REFUNDED
// once cumulative refunds cover the full amount; partial (item-level)
// refunds before that only raise RefundedAmount.
func executeRefund(repo repositories.PaymentRepository, gw gateway.PaymentGateway, paymentID string, amount float64) (*models.Payment, error) {
	payment, err := repo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentSuccess {
		return nil, fmt.Errorf("payment %s is %s, refund requires SUCCESS: %w",
			payment.ID, payment.Status, apperrors.ErrInvalidPaymentState)
	}
	remaining := payment.Amount - payment.RefundedAmount
	if amount > remaining+amountEpsilon {
		return nil, fmt.Errorf("refund of %.2f exceeds remaining %.2f on payment %s: %w",
			amount, remaining, payment.ID, apperrors.ErrInvalidPaymentState)
	}

	// Gateway call happens outside any lock on engine state.
	if err := gw.Refund(payment.ExternalTransactionID, amount); err != nil {
		return nil, fmt.Errorf("gateway refund for payment %s failed (%v): %w",
			payment.ID, err, apperrors.ErrRefundFailed)
	}

	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		payment, err = repo.GetByID(paymentID)
		if err != nil {
			return nil, err
		}
		if payment.Status != models.PaymentSuccess {
			return nil, fmt.Errorf("payment %s changed to %s during refund: %w",
				payment.ID, payment.Status, apperrors.ErrInvalidPaymentState)
		}
		payment.RefundedAmount += amount
		if payment.RefundedAmount+amountEpsilon >= payment.Amount {
			payment.Status = models.PaymentRefunded
		}
		err = repo.Update(payment, payment.Version)
		if errors.Is(err, apperrors.ErrConcurrentModification) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return payment, nil
	}
	return nil, fmt.Errorf("payment %s: %w", paymentID, apperrors.ErrConcurrentModification)
}
