package services

import (
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/auth"
	"fulfillment/internal/gateway"
	"fulfillment/internal/models"
	"fulfillment/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReturnService owns the return-request workflow derived from delivered
// orders: customers file requests per order item, admins resolve them, and
// a completed return triggers an item-proportional refund.
type ReturnService struct {
	returnRepo  repositories.ReturnRequestRepository
	orderRepo   repositories.OrderRepository
	paymentRepo repositories.PaymentRepository
	gateway     gateway.PaymentGateway
	publisher   EventPublisher
}

// NewReturnService creates a new ReturnService.
func NewReturnService(
	returnRepo repositories.ReturnRequestRepository,
	orderRepo repositories.OrderRepository,
	paymentRepo repositories.PaymentRepository,
	gw gateway.PaymentGateway,
	publisher EventPublisher,
) *ReturnService {
	return &ReturnService{
		returnRepo:  returnRepo,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gateway:     gw,
		publisher:   publisher,
	}
}

// CreateReturnRequest files a return for one item of a delivered order.
// Only the order's customer may file one, only after DELIVERED, and only
// one open request per item is allowed.
func (s *ReturnService) CreateReturnRequest(orderItemID, reason string, actor models.Actor) (*models.ReturnRequest, error) {
	order, err := s.orderRepo.GetByItemID(orderItemID)
	if err != nil {
		return nil, err
	}
	if !auth.IsOrderOwner(actor, order) {
		return nil, fmt.Errorf("actor %s may not return items of order %s: %w",
			actor.ID, order.ID, apperrors.ErrUnauthorized)
	}
	if order.Status != models.OrderDelivered {
		return nil, fmt.Errorf("order %s is %s, returns require DELIVERED: %w",
			order.ID, order.Status, apperrors.ErrInvalidStatusTransition)
	}
	if existing, err := s.returnRepo.GetOpenByItemID(orderItemID); err == nil && existing != nil {
		return nil, fmt.Errorf("item %s already has an open return request: %w",
			orderItemID, apperrors.ErrInvalidStatusTransition)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	request := &models.ReturnRequest{
		ID:          uuid.New().String(),
		OrderItemID: orderItemID,
		CustomerID:  order.CustomerID,
		Reason:      reason,
		Status:      models.ReturnRequested,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.returnRepo.Create(request); err != nil {
		return nil, err
	}
	log.Info().Str("return_id", request.ID).Str("order_item_id", orderItemID).Msg("return request created")
	return request, nil
}

// GetReturnRequest retrieves a return request visible to its owner or an admin.
func (s *ReturnService) GetReturnRequest(id string, actor models.Actor) (*models.ReturnRequest, error) {
	request, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !auth.IsAdmin(actor) && !auth.IsReturnOwner(actor, request) {
		return nil, fmt.Errorf("actor %s may not view return request %s: %w", actor.ID, id, apperrors.ErrUnauthorized)
	}
	return request, nil
}

// ResolveReturnRequest moves a request along REQUESTED -> APPROVED/REJECTED
// or APPROVED -> COMPLETED (admin-only). Completion first settles the
// item-proportional refund against the parent payment; a failed refund leg
// leaves the request APPROVED.
func (s *ReturnService) ResolveReturnRequest(id string, newStatus models.ReturnStatus, notes string, actor models.Actor) (*models.ReturnRequest, error) {
	if !auth.IsAdmin(actor) {
		return nil, fmt.Errorf("actor %s may not resolve return requests: %w", actor.ID, apperrors.ErrUnauthorized)
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("invalid return status %q: %w", newStatus, apperrors.ErrInvalidStatusTransition)
	}

	request, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !request.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("return request %s cannot move from %s to %s: %w",
			id, request.Status, newStatus, apperrors.ErrInvalidStatusTransition)
	}

	// The gateway refund is not idempotent, so it runs exactly once,
	// outside the write-retry cycle below. A refund failure leaves the
	// request APPROVED for a later retry.
	if newStatus == models.ReturnCompleted {
		if err := s.refundReturnedItem(request); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		request.Status = newStatus
		request.ResolutionNotes = notes
		err = s.returnRepo.Update(request, request.Version)
		if errors.Is(err, apperrors.ErrConcurrentModification) {
			request, err = s.returnRepo.GetByID(id)
			if err != nil {
				return nil, err
			}
			if !request.CanTransitionTo(newStatus) {
				return nil, fmt.Errorf("return request %s cannot move from %s to %s: %w",
					id, request.Status, newStatus, apperrors.ErrInvalidStatusTransition)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Info().Str("return_id", id).Str("status", string(newStatus)).Msg("return request resolved")
		publishEvent(s.publisher, "return.resolved", map[string]interface{}{
			"return_id":     request.ID,
			"order_item_id": request.OrderItemID,
			"status":        request.Status,
		})
		return request, nil
	}
	return nil, fmt.Errorf("return request %s: %w", id, apperrors.ErrConcurrentModification)
}

// refundReturnedItem settles the refund for one returned item: the item's
// price times quantity, issued against the order's payment through the
// shared refund path. The gateway call is not idempotent, so callers run
// this at most once per resolution, never inside a retried write.
func (s *ReturnService) refundReturnedItem(request *models.ReturnRequest) error {
	order, err := s.orderRepo.GetByItemID(request.OrderItemID)
	if err != nil {
		return err
	}
	item := order.ItemByID(request.OrderItemID)
	if item == nil {
		return fmt.Errorf("order item %s: %w", request.OrderItemID, apperrors.ErrNotFound)
	}
	payment, err := s.paymentRepo.GetByOrderID(order.ID)
	if err != nil {
		return err
	}
	amount := item.Price * float64(item.Quantity)
	if _, err := executeRefund(s.paymentRepo, s.gateway, payment.ID, amount); err != nil {
		return err
	}
	log.Info().Str("return_id", request.ID).Str("payment_id", payment.ID).
		Float64("amount", amount).Msg("item refund settled")
	return nil
}
