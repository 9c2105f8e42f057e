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

// OrderService owns the Order lifecycle. Transitions are driven by user
// actions (create, cancel, admin update) here, and by aggregated payment
// and shipment signals through the shared transition helpers.
type OrderService struct {
	orderRepo    repositories.OrderRepository
	paymentRepo  repositories.PaymentRepository
	shipmentRepo repositories.ShipmentRepository
	gateway      gateway.PaymentGateway
	publisher    EventPublisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	paymentRepo repositories.PaymentRepository,
	shipmentRepo repositories.ShipmentRepository,
	gw gateway.PaymentGateway,
	publisher EventPublisher,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		shipmentRepo: shipmentRepo,
		gateway:      gw,
		publisher:    publisher,
	}
}

// OrderItemInput is one requested line of a new order. The unit price is
// the already-resolved snapshot price; the engine never recomputes it.
type OrderItemInput struct {
	ProductID string  `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	Price     float64 `json:"price" validate:"required,gt=0"`
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	CustomerID      string           `json:"customer_id,omitempty"` // defaults to the acting customer
	SellerID        string           `json:"seller_id,omitempty"`
	Items           []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	ShippingAddress models.Address   `json:"shipping_address" validate:"required"`
	BillingAddress  models.Address   `json:"billing_address" validate:"required"`
}

// CreateOrder places a new order in PENDING. The total is fixed here as
// the sum of item price times quantity and is never recomputed afterwards.
func (s *OrderService) CreateOrder(input CreateOrderInput, actor models.Actor) (*models.Order, error) {
	customerID := input.CustomerID
	if customerID == "" {
		customerID = actor.ID
	}
	if !auth.IsAdmin(actor) && (actor.ID == "" || actor.ID != customerID) {
		return nil, fmt.Errorf("actor %s may not create orders for customer %s: %w",
			actor.ID, customerID, apperrors.ErrUnauthorized)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("an order requires at least one item")
	}

	var totalAmount float64
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item %s: quantity must be at least 1", item.ProductID)
		}
		if item.Price <= 0 {
			return nil, fmt.Errorf("item %s: price must be positive", item.ProductID)
		}
		items = append(items, models.OrderItem{
			ID:        uuid.New().String(),
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
		totalAmount += item.Price * float64(item.Quantity)
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		OrderNumber:     newOrderNumber(),
		CustomerID:      customerID,
		SellerID:        input.SellerID,
		Items:           items,
		TotalAmount:     totalAmount,
		Status:          models.OrderPending,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	log.Info().Str("order_id", order.ID).Str("order_number", order.OrderNumber).
		Float64("total", order.TotalAmount).Msg("order created")
	publishEvent(s.publisher, "order.created", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"customer_id":  order.CustomerID,
		"status":       order.Status,
		"total":        order.TotalAmount,
	})
	return order, nil
}

// GetOrder retrieves an order visible to the actor: the owning customer,
// the attached seller, or an admin.
func (s *OrderService) GetOrder(orderID string, actor models.Actor) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if !auth.IsAdmin(actor) && !auth.IsOrderOwner(actor, order) && !auth.IsOrderSeller(actor, order) {
		return nil, fmt.Errorf("actor %s may not view order %s: %w", actor.ID, orderID, apperrors.ErrUnauthorized)
	}
	return order, nil
}

// GetOrdersByCustomer lists a customer's orders; customers only see their own.
func (s *OrderService) GetOrdersByCustomer(customerID string, actor models.Actor) ([]models.Order, error) {
	if !auth.IsAdmin(actor) && actor.ID != customerID {
		return nil, fmt.Errorf("actor %s may not list orders of customer %s: %w",
			actor.ID, customerID, apperrors.ErrUnauthorized)
	}
	return s.orderRepo.GetByCustomer(customerID)
}

// CancelOrder cancels an order under the lifecycle rules:
//   - PENDING: owner or admin, only while no payment has reached SUCCESS
//     and no shipment exists.
//   - PROCESSING: admin always; the owner only while every shipment is
//     still in CREATED. A SUCCESS payment is refunded first; a failed
//     refund leg aborts the cancellation.
//
// Every other status is rejected with ErrInvalidStatusTransition.
//
// The whole read-check-refund-write cycle retries on a version conflict:
// a webhook racing the cancellation (payment SUCCESS moving the order to
// PROCESSING between the reads and the write) is re-read in full, so the
// retry re-evaluates the preconditions and refunds the fresh capture
// instead of cancelling over it.
func (s *OrderService) CancelOrder(orderID string, actor models.Actor) (*models.Order, error) {
	isAdmin := auth.IsAdmin(actor)

	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		order, err := s.orderRepo.GetByID(orderID)
		if err != nil {
			return nil, err
		}
		if !isAdmin && !auth.IsOrderOwner(actor, order) {
			return nil, fmt.Errorf("actor %s may not cancel order %s: %w", actor.ID, orderID, apperrors.ErrUnauthorized)
		}

		shipments, err := s.shipmentRepo.GetByOrderID(orderID)
		if err != nil {
			return nil, err
		}
		payment, err := s.paymentRepo.GetByOrderID(orderID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}

		switch order.Status {
		case models.OrderPending:
			if payment != nil && payment.Status == models.PaymentSuccess {
				return nil, fmt.Errorf("order %s has a successful payment: %w", orderID, apperrors.ErrInvalidStatusTransition)
			}
			if len(shipments) > 0 {
				return nil, fmt.Errorf("order %s already has shipments: %w", orderID, apperrors.ErrInvalidStatusTransition)
			}
		case models.OrderProcessing:
			if !isAdmin {
				for _, shipment := range shipments {
					if shipment.Status != models.ShipmentCreated {
						return nil, fmt.Errorf("order %s has a shipment in %s: %w",
							orderID, shipment.Status, apperrors.ErrInvalidStatusTransition)
					}
				}
			}
		default:
			return nil, fmt.Errorf("order %s cannot be cancelled from %s: %w",
				orderID, order.Status, apperrors.ErrInvalidStatusTransition)
		}

		// Refund before cancelling so a cancellation is never silently
		// applied with money still captured. executeRefund flips the
		// payment to REFUNDED, so a later retry of this loop skips it.
		if payment != nil && payment.Status == models.PaymentSuccess {
			if _, err := executeRefund(s.paymentRepo, s.gateway, payment.ID, payment.Amount-payment.RefundedAmount); err != nil {
				return nil, err
			}
			log.Info().Str("order_id", orderID).Str("payment_id", payment.ID).Msg("payment refunded for cancellation")
		}

		err = s.orderRepo.UpdateStatus(order.ID, models.OrderCancelled, order.Version)
		if errors.Is(err, apperrors.ErrConcurrentModification) {
			continue
		}
		if err != nil {
			return nil, err
		}
		order.Status = models.OrderCancelled
		order.Version++
		publishEvent(s.publisher, "order.status_changed", map[string]interface{}{
			"order_id": order.ID,
			"status":   order.Status,
		})
		return order, nil
	}
	return nil, fmt.Errorf("order %s: %w", orderID, apperrors.ErrConcurrentModification)
}

// UpdateOrderStatus is the admin override. It still goes through the
// transition table; an admin cannot move an order along an edge that does
// not exist.
func (s *OrderService) UpdateOrderStatus(orderID string, status models.OrderStatus, actor models.Actor) (*models.Order, error) {
	if !auth.IsAdmin(actor) {
		return nil, fmt.Errorf("actor %s may not update order status: %w", actor.ID, apperrors.ErrUnauthorized)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid order status %q: %w", status, apperrors.ErrInvalidStatusTransition)
	}
	order, err := transitionOrder(s.orderRepo, orderID, status)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_id", orderID).Str("status", string(status)).Msg("order status updated by admin")
	publishEvent(s.publisher, "order.status_changed", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
	return order, nil
}

// newOrderNumber builds the externally shareable order identifier.
func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
