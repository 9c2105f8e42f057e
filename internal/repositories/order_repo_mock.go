package repositories

import (
	"fmt"
	"sync"
	"time"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// It honors the same version-conditioned write contract as the GORM
// implementation so optimistic-concurrency behavior can be tested without
// a database.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, apperrors.ErrNotFound)
	}
	copied := cloneOrder(order)
	return &copied, nil
}

// GetByOrderNumber returns an order by its order number.
func (r *MockOrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.OrderNumber == orderNumber {
			copied := cloneOrder(order)
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", orderNumber, apperrors.ErrNotFound)
}

// GetByItemID returns the order owning the given item.
func (r *MockOrderRepository) GetByItemID(itemID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		for _, item := range order.Items {
			if item.ID == itemID {
				copied := cloneOrder(order)
				return &copied, nil
			}
		}
	}
	return nil, fmt.Errorf("order item %s: %w", itemID, apperrors.ErrNotFound)
}

// GetByCustomer returns all orders of a customer.
func (r *MockOrderRepository) GetByCustomer(customerID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []models.Order
	for _, order := range r.orders {
		if order.CustomerID == customerID {
			orders = append(orders, cloneOrder(order))
		}
	}
	return orders, nil
}

// UpdateStatus updates the status of an order when the stored version
// matches the expected one.
func (r *MockOrderRepository) UpdateStatus(id string, status models.OrderStatus, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, apperrors.ErrNotFound)
	}
	if order.Version != expectedVersion {
		return fmt.Errorf("order %s: %w", id, apperrors.ErrConcurrentModification)
	}
	order.Status = status
	order.Version++
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

func cloneOrder(order models.Order) models.Order {
	items := make([]models.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}
