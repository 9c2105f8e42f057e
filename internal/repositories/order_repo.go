package repositories

import (
	"fulfillment/internal/models"
)

// OrderRepository defines the interface for order data access. Status
// writes are version-conditioned: the update only applies when the stored
// version equals expectedVersion, otherwise ErrConcurrentModification is
// returned so the caller can re-read and retry.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	GetByItemID(itemID string) (*models.Order, error)
	GetByCustomer(customerID string) ([]models.Order, error)
	UpdateStatus(id string, status models.OrderStatus, expectedVersion int) error
}
