package repositories

import (
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create persists a new order together with its items.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its items by internal id.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &order, nil
}

// GetByOrderNumber retrieves an order by its externally shareable number.
func (r *GORMOrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", orderNumber, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by number %s: %w", orderNumber, err)
	}
	return &order, nil
}

// GetByItemID retrieves the order that owns the given order item.
func (r *GORMOrderRepository) GetByItemID(itemID string) (*models.Order, error) {
	var item models.OrderItem
	if err := r.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order item %s: %w", itemID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order item %s: %w", itemID, err)
	}
	return r.GetByID(item.OrderID)
}

// GetByCustomer retrieves all orders belonging to a customer.
func (r *GORMOrderRepository) GetByCustomer(customerID string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("Items").Where("customer_id = ?", customerID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders for customer %s: %w", customerID, err)
	}
	return orders, nil
}

// UpdateStatus applies a version-conditioned status write. A zero-row
// update means either the order vanished or another writer got there
// first; the two cases are told apart with a follow-up read.
func (r *GORMOrderRepository) UpdateStatus(id string, status models.OrderStatus, expectedVersion int) error {
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"status":     status,
			"version":    expectedVersion + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s status: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to update order %s status: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("order %s: %w", id, apperrors.ErrNotFound)
		}
		return fmt.Errorf("order %s: %w", id, apperrors.ErrConcurrentModification)
	}
	return nil
}
