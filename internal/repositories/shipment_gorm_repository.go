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

// GORMShipmentRepository is a GORM implementation of ShipmentRepository.
type GORMShipmentRepository struct {
	db *gorm.DB
}

// NewGORMShipmentRepository creates a new instance of GORMShipmentRepository.
func NewGORMShipmentRepository(db *gorm.DB) *GORMShipmentRepository {
	return &GORMShipmentRepository{
		db: db,
	}
}

// Create persists a new shipment.
func (r *GORMShipmentRepository) Create(shipment *models.Shipment) error {
	if shipment.ID == "" {
		shipment.ID = uuid.New().String()
	}
	if err := r.db.Create(shipment).Error; err != nil {
		return fmt.Errorf("failed to create shipment: %w", err)
	}
	return nil
}

// GetByID retrieves a shipment by internal id.
func (r *GORMShipmentRepository) GetByID(id string) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.First(&shipment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shipment %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shipment %s: %w", id, err)
	}
	return &shipment, nil
}

// GetByTrackingNumber retrieves a shipment by its carrier tracking number.
func (r *GORMShipmentRepository) GetByTrackingNumber(trackingNumber string) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.First(&shipment, "tracking_number = ?", trackingNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shipment with tracking %s: %w", trackingNumber, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shipment by tracking %s: %w", trackingNumber, err)
	}
	return &shipment, nil
}

// GetByOrderID retrieves all shipments for an order.
func (r *GORMShipmentRepository) GetByOrderID(orderID string) ([]models.Shipment, error) {
	var shipments []models.Shipment
	if err := r.db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&shipments).Error; err != nil {
		return nil, fmt.Errorf("failed to list shipments for order %s: %w", orderID, err)
	}
	return shipments, nil
}

// UpdateStatus applies a version-conditioned status write.
func (r *GORMShipmentRepository) UpdateStatus(id string, status models.ShipmentStatus, expectedVersion int) error {
	res := r.db.Model(&models.Shipment{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"status":     status,
			"version":    expectedVersion + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update shipment %s status: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.Shipment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to update shipment %s status: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("shipment %s: %w", id, apperrors.ErrNotFound)
		}
		return fmt.Errorf("shipment %s: %w", id, apperrors.ErrConcurrentModification)
	}
	return nil
}
