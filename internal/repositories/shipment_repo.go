package repositories

import (
	"fulfillment/internal/models"
)

// ShipmentRepository defines the interface for shipment data access.
type ShipmentRepository interface {
	Create(shipment *models.Shipment) error
	GetByID(id string) (*models.Shipment, error)
	GetByTrackingNumber(trackingNumber string) (*models.Shipment, error)
	GetByOrderID(orderID string) ([]models.Shipment, error)
	UpdateStatus(id string, status models.ShipmentStatus, expectedVersion int) error
}
