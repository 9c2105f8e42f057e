package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/models"

	"github.com/google/uuid"
)

// MockShipmentRepository is an in-memory implementation of ShipmentRepository.
type MockShipmentRepository struct {
	shipments map[string]models.Shipment
	mu        sync.RWMutex
}

// NewMockShipmentRepository creates a new instance of MockShipmentRepository.
func NewMockShipmentRepository() *MockShipmentRepository {
	return &MockShipmentRepository{
		shipments: make(map[string]models.Shipment),
	}
}

// Create adds a new shipment.
func (r *MockShipmentRepository) Create(shipment *models.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if shipment.ID == "" {
		shipment.ID = uuid.New().String()
	}
	shipment.CreatedAt = time.Now()
	shipment.UpdatedAt = time.Now()
	r.shipments[shipment.ID] = *shipment
	return nil
}

// GetByID returns a shipment by its ID.
func (r *MockShipmentRepository) GetByID(id string) (*models.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shipment, ok := r.shipments[id]
	if !ok {
		return nil, fmt.Errorf("shipment %s: %w", id, apperrors.ErrNotFound)
	}
	return &shipment, nil
}

// GetByTrackingNumber returns a shipment by tracking number.
func (r *MockShipmentRepository) GetByTrackingNumber(trackingNumber string) (*models.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if trackingNumber == "" {
		return nil, fmt.Errorf("shipment with empty tracking number: %w", apperrors.ErrNotFound)
	}
	for _, shipment := range r.shipments {
		if shipment.TrackingNumber == trackingNumber {
			copied := shipment
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("shipment with tracking %s: %w", trackingNumber, apperrors.ErrNotFound)
}

// GetByOrderID returns all shipments of an order, oldest first.
func (r *MockShipmentRepository) GetByOrderID(orderID string) ([]models.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var shipments []models.Shipment
	for _, shipment := range r.shipments {
		if shipment.OrderID == orderID {
			shipments = append(shipments, shipment)
		}
	}
	sort.Slice(shipments, func(i, j int) bool {
		return shipments[i].CreatedAt.Before(shipments[j].CreatedAt)
	})
	return shipments, nil
}

// UpdateStatus updates the status of a shipment when the stored version
// matches the expected one.
func (r *MockShipmentRepository) UpdateStatus(id string, status models.ShipmentStatus, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	shipment, ok := r.shipments[id]
	if !ok {
		return fmt.Errorf("shipment %s: %w", id, apperrors.ErrNotFound)
	}
	if shipment.Version != expectedVersion {
		return fmt.Errorf("shipment %s: %w", id, apperrors.ErrConcurrentModification)
	}
	shipment.Status = status
	shipment.Version++
	shipment.UpdatedAt = time.Now()
	r.shipments[id] = shipment
	return nil
}
