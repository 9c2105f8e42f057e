package repositories

import (
	"fulfillment/internal/models"
)

// ReturnRequestRepository defines the interface for return-request data access.
type ReturnRequestRepository interface {
	Create(request *models.ReturnRequest) error
	GetByID(id string) (*models.ReturnRequest, error)
	// GetOpenByItemID returns the open (REQUESTED or APPROVED) request for
	// the item, or ErrNotFound when none exists.
	GetOpenByItemID(orderItemID string) (*models.ReturnRequest, error)
	Update(request *models.ReturnRequest, expectedVersion int) error
}
