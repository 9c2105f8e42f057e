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

// GORMReturnRepository is a GORM implementation of ReturnRequestRepository.
type GORMReturnRepository struct {
	db *gorm.DB
}

// NewGORMReturnRepository creates a new instance of GORMReturnRepository.
func NewGORMReturnRepository(db *gorm.DB) *GORMReturnRepository {
	return &GORMReturnRepository{
		db: db,
	}
}

// Create persists a new return request.
func (r *GORMReturnRepository) Create(request *models.ReturnRequest) error {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if err := r.db.Create(request).Error; err != nil {
		return fmt.Errorf("failed to create return request: %w", err)
	}
	return nil
}

// GetByID retrieves a return request by internal id.
func (r *GORMReturnRepository) GetByID(id string) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	if err := r.db.First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("return request %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get return request %s: %w", id, err)
	}
	return &request, nil
}

// GetOpenByItemID retrieves the open return request for an order item.
func (r *GORMReturnRepository) GetOpenByItemID(orderItemID string) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.First(&request, "order_item_id = ? AND status IN ?", orderItemID,
		[]models.ReturnStatus{models.ReturnRequested, models.ReturnApproved}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("open return request for item %s: %w", orderItemID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get open return request for item %s: %w", orderItemID, err)
	}
	return &request, nil
}

// Update writes status and resolution notes under the version condition.
func (r *GORMReturnRepository) Update(request *models.ReturnRequest, expectedVersion int) error {
	now := time.Now()
	res := r.db.Model(&models.ReturnRequest{}).
		Where("id = ? AND version = ?", request.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":           request.Status,
			"resolution_notes": request.ResolutionNotes,
			"version":          expectedVersion + 1,
			"updated_at":       now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update return request %s: %w", request.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.ReturnRequest{}).Where("id = ?", request.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to update return request %s: %w", request.ID, err)
		}
		if count == 0 {
			return fmt.Errorf("return request %s: %w", request.ID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("return request %s: %w", request.ID, apperrors.ErrConcurrentModification)
	}
	request.Version = expectedVersion + 1
	request.UpdatedAt = now
	return nil
}
