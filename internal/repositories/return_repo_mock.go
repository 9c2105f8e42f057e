package repositories

import (
	"fmt"
	"sync"
	"time"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/models"

	"github.com/google/uuid"
)

// MockReturnRepository is an in-memory implementation of ReturnRequestRepository.
type MockReturnRepository struct {
	requests map[string]models.ReturnRequest
	mu       sync.RWMutex
}

// NewMockReturnRepository creates a new instance of MockReturnRepository.
func NewMockReturnRepository() *MockReturnRepository {
	return &MockReturnRepository{
		requests: make(map[string]models.ReturnRequest),
	}
}

// Create adds a new return request.
func (r *MockReturnRepository) Create(request *models.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	request.CreatedAt = time.Now()
	request.UpdatedAt = time.Now()
	r.requests[request.ID] = *request
	return nil
}

// GetByID returns a return request by its ID.
func (r *MockReturnRepository) GetByID(id string) (*models.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.requests[id]
	if !ok {
		return nil, fmt.Errorf("return request %s: %w", id, apperrors.ErrNotFound)
	}
	return &request, nil
}

// GetOpenByItemID returns the open return request for an order item.
func (r *MockReturnRepository) GetOpenByItemID(orderItemID string) (*models.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, request := range r.requests {
		if request.OrderItemID == orderItemID && request.Open() {
			copied := request
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("open return request for item %s: %w", orderItemID, apperrors.ErrNotFound)
}

// Update writes status and resolution notes when the stored version matches.
func (r *MockReturnRepository) Update(request *models.ReturnRequest, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[request.ID]
	if !ok {
		return fmt.Errorf("return request %s: %w", request.ID, apperrors.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("return request %s: %w", request.ID, apperrors.ErrConcurrentModification)
	}
	stored.Status = request.Status
	stored.ResolutionNotes = request.ResolutionNotes
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.Now()
	r.requests[request.ID] = stored
	request.Version = stored.Version
	request.UpdatedAt = stored.UpdatedAt
	return nil
}
