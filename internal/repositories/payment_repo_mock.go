package repositories

import (
	"fmt"
	"sync"
	"time"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/models"

	"github.com/google/uuid"
)

// MockPaymentRepository is an in-memory implementation of PaymentRepository.
type MockPaymentRepository struct {
	payments map[string]models.Payment
	mu       sync.RWMutex
}

// NewMockPaymentRepository creates a new instance of MockPaymentRepository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]models.Payment),
	}
}

// Create adds a new payment, enforcing one payment per order.
func (r *MockPaymentRepository) Create(payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.payments {
		if existing.OrderID == payment.OrderID {
			return fmt.Errorf("payment for order %s already exists: %w", payment.OrderID, apperrors.ErrInvalidPaymentState)
		}
	}
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()
	r.payments[payment.ID] = *payment
	return nil
}

// GetByID returns a payment by its ID.
func (r *MockPaymentRepository) GetByID(id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, apperrors.ErrNotFound)
	}
	return &payment, nil
}

// GetByOrderID returns the payment attached to an order.
func (r *MockPaymentRepository) GetByOrderID(orderID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, payment := range r.payments {
		if payment.OrderID == orderID {
			copied := payment
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("payment for order %s: %w", orderID, apperrors.ErrNotFound)
}

// GetByExternalTransactionID returns a payment by the gateway-assigned id.
func (r *MockPaymentRepository) GetByExternalTransactionID(transactionID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if transactionID == "" {
		return nil, fmt.Errorf("payment with empty transaction id: %w", apperrors.ErrNotFound)
	}
	for _, payment := range r.payments {
		if payment.ExternalTransactionID == transactionID {
			copied := payment
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("payment with transaction %s: %w", transactionID, apperrors.ErrNotFound)
}

// Update writes the mutable payment fields when the stored version matches.
func (r *MockPaymentRepository) Update(payment *models.Payment, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.payments[payment.ID]
	if !ok {
		return fmt.Errorf("payment %s: %w", payment.ID, apperrors.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("payment %s: %w", payment.ID, apperrors.ErrConcurrentModification)
	}
	stored.Status = payment.Status
	stored.ExternalTransactionID = payment.ExternalTransactionID
	stored.RefundedAmount = payment.RefundedAmount
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.Now()
	r.payments[payment.ID] = stored
	payment.Version = stored.Version
	payment.UpdatedAt = stored.UpdatedAt
	return nil
}
