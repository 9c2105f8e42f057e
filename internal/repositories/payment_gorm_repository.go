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

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{
		db: db,
	}
}

// Create persists a new payment. The unique index on order_id enforces the
// one-payment-per-order rule at the store level.
func (r *GORMPaymentRepository) Create(payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if err := r.db.Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("payment for order %s already exists: %w", payment.OrderID, apperrors.ErrInvalidPaymentState)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by internal id.
func (r *GORMPaymentRepository) GetByID(id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment %s: %w", id, err)
	}
	return &payment, nil
}

// GetByOrderID retrieves the payment attached to an order.
func (r *GORMPaymentRepository) GetByOrderID(orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment for order %s: %w", orderID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment for order %s: %w", orderID, err)
	}
	return &payment, nil
}

// GetByExternalTransactionID retrieves a payment by the gateway-assigned id.
func (r *GORMPaymentRepository) GetByExternalTransactionID(transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, "external_transaction_id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment with transaction %s: %w", transactionID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment by transaction %s: %w", transactionID, err)
	}
	return &payment, nil
}

// Update writes the mutable payment fields under the version condition and
// bumps the struct's version on success.
func (r *GORMPaymentRepository) Update(payment *models.Payment, expectedVersion int) error {
	now := time.Now()
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND version = ?", payment.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":                  payment.Status,
			"external_transaction_id": payment.ExternalTransactionID,
			"refunded_amount":         payment.RefundedAmount,
			"version":                 expectedVersion + 1,
			"updated_at":              now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update payment %s: %w", payment.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.Payment{}).Where("id = ?", payment.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to update payment %s: %w", payment.ID, err)
		}
		if count == 0 {
			return fmt.Errorf("payment %s: %w", payment.ID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("payment %s: %w", payment.ID, apperrors.ErrConcurrentModification)
	}
	payment.Version = expectedVersion + 1
	payment.UpdatedAt = now
	return nil
}
