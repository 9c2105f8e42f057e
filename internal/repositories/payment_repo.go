package repositories

import (
	"fulfillment/internal/models"
)

// PaymentRepository defines the interface for payment data access. Update
// persists status, external transaction id and refunded amount under the
// version condition; on success the passed struct's Version is bumped.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id string) (*models.Payment, error)
	GetByOrderID(orderID string) (*models.Payment, error)
	GetByExternalTransactionID(transactionID string) (*models.Payment, error)
	Update(payment *models.Payment, expectedVersion int) error
}
