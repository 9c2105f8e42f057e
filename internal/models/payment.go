package models

import "time"

// PaymentStatus is the lifecycle status of a Payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentSuccess    PaymentStatus = "SUCCESS"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

// PaymentMethod is the customer-chosen payment method recorded at initiation.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "CARD"
	MethodPaypal       PaymentMethod = "PAYPAL"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Valid reports whether the method is one of the supported values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodPaypal, MethodBankTransfer:
		return true
	}
	return false
}

// paymentTransitions is the allow-list of Payment moves. A payment never
// regresses from SUCCESS; FAILED may be re-initiated (FAILED -> PENDING)
// so a customer can retry after a declined charge.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing, PaymentSuccess, PaymentFailed},
	PaymentProcessing: {PaymentSuccess, PaymentFailed},
	PaymentSuccess:    {PaymentRefunded},
	PaymentFailed:     {PaymentPending},
	PaymentRefunded:   {},
}

// Payment represents the single payment attached to an order.
type Payment struct {
	ID                    string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID               string        `json:"order_id" gorm:"uniqueIndex;type:varchar(36)"` // one payment per order
	Method                PaymentMethod `json:"method" gorm:"type:varchar(20)"`
	Status                PaymentStatus `json:"status" gorm:"type:varchar(20);index"`
	ExternalTransactionID string        `json:"external_transaction_id,omitempty" gorm:"index;type:varchar(64)"` // empty until the gateway responds
	Amount                float64       `json:"amount"`          // equals Order.TotalAmount at initiation
	RefundedAmount        float64       `json:"refunded_amount"` // cumulative gateway-acknowledged refunds
	Version               int           `json:"version"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// CanTransitionTo reports whether moving the payment to the given status is
// allowed from its current status.
func (p *Payment) CanTransitionTo(to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[p.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}
