package models

import "time"

// ReturnStatus is the lifecycle status of a ReturnRequest.
type ReturnStatus string

const (
	ReturnRequested ReturnStatus = "REQUESTED"
	ReturnApproved  ReturnStatus = "APPROVED"
	ReturnRejected  ReturnStatus = "REJECTED"
	ReturnCompleted ReturnStatus = "COMPLETED"
)

// Valid reports whether the status is one of the known return statuses.
func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnRequested, ReturnApproved, ReturnRejected, ReturnCompleted:
		return true
	}
	return false
}

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnRequested: {ReturnApproved, ReturnRejected},
	ReturnApproved:  {ReturnCompleted},
	ReturnRejected:  {},
	ReturnCompleted: {},
}

// ReturnRequest is a customer request to return a single order item of a
// delivered order.
type ReturnRequest struct {
	ID              string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderItemID     string       `json:"order_item_id" gorm:"index;type:varchar(36)"`
	CustomerID      string       `json:"customer_id" gorm:"index;type:varchar(36)"` // equals the owning Order's customer
	Reason          string       `json:"reason" gorm:"type:varchar(500)"`
	Status          ReturnStatus `json:"status" gorm:"type:varchar(20);index"`
	ResolutionNotes string       `json:"resolution_notes,omitempty" gorm:"type:varchar(500)"` // empty until resolved
	Version         int          `json:"version"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Open reports whether the request is still awaiting a final resolution.
func (r *ReturnRequest) Open() bool {
	return r.Status == ReturnRequested || r.Status == ReturnApproved
}

// CanTransitionTo reports whether moving the request to the given status is
// allowed from its current status.
func (r *ReturnRequest) CanTransitionTo(to ReturnStatus) bool {
	for _, allowed := range returnTransitions[r.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}
