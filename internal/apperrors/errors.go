package apperrors

import "errors"

// Sentinel errors for the fulfillment engine. Services wrap these with
// fmt.Errorf("...: %w", err) so callers can match with errors.Is while
// still seeing which aggregate was involved.
var (
	// ErrNotFound covers absent Orders, Payments, Shipments and ReturnRequests.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized means the actor failed an ownership or role check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidStatusTransition means the requested move is not in the
	// allowed set for the aggregate's current status.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrInvalidPaymentState covers payment-specific rule violations:
	// duplicate initiation, disallowed gateway transitions, refunding a
	// payment that is not SUCCESS.
	ErrInvalidPaymentState = errors.New("invalid payment state")

	// ErrPaymentProcessing means the gateway call itself failed.
	ErrPaymentProcessing = errors.New("payment processing failed")

	// ErrRefundFailed means the refund leg against the gateway failed after
	// a SUCCESS payment. The payment is left in SUCCESS.
	ErrRefundFailed = errors.New("refund failed")

	// ErrConcurrentModification means the bounded optimistic-lock retries
	// were exhausted without a clean compare-and-swap.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrDuplicateEvent means the idempotency ledger already holds the
	// (provider, eventID) pair. Webhook handlers acknowledge it as success.
	ErrDuplicateEvent = errors.New("duplicate event")
)
