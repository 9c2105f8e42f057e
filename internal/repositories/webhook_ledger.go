package repositories

// WebhookLedger is the idempotency ledger of processed external events.
// Record must be atomic with respect to concurrent deliveries of the same
// event: it relies on a unique constraint over (provider, eventID), not on
// a separate read-then-write, and returns ErrDuplicateEvent on a hit.
type WebhookLedger interface {
	Seen(provider, eventID string) (bool, error)
	Record(provider, eventID string) error
}
