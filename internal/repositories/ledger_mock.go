package repositories

import (
	"fmt"
	"sync"

	"fulfillment/internal/apperrors"
)

// MockWebhookLedger is an in-memory implementation of WebhookLedger. The
// map insert under the mutex gives the same check-and-insert atomicity the
// GORM implementation gets from its unique constraint.
type MockWebhookLedger struct {
	events map[string]struct{}
	mu     sync.Mutex
}

// NewMockWebhookLedger creates a new instance of MockWebhookLedger.
func NewMockWebhookLedger() *MockWebhookLedger {
	return &MockWebhookLedger{
		events: make(map[string]struct{}),
	}
}

func ledgerKey(provider, eventID string) string {
	return provider + "/" + eventID
}

// Seen reports whether the (provider, eventID) pair is already recorded.
func (l *MockWebhookLedger) Seen(provider, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.events[ledgerKey(provider, eventID)]
	return ok, nil
}

// Record appends the event, returning ErrDuplicateEvent on a repeat.
func (l *MockWebhookLedger) Record(provider, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(provider, eventID)
	if _, ok := l.events[key]; ok {
		return fmt.Errorf("webhook event %s/%s: %w", provider, eventID, apperrors.ErrDuplicateEvent)
	}
	l.events[key] = struct{}{}
	return nil
}
