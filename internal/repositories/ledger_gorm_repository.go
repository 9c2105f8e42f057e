package repositories

import (
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/apperrors"
	"fulfillment/internal/models"

	"gorm.io/gorm"
)

// GORMWebhookLedger is a GORM implementation of WebhookLedger. Duplicate
// detection rides on the composite primary key (provider, event_id); the
// gorm.DB must be opened with TranslateError so constraint hits surface as
// gorm.ErrDuplicatedKey.
type GORMWebhookLedger struct {
	db *gorm.DB
}

// NewGORMWebhookLedger creates a new instance of GORMWebhookLedger.
func NewGORMWebhookLedger(db *gorm.DB) *GORMWebhookLedger {
	return &GORMWebhookLedger{
		db: db,
	}
}

// Seen reports whether the (provider, eventID) pair is already recorded.
func (l *GORMWebhookLedger) Seen(provider, eventID string) (bool, error) {
	var event models.ProcessedWebhookEvent
	err := l.db.First(&event, "provider = ? AND event_id = ?", provider, eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check webhook ledger for %s/%s: %w", provider, eventID, err)
	}
	return true, nil
}

// Record appends the event to the ledger. A constraint hit from a
// concurrent delivery of the same event becomes ErrDuplicateEvent.
func (l *GORMWebhookLedger) Record(provider, eventID string) error {
	event := models.ProcessedWebhookEvent{
		Provider:    provider,
		EventID:     eventID,
		ProcessedAt: time.Now(),
	}
	if err := l.db.Create(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("webhook event %s/%s: %w", provider, eventID, apperrors.ErrDuplicateEvent)
		}
		return fmt.Errorf("failed to record webhook event %s/%s: %w", provider, eventID, err)
	}
	return nil
}
