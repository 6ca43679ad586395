package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/orris-inc/paywall/internal/shared/constants"
)

// WebhookEventModel is the persistence model for the idempotency ledger.
// The unique index on EventID provides the exactly-one-claim guarantee.
type WebhookEventModel struct {
	ID           uint   `gorm:"primarykey"`
	EventID      string `gorm:"not null;size:255;uniqueIndex:idx_webhook_events_event_id"`
	EventType    string `gorm:"not null;size:100;index:idx_webhook_events_event_type"`
	Status       string `gorm:"not null;size:20;default:processing;index:idx_webhook_events_status"`
	Payload      datatypes.JSON
	RetryCount   int `gorm:"not null;default:0"`
	ErrorMessage *string
	ReceivedAt   time.Time `gorm:"not null"`
	ProcessedAt  *time.Time
}

// TableName specifies the table name for GORM
func (WebhookEventModel) TableName() string {
	return constants.TableWebhookEvents
}
