package billing

import (
	"fmt"
	"strings"
	"time"

	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
)

// WebhookEvent is a row in the idempotency ledger. Each provider event ID
// maps to exactly one row; the unique constraint on the event ID is the
// only cross-worker coordination primitive the subsystem needs.
type WebhookEvent struct {
	id           uint
	eventID      string
	eventType    string
	status       vo.EventStatus
	payload      []byte
	retryCount   int
	errorMessage *string
	receivedAt   time.Time
	processedAt  *time.Time
}

// NewWebhookEvent creates a ledger row in processing status for a freshly
// claimed event.
func NewWebhookEvent(eventID, eventType string, payload []byte, now time.Time) (*WebhookEvent, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("event ID is required")
	}
	if strings.TrimSpace(eventType) == "" {
		return nil, fmt.Errorf("event type is required")
	}

	return &WebhookEvent{
		eventID:    eventID,
		eventType:  eventType,
		status:     vo.EventStatusProcessing,
		payload:    payload,
		receivedAt: now.UTC(),
	}, nil
}

// ReconstructWebhookEvent reconstructs a ledger row from persistence
func ReconstructWebhookEvent(
	id uint,
	eventID, eventType string,
	status vo.EventStatus,
	payload []byte,
	retryCount int,
	errorMessage *string,
	receivedAt time.Time,
	processedAt *time.Time,
) (*WebhookEvent, error) {
	if id == 0 {
		return nil, fmt.Errorf("ledger row ID cannot be zero")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid event status: %s", status)
	}

	return &WebhookEvent{
		id:           id,
		eventID:      eventID,
		eventType:    eventType,
		status:       status,
		payload:      payload,
		retryCount:   retryCount,
		errorMessage: errorMessage,
		receivedAt:   receivedAt,
		processedAt:  processedAt,
	}, nil
}

// ID returns the row ID
func (e *WebhookEvent) ID() uint { return e.id }

// EventID returns the provider event ID
func (e *WebhookEvent) EventID() string { return e.eventID }

// EventType returns the provider event type
func (e *WebhookEvent) EventType() string { return e.eventType }

// Status returns the ledger status
func (e *WebhookEvent) Status() vo.EventStatus { return e.status }

// Payload returns the raw event payload
func (e *WebhookEvent) Payload() []byte { return e.payload }

// RetryCount returns how many times processing has failed
func (e *WebhookEvent) RetryCount() int { return e.retryCount }

// ErrorMessage returns the last failure message, if any
func (e *WebhookEvent) ErrorMessage() *string { return e.errorMessage }

// ReceivedAt returns when the row was last claimed
func (e *WebhookEvent) ReceivedAt() time.Time { return e.receivedAt }

// ProcessedAt returns when the row reached a terminal status
func (e *WebhookEvent) ProcessedAt() *time.Time { return e.processedAt }

// MarkSucceeded transitions the row to its terminal succeeded status.
func (e *WebhookEvent) MarkSucceeded(now time.Time) error {
	if e.status == vo.EventStatusSucceeded {
		return fmt.Errorf("event %s already succeeded", e.eventID)
	}
	now = now.UTC()
	e.status = vo.EventStatusSucceeded
	e.errorMessage = nil
	e.processedAt = &now
	return nil
}

// MarkFailed records a processing failure. The row stays re-claimable
// so a later redelivery can retry.
func (e *WebhookEvent) MarkFailed(reason string, now time.Time) error {
	if e.status == vo.EventStatusSucceeded {
		return fmt.Errorf("event %s already succeeded", e.eventID)
	}
	now = now.UTC()
	e.status = vo.EventStatusFailed
	e.errorMessage = &reason
	e.retryCount++
	e.processedAt = &now
	return nil
}

// IsStale reports whether a processing claim is older than the given
// threshold, meaning the worker that claimed it likely died.
func (e *WebhookEvent) IsStale(threshold time.Duration, now time.Time) bool {
	return e.status == vo.EventStatusProcessing && now.UTC().Sub(e.receivedAt) > threshold
}
