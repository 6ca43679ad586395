package valueobjects

// EventStatus represents the processing status of a webhook event ledger row.
type EventStatus string

const (
	// EventStatusProcessing marks a row claimed by a worker that has not finished.
	EventStatusProcessing EventStatus = "processing"
	// EventStatusSucceeded is terminal. Events in this status are never reprocessed.
	EventStatusSucceeded EventStatus = "succeeded"
	// EventStatusFailed is re-claimable by a subsequent delivery.
	EventStatusFailed EventStatus = "failed"
)

// String returns the string representation of the status
func (s EventStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a recognized value
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusProcessing, EventStatusSucceeded, EventStatusFailed:
		return true
	}
	return false
}
