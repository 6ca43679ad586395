package valueobjects

// AccountStatus represents the canonical billing status of an account.
// Values mirror the payment provider's subscription statuses plus the
// app-level trial and admin statuses.
type AccountStatus string

const (
	StatusTrial             AccountStatus = "trial"
	StatusActive            AccountStatus = "active"
	StatusCanceled          AccountStatus = "canceled"
	StatusPastDue           AccountStatus = "past_due"
	StatusUnpaid            AccountStatus = "unpaid"
	StatusIncomplete        AccountStatus = "incomplete"
	StatusIncompleteExpired AccountStatus = "incomplete_expired"
	StatusAdmin             AccountStatus = "admin"
)

// ValidStatuses is the set of recognized account statuses.
var ValidStatuses = map[AccountStatus]bool{
	StatusTrial:             true,
	StatusActive:            true,
	StatusCanceled:          true,
	StatusPastDue:           true,
	StatusUnpaid:            true,
	StatusIncomplete:        true,
	StatusIncompleteExpired: true,
	StatusAdmin:             true,
}

// String returns the string representation of the status
func (s AccountStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a recognized value
func (s AccountStatus) IsValid() bool {
	return ValidStatuses[s]
}

// ParseAccountStatus converts a provider status string to an AccountStatus.
// The provider's "trialing" maps to the app-level trial status. Unrecognized
// strings are returned as-is so callers can decide how to handle them.
func ParseAccountStatus(s string) AccountStatus {
	if s == "trialing" {
		return StatusTrial
	}
	return AccountStatus(s)
}
