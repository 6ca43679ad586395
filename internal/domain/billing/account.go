package billing

import (
	"fmt"
	"strings"
	"time"

	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
)

// Account is the canonical billing record for a user. It is the single
// source of truth for subscription status and is mutated only by the
// webhook reconciler or by explicit user-initiated cancel/reactivate
// actions that re-sync from the provider.
type Account struct {
	id                uint
	userID            uint
	email             string
	isAdmin           bool
	status            vo.AccountStatus
	customerID        *string
	subscriptionID    *string
	subscriptionStart *time.Time
	subscriptionEnd   *time.Time
	trialStart        *time.Time
	trialEnd          *time.Time
	metadata          map[string]interface{}
	version           int
	createdAt         time.Time
	updatedAt         time.Time
}

// NewAccount creates a billing account for a new user, starting a trial
// window of trialDays from now.
func NewAccount(userID uint, email string, trialDays int, now time.Time) (*Account, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("email is required")
	}
	if trialDays < 0 {
		return nil, fmt.Errorf("trial days cannot be negative")
	}

	now = now.UTC()
	trialEnd := now.Add(time.Duration(trialDays) * 24 * time.Hour)

	return &Account{
		userID:     userID,
		email:      email,
		status:     vo.StatusTrial,
		trialStart: &now,
		trialEnd:   &trialEnd,
		metadata:   make(map[string]interface{}),
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructAccount reconstructs an account from persistence
func ReconstructAccount(
	id, userID uint,
	email string,
	isAdmin bool,
	status vo.AccountStatus,
	customerID, subscriptionID *string,
	subscriptionStart, subscriptionEnd *time.Time,
	trialStart, trialEnd *time.Time,
	metadata map[string]interface{},
	version int,
	createdAt, updatedAt time.Time,
) (*Account, error) {
	if id == 0 {
		return nil, fmt.Errorf("account ID cannot be zero")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid account status: %s", status)
	}

	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Account{
		id:                id,
		userID:            userID,
		email:             email,
		isAdmin:           isAdmin,
		status:            status,
		customerID:        customerID,
		subscriptionID:    subscriptionID,
		subscriptionStart: normalizePtr(subscriptionStart),
		subscriptionEnd:   normalizePtr(subscriptionEnd),
		trialStart:        normalizePtr(trialStart),
		trialEnd:          normalizePtr(trialEnd),
		metadata:          metadata,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}, nil
}

// ID returns the account ID
func (a *Account) ID() uint { return a.id }

// UserID returns the owning user's ID
func (a *Account) UserID() uint { return a.userID }

// Email returns the account email
func (a *Account) Email() string { return a.email }

// IsAdmin reports whether the account bypasses billing checks
func (a *Account) IsAdmin() bool { return a.isAdmin }

// Status returns the canonical billing status
func (a *Account) Status() vo.AccountStatus { return a.status }

// CustomerID returns the provider customer ID, if linked
func (a *Account) CustomerID() *string { return a.customerID }

// SubscriptionID returns the provider subscription ID, if any
func (a *Account) SubscriptionID() *string { return a.subscriptionID }

// SubscriptionStart returns the current period start
func (a *Account) SubscriptionStart() *time.Time { return a.subscriptionStart }

// SubscriptionEnd returns the current period end
func (a *Account) SubscriptionEnd() *time.Time { return a.subscriptionEnd }

// TrialStart returns the trial window start
func (a *Account) TrialStart() *time.Time { return a.trialStart }

// TrialEnd returns the trial window end
func (a *Account) TrialEnd() *time.Time { return a.trialEnd }

// Metadata returns the account metadata
func (a *Account) Metadata() map[string]interface{} { return a.metadata }

// Version returns the optimistic-lock version
func (a *Account) Version() int { return a.version }

// CreatedAt returns the creation timestamp
func (a *Account) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the last update timestamp
func (a *Account) UpdatedAt() time.Time { return a.updatedAt }

// LinkCustomer associates the account with a provider customer ID.
func (a *Account) LinkCustomer(customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return fmt.Errorf("customer ID is required")
	}
	a.customerID = &customerID
	a.touch()
	return nil
}

// AttachSubscription records the provider subscription ID without touching
// status or period bounds.
func (a *Account) AttachSubscription(subscriptionID string) error {
	if strings.TrimSpace(subscriptionID) == "" {
		return fmt.Errorf("subscription ID is required")
	}
	a.subscriptionID = &subscriptionID
	a.touch()
	return nil
}

// ActivateFromProvider forces the account active with the given subscription
// and period bounds. Used when a checkout completes or a payment succeeds,
// regardless of which events have arrived so far.
func (a *Account) ActivateFromProvider(subscriptionID string, periodStart, periodEnd *time.Time) error {
	if strings.TrimSpace(subscriptionID) == "" {
		return fmt.Errorf("subscription ID is required")
	}
	a.subscriptionID = &subscriptionID
	a.status = vo.StatusActive
	if periodStart != nil {
		a.subscriptionStart = normalizePtr(periodStart)
	}
	if periodEnd != nil {
		a.subscriptionEnd = normalizePtr(periodEnd)
	}
	a.touch()
	return nil
}

// SyncFromProvider applies a freshly fetched provider snapshot as an
// ordinary field sync. Period bounds are only written when present in
// the snapshot so a partial fetch never nulls existing dates.
func (a *Account) SyncFromProvider(status vo.AccountStatus, periodStart, periodEnd, trialEnd *time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid account status: %s", status)
	}
	a.status = status
	if periodStart != nil {
		a.subscriptionStart = normalizePtr(periodStart)
	}
	if periodEnd != nil {
		a.subscriptionEnd = normalizePtr(periodEnd)
	}
	if trialEnd != nil {
		a.trialEnd = normalizePtr(trialEnd)
	}
	a.touch()
	return nil
}

// ScheduleCancellation marks the subscription as canceled at period end.
// The subscription ID is kept so access persists until the period end and
// reactivation remains possible.
func (a *Account) ScheduleCancellation(periodEnd *time.Time) {
	a.status = vo.StatusCanceled
	if periodEnd != nil {
		a.subscriptionEnd = normalizePtr(periodEnd)
	}
	a.touch()
}

// ReactivateFromProvider transitions a canceled account back to active.
// The subscription start is left unchanged, and the period end must not
// regress relative to its pre-reactivation value.
func (a *Account) ReactivateFromProvider(periodEnd *time.Time) error {
	if a.status != vo.StatusCanceled {
		return fmt.Errorf("cannot reactivate account in status %s", a.status)
	}
	if periodEnd != nil && a.subscriptionEnd != nil && periodEnd.UTC().Before(a.subscriptionEnd.UTC()) {
		return fmt.Errorf("reactivation period end %s regresses before current %s",
			periodEnd.UTC().Format(time.RFC3339), a.subscriptionEnd.UTC().Format(time.RFC3339))
	}
	a.status = vo.StatusActive
	if periodEnd != nil {
		a.subscriptionEnd = normalizePtr(periodEnd)
	}
	a.touch()
	return nil
}

// ApplyDeletion handles a true subscription termination. The record is only
// touched when the deleted subscription ID matches the account's current
// one; a mismatch means the user already created a replacement subscription
// and the event must be ignored.
func (a *Account) ApplyDeletion(subscriptionID string) bool {
	if a.subscriptionID == nil || *a.subscriptionID != subscriptionID {
		return false
	}
	a.subscriptionID = nil
	a.status = vo.StatusCanceled
	a.touch()
	return true
}

// MarkPastDue records a failed payment without destroying the subscription
// link or period bounds.
func (a *Account) MarkPastDue() {
	a.status = vo.StatusPastDue
	a.touch()
}

// EnsureTrialWindow synthesizes a default trial window when both trial
// timestamps are absent. Returns true if the window was synthesized.
func (a *Account) EnsureTrialWindow(trialDays int, now time.Time) bool {
	if a.trialStart != nil || a.trialEnd != nil {
		return false
	}
	now = now.UTC()
	end := now.Add(time.Duration(trialDays) * 24 * time.Hour)
	a.trialStart = &now
	a.trialEnd = &end
	a.touch()
	return true
}

// RemainingTrialDays returns the whole days left in the trial window,
// floored, never negative.
func (a *Account) RemainingTrialDays(now time.Time) int {
	if a.trialEnd == nil {
		return 0
	}
	secs := a.trialEnd.UTC().Sub(now.UTC()).Seconds()
	if secs <= 0 {
		return 0
	}
	return int(secs / 86400)
}

// SetMetadataValue sets a metadata key
func (a *Account) SetMetadataValue(key string, value interface{}) {
	if a.metadata == nil {
		a.metadata = make(map[string]interface{})
	}
	a.metadata[key] = value
	a.touch()
}

func (a *Account) touch() {
	a.updatedAt = time.Now().UTC()
	a.version++
}

// normalizePtr returns a UTC copy of the given timestamp.
func normalizePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
