package billing

import (
	"time"

	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
)

// DefaultTrialDays is the trial window synthesized for accounts with no
// recorded trial dates.
const DefaultTrialDays = 7

// StateInput is the snapshot of a billing account the state calculator
// operates on. All timestamps are normalized to UTC before comparison.
type StateInput struct {
	Status            vo.AccountStatus
	IsAdmin           bool
	TrialStart        *time.Time
	TrialEnd          *time.Time
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
}

// State is the derived subscription state. It is computed on demand and
// never cached beyond a single request.
type State struct {
	Status                  vo.AccountStatus
	AccessLevel             vo.AccessLevel
	DaysRemaining           int
	IsExpired               bool
	CanAccessApp            bool
	ShouldRedirectToPricing bool
	ReactivationAvailable   bool
	// UnrecognizedStatus signals the input carried a status outside the
	// known set. Callers should log a warning; access is denied.
	UnrecognizedStatus bool
}

// CalculateState derives the access decision from a billing snapshot and
// the current time. It is a pure function: no clock reads, no I/O.
func CalculateState(in StateInput, now time.Time) State {
	now = now.UTC()

	if in.IsAdmin || in.Status == vo.StatusAdmin {
		return State{
			Status:       vo.StatusAdmin,
			AccessLevel:  vo.AccessLevelFull,
			CanAccessApp: true,
		}
	}

	switch in.Status {
	case vo.StatusTrial:
		trialEnd := in.TrialEnd
		if trialEnd == nil {
			if in.TrialStart != nil {
				// Legacy rows may carry a start without an end.
				end := in.TrialStart.UTC().Add(DefaultTrialDays * 24 * time.Hour)
				trialEnd = &end
			} else {
				// New-user default: no trial dates were ever recorded.
				end := now.Add(DefaultTrialDays * 24 * time.Hour)
				trialEnd = &end
			}
		}
		return boundaryState(in.Status, vo.AccessLevelTrial, trialEnd, now, false)

	case vo.StatusActive:
		if in.SubscriptionEnd == nil {
			return State{
				Status:       in.Status,
				AccessLevel:  vo.AccessLevelFull,
				CanAccessApp: true,
			}
		}
		return boundaryState(in.Status, vo.AccessLevelFull, in.SubscriptionEnd, now, false)

	case vo.StatusCanceled:
		if in.SubscriptionEnd == nil {
			return deniedState(in.Status, false)
		}
		// Grace period: access and reactivation both last until period end.
		s := boundaryState(in.Status, vo.AccessLevelFull, in.SubscriptionEnd, now, false)
		s.ReactivationAvailable = s.CanAccessApp
		return s

	case vo.StatusPastDue:
		return deniedState(in.Status, true)

	case vo.StatusUnpaid, vo.StatusIncomplete, vo.StatusIncompleteExpired:
		return deniedState(in.Status, false)

	default:
		s := deniedState(in.Status, false)
		s.UnrecognizedStatus = true
		return s
	}
}

// boundaryState builds a state whose access expires at the given boundary.
func boundaryState(status vo.AccountStatus, level vo.AccessLevel, boundary *time.Time, now time.Time, reactivation bool) State {
	canAccess := boundary != nil && now.Before(boundary.UTC())
	s := State{
		Status:                  status,
		DaysRemaining:           daysUntil(boundary, now),
		IsExpired:               !canAccess,
		CanAccessApp:            canAccess,
		ShouldRedirectToPricing: !canAccess,
		ReactivationAvailable:   reactivation,
	}
	if canAccess {
		s.AccessLevel = level
	} else {
		s.AccessLevel = vo.AccessLevelNone
	}
	return s
}

func deniedState(status vo.AccountStatus, reactivation bool) State {
	return State{
		Status:                  status,
		AccessLevel:             vo.AccessLevelNone,
		IsExpired:               true,
		ShouldRedirectToPricing: true,
		ReactivationAvailable:   reactivation,
	}
}

// daysUntil returns whole days until the boundary, floored, never negative.
func daysUntil(boundary *time.Time, now time.Time) int {
	if boundary == nil {
		return 0
	}
	secs := boundary.UTC().Sub(now).Seconds()
	if secs <= 0 {
		return 0
	}
	return int(secs / 86400)
}
