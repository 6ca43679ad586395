package usecases

import (
	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
)

// stateInput builds a calculator snapshot from an account.
func stateInput(account *billing.Account) billing.StateInput {
	return billing.StateInput{
		Status:            account.Status(),
		IsAdmin:           account.IsAdmin(),
		TrialStart:        account.TrialStart(),
		TrialEnd:          account.TrialEnd(),
		SubscriptionStart: account.SubscriptionStart(),
		SubscriptionEnd:   account.SubscriptionEnd(),
	}
}

// accessReason maps a derived state to a human-readable decision reason.
func accessReason(state billing.State) string {
	if state.UnrecognizedStatus {
		return "unrecognized_status"
	}
	switch state.Status {
	case vo.StatusAdmin:
		return "admin"
	case vo.StatusTrial:
		if state.CanAccessApp {
			return "trial_active"
		}
		return "trial_expired"
	case vo.StatusActive:
		return "subscription_active"
	case vo.StatusCanceled:
		if state.CanAccessApp {
			return "grace_period"
		}
		return "subscription_ended"
	case vo.StatusPastDue:
		return "payment_past_due"
	default:
		return "no_subscription"
	}
}
