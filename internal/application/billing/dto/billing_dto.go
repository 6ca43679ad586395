// Package dto contains data transfer objects for billing use cases.
package dto

import (
	"time"

	"github.com/orris-inc/paywall/internal/domain/billing"
)

// AccessDecisionDTO is the result of an access gate check.
type AccessDecisionDTO struct {
	CanAccess     bool   `json:"can_access"`
	Reason        string `json:"reason"`
	DaysRemaining int    `json:"days_remaining"`
}

// BillingStatusDTO is the full derived billing state of an account.
type BillingStatusDTO struct {
	Status                  string     `json:"status"`
	AccessLevel             string     `json:"access_level"`
	DaysRemaining           int        `json:"days_remaining"`
	IsExpired               bool       `json:"is_expired"`
	CanAccessApp            bool       `json:"can_access_app"`
	ShouldRedirectToPricing bool       `json:"should_redirect_to_pricing"`
	ReactivationAvailable   bool       `json:"reactivation_available"`
	SubscriptionID          *string    `json:"subscription_id,omitempty"`
	SubscriptionStart       *time.Time `json:"subscription_start,omitempty"`
	SubscriptionEnd         *time.Time `json:"subscription_end,omitempty"`
	TrialStart              *time.Time `json:"trial_start,omitempty"`
	TrialEnd                *time.Time `json:"trial_end,omitempty"`
}

// CreateCheckoutRequest carries optional redirect overrides for a hosted
// checkout session. Empty fields fall back to the configured URLs.
type CreateCheckoutRequest struct {
	SuccessURL string `json:"success_url" validate:"omitempty,url"`
	CancelURL  string `json:"cancel_url" validate:"omitempty,url"`
}

// CheckoutSessionDTO is a created hosted checkout session.
type CheckoutSessionDTO struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// PortalSessionDTO is a created hosted billing portal session.
type PortalSessionDTO struct {
	PortalURL string `json:"portal_url"`
}

// CancellationDTO is the outcome of a user-initiated cancellation.
type CancellationDTO struct {
	Status        string     `json:"status"`
	AccessUntil   *time.Time `json:"access_until,omitempty"`
	DaysRemaining int        `json:"days_remaining"`
}

// ReactivationDTO is the outcome of a user-initiated reactivation.
type ReactivationDTO struct {
	Status          string     `json:"status"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
}

// BillingStatusToDTO converts a derived state plus account fields to a DTO.
func BillingStatusToDTO(state billing.State, account *billing.Account) *BillingStatusDTO {
	return &BillingStatusDTO{
		Status:                  state.Status.String(),
		AccessLevel:             state.AccessLevel.String(),
		DaysRemaining:           state.DaysRemaining,
		IsExpired:               state.IsExpired,
		CanAccessApp:            state.CanAccessApp,
		ShouldRedirectToPricing: state.ShouldRedirectToPricing,
		ReactivationAvailable:   state.ReactivationAvailable,
		SubscriptionID:          account.SubscriptionID(),
		SubscriptionStart:       account.SubscriptionStart(),
		SubscriptionEnd:         account.SubscriptionEnd(),
		TrialStart:              account.TrialStart(),
		TrialEnd:                account.TrialEnd(),
	}
}
