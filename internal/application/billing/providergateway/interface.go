// Package providergateway defines the payment provider abstraction used by
// the billing use cases. The concrete Stripe implementation lives in
// internal/infrastructure/stripe.
package providergateway

import (
	"context"
	"time"
)

// Gateway is the payment provider interface. All period boundaries come
// from freshly fetched provider objects, never from webhook payloads.
type Gateway interface {
	// VerifyWebhook authenticates a raw webhook delivery against the shared
	// signing secret and returns the decoded envelope. Verification happens
	// before any JSON parsing of the body.
	VerifyWebhook(payload []byte, signature string) (*WebhookEnvelope, error)
	// GetSubscription fetches the authoritative subscription object by ID.
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	// CancelAtPeriodEnd schedules a cancellation and returns the updated object.
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	// Reactivate clears a scheduled cancellation and returns the updated object.
	Reactivate(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	// CreateCustomer registers the user with the provider.
	CreateCustomer(ctx context.Context, email string, userID uint) (string, error)
	// CreateCheckoutSession starts a hosted checkout flow.
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	// CreatePortalSession starts a hosted billing portal session.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// WebhookEnvelope is a verified webhook event. Object carries the raw JSON
// of the event's data object for handler-local decoding.
type WebhookEnvelope struct {
	ID     string
	Type   string
	Object []byte
}

// SubscriptionSnapshot is the authoritative view of a provider subscription.
type SubscriptionSnapshot struct {
	ID                 string
	CustomerID         string
	Status             string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
}

// CheckoutSessionRequest holds parameters for a hosted checkout session.
type CheckoutSessionRequest struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	// TrialDays grants the remaining app-side trial as a provider trial.
	// Zero means no trial period on the new subscription.
	TrialDays int
	UserID    uint
}

// CheckoutSession is the created hosted checkout session.
type CheckoutSession struct {
	ID  string
	URL string
}
