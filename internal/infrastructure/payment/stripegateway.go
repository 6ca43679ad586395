// Package payment contains payment provider gateway implementations.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/orris-inc/paywall/internal/application/billing/providergateway"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// StripeGateway implements providergateway.Gateway against the Stripe API.
type StripeGateway struct {
	webhookSecret string
	logger        logger.Interface
}

// NewStripeGateway configures the Stripe client and returns the gateway.
func NewStripeGateway(secretKey, webhookSecret string, logger logger.Interface) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*providergateway.WebhookEnvelope, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return &providergateway.WebhookEnvelope{
		ID:     event.ID,
		Type:   string(event.Type),
		Object: event.Data.Raw,
	}, nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*providergateway.SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	}
	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription %s: %w", subscriptionID, err)
	}
	return g.snapshot(sub), nil
}

func (g *StripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*providergateway.SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	sub, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel subscription %s: %w", subscriptionID, err)
	}
	return g.snapshot(sub), nil
}

func (g *StripeGateway) Reactivate(ctx context.Context, subscriptionID string) (*providergateway.SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(false),
	}
	sub, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to reactivate subscription %s: %w", subscriptionID, err)
	}
	return g.snapshot(sub), nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email string, userID uint) (string, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
	}
	params.AddMetadata("user_id", fmt.Sprintf("%d", userID))

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return cust.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req providergateway.CheckoutSessionRequest) (*providergateway.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(req.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.TrialDays > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(int64(req.TrialDays)),
		}
	}
	params.AddMetadata("user_id", fmt.Sprintf("%d", req.UserID))

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &providergateway.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return sess.URL, nil
}

// snapshot converts a Stripe subscription to the gateway snapshot. Newer
// API versions report period bounds on subscription items, so the
// subscription-level fields fall back to the first item when zero.
func (g *StripeGateway) snapshot(sub *stripe.Subscription) *providergateway.SubscriptionSnapshot {
	snap := &providergateway.SubscriptionSnapshot{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		TrialStart:        unixTime(sub.TrialStart),
		TrialEnd:          unixTime(sub.TrialEnd),
	}
	if sub.Customer != nil {
		snap.CustomerID = sub.Customer.ID
	}

	// stripe-go v82 removed the subscription-level period fields entirely,
	// so the item fallback below is the only source of period bounds.
	var periodStart, periodEnd int64
	if periodEnd == 0 && sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		periodStart = item.CurrentPeriodStart
		periodEnd = item.CurrentPeriodEnd
		g.logger.Debugw("using period bounds from first subscription item",
			"subscription_id", sub.ID,
			"item_id", item.ID,
		)
	}
	snap.CurrentPeriodStart = unixTime(periodStart)
	snap.CurrentPeriodEnd = unixTime(periodEnd)
	return snap
}

func unixTime(v int64) *time.Time {
	if v <= 0 {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}
