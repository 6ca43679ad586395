package billing

import (
	"context"
	"time"
)

// AccountRepository defines persistence operations for billing accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByUserID(ctx context.Context, userID uint) (*Account, error)
	FindByCustomerID(ctx context.Context, customerID string) (*Account, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*Account, error)
	Update(ctx context.Context, account *Account) error
}

// ClaimResult is the outcome of a ledger claim attempt. When Claimed is
// false, Existing carries the row that holds the claim.
type ClaimResult struct {
	Claimed  bool
	Existing *WebhookEvent
}

// WebhookEventRepository defines persistence operations for the
// idempotency ledger. ClaimOrGet must guarantee that for a given event ID
// exactly one concurrent caller observes Claimed=true.
type WebhookEventRepository interface {
	// ClaimOrGet atomically inserts the row in processing status. On
	// conflict it reclaims rows in failed status, reclaims processing
	// rows older than staleAfter, and otherwise returns the existing row.
	ClaimOrGet(ctx context.Context, event *WebhookEvent, staleAfter time.Duration) (*ClaimResult, error)
	MarkSucceeded(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID string, reason string) error
	FindByEventID(ctx context.Context, eventID string) (*WebhookEvent, error)
}
