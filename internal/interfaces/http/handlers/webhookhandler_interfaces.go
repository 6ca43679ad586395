package handlers

import (
	"context"

	"github.com/orris-inc/paywall/internal/application/billing/usecases"
)

// Use case interfaces for WebhookHandler

type processWebhookUseCase interface {
	Execute(ctx context.Context, cmd usecases.ProcessWebhookCommand) error
}
