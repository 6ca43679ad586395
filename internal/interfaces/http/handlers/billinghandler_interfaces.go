package handlers

import (
	"context"

	"github.com/orris-inc/paywall/internal/application/billing/dto"
	"github.com/orris-inc/paywall/internal/application/billing/usecases"
)

// Use case interfaces for BillingHandler

type createBillingAccountUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreateBillingAccountCommand) error
}

type getBillingStatusUseCase interface {
	Execute(ctx context.Context, userID uint) (*dto.BillingStatusDTO, error)
}

type getAccessDecisionUseCase interface {
	Execute(ctx context.Context, userID uint) (*dto.AccessDecisionDTO, error)
}

type createCheckoutUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreateCheckoutCommand) (*dto.CheckoutSessionDTO, error)
}

type createPortalUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreatePortalCommand) (*dto.PortalSessionDTO, error)
}

type cancelSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd usecases.CancelSubscriptionCommand) (*dto.CancellationDTO, error)
}

type reactivateSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd usecases.ReactivateSubscriptionCommand) (*dto.ReactivationDTO, error)
}
