package usecases

import (
	"context"

	"github.com/orris-inc/paywall/internal/application/billing/dto"
	"github.com/orris-inc/paywall/internal/application/billing/providergateway"
	"github.com/orris-inc/paywall/internal/domain/billing"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// CreatePortalCommand starts a hosted billing portal session.
type CreatePortalCommand struct {
	UserID uint `json:"user_id" validate:"required"`
}

// CreatePortalUseCase opens the provider's billing portal for users that
// already have a provider customer record.
type CreatePortalUseCase struct {
	accountRepo billing.AccountRepository
	gateway     providergateway.Gateway
	returnURL   string
	logger      logger.Interface
}

func NewCreatePortalUseCase(
	accountRepo billing.AccountRepository,
	gateway providergateway.Gateway,
	returnURL string,
	logger logger.Interface,
) *CreatePortalUseCase {
	return &CreatePortalUseCase{
		accountRepo: accountRepo,
		gateway:     gateway,
		returnURL:   returnURL,
		logger:      logger,
	}
}

func (uc *CreatePortalUseCase) Execute(ctx context.Context, cmd CreatePortalCommand) (*dto.PortalSessionDTO, error) {
	account, err := uc.accountRepo.FindByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	if account.CustomerID() == nil {
		return nil, apperrors.NewBadRequestError("no billing history", "user has never started a checkout")
	}

	url, err := uc.gateway.CreatePortalSession(ctx, *account.CustomerID(), uc.returnURL)
	if err != nil {
		uc.logger.Errorw("failed to create portal session", "user_id", cmd.UserID, "error", err)
		return nil, apperrors.NewInternalError("failed to create portal session")
	}

	return &dto.PortalSessionDTO{PortalURL: url}, nil
}
