package usecases

import (
	"context"

	"github.com/orris-inc/paywall/internal/application/billing/dto"
	"github.com/orris-inc/paywall/internal/application/billing/providergateway"
	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	"github.com/orris-inc/paywall/internal/shared/biztime"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// ReactivateSubscriptionCommand clears a scheduled cancellation.
type ReactivateSubscriptionCommand struct {
	UserID uint `json:"user_id" validate:"required"`
}

// ReactivateSubscriptionUseCase reverses a cancellation before the paid
// period ends. Expired subscriptions cannot be reactivated, only
// re-purchased via a new checkout.
type ReactivateSubscriptionUseCase struct {
	accountRepo billing.AccountRepository
	gateway     providergateway.Gateway
	notifier    BillingNotifier // Optional
	logger      logger.Interface
}

func NewReactivateSubscriptionUseCase(
	accountRepo billing.AccountRepository,
	gateway providergateway.Gateway,
	logger logger.Interface,
) *ReactivateSubscriptionUseCase {
	return &ReactivateSubscriptionUseCase{
		accountRepo: accountRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// SetNotifier sets the email notifier (optional dependency injection)
func (uc *ReactivateSubscriptionUseCase) SetNotifier(notifier BillingNotifier) {
	uc.notifier = notifier
}

func (uc *ReactivateSubscriptionUseCase) Execute(ctx context.Context, cmd ReactivateSubscriptionCommand) (*dto.ReactivationDTO, error) {
	account, err := uc.accountRepo.FindByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	if account.Status() != vo.StatusCanceled {
		return nil, apperrors.NewBadRequestError("subscription is not canceled",
			"current status: "+account.Status().String())
	}
	if account.SubscriptionID() == nil {
		return nil, apperrors.NewBadRequestError("no subscription to reactivate")
	}
	now := biztime.NowUTC()
	if account.SubscriptionEnd() == nil || !now.Before(account.SubscriptionEnd().UTC()) {
		return nil, apperrors.NewBadRequestError("subscription already expired",
			"an expired subscription must be re-purchased")
	}

	snap, err := uc.gateway.Reactivate(ctx, *account.SubscriptionID())
	if err != nil {
		uc.logger.Errorw("provider reactivation failed",
			"user_id", cmd.UserID,
			"subscription_id", *account.SubscriptionID(),
			"error", err,
		)
		return nil, apperrors.NewInternalError("failed to reactivate subscription with provider")
	}

	if err := account.ReactivateFromProvider(snap.CurrentPeriodEnd); err != nil {
		uc.logger.Errorw("rejecting reactivation",
			"user_id", cmd.UserID,
			"subscription_id", snap.ID,
			"error", err,
		)
		return nil, apperrors.NewInternalError("provider returned inconsistent subscription state")
	}
	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return nil, apperrors.NewInternalError("failed to save reactivation")
	}

	uc.logger.Infow("subscription reactivated",
		"user_id", cmd.UserID,
		"subscription_id", snap.ID,
	)

	if uc.notifier != nil {
		sendBillingEmail(uc.notifier, uc.logger, account.Email(), TemplateReactivated, reactivationVars(account))
	}

	return &dto.ReactivationDTO{
		Status:          account.Status().String(),
		SubscriptionEnd: account.SubscriptionEnd(),
	}, nil
}
