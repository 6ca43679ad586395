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

// CancelSubscriptionCommand requests cancellation at period end.
type CancelSubscriptionCommand struct {
	UserID uint `json:"user_id" validate:"required"`
}

// CancelSubscriptionUseCase schedules a cancellation with the provider and
// re-syncs the account from the provider's response, keeping a single
// source of truth. Access persists until the paid period ends.
type CancelSubscriptionUseCase struct {
	accountRepo billing.AccountRepository
	gateway     providergateway.Gateway
	notifier    BillingNotifier // Optional
	logger      logger.Interface
}

func NewCancelSubscriptionUseCase(
	accountRepo billing.AccountRepository,
	gateway providergateway.Gateway,
	logger logger.Interface,
) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{
		accountRepo: accountRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// SetNotifier sets the email notifier (optional dependency injection)
func (uc *CancelSubscriptionUseCase) SetNotifier(notifier BillingNotifier) {
	uc.notifier = notifier
}

func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, cmd CancelSubscriptionCommand) (*dto.CancellationDTO, error) {
	account, err := uc.accountRepo.FindByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	if account.SubscriptionID() == nil {
		return nil, apperrors.NewBadRequestError("no subscription to cancel")
	}
	if account.Status() == vo.StatusCanceled {
		return nil, apperrors.NewBadRequestError("subscription is already canceled")
	}
	if account.Status() != vo.StatusActive {
		return nil, apperrors.NewBadRequestError("no active subscription",
			"current status: "+account.Status().String())
	}

	snap, err := uc.gateway.CancelAtPeriodEnd(ctx, *account.SubscriptionID())
	if err != nil {
		uc.logger.Errorw("provider cancellation failed",
			"user_id", cmd.UserID,
			"subscription_id", *account.SubscriptionID(),
			"error", err,
		)
		return nil, apperrors.NewInternalError("failed to cancel subscription with provider")
	}

	account.ScheduleCancellation(snap.CurrentPeriodEnd)
	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return nil, apperrors.NewInternalError("failed to save cancellation")
	}

	uc.logger.Infow("subscription canceled at period end",
		"user_id", cmd.UserID,
		"subscription_id", snap.ID,
		"access_until", account.SubscriptionEnd(),
	)

	uc.sendEmail(account, TemplateCancelled, cancellationVars(account))

	state := billing.CalculateState(stateInput(account), biztime.NowUTC())
	return &dto.CancellationDTO{
		Status:        account.Status().String(),
		AccessUntil:   account.SubscriptionEnd(),
		DaysRemaining: state.DaysRemaining,
	}, nil
}

func (uc *CancelSubscriptionUseCase) sendEmail(account *billing.Account, templateID string, variables map[string]string) {
	if uc.notifier == nil {
		return
	}
	sendBillingEmail(uc.notifier, uc.logger, account.Email(), templateID, variables)
}
