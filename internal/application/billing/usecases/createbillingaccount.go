package usecases

import (
	"context"

	"github.com/orris-inc/paywall/internal/domain/billing"
	"github.com/orris-inc/paywall/internal/shared/biztime"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// CreateBillingAccountCommand creates the billing record for a new user.
type CreateBillingAccountCommand struct {
	UserID uint   `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

// CreateBillingAccountUseCase creates a billing account at signup with the
// default trial window. Creating an account twice for the same user is a
// conflict.
type CreateBillingAccountUseCase struct {
	accountRepo billing.AccountRepository
	trialDays   int
	logger      logger.Interface
}

func NewCreateBillingAccountUseCase(
	accountRepo billing.AccountRepository,
	trialDays int,
	logger logger.Interface,
) *CreateBillingAccountUseCase {
	return &CreateBillingAccountUseCase{
		accountRepo: accountRepo,
		trialDays:   trialDays,
		logger:      logger,
	}
}

func (uc *CreateBillingAccountUseCase) Execute(ctx context.Context, cmd CreateBillingAccountCommand) error {
	account, err := billing.NewAccount(cmd.UserID, cmd.Email, uc.trialDays, biztime.NowUTC())
	if err != nil {
		return apperrors.NewValidationError("invalid billing account", err.Error())
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		if apperrors.IsDuplicateError(err) || apperrors.IsConflictError(err) {
			return apperrors.NewConflictError("billing account already exists")
		}
		uc.logger.Errorw("failed to create billing account", "user_id", cmd.UserID, "error", err)
		return apperrors.NewInternalError("failed to create billing account")
	}

	uc.logger.Infow("billing account created",
		"user_id", cmd.UserID,
		"trial_days", uc.trialDays,
	)
	return nil
}
