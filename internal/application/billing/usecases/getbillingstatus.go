package usecases

import (
	"context"

	"github.com/orris-inc/paywall/internal/application/billing/dto"
	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	"github.com/orris-inc/paywall/internal/shared/biztime"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// GetBillingStatusUseCase returns the full derived billing state for a
// user, including record fields the UI displays.
type GetBillingStatusUseCase struct {
	accountRepo billing.AccountRepository
	logger      logger.Interface
}

func NewGetBillingStatusUseCase(
	accountRepo billing.AccountRepository,
	logger logger.Interface,
) *GetBillingStatusUseCase {
	return &GetBillingStatusUseCase{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

func (uc *GetBillingStatusUseCase) Execute(ctx context.Context, userID uint) (*dto.BillingStatusDTO, error) {
	account, err := uc.accountRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := biztime.NowUTC()

	// Trial accounts migrated without trial stamps get a concrete window
	// backfilled here, otherwise the synthesized window slides forever and
	// the trial never expires.
	if account.Status() == vo.StatusTrial && account.EnsureTrialWindow(billing.DefaultTrialDays, now) {
		if err := uc.accountRepo.Update(ctx, account); err != nil {
			uc.logger.Warnw("failed to backfill trial window",
				"user_id", userID,
				"error", err,
			)
		}
	}

	state := billing.CalculateState(stateInput(account), now)
	if state.UnrecognizedStatus {
		uc.logger.Warnw("account carries unrecognized billing status",
			"user_id", userID,
			"status", account.Status(),
		)
	}

	return dto.BillingStatusToDTO(state, account), nil
}
