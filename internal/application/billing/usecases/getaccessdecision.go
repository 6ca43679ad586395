package usecases

import (
	"context"

	"github.com/orris-inc/paywall/internal/application/billing/dto"
	"github.com/orris-inc/paywall/internal/domain/billing"
	"github.com/orris-inc/paywall/internal/shared/biztime"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// GetAccessDecisionUseCase is the access gate: it reads the latest
// committed account, derives the state, and returns the decision. No
// caching across requests and no writes.
type GetAccessDecisionUseCase struct {
	accountRepo billing.AccountRepository
	logger      logger.Interface
}

func NewGetAccessDecisionUseCase(
	accountRepo billing.AccountRepository,
	logger logger.Interface,
) *GetAccessDecisionUseCase {
	return &GetAccessDecisionUseCase{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

func (uc *GetAccessDecisionUseCase) Execute(ctx context.Context, userID uint) (*dto.AccessDecisionDTO, error) {
	account, err := uc.accountRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	state := billing.CalculateState(stateInput(account), biztime.NowUTC())
	if state.UnrecognizedStatus {
		uc.logger.Warnw("account carries unrecognized billing status, denying access",
			"user_id", userID,
			"status", account.Status(),
		)
	}

	return &dto.AccessDecisionDTO{
		CanAccess:     state.CanAccessApp,
		Reason:        accessReason(state),
		DaysRemaining: state.DaysRemaining,
	}, nil
}
