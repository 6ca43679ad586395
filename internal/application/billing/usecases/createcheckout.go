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

// CreateCheckoutCommand starts a hosted checkout for a user. SuccessURL and
// CancelURL override the configured redirect targets when set.
type CreateCheckoutCommand struct {
	UserID     uint   `json:"user_id" validate:"required"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// CreateCheckoutUseCase creates a provider checkout session, lazily
// registering the provider customer on first use. Accounts still in their
// trial carry the remaining trial days into the new subscription; trial
// credit is not replayed after a prior cancellation.
type CreateCheckoutUseCase struct {
	accountRepo billing.AccountRepository
	gateway     providergateway.Gateway
	priceID     string
	successURL  string
	cancelURL   string
	logger      logger.Interface
}

func NewCreateCheckoutUseCase(
	accountRepo billing.AccountRepository,
	gateway providergateway.Gateway,
	priceID, successURL, cancelURL string,
	logger logger.Interface,
) *CreateCheckoutUseCase {
	return &CreateCheckoutUseCase{
		accountRepo: accountRepo,
		gateway:     gateway,
		priceID:     priceID,
		successURL:  successURL,
		cancelURL:   cancelURL,
		logger:      logger,
	}
}

func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, cmd CreateCheckoutCommand) (*dto.CheckoutSessionDTO, error) {
	account, err := uc.accountRepo.FindByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	if account.CustomerID() == nil {
		customerID, err := uc.gateway.CreateCustomer(ctx, account.Email(), account.UserID())
		if err != nil {
			uc.logger.Errorw("failed to create provider customer", "user_id", cmd.UserID, "error", err)
			return nil, apperrors.NewInternalError("failed to register with payment provider")
		}
		if err := account.LinkCustomer(customerID); err != nil {
			return nil, apperrors.NewInternalError("failed to link customer", err.Error())
		}
		if err := uc.accountRepo.Update(ctx, account); err != nil {
			return nil, apperrors.NewInternalError("failed to save customer link")
		}
	}

	trialDays := 0
	if account.Status() == vo.StatusTrial {
		trialDays = account.RemainingTrialDays(biztime.NowUTC())
	}

	successURL := uc.successURL
	if cmd.SuccessURL != "" {
		successURL = cmd.SuccessURL
	}
	cancelURL := uc.cancelURL
	if cmd.CancelURL != "" {
		cancelURL = cmd.CancelURL
	}

	session, err := uc.gateway.CreateCheckoutSession(ctx, providergateway.CheckoutSessionRequest{
		CustomerID: *account.CustomerID(),
		PriceID:    uc.priceID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		TrialDays:  trialDays,
		UserID:     account.UserID(),
	})
	if err != nil {
		uc.logger.Errorw("failed to create checkout session", "user_id", cmd.UserID, "error", err)
		return nil, apperrors.NewInternalError("failed to create checkout session")
	}

	uc.logger.Infow("checkout session created",
		"user_id", cmd.UserID,
		"session_id", session.ID,
		"trial_days", trialDays,
	)

	return &dto.CheckoutSessionDTO{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}
