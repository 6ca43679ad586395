package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
)

func TestGetAccessDecision_ActiveSubscription(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(15*24*time.Hour + time.Hour)
	account := buildAccount(t, 1, vo.StatusActive, "cus_1", "sub_1", &now, &end)
	uc := NewGetAccessDecisionUseCase(newFakeAccountRepo(account), newMockLogger())

	decision, err := uc.Execute(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, decision.CanAccess)
	assert.Equal(t, "subscription_active", decision.Reason)
	assert.Equal(t, 15, decision.DaysRemaining)
}

func TestGetAccessDecision_GracePeriodThenExpiry(t *testing.T) {
	now := time.Now().UTC()

	end := now.Add(10 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusCanceled, "cus_1", "sub_1", nil, &end)
	uc := NewGetAccessDecisionUseCase(newFakeAccountRepo(account), newMockLogger())

	decision, err := uc.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, decision.CanAccess)
	assert.Equal(t, "grace_period", decision.Reason)

	expiredEnd := now.Add(-1 * time.Second)
	expired := buildAccount(t, 2, vo.StatusCanceled, "cus_2", "sub_2", nil, &expiredEnd)
	uc = NewGetAccessDecisionUseCase(newFakeAccountRepo(expired), newMockLogger())

	decision, err = uc.Execute(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, decision.CanAccess)
	assert.Equal(t, "subscription_ended", decision.Reason)
	assert.Equal(t, 0, decision.DaysRemaining)
}

func TestGetAccessDecision_PastDue(t *testing.T) {
	account := buildAccount(t, 1, vo.StatusPastDue, "cus_1", "sub_1", nil, nil)
	uc := NewGetAccessDecisionUseCase(newFakeAccountRepo(account), newMockLogger())

	decision, err := uc.Execute(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, decision.CanAccess)
	assert.Equal(t, "payment_past_due", decision.Reason)
}

func TestGetAccessDecision_UnknownUser(t *testing.T) {
	uc := NewGetAccessDecisionUseCase(newFakeAccountRepo(), newMockLogger())

	_, err := uc.Execute(context.Background(), 404)

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestGetBillingStatus_FullState(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(10 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusCanceled, "cus_1", "sub_1", nil, &end)
	uc := NewGetBillingStatusUseCase(newFakeAccountRepo(account), newMockLogger())

	status, err := uc.Execute(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "canceled", status.Status)
	assert.True(t, status.CanAccessApp)
	assert.True(t, status.ReactivationAvailable)
	assert.False(t, status.ShouldRedirectToPricing)
	require.NotNil(t, status.SubscriptionEnd)
	assert.Equal(t, end, *status.SubscriptionEnd)
}

func TestCreateBillingAccount_CreatesTrialAndRejectsDuplicate(t *testing.T) {
	accounts := newFakeAccountRepo()
	uc := NewCreateBillingAccountUseCase(accounts, 7, newMockLogger())

	cmd := CreateBillingAccountCommand{UserID: 1, Email: "user1@example.com"}
	require.NoError(t, uc.Execute(context.Background(), cmd))

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusTrial, got.Status())
	require.NotNil(t, got.TrialEnd())

	err = uc.Execute(context.Background(), cmd)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
}
