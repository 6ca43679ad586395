package billing

import (
	"testing"
	"time"

	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrialAccount(t *testing.T) *Account {
	t.Helper()
	acc, err := NewAccount(1, "user@example.com", 7, time.Now())
	require.NoError(t, err)
	return acc
}

func reconstructCanceled(t *testing.T, subID string, end time.Time) *Account {
	t.Helper()
	now := time.Now().UTC()
	start := now.Add(-30 * 24 * time.Hour)
	customerID := "cus_123"
	acc, err := ReconstructAccount(
		1, 1, "user@example.com", false,
		vo.StatusCanceled,
		&customerID, &subID,
		&start, &end,
		nil, nil,
		nil, 3, now.Add(-60*24*time.Hour), now,
	)
	require.NoError(t, err)
	return acc
}

func TestNewAccount_StartsTrial(t *testing.T) {
	acc := newTrialAccount(t)

	assert.Equal(t, vo.StatusTrial, acc.Status())
	require.NotNil(t, acc.TrialStart())
	require.NotNil(t, acc.TrialEnd())
	assert.Equal(t, 7*24*time.Hour, acc.TrialEnd().Sub(*acc.TrialStart()))
}

func TestNewAccount_Validation(t *testing.T) {
	_, err := NewAccount(0, "user@example.com", 7, time.Now())
	assert.Error(t, err)

	_, err = NewAccount(1, "  ", 7, time.Now())
	assert.Error(t, err)

	_, err = NewAccount(1, "user@example.com", -1, time.Now())
	assert.Error(t, err)
}

func TestActivateFromProvider_SetsSubscriptionAndPeriod(t *testing.T) {
	acc := newTrialAccount(t)
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)

	require.NoError(t, acc.ActivateFromProvider("sub_123", &now, &end))

	assert.Equal(t, vo.StatusActive, acc.Status())
	require.NotNil(t, acc.SubscriptionID())
	assert.Equal(t, "sub_123", *acc.SubscriptionID())
	assert.Equal(t, end, *acc.SubscriptionEnd())
}

func TestScheduleCancellation_KeepsSubscriptionID(t *testing.T) {
	acc := newTrialAccount(t)
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	require.NoError(t, acc.ActivateFromProvider("sub_123", &now, &end))

	newEnd := now.Add(20 * 24 * time.Hour)
	acc.ScheduleCancellation(&newEnd)

	assert.Equal(t, vo.StatusCanceled, acc.Status())
	require.NotNil(t, acc.SubscriptionID())
	assert.Equal(t, "sub_123", *acc.SubscriptionID())
	assert.Equal(t, newEnd, *acc.SubscriptionEnd())
}

func TestReactivateFromProvider_NonRegression(t *testing.T) {
	end := time.Now().UTC().Add(10 * 24 * time.Hour)
	acc := reconstructCanceled(t, "sub_123", end)
	originalStart := *acc.SubscriptionStart()

	earlier := end.Add(-24 * time.Hour)
	err := acc.ReactivateFromProvider(&earlier)
	require.Error(t, err)
	assert.Equal(t, vo.StatusCanceled, acc.Status())
	assert.Equal(t, end, *acc.SubscriptionEnd())

	later := end.Add(24 * time.Hour)
	require.NoError(t, acc.ReactivateFromProvider(&later))
	assert.Equal(t, vo.StatusActive, acc.Status())
	assert.Equal(t, later, *acc.SubscriptionEnd())
	assert.Equal(t, originalStart, *acc.SubscriptionStart())
}

func TestReactivateFromProvider_RequiresCanceledStatus(t *testing.T) {
	acc := newTrialAccount(t)
	end := time.Now().UTC().Add(10 * 24 * time.Hour)

	err := acc.ReactivateFromProvider(&end)
	assert.Error(t, err)
}

func TestApplyDeletion_MatchingSubscription(t *testing.T) {
	end := time.Now().UTC().Add(10 * 24 * time.Hour)
	acc := reconstructCanceled(t, "sub_A", end)

	applied := acc.ApplyDeletion("sub_A")

	assert.True(t, applied)
	assert.Nil(t, acc.SubscriptionID())
	assert.Equal(t, vo.StatusCanceled, acc.Status())
}

func TestApplyDeletion_MismatchedSubscriptionIgnored(t *testing.T) {
	end := time.Now().UTC().Add(10 * 24 * time.Hour)
	acc := reconstructCanceled(t, "sub_B", end)
	versionBefore := acc.Version()

	applied := acc.ApplyDeletion("sub_A")

	assert.False(t, applied)
	require.NotNil(t, acc.SubscriptionID())
	assert.Equal(t, "sub_B", *acc.SubscriptionID())
	assert.Equal(t, versionBefore, acc.Version())
}

func TestMarkPastDue_PreservesSubscriptionLink(t *testing.T) {
	acc := newTrialAccount(t)
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	require.NoError(t, acc.ActivateFromProvider("sub_123", &now, &end))

	acc.MarkPastDue()

	assert.Equal(t, vo.StatusPastDue, acc.Status())
	require.NotNil(t, acc.SubscriptionID())
	assert.Equal(t, end, *acc.SubscriptionEnd())
}

func TestEnsureTrialWindow(t *testing.T) {
	now := time.Now().UTC()
	customerID := "cus_123"
	acc, err := ReconstructAccount(
		1, 1, "user@example.com", false,
		vo.StatusTrial,
		&customerID, nil,
		nil, nil,
		nil, nil,
		nil, 1, now, now,
	)
	require.NoError(t, err)

	assert.True(t, acc.EnsureTrialWindow(7, now))
	require.NotNil(t, acc.TrialEnd())
	assert.Equal(t, now.Add(7*24*time.Hour), *acc.TrialEnd())

	// Second call is a no-op.
	assert.False(t, acc.EnsureTrialWindow(7, now))
}

func TestRemainingTrialDays(t *testing.T) {
	acc := newTrialAccount(t)
	now := time.Now().UTC()

	assert.Equal(t, 6, acc.RemainingTrialDays(now.Add(12*time.Hour)))
	assert.Equal(t, 0, acc.RemainingTrialDays(now.Add(8*24*time.Hour)))
}
