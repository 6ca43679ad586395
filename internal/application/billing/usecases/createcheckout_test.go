package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paywall/internal/application/billing/providergateway"
	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
)

func TestCreateCheckout_LinksCustomerOnFirstUse(t *testing.T) {
	account, err := billing.NewAccount(1, "user1@example.com", 7, time.Now())
	require.NoError(t, err)
	accounts := newFakeAccountRepo(account)
	gw := providergateway.NewMockGateway()
	uc := NewCreateCheckoutUseCase(accounts, gw, "price_1", "https://app.example.com/ok", "https://app.example.com/cancel", newMockLogger())

	result, err := uc.Execute(context.Background(), CreateCheckoutCommand{UserID: 1})
	require.NoError(t, err)

	assert.NotEmpty(t, result.CheckoutURL)
	assert.Equal(t, []uint{1}, gw.CreatedUsers)

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got.CustomerID())
	assert.Equal(t, "cus_mock_1", *got.CustomerID())
}

func TestCreateCheckout_ReusesExistingCustomer(t *testing.T) {
	account := buildAccount(t, 1, vo.StatusTrial, "cus_1", "", nil, nil)
	accounts := newFakeAccountRepo(account)
	gw := providergateway.NewMockGateway()
	uc := NewCreateCheckoutUseCase(accounts, gw, "price_1", "https://app.example.com/ok", "https://app.example.com/cancel", newMockLogger())

	_, err := uc.Execute(context.Background(), CreateCheckoutCommand{UserID: 1})
	require.NoError(t, err)

	assert.Empty(t, gw.CreatedUsers)
}

func TestCreateCheckout_CarriesRemainingTrialDays(t *testing.T) {
	account, err := billing.NewAccount(1, "user1@example.com", 7, time.Now())
	require.NoError(t, err)
	require.NoError(t, account.LinkCustomer("cus_1"))
	accounts := newFakeAccountRepo(account)
	gw := providergateway.NewMockGateway()
	uc := NewCreateCheckoutUseCase(accounts, gw, "price_1", "https://app.example.com/ok", "https://app.example.com/cancel", newMockLogger())

	_, err = uc.Execute(context.Background(), CreateCheckoutCommand{UserID: 1})
	require.NoError(t, err)

	require.Len(t, gw.CheckoutRequests, 1)
	assert.Equal(t, 6, gw.CheckoutRequests[0].TrialDays)
	assert.Equal(t, "price_1", gw.CheckoutRequests[0].PriceID)
}

func TestCreateCheckout_NoTrialCreditAfterCancellation(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(-1 * 24 * time.Hour)
	canceled := buildAccount(t, 2, vo.StatusCanceled, "cus_2", "sub_2", nil, &end)
	accounts := newFakeAccountRepo(canceled)
	gw := providergateway.NewMockGateway()
	uc := NewCreateCheckoutUseCase(accounts, gw, "price_1", "https://app.example.com/ok", "https://app.example.com/cancel", newMockLogger())

	result, err := uc.Execute(context.Background(), CreateCheckoutCommand{UserID: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)

	require.Len(t, gw.CheckoutRequests, 1)
	assert.Equal(t, 0, gw.CheckoutRequests[0].TrialDays)
}
