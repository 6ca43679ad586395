package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paywall/internal/application/billing/providergateway"
	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
)

const (
	testTimeout    = 10 * time.Second
	testStaleAfter = 5 * time.Minute
)

func webhookPayload(t *testing.T, id, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"id":   id,
		"type": eventType,
		"data": map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return b
}

func buildAccount(t *testing.T, userID uint, status vo.AccountStatus, customerID, subID string, subStart, subEnd *time.Time) *billing.Account {
	t.Helper()
	now := time.Now().UTC()
	var custPtr, subPtr *string
	if customerID != "" {
		custPtr = &customerID
	}
	if subID != "" {
		subPtr = &subID
	}
	acc, err := billing.ReconstructAccount(
		userID, userID, fmt.Sprintf("user%d@example.com", userID), false,
		status, custPtr, subPtr,
		subStart, subEnd, nil, nil,
		nil, 1, now.Add(-90*24*time.Hour), now,
	)
	require.NoError(t, err)
	return acc
}

func newWebhookUC(accounts *fakeAccountRepo, events *fakeEventRepo, gw *providergateway.MockGateway) *ProcessWebhookEventUseCase {
	return NewProcessWebhookEventUseCase(accounts, events, gw, testTimeout, testStaleAfter, newMockLogger())
}

func TestProcessWebhook_InvalidSignatureRejectedWithoutLedgerWrite(t *testing.T) {
	gw := providergateway.NewMockGateway()
	gw.VerifyErr = fmt.Errorf("signature mismatch")
	events := newFakeEventRepo()
	uc := newWebhookUC(newFakeAccountRepo(), events, gw)

	err := uc.Execute(context.Background(), ProcessWebhookCommand{
		Payload:   []byte(`{}`),
		Signature: "t=1,v1=bad",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	_, err = events.FindByEventID(context.Background(), "evt_1")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestProcessWebhook_UnknownEventTypeAcknowledged(t *testing.T) {
	gw := providergateway.NewMockGateway()
	events := newFakeEventRepo()
	uc := newWebhookUC(newFakeAccountRepo(), events, gw)

	payload := webhookPayload(t, "evt_1", "customer.tax_id.created", map[string]interface{}{})
	err := uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload})

	require.NoError(t, err)
	evt, err := events.FindByEventID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, vo.EventStatusSucceeded, evt.Status())
}

func TestProcessWebhook_ReplayOfSucceededEventIsNoOp(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusTrial, "cus_1", "", nil, nil)
	accounts := newFakeAccountRepo(account)
	events := newFakeEventRepo()
	gw := providergateway.NewMockGateway()
	gw.Subscriptions["sub_1"] = &providergateway.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
		CurrentPeriodStart: &now, CurrentPeriodEnd: &end,
	}
	uc := newWebhookUC(accounts, events, gw)

	payload := webhookPayload(t, "evt_1", EventSubscriptionCreated, map[string]interface{}{
		"id": "sub_1", "customer": "cus_1", "status": "active",
	})

	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))
	updatesAfterFirst := accounts.updateCount()

	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))
	assert.Equal(t, updatesAfterFirst, accounts.updateCount(), "replay must not mutate the account")
}

func TestProcessWebhook_InFlightClaimReturnsRetryable(t *testing.T) {
	events := newFakeEventRepo()
	gw := providergateway.NewMockGateway()
	uc := newWebhookUC(newFakeAccountRepo(), events, gw)

	// Seed a live processing claim held by another worker.
	held, err := billing.NewWebhookEvent("evt_1", EventInvoicePaid, nil, time.Now().UTC())
	require.NoError(t, err)
	_, err = events.ClaimOrGet(context.Background(), held, testStaleAfter)
	require.NoError(t, err)

	payload := webhookPayload(t, "evt_1", EventInvoicePaid, map[string]interface{}{})
	err = uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload})

	require.Error(t, err)
	assert.False(t, apperrors.IsValidationError(err))
}

func TestProcessWebhook_FailedEventIsReclaimable(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusActive, "cus_1", "sub_1", &now, &end)
	accounts := newFakeAccountRepo(account)
	events := newFakeEventRepo()
	gw := providergateway.NewMockGateway()
	gw.Subscriptions["sub_1"] = &providergateway.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
		CurrentPeriodStart: &now, CurrentPeriodEnd: &end,
	}
	uc := newWebhookUC(accounts, events, gw)

	payload := webhookPayload(t, "evt_1", EventInvoicePaid, map[string]interface{}{
		"id": "in_1", "customer": "cus_1", "subscription": "sub_1",
	})

	gw.FetchErr = fmt.Errorf("provider unavailable")
	err := uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload})
	require.Error(t, err)

	evt, err := events.FindByEventID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, vo.EventStatusFailed, evt.Status())
	assert.Equal(t, 1, evt.RetryCount())

	// Redelivery after the transient failure succeeds.
	gw.FetchErr = nil
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	evt, err = events.FindByEventID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, vo.EventStatusSucceeded, evt.Status())
}

func TestProcessWebhook_SubscriptionUpdatedScheduledCancellation(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusActive, "cus_1", "sub_1", &now, &end)
	accounts := newFakeAccountRepo(account)
	gw := providergateway.NewMockGateway()
	fetchedEnd := now.Add(20 * 24 * time.Hour)
	gw.Subscriptions["sub_1"] = &providergateway.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  &fetchedEnd,
	}
	uc := newWebhookUC(accounts, newFakeEventRepo(), gw)
	notifier := &fakeNotifier{}
	uc.SetNotifier(notifier)

	// Payload carries stale period fields that must be ignored.
	payload := webhookPayload(t, "evt_1", EventSubscriptionUpdated, map[string]interface{}{
		"id": "sub_1", "customer": "cus_1", "status": "active",
		"current_period_end": now.Add(99 * 24 * time.Hour).Unix(),
	})
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCanceled, got.Status())
	require.NotNil(t, got.SubscriptionID())
	assert.Equal(t, "sub_1", *got.SubscriptionID())
	assert.Equal(t, fetchedEnd, *got.SubscriptionEnd())

	require.Eventually(t, func() bool {
		return len(notifier.sentTemplates()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, TemplateCancelled, notifier.sentTemplates()[0])
}

func TestProcessWebhook_SubscriptionUpdatedReactivation(t *testing.T) {
	now := time.Now().UTC()
	start := now.Add(-10 * 24 * time.Hour)
	end := now.Add(10 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusCanceled, "cus_1", "sub_1", &start, &end)
	accounts := newFakeAccountRepo(account)
	gw := providergateway.NewMockGateway()
	newEnd := now.Add(40 * 24 * time.Hour)
	gw.Subscriptions["sub_1"] = &providergateway.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
		CurrentPeriodStart: &now, CurrentPeriodEnd: &newEnd,
	}
	uc := newWebhookUC(accounts, newFakeEventRepo(), gw)

	payload := webhookPayload(t, "evt_1", EventSubscriptionUpdated, map[string]interface{}{
		"id": "sub_1", "customer": "cus_1", "status": "active",
	})
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusActive, got.Status())
	assert.Equal(t, start, *got.SubscriptionStart(), "reactivation must not reset subscription start")
	assert.Equal(t, newEnd, *got.SubscriptionEnd())
}

func TestProcessWebhook_ReactivationRegressionRejectedButAcknowledged(t *testing.T) {
	now := time.Now().UTC()
	start := now.Add(-10 * 24 * time.Hour)
	end := now.Add(10 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusCanceled, "cus_1", "sub_1", &start, &end)
	accounts := newFakeAccountRepo(account)
	gw := providergateway.NewMockGateway()
	regressedEnd := now.Add(2 * 24 * time.Hour)
	gw.Subscriptions["sub_1"] = &providergateway.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
		CurrentPeriodEnd: &regressedEnd,
	}
	events := newFakeEventRepo()
	uc := newWebhookUC(accounts, events, gw)

	payload := webhookPayload(t, "evt_1", EventSubscriptionUpdated, map[string]interface{}{
		"id": "sub_1", "customer": "cus_1", "status": "active",
	})
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCanceled, got.Status())
	assert.Equal(t, end, *got.SubscriptionEnd(), "regressed period end must not be applied")

	evt, err := events.FindByEventID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, vo.EventStatusSucceeded, evt.Status())
}

func TestProcessWebhook_DeletionRaceGuard(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusActive, "cus_1", "sub_B", &now, &end)
	accounts := newFakeAccountRepo(account)
	uc := newWebhookUC(accounts, newFakeEventRepo(), providergateway.NewMockGateway())

	payload := webhookPayload(t, "evt_1", EventSubscriptionDeleted, map[string]interface{}{
		"id": "sub_A", "customer": "cus_1",
	})
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got.SubscriptionID())
	assert.Equal(t, "sub_B", *got.SubscriptionID())
	assert.Equal(t, vo.StatusActive, got.Status())
}

func TestProcessWebhook_DeletionOfCurrentSubscription(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(5 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusActive, "cus_1", "sub_A", &now, &end)
	accounts := newFakeAccountRepo(account)
	uc := newWebhookUC(accounts, newFakeEventRepo(), providergateway.NewMockGateway())

	payload := webhookPayload(t, "evt_1", EventSubscriptionDeleted, map[string]interface{}{
		"id": "sub_A", "customer": "cus_1",
	})
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got.SubscriptionID())
	assert.Equal(t, vo.StatusCanceled, got.Status())
}

func TestProcessWebhook_InvoicePaymentFailedMarksPastDue(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusActive, "cus_1", "sub_1", &now, &end)
	accounts := newFakeAccountRepo(account)
	uc := newWebhookUC(accounts, newFakeEventRepo(), providergateway.NewMockGateway())

	payload := webhookPayload(t, "evt_1", EventInvoicePaymentFailed, map[string]interface{}{
		"id": "in_1", "customer": "cus_1", "subscription": "sub_1",
	})
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPastDue, got.Status())
	require.NotNil(t, got.SubscriptionID(), "past due must not clear the subscription link")
	assert.Equal(t, end, *got.SubscriptionEnd())
}

func TestProcessWebhook_InvoicePaidActivatesFromFetchedState(t *testing.T) {
	account := buildAccount(t, 1, vo.StatusPastDue, "cus_1", "sub_1", nil, nil)
	accounts := newFakeAccountRepo(account)
	gw := providergateway.NewMockGateway()
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	gw.Subscriptions["sub_1"] = &providergateway.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
		CurrentPeriodStart: &now, CurrentPeriodEnd: &end,
	}
	uc := newWebhookUC(accounts, newFakeEventRepo(), gw)

	// Invoice payload omits the subscription field; the account link is used.
	payload := webhookPayload(t, "evt_1", EventInvoicePaid, map[string]interface{}{
		"id": "in_1", "customer": "cus_1",
	})
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusActive, got.Status())
	assert.Equal(t, end, *got.SubscriptionEnd())
}

func TestProcessWebhook_CheckoutCompletedActivatesAndWelcomes(t *testing.T) {
	account := buildAccount(t, 1, vo.StatusTrial, "cus_1", "", nil, nil)
	accounts := newFakeAccountRepo(account)
	gw := providergateway.NewMockGateway()
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	gw.Subscriptions["sub_1"] = &providergateway.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
		CurrentPeriodStart: &now, CurrentPeriodEnd: &end,
	}
	uc := newWebhookUC(accounts, newFakeEventRepo(), gw)
	notifier := &fakeNotifier{}
	uc.SetNotifier(notifier)

	payload := webhookPayload(t, "evt_1", EventCheckoutCompleted, map[string]interface{}{
		"id": "cs_1", "customer": "cus_1", "subscription": "sub_1", "mode": "subscription",
	})
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	got, err := accounts.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusActive, got.Status())
	require.NotNil(t, got.SubscriptionID())
	assert.Equal(t, "sub_1", *got.SubscriptionID())

	require.Eventually(t, func() bool {
		return len(notifier.sentTemplates()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, TemplateWelcome, notifier.sentTemplates()[0])
}

func TestProcessWebhook_UnknownCustomerAcknowledgedLoudly(t *testing.T) {
	accounts := newFakeAccountRepo()
	events := newFakeEventRepo()
	uc := newWebhookUC(accounts, events, providergateway.NewMockGateway())

	payload := webhookPayload(t, "evt_1", EventInvoicePaymentFailed, map[string]interface{}{
		"id": "in_1", "customer": "cus_ghost",
	})
	require.NoError(t, uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload}))

	evt, err := events.FindByEventID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, vo.EventStatusSucceeded, evt.Status())
	assert.Equal(t, 0, accounts.updateCount())
}

func TestProcessWebhook_ConcurrentDuplicateDeliveries(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	account := buildAccount(t, 1, vo.StatusActive, "cus_1", "sub_1", &now, &end)
	accounts := newFakeAccountRepo(account)
	events := newFakeEventRepo()
	gw := providergateway.NewMockGateway()
	gw.Subscriptions["sub_1"] = &providergateway.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
		CurrentPeriodStart: &now, CurrentPeriodEnd: &end,
	}
	uc := newWebhookUC(accounts, events, gw)

	payload := webhookPayload(t, "evt_1", EventInvoicePaid, map[string]interface{}{
		"id": "in_1", "customer": "cus_1", "subscription": "sub_1",
	})

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			errs <- uc.Execute(context.Background(), ProcessWebhookCommand{Payload: payload})
		}()
	}

	succeeded := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err == nil {
			succeeded++
		}
	}

	// Exactly one worker claims and mutates; others either observe the
	// terminal row (nil) or a live claim (retryable error).
	assert.GreaterOrEqual(t, succeeded, 1)
	assert.Equal(t, 1, accounts.updateCount(), "record must be mutated exactly once")
}
