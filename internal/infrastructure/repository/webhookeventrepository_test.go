package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
)

func newLedgerEvent(t *testing.T, eventID string, receivedAt time.Time) *billing.WebhookEvent {
	t.Helper()
	event, err := billing.NewWebhookEvent(eventID, "customer.subscription.updated", []byte(`{"id":"sub_1"}`), receivedAt)
	require.NoError(t, err)
	return event
}

func TestWebhookEventRepository_ClaimInsertsLedgerRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, newTestLogger(t))
	ctx := context.Background()

	result, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Claimed)

	stored, err := repo.FindByEventID(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, vo.EventStatusProcessing, stored.Status())
	assert.Equal(t, "customer.subscription.updated", stored.EventType())
}

func TestWebhookEventRepository_DuplicateIsNotClaimed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, newTestLogger(t))
	ctx := context.Background()

	first, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)
	require.True(t, first.Claimed)

	second, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, second.Claimed)
	require.NotNil(t, second.Existing)
	assert.Equal(t, vo.EventStatusProcessing, second.Existing.Status())
}

func TestWebhookEventRepository_SucceededIsNeverReclaimed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, newTestLogger(t))
	ctx := context.Background()

	_, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.MarkSucceeded(ctx, "evt_1"))

	result, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Claimed)
	require.NotNil(t, result.Existing)
	assert.Equal(t, vo.EventStatusSucceeded, result.Existing.Status())
}

func TestWebhookEventRepository_FailedRowIsReclaimable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, newTestLogger(t))
	ctx := context.Background()

	_, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailed(ctx, "evt_1", "provider fetch failed"))

	result, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Claimed)

	stored, err := repo.FindByEventID(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, vo.EventStatusProcessing, stored.Status())
	assert.Nil(t, stored.ProcessedAt())
	assert.Equal(t, 1, stored.RetryCount())
}

func TestWebhookEventRepository_StaleProcessingRowIsReclaimable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, newTestLogger(t))
	ctx := context.Background()

	// Age the original claim well past the stale threshold.
	_, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now().Add(-time.Hour)), 5*time.Minute)
	require.NoError(t, err)

	result, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Claimed)
}

func TestWebhookEventRepository_FreshProcessingRowIsNotReclaimable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, newTestLogger(t))
	ctx := context.Background()

	_, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)

	result, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Claimed)
	require.NotNil(t, result.Existing)
	assert.Equal(t, vo.EventStatusProcessing, result.Existing.Status())
}

func TestWebhookEventRepository_MarkSucceededGuardsTerminalState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, newTestLogger(t))
	ctx := context.Background()

	_, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)

	require.NoError(t, repo.MarkSucceeded(ctx, "evt_1"))

	err = repo.MarkSucceeded(ctx, "evt_1")
	assert.True(t, apperrors.IsNotFoundError(err))

	err = repo.MarkFailed(ctx, "evt_1", "late failure")
	assert.True(t, apperrors.IsNotFoundError(err))

	stored, err := repo.FindByEventID(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, vo.EventStatusSucceeded, stored.Status())
	assert.Nil(t, stored.ErrorMessage())
	require.NotNil(t, stored.ProcessedAt())
}

func TestWebhookEventRepository_MarkFailedRecordsReason(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, newTestLogger(t))
	ctx := context.Background()

	_, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_1", time.Now()), 5*time.Minute)
	require.NoError(t, err)

	require.NoError(t, repo.MarkFailed(ctx, "evt_1", "account lookup failed"))
	require.NoError(t, repo.MarkFailed(ctx, "evt_1", "account lookup failed again"))

	stored, err := repo.FindByEventID(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, vo.EventStatusFailed, stored.Status())
	require.NotNil(t, stored.ErrorMessage())
	assert.Equal(t, "account lookup failed again", *stored.ErrorMessage())
	assert.Equal(t, 2, stored.RetryCount())
}

func TestWebhookEventRepository_ConcurrentClaimsYieldOneWinner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db, newTestLogger(t))
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := repo.ClaimOrGet(ctx, newLedgerEvent(t, "evt_race", time.Now()), 5*time.Minute)
			if err != nil {
				return
			}
			if result.Claimed {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, claimed)
}
