package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	"github.com/orris-inc/paywall/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/paywall/internal/infrastructure/persistence/models"
	"github.com/orris-inc/paywall/internal/shared/biztime"
	"github.com/orris-inc/paywall/internal/shared/db"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// WebhookEventRepository implements the idempotency ledger with GORM.
// The unique index on event_id makes the insert the claim; conflicts are
// resolved with guarded updates so only one worker ever wins a reclaim.
type WebhookEventRepository struct {
	db     *gorm.DB
	mapper mappers.WebhookEventMapper
	logger logger.Interface
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(database *gorm.DB, logger logger.Interface) billing.WebhookEventRepository {
	return &WebhookEventRepository{
		db:     database,
		mapper: mappers.NewWebhookEventMapper(),
		logger: logger,
	}
}

func (r *WebhookEventRepository) ClaimOrGet(ctx context.Context, event *billing.WebhookEvent, staleAfter time.Duration) (*billing.ClaimResult, error) {
	model, err := r.mapper.ToModel(event)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to map webhook event", err.Error())
	}

	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err == nil {
		return &billing.ClaimResult{Claimed: true}, nil
	} else if !apperrors.IsDuplicateError(err) {
		r.logger.Errorw("failed to insert ledger row", "event_id", event.EventID(), "error", err)
		return nil, apperrors.NewInternalError("failed to insert ledger row")
	}

	// The row exists. Reclaim it when it is failed, or when a processing
	// claim is stale (its worker likely died). The guarded UPDATE keeps
	// the exactly-one-claim property under concurrency.
	now := biztime.NowUTC()
	staleCutoff := now.Add(-staleAfter)
	result := tx.Model(&models.WebhookEventModel{}).
		Where("event_id = ? AND (status = ? OR (status = ? AND received_at < ?))",
			event.EventID(), vo.EventStatusFailed.String(), vo.EventStatusProcessing.String(), staleCutoff).
		Updates(map[string]interface{}{
			"status":       vo.EventStatusProcessing.String(),
			"received_at":  now,
			"processed_at": nil,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to reclaim ledger row", "event_id", event.EventID(), "error", result.Error)
		return nil, apperrors.NewInternalError("failed to reclaim ledger row")
	}
	if result.RowsAffected == 1 {
		return &billing.ClaimResult{Claimed: true}, nil
	}

	existing, err := r.FindByEventID(ctx, event.EventID())
	if err != nil {
		return nil, err
	}
	return &billing.ClaimResult{Claimed: false, Existing: existing}, nil
}

func (r *WebhookEventRepository) MarkSucceeded(ctx context.Context, eventID string) error {
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.WebhookEventModel{}).
		Where("event_id = ? AND status <> ?", eventID, vo.EventStatusSucceeded.String()).
		Updates(map[string]interface{}{
			"status":        vo.EventStatusSucceeded.String(),
			"error_message": nil,
			"processed_at":  biztime.NowUTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to mark event succeeded", "event_id", eventID, "error", result.Error)
		return apperrors.NewInternalError("failed to mark event succeeded")
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("ledger row not found or already succeeded")
	}
	return nil
}

func (r *WebhookEventRepository) MarkFailed(ctx context.Context, eventID string, reason string) error {
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.WebhookEventModel{}).
		Where("event_id = ? AND status <> ?", eventID, vo.EventStatusSucceeded.String()).
		Updates(map[string]interface{}{
			"status":        vo.EventStatusFailed.String(),
			"error_message": reason,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"processed_at":  biztime.NowUTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to mark event failed", "event_id", eventID, "error", result.Error)
		return apperrors.NewInternalError("failed to mark event failed")
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("ledger row not found or already succeeded")
	}
	return nil
}

func (r *WebhookEventRepository) FindByEventID(ctx context.Context, eventID string) (*billing.WebhookEvent, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.WebhookEventModel
	if err := tx.Where("event_id = ?", eventID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("ledger row not found")
		}
		r.logger.Errorw("failed to query ledger row", "event_id", eventID, "error", err)
		return nil, apperrors.NewInternalError("failed to query ledger row")
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to map ledger row", err.Error())
	}
	return entity, nil
}
