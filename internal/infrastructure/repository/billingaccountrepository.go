package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/orris-inc/paywall/internal/domain/billing"
	"github.com/orris-inc/paywall/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/paywall/internal/infrastructure/persistence/models"
	"github.com/orris-inc/paywall/internal/shared/db"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// BillingAccountRepository implements billing.AccountRepository with GORM.
type BillingAccountRepository struct {
	db     *gorm.DB
	mapper mappers.BillingAccountMapper
	logger logger.Interface
}

// NewBillingAccountRepository creates a new billing account repository
func NewBillingAccountRepository(database *gorm.DB, logger logger.Interface) billing.AccountRepository {
	return &BillingAccountRepository{
		db:     database,
		mapper: mappers.NewBillingAccountMapper(),
		logger: logger,
	}
}

func (r *BillingAccountRepository) Create(ctx context.Context, account *billing.Account) error {
	model, err := r.mapper.ToModel(account)
	if err != nil {
		return apperrors.NewInternalError("failed to map billing account", err.Error())
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("billing account already exists")
		}
		r.logger.Errorw("failed to create billing account", "user_id", account.UserID(), "error", err)
		return apperrors.NewInternalError("failed to create billing account")
	}
	return nil
}

func (r *BillingAccountRepository) FindByUserID(ctx context.Context, userID uint) (*billing.Account, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

func (r *BillingAccountRepository) FindByCustomerID(ctx context.Context, customerID string) (*billing.Account, error) {
	return r.findOne(ctx, "customer_id = ?", customerID)
}

func (r *BillingAccountRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*billing.Account, error) {
	return r.findOne(ctx, "subscription_id = ?", subscriptionID)
}

func (r *BillingAccountRepository) findOne(ctx context.Context, query string, arg interface{}) (*billing.Account, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.BillingAccountModel
	if err := tx.Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("billing account not found")
		}
		r.logger.Errorw("failed to query billing account", "error", err)
		return nil, apperrors.NewInternalError("failed to query billing account")
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to map billing account", err.Error())
	}
	return entity, nil
}

// Update persists the account with optimistic locking: the write only
// lands when the stored version is older than the entity's.
func (r *BillingAccountRepository) Update(ctx context.Context, account *billing.Account) error {
	model, err := r.mapper.ToModel(account)
	if err != nil {
		return apperrors.NewInternalError("failed to map billing account", err.Error())
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.BillingAccountModel{}).
		Where("id = ? AND version < ?", model.ID, model.Version).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("failed to update billing account", "user_id", account.UserID(), "error", result.Error)
		return apperrors.NewInternalError("failed to update billing account")
	}
	if result.RowsAffected == 0 {
		return apperrors.NewConflictError("billing account was modified concurrently")
	}
	return nil
}
