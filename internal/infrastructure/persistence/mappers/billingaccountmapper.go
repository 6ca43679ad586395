package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	"github.com/orris-inc/paywall/internal/infrastructure/persistence/models"
)

// BillingAccountMapper handles the conversion between domain entities and
// persistence models
type BillingAccountMapper interface {
	ToEntity(model *models.BillingAccountModel) (*billing.Account, error)
	ToModel(entity *billing.Account) (*models.BillingAccountModel, error)
}

type billingAccountMapper struct{}

// NewBillingAccountMapper creates a new billing account mapper
func NewBillingAccountMapper() BillingAccountMapper {
	return &billingAccountMapper{}
}

func (m *billingAccountMapper) ToEntity(model *models.BillingAccountModel) (*billing.Account, error) {
	if model == nil {
		return nil, nil
	}

	var metadata map[string]interface{}
	if model.Metadata != nil {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account metadata: %w", err)
		}
	}

	entity, err := billing.ReconstructAccount(
		model.ID,
		model.UserID,
		model.Email,
		model.IsAdmin,
		vo.AccountStatus(model.Status),
		model.CustomerID,
		model.SubscriptionID,
		model.SubscriptionStart,
		model.SubscriptionEnd,
		model.TrialStart,
		model.TrialEnd,
		metadata,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct billing account: %w", err)
	}
	return entity, nil
}

func (m *billingAccountMapper) ToModel(entity *billing.Account) (*models.BillingAccountModel, error) {
	if entity == nil {
		return nil, nil
	}

	var metadataJSON datatypes.JSON
	if metadata := entity.Metadata(); len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal account metadata: %w", err)
		}
		metadataJSON = data
	}

	return &models.BillingAccountModel{
		ID:                entity.ID(),
		UserID:            entity.UserID(),
		Email:             entity.Email(),
		IsAdmin:           entity.IsAdmin(),
		Status:            entity.Status().String(),
		CustomerID:        entity.CustomerID(),
		SubscriptionID:    entity.SubscriptionID(),
		SubscriptionStart: entity.SubscriptionStart(),
		SubscriptionEnd:   entity.SubscriptionEnd(),
		TrialStart:        entity.TrialStart(),
		TrialEnd:          entity.TrialEnd(),
		Metadata:          metadataJSON,
		Version:           entity.Version(),
		CreatedAt:         entity.CreatedAt(),
		UpdatedAt:         entity.UpdatedAt(),
	}, nil
}
