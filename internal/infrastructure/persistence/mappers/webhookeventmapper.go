package mappers

import (
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	"github.com/orris-inc/paywall/internal/infrastructure/persistence/models"
)

// WebhookEventMapper handles the conversion between ledger rows and
// persistence models
type WebhookEventMapper interface {
	ToEntity(model *models.WebhookEventModel) (*billing.WebhookEvent, error)
	ToModel(entity *billing.WebhookEvent) (*models.WebhookEventModel, error)
}

type webhookEventMapper struct{}

// NewWebhookEventMapper creates a new webhook event mapper
func NewWebhookEventMapper() WebhookEventMapper {
	return &webhookEventMapper{}
}

func (m *webhookEventMapper) ToEntity(model *models.WebhookEventModel) (*billing.WebhookEvent, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := billing.ReconstructWebhookEvent(
		model.ID,
		model.EventID,
		model.EventType,
		vo.EventStatus(model.Status),
		model.Payload,
		model.RetryCount,
		model.ErrorMessage,
		model.ReceivedAt,
		model.ProcessedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct webhook event: %w", err)
	}
	return entity, nil
}

func (m *webhookEventMapper) ToModel(entity *billing.WebhookEvent) (*models.WebhookEventModel, error) {
	if entity == nil {
		return nil, nil
	}

	var payload datatypes.JSON
	if len(entity.Payload()) > 0 {
		payload = entity.Payload()
	}

	return &models.WebhookEventModel{
		ID:           entity.ID(),
		EventID:      entity.EventID(),
		EventType:    entity.EventType(),
		Status:       entity.Status().String(),
		Payload:      payload,
		RetryCount:   entity.RetryCount(),
		ErrorMessage: entity.ErrorMessage(),
		ReceivedAt:   entity.ReceivedAt(),
		ProcessedAt:  entity.ProcessedAt(),
	}, nil
}
