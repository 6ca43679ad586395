package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paywall/internal/application/billing/usecases"
	"github.com/orris-inc/paywall/internal/shared/constants"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
	"github.com/orris-inc/paywall/internal/shared/logger"
	"github.com/orris-inc/paywall/internal/shared/utils"
	"github.com/orris-inc/paywall/internal/shared/utils/logutil"
)

// maxWebhookBodyBytes caps the raw payload read from the provider.
const maxWebhookBodyBytes = 1 << 20

// WebhookHandler receives provider webhook deliveries. It never trusts the
// payload before signature verification, and its status codes drive the
// provider's retry behavior: 2xx acknowledges, 4xx/5xx requests a retry.
type WebhookHandler struct {
	processWebhookUC processWebhookUseCase
	logger           logger.Interface
}

func NewWebhookHandler(processWebhookUC processWebhookUseCase, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		processWebhookUC: processWebhookUC,
		logger:           logger,
	}
}

// @Summary		Handle billing provider webhook
// @Description	Receive and process a signed billing provider event
// @Tags			webhooks
// @Accept			json
// @Produce		json
// @Param			Stripe-Signature	header		string				true	"Webhook signature"
// @Success		200					{object}	utils.APIResponse	"Event processed"
// @Failure		400					{object}	utils.APIResponse	"Invalid signature or payload"
// @Failure		500					{object}	utils.APIResponse	"Processing failed, provider should retry"
// @Router			/webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Errorw("failed to read webhook body", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	signature := c.GetHeader(constants.HeaderStripeSignature)
	if signature == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "missing webhook signature")
		return
	}

	cmd := usecases.ProcessWebhookCommand{
		Payload:   payload,
		Signature: signature,
	}

	if err := h.processWebhookUC.Execute(c.Request.Context(), cmd); err != nil {
		if apperrors.IsValidationError(err) {
			h.logger.Warnw("rejected webhook delivery",
				"error", err,
				"signature", logutil.TruncateForLog(signature, 16))
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid webhook payload")
			return
		}

		h.logger.Errorw("failed to process webhook event", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to process event")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "event processed", nil)
}
