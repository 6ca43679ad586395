package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paywall/internal/application/billing/dto"
	"github.com/orris-inc/paywall/internal/application/billing/usecases"
	"github.com/orris-inc/paywall/internal/shared/constants"
	"github.com/orris-inc/paywall/internal/shared/logger"
	"github.com/orris-inc/paywall/internal/shared/utils"
)

// BillingHandler exposes the billing surface for authenticated users.
type BillingHandler struct {
	createAccountUC createBillingAccountUseCase
	getStatusUC     getBillingStatusUseCase
	getAccessUC     getAccessDecisionUseCase
	checkoutUC      createCheckoutUseCase
	portalUC        createPortalUseCase
	cancelUC        cancelSubscriptionUseCase
	reactivateUC    reactivateSubscriptionUseCase
	logger          logger.Interface
}

func NewBillingHandler(
	createAccountUC createBillingAccountUseCase,
	getStatusUC getBillingStatusUseCase,
	getAccessUC getAccessDecisionUseCase,
	checkoutUC createCheckoutUseCase,
	portalUC createPortalUseCase,
	cancelUC cancelSubscriptionUseCase,
	reactivateUC reactivateSubscriptionUseCase,
	logger logger.Interface,
) *BillingHandler {
	return &BillingHandler{
		createAccountUC: createAccountUC,
		getStatusUC:     getStatusUC,
		getAccessUC:     getAccessUC,
		checkoutUC:      checkoutUC,
		portalUC:        portalUC,
		cancelUC:        cancelUC,
		reactivateUC:    reactivateUC,
		logger:          logger,
	}
}

// @Summary		Create billing account
// @Description	Provision a billing account with a trial for the current user
// @Tags			billing
// @Produce		json
// @Security		Bearer
// @Success		201	{object}	utils.APIResponse	"Billing account created"
// @Failure		401	{object}	utils.APIResponse	"Unauthorized"
// @Failure		409	{object}	utils.APIResponse	"Account already exists"
// @Router			/billing/account [post]
func (h *BillingHandler) CreateAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	email, _ := c.Get(constants.ContextKeyUserEmail)
	emailStr, _ := email.(string)

	cmd := usecases.CreateBillingAccountCommand{
		UserID: userID,
		Email:  emailStr,
	}
	if err := h.createAccountUC.Execute(c.Request.Context(), cmd); err != nil {
		h.logger.Errorw("failed to create billing account", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, nil, "billing account created")
}

// @Summary		Get billing status
// @Description	Get the full derived billing state of the current user
// @Tags			billing
// @Produce		json
// @Security		Bearer
// @Success		200	{object}	utils.APIResponse{data=dto.BillingStatusDTO}	"Billing status"
// @Failure		401	{object}	utils.APIResponse								"Unauthorized"
// @Failure		404	{object}	utils.APIResponse								"Billing account not found"
// @Router			/billing/status [get]
func (h *BillingHandler) GetStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.getStatusUC.Execute(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorw("failed to get billing status", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "billing status retrieved", result)
}

// @Summary		Check application access
// @Description	Decide whether the current user may access the application
// @Tags			billing
// @Produce		json
// @Security		Bearer
// @Success		200	{object}	utils.APIResponse{data=dto.AccessDecisionDTO}	"Access decision"
// @Failure		401	{object}	utils.APIResponse								"Unauthorized"
// @Failure		404	{object}	utils.APIResponse								"Billing account not found"
// @Router			/billing/access [get]
func (h *BillingHandler) CheckAccess(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.getAccessUC.Execute(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorw("failed to check access", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "access decision computed", result)
}

// @Summary		Create checkout session
// @Description	Create a hosted checkout session for the current user
// @Tags			billing
// @Accept			json
// @Produce		json
// @Security		Bearer
// @Param			request	body		dto.CreateCheckoutRequest						false	"Optional redirect overrides"
// @Success		200		{object}	utils.APIResponse{data=dto.CheckoutSessionDTO}	"Checkout session created"
// @Failure		400		{object}	utils.APIResponse								"Invalid request"
// @Failure		401		{object}	utils.APIResponse								"Unauthorized"
// @Failure		500		{object}	utils.APIResponse								"Internal server error"
// @Router			/billing/checkout [post]
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.CreateCheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid request format")
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		for _, override := range []string{req.SuccessURL, req.CancelURL} {
			if override == "" {
				continue
			}
			if err := utils.ValidateRedirectURL(override); err != nil {
				utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
				return
			}
		}
	}

	result, err := h.checkoutUC.Execute(c.Request.Context(), usecases.CreateCheckoutCommand{
		UserID:     userID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.logger.Errorw("failed to create checkout session", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "checkout session created", result)
}

// @Summary		Create billing portal session
// @Description	Open the hosted billing portal for the current user
// @Tags			billing
// @Produce		json
// @Security		Bearer
// @Success		200	{object}	utils.APIResponse{data=dto.PortalSessionDTO}	"Portal session created"
// @Failure		400	{object}	utils.APIResponse								"No billing profile yet"
// @Failure		401	{object}	utils.APIResponse								"Unauthorized"
// @Router			/billing/portal [post]
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.portalUC.Execute(c.Request.Context(), usecases.CreatePortalCommand{UserID: userID})
	if err != nil {
		h.logger.Errorw("failed to create portal session", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "portal session created", result)
}

// @Summary		Cancel subscription
// @Description	Schedule cancellation at the end of the current period
// @Tags			billing
// @Produce		json
// @Security		Bearer
// @Success		200	{object}	utils.APIResponse{data=dto.CancellationDTO}	"Cancellation scheduled"
// @Failure		400	{object}	utils.APIResponse							"No active subscription"
// @Failure		401	{object}	utils.APIResponse							"Unauthorized"
// @Router			/billing/cancel [post]
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.cancelUC.Execute(c.Request.Context(), usecases.CancelSubscriptionCommand{UserID: userID})
	if err != nil {
		h.logger.Errorw("failed to cancel subscription", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "cancellation scheduled", result)
}

// @Summary		Reactivate subscription
// @Description	Reverse a pending cancellation before the period ends
// @Tags			billing
// @Produce		json
// @Security		Bearer
// @Success		200	{object}	utils.APIResponse{data=dto.ReactivationDTO}	"Subscription reactivated"
// @Failure		400	{object}	utils.APIResponse							"Not reactivatable"
// @Failure		401	{object}	utils.APIResponse							"Unauthorized"
// @Router			/billing/reactivate [post]
func (h *BillingHandler) ReactivateSubscription(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.reactivateUC.Execute(c.Request.Context(), usecases.ReactivateSubscriptionCommand{UserID: userID})
	if err != nil {
		h.logger.Errorw("failed to reactivate subscription", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "subscription reactivated", result)
}

// currentUserID extracts the authenticated user ID set by the auth
// middleware, writing a 401 response when missing.
func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return 0, false
	}

	userID, ok := value.(uint)
	if !ok || userID == 0 {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return 0, false
	}

	return userID, true
}
