package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paywall/internal/interfaces/http/handlers"
	"github.com/orris-inc/paywall/internal/interfaces/http/middleware"
)

// WebhookRouteConfig holds dependencies for provider webhook routes.
type WebhookRouteConfig struct {
	WebhookHandler *handlers.WebhookHandler
	RateLimiter    *middleware.RateLimiter // may be nil; limits should stay generous, webhook storms are legitimate
}

// SetupWebhookRoutes configures the provider webhook routes. Webhooks are
// authenticated by signature, not by user tokens, so no auth middleware
// applies here.
func SetupWebhookRoutes(engine *gin.Engine, cfg *WebhookRouteConfig) {
	webhooks := engine.Group("/webhooks")
	if cfg.RateLimiter != nil {
		webhooks.Use(cfg.RateLimiter.Limit())
	}
	{
		webhooks.POST("/stripe", cfg.WebhookHandler.HandleStripeWebhook)
	}
}
