package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paywall/internal/interfaces/http/handlers"
	"github.com/orris-inc/paywall/internal/interfaces/http/middleware"
)

// BillingRouteConfig holds dependencies for the authenticated billing routes.
type BillingRouteConfig struct {
	BillingHandler *handlers.BillingHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter // may be nil
}

// SetupBillingRoutes configures the billing routes for authenticated users.
func SetupBillingRoutes(engine *gin.Engine, cfg *BillingRouteConfig) {
	billing := engine.Group("/billing")
	billing.Use(cfg.AuthMiddleware.RequireAuth())
	if cfg.RateLimiter != nil {
		billing.Use(cfg.RateLimiter.Limit())
	}
	{
		billing.POST("/account", cfg.BillingHandler.CreateAccount)
		billing.GET("/status", cfg.BillingHandler.GetStatus)
		billing.GET("/access", cfg.BillingHandler.CheckAccess)
		billing.POST("/checkout", cfg.BillingHandler.CreateCheckout)
		billing.POST("/portal", cfg.BillingHandler.CreatePortal)
		billing.POST("/cancel", cfg.BillingHandler.CancelSubscription)
		billing.POST("/reactivate", cfg.BillingHandler.ReactivateSubscription)
	}
}
