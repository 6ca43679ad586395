package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/orris-inc/paywall/internal/application/billing/usecases"
	"github.com/orris-inc/paywall/internal/infrastructure/config"
	"github.com/orris-inc/paywall/internal/infrastructure/email"
	"github.com/orris-inc/paywall/internal/infrastructure/payment"
	"github.com/orris-inc/paywall/internal/infrastructure/ratelimit"
	"github.com/orris-inc/paywall/internal/infrastructure/repository"
	"github.com/orris-inc/paywall/internal/interfaces/http/handlers"
	"github.com/orris-inc/paywall/internal/interfaces/http/middleware"
	"github.com/orris-inc/paywall/internal/interfaces/http/routes"
	shareddb "github.com/orris-inc/paywall/internal/shared/db"
	"github.com/orris-inc/paywall/internal/shared/logger"
	"github.com/orris-inc/paywall/internal/shared/utils"

	_ "github.com/orris-inc/paywall/docs"
)

// Router wires the billing HTTP surface together.
type Router struct {
	engine             *gin.Engine
	billingHandler     *handlers.BillingHandler
	webhookHandler     *handlers.WebhookHandler
	authMiddleware     *middleware.AuthMiddleware
	rateLimiter        *middleware.RateLimiter
	webhookRateLimiter *middleware.RateLimiter
	allowedOrigins     []string
	logger             logger.Interface
}

// NewRouter creates a new HTTP router with all dependencies. The redis
// client may be nil, in which case rate limiting is disabled.
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log logger.Interface) (*Router, error) {
	engine := gin.New()

	accountRepo := repository.NewBillingAccountRepository(db, log)
	eventRepo := repository.NewWebhookEventRepository(db, log)

	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, log)

	webhookTimeout := time.Duration(cfg.Billing.WebhookTimeoutSeconds) * time.Second
	staleAfter := time.Duration(cfg.Billing.StaleClaimAfterMinutes) * time.Minute

	createAccountUC := usecases.NewCreateBillingAccountUseCase(accountRepo, cfg.Billing.TrialDays, log)
	getStatusUC := usecases.NewGetBillingStatusUseCase(accountRepo, log)
	getAccessUC := usecases.NewGetAccessDecisionUseCase(accountRepo, log)
	checkoutUC := usecases.NewCreateCheckoutUseCase(
		accountRepo, gateway,
		cfg.Stripe.PriceID, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL,
		log,
	)
	portalUC := usecases.NewCreatePortalUseCase(accountRepo, gateway, cfg.Stripe.PortalReturnURL, log)
	cancelUC := usecases.NewCancelSubscriptionUseCase(accountRepo, gateway, log)
	reactivateUC := usecases.NewReactivateSubscriptionUseCase(accountRepo, gateway, log)
	processWebhookUC := usecases.NewProcessWebhookEventUseCase(
		accountRepo, eventRepo, gateway,
		webhookTimeout, staleAfter,
		log,
	)
	processWebhookUC.SetTxRunner(shareddb.NewTransactionManager(db))

	// Lifecycle emails are optional: without an SMTP host the use cases
	// simply skip notification.
	if cfg.Email.SMTPHost != "" {
		notifier, err := email.NewSMTPNotifier(cfg.Email, log)
		if err != nil {
			return nil, err
		}
		processWebhookUC.SetNotifier(notifier)
		cancelUC.SetNotifier(notifier)
		reactivateUC.SetNotifier(notifier)
	}

	billingHandler := handlers.NewBillingHandler(
		createAccountUC, getStatusUC, getAccessUC,
		checkoutUC, portalUC, cancelUC, reactivateUC,
		log,
	)
	webhookHandler := handlers.NewWebhookHandler(processWebhookUC, log)

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWT, log)

	var rateLimiter, webhookRateLimiter *middleware.RateLimiter
	if redisClient != nil {
		limiter := ratelimit.NewRedisRateLimiter(redisClient)
		rateLimiter = middleware.NewRateLimiter(limiter, ratelimit.RateLimitConfig{RequestsPerMinute: 100})
		// Webhook storms from the provider are legitimate traffic, so the
		// webhook limit is an order of magnitude looser.
		webhookRateLimiter = middleware.NewRateLimiter(limiter, ratelimit.RateLimitConfig{RequestsPerMinute: 1000})
	}

	return &Router{
		engine:             engine,
		billingHandler:     billingHandler,
		webhookHandler:     webhookHandler,
		authMiddleware:     authMiddleware,
		rateLimiter:        rateLimiter,
		webhookRateLimiter: webhookRateLimiter,
		allowedOrigins:     cfg.Server.AllowedOrigins,
		logger:             log,
	}, nil
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.CORS(r.allowedOrigins))
	r.engine.Use(middleware.SecurityHeaders())

	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.engine.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, http.StatusOK, "ok", gin.H{"status": "healthy"})
	})

	routes.SetupWebhookRoutes(r.engine, &routes.WebhookRouteConfig{
		WebhookHandler: r.webhookHandler,
		RateLimiter:    r.webhookRateLimiter,
	})

	routes.SetupBillingRoutes(r.engine, &routes.BillingRouteConfig{
		BillingHandler: r.billingHandler,
		AuthMiddleware: r.authMiddleware,
		RateLimiter:    r.rateLimiter,
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
