package handler

import (
	"merchant-portal/internal/adapter/http/middleware"
	redisStore "merchant-portal/internal/adapter/storage/redis"
	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc         ports.AuthService
	PaymentSvc      ports.PaymentService
	APIKeySvc       ports.APIKeyService
	Gateway         ports.GatewayClient
	TokenSvc        ports.TokenService
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	UsageWindowDays int
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (verifies PostgreSQL and Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// Gateway callback; authenticated by its signature field.
	webhookHandler := NewWebhookHandler(deps.PaymentSvc, deps.Gateway, deps.Logger)
	v1.POST("/webhooks/allpay", rl("webhooks"), webhookHandler.HandleAllPay)

	// --- JWT-authenticated routes (dashboard) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	apiKeyHandler := NewAPIKeyHandler(deps.APIKeySvc, deps.UsageWindowDays)

	payments := v1.Group("/payments", jwtAuth)
	{
		payments.POST("", rl("payments"), paymentHandler.CreatePayment)
		payments.GET("", rl("dashboard"), paymentHandler.ListTransactions)
		payments.GET("/:id", rl("dashboard"), paymentHandler.GetTransaction)
		payments.PATCH("/:id/status", rl("payments"), paymentHandler.UpdateTransactionStatus)
	}

	apiKeys := v1.Group("/api-keys", jwtAuth)
	{
		apiKeys.POST("", rl("api_keys"), apiKeyHandler.Create)
		apiKeys.GET("", rl("api_keys"), apiKeyHandler.List)
		apiKeys.PATCH("/:id", rl("api_keys"), apiKeyHandler.Update)
		apiKeys.DELETE("/:id", rl("api_keys"), apiKeyHandler.Delete)
		apiKeys.GET("/:id/stats", rl("api_keys"), apiKeyHandler.UsageStats)
	}

	profile := v1.Group("/profile", jwtAuth)
	{
		profile.GET("", rl("dashboard"), authHandler.GetProfile)
		profile.PUT("", rl("dashboard"), authHandler.UpdateProfile)
	}

	// --- API-key-authenticated routes (programmatic merchant API) ---
	keyAuth := middleware.APIKeyAuth(deps.APIKeySvc, deps.Logger)
	perm := func(resource domain.Resource, action domain.Action) gin.HandlerFunc {
		return middleware.RequirePermission(deps.APIKeySvc, resource, action)
	}

	merchant := v1.Group("/merchant", keyAuth)
	{
		merchant.POST("/payments", rl("payments"),
			perm(domain.ResourcePayments, domain.ActionCreate), paymentHandler.CreatePayment)
		merchant.GET("/payments/:id", rl("payments"),
			perm(domain.ResourcePayments, domain.ActionRead), paymentHandler.GetTransaction)
		merchant.GET("/transactions", rl("payments"),
			perm(domain.ResourceTransactions, domain.ActionRead), paymentHandler.ListTransactions)
		merchant.PATCH("/transactions/:id/status", rl("payments"),
			perm(domain.ResourceTransactions, domain.ActionUpdate), paymentHandler.UpdateTransactionStatus)
		merchant.GET("/profile", rl("dashboard"),
			perm(domain.ResourceProfile, domain.ActionRead), authHandler.GetProfile)
	}

	return r
}
