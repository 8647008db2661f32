package handler

import (
	"academy-commerce/internal/adapter/http/middleware"
	redisStore "academy-commerce/internal/adapter/storage/redis"
	"academy-commerce/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CheckoutSvc    ports.CheckoutService
	VoucherSvc     ports.VoucherService
	Reconciler     ports.WebhookReconciler
	QuerySvc       ports.TransactionQueryService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()

	// rate limiter for a group, or a no-op when Redis limiting is off
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

	// --- Gateway callback (signature-checked by the reconciler) ---
	webhookHandler := NewWebhookHandler(deps.Reconciler, deps.Logger)
	v1.POST("/payments/webhook", rl("webhook"), webhookHandler.Notify)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	checkoutHandler := NewCheckoutHandler(deps.CheckoutSvc)
	checkout := v1.Group("/checkout", jwtAuth, rl("checkout"))
	{
		checkout.POST("/courses", checkoutHandler.CheckoutCourse)
		checkout.POST("/premium-products", checkoutHandler.CheckoutPremium)
	}

	voucherHandler := NewVoucherHandler(deps.VoucherSvc)
	v1.POST("/vouchers/check", jwtAuth, rl("vouchers"), voucherHandler.Check)

	transactionHandler := NewTransactionHandler(deps.QuerySvc)
	transactions := v1.Group("/transactions", jwtAuth, rl("transactions"))
	{
		transactions.GET("", transactionHandler.List)
		transactions.GET("/:family/:id/logs", transactionHandler.Logs)
	}

	return r
}
