// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/petespantry/storefront/internal/config"
	"github.com/petespantry/storefront/internal/handlers"
	"github.com/petespantry/storefront/internal/middleware"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/services"
	"github.com/petespantry/storefront/internal/telemetry"
	"github.com/petespantry/storefront/internal/utils"
)

// Dependencies are the adapters the API is assembled from. Nil optional
// fields fall back to safe defaults.
type Dependencies struct {
	Store       repository.Store
	CardGateway services.CardGateway
	Exchange    services.CryptoExchange
	Publisher   services.OrderEventPublisher
	Images      services.ImageStore
	Metrics     *telemetry.PaymentMetrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// Authenticator defaults to HS256 bearer tokens signed with JWT_SECRET.
	Authenticator middleware.Authenticator
}

func Initialize(cfg *config.Config, deps Dependencies) *gin.Engine {
	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenTTL)*time.Hour)
	authenticator := deps.Authenticator
	if authenticator == nil {
		authenticator = middleware.NewJWTAuthenticator(jwtManager)
	}

	// Initialize services
	pricingService := services.NewPricingService(deps.Store, cfg.Payment.ShippingFee)
	ledgerService := services.NewLedgerService(deps.Store, cfg.Payment.MinimumDeposit)
	checkoutService := services.NewCheckoutService(deps.Store, pricingService, ledgerService, deps.CardGateway, deps.Publisher, deps.Metrics, cfg.Payment.Currency)
	cryptoService := services.NewCryptoPaymentService(deps.Store, pricingService, ledgerService, deps.Exchange, deps.Publisher, deps.Metrics, cfg.Payment.Currency)
	reconciliationService := services.NewReconciliationService(deps.Store, cryptoService, cfg.Worker.PendingTTL, cfg.Worker.SweepBatch)
	orderService := services.NewOrderService(deps.Store)
	catalogService := services.NewCatalogService(deps.Store, deps.Images)
	userService := services.NewUserService(deps.Store)
	authService := services.NewAuthService(deps.Store, ledgerService, jwtManager, cfg.Auth.DemoLoginEnabled, cfg.Auth.DemoCredit)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(catalogService)
	cartHandler := handlers.NewCartHandler(pricingService)
	paymentHandler := handlers.NewPaymentHandler(checkoutService, cryptoService)
	transactionHandler := handlers.NewTransactionHandler(ledgerService)
	orderHandler := handlers.NewOrderHandler(orderService)
	adminHandler := handlers.NewAdminHandler(orderService, reconciliationService)

	authRequired := middleware.AuthRequired(authenticator, userService)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(deps.Store.AuditLogs()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": cfg.Telemetry.ServiceVersion,
		})
	})

	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		{
			auth.POST("/simple-login", middleware.AuthRateLimit(), authHandler.SimpleLogin)
			auth.GET("/user", authRequired, authHandler.GetCurrentUser)
		}

		v1.PUT("/profile", authRequired, userHandler.UpdateProfile)

		// Catalog routes (public)
		products := v1.Group("/products")
		{
			products.GET("", productHandler.ListProducts)
			products.GET("/:id", productHandler.GetProduct)
		}

		v1.POST("/cart/quote", cartHandler.Quote)

		// Payment routes
		payment := v1.Group("/payment")
		payment.Use(authRequired)
		{
			payment.POST("/card", paymentHandler.PayByCard)
			payment.POST("/balance", paymentHandler.PayByBalance)
			payment.POST("/crypto/init", paymentHandler.InitCryptoPayment)
			payment.POST("/crypto/verify", middleware.PaymentRateLimit(), paymentHandler.VerifyCryptoPayment)
		}

		// Ledger routes
		transactions := v1.Group("/transactions")
		transactions.Use(authRequired)
		{
			transactions.GET("", transactionHandler.ListTransactions)
			transactions.POST("/deposit", transactionHandler.Deposit)
		}

		// Order history routes
		orders := v1.Group("/orders")
		orders.Use(authRequired)
		{
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.GET("/:id/items", orderHandler.ListOrderItems)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(authRequired, middleware.AdminRequired())
		{
			admin.PUT("/products/:id/image", middleware.UploadRateLimit(), productHandler.UploadImage)
			admin.POST("/orders/:id/complete", adminHandler.CompleteOrder)
			admin.POST("/payments/reconcile", adminHandler.Reconcile)
		}
	}

	return r
}
