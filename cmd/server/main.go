// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/petespantry/storefront/internal/config"
	"github.com/petespantry/storefront/internal/database"
	"github.com/petespantry/storefront/internal/events"
	"github.com/petespantry/storefront/internal/i18n"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/router"
	"github.com/petespantry/storefront/internal/services"
	"github.com/petespantry/storefront/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	telemetry.ConfigureLogging(cfg.Log, cfg.IsProduction())

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	ctx := context.Background()

	// Telemetry
	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdownTracer(ctx)

	var metricsHandler http.Handler
	if cfg.Telemetry.MetricsEnabled {
		handler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Telemetry)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize metrics")
		}
		defer shutdownMeter(ctx)
		metricsHandler = handler
	}

	// Run database migrations
	if err := database.RunMigrations(cfg.Database.URL()); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	store := repository.NewGormStore(db)

	images, err := services.NewStorageService(cfg.AWS, fmt.Sprintf("http://localhost:%s", cfg.Server.Port))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	if cfg.Database.SeedCatalog {
		if _, err := services.NewCatalogService(store, images).SeedDefaults(ctx); err != nil {
			logrus.WithError(err).Fatal("Failed to seed catalog")
		}
	}

	// Payment adapters
	gatewayClient := telemetry.NewHTTPClient(cfg.Payment.GatewayTimeout)
	cardGateway, err := services.NewCardGateway(cfg, gatewayClient)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize card gateway")
	}
	exchange := services.NewLunoExchange(cfg.Luno, gatewayClient)

	var publisher services.OrderEventPublisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderPaidTopic)
		defer producer.Close()
		publisher = producer
	} else {
		logrus.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(cfg, router.Dependencies{
		Store:          store,
		CardGateway:    cardGateway,
		Exchange:       exchange,
		Publisher:      publisher,
		Images:         images,
		Metrics:        telemetry.NewPaymentMetrics(),
		MetricsHandler: metricsHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(r, cfg.Telemetry.ServiceName),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":          cfg.Server.Port,
			"card_provider": cardGateway.Name(),
			"environment":   cfg.Environment,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}
