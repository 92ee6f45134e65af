// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/config"
	"github.com/petespantry/storefront/internal/database"
	"github.com/petespantry/storefront/internal/events"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/services"
	"github.com/petespantry/storefront/internal/telemetry"
	"github.com/petespantry/storefront/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	telemetry.ConfigureLogging(cfg.Log, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdownTracer(context.Background())

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	store := repository.NewGormStore(db)

	gatewayClient := telemetry.NewHTTPClient(cfg.Payment.GatewayTimeout)
	exchange := services.NewLunoExchange(cfg.Luno, gatewayClient)

	var publisher services.OrderEventPublisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderPaidTopic)
		defer producer.Close()
		publisher = producer
	}

	pricing := services.NewPricingService(store, cfg.Payment.ShippingFee)
	ledger := services.NewLedgerService(store, cfg.Payment.MinimumDeposit)
	crypto := services.NewCryptoPaymentService(store, pricing, ledger, exchange, publisher, telemetry.NewPaymentMetrics(), cfg.Payment.Currency)
	reconciliation := services.NewReconciliationService(store, crypto, cfg.Worker.PendingTTL, cfg.Worker.SweepBatch)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.RunSweeps(ctx, reconciliation, cfg.Worker.SweepInterval)
	}()

	if len(cfg.Kafka.Brokers) > 0 {
		notifications := services.NewNotificationService(store, cfg.Email, cfg.Frontend.BaseURL)
		handler := worker.NewOrderPaidHandler(notifications)
		consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.OrderPaidTopic, cfg.Kafka.ConsumerGroup)
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			logrus.WithFields(logrus.Fields{
				"topic": cfg.Kafka.OrderPaidTopic,
				"group": cfg.Kafka.ConsumerGroup,
			}).Info("Consuming order events")
			if err := consumer.Consume(ctx, handler.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithError(err).Error("Order event consumer stopped")
				stop()
			}
		}()
	} else {
		logrus.Warn("KAFKA_BROKERS not set, order confirmations are disabled")
	}

	logrus.WithField("sweep_interval", cfg.Worker.SweepInterval).Info("Worker started")
	wg.Wait()
	logrus.Info("Worker exited")
}
