// Package worker holds the background jobs run by cmd/worker: order.paid
// notifications from Kafka and the periodic pending-payment sweep.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/events"
	"github.com/petespantry/storefront/internal/services"
)

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, orderID uuid.UUID) error
}

type OrderPaidHandler struct {
	notifier Notifier
}

func NewOrderPaidHandler(notifier Notifier) *OrderPaidHandler {
	return &OrderPaidHandler{notifier: notifier}
}

// Handle emails a receipt for one order.paid message. Malformed messages and
// unknown orders are logged and skipped so they do not block the partition.
func (h *OrderPaidHandler) Handle(ctx context.Context, payload []byte) error {
	var event events.OrderPaidEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		logrus.WithError(err).Warn("Skipping malformed order.paid event")
		return nil
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		logrus.WithField("order_id", event.OrderID).Warn("Skipping order.paid event with invalid order id")
		return nil
	}

	logger := logrus.WithFields(logrus.Fields{
		"order_id":       event.OrderID,
		"user_id":        event.UserID,
		"payment_method": event.PaymentMethod,
	})
	logger.Info("Processing order.paid event")

	if err := h.notifier.SendOrderConfirmation(ctx, orderID); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			logger.Warn("Order for order.paid event not found")
			return nil
		}
		return fmt.Errorf("send order confirmation: %w", err)
	}
	return nil
}

type Sweeper interface {
	Sweep(ctx context.Context) (*services.SweepResult, error)
}

// RunSweeps calls sweeper every interval until ctx is done. A failed sweep is
// logged and retried on the next tick.
func RunSweeps(ctx context.Context, sweeper Sweeper, interval time.Duration) {
	if interval <= 0 {
		logrus.Info("Pending payment sweep disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweepOnce(ctx, sweeper)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepOnce(ctx context.Context, sweeper Sweeper) {
	result, err := sweeper.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logrus.WithError(err).Error("Pending payment sweep failed")
		}
		return
	}
	if result.Checked > 0 {
		logrus.WithFields(logrus.Fields{
			"checked":   result.Checked,
			"confirmed": result.Confirmed,
			"expired":   result.Expired,
			"failed":    result.Failed,
		}).Info("Pending payment sweep completed")
	}
}
