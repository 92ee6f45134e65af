// internal/services/reconciliation_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
)

// ReconciliationService settles crypto orders whose customers stopped
// polling, and expires the ones that were never funded.
type ReconciliationService struct {
	store      repository.Store
	crypto     *CryptoPaymentService
	pendingTTL time.Duration
	batchSize  int
	now        func() time.Time
}

type SweepResult struct {
	Checked   int `json:"checked"`
	Confirmed int `json:"confirmed"`
	Expired   int `json:"expired"`
	Failed    int `json:"failed"`
}

// NewReconciliationService builds the sweep. A zero pendingTTL disables
// expiry.
func NewReconciliationService(store repository.Store, crypto *CryptoPaymentService, pendingTTL time.Duration, batchSize int) *ReconciliationService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReconciliationService{
		store:      store,
		crypto:     crypto,
		pendingTTL: pendingTTL,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Sweep checks every pending_payment order created before the sweep
// started, oldest first, one page of batchSize at a time. Exchange failures
// on one order are logged and do not stop the sweep.
func (s *ReconciliationService) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.now()
	result := &SweepResult{}

	var cursor *repository.OrderCursor
	for {
		orders, err := s.store.Orders().ListByStatus(ctx, models.OrderStatusPendingPayment, now, cursor, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to list pending orders: %w", err)
		}

		for i := range orders {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			s.check(ctx, now, &orders[i], result)
		}

		if len(orders) < s.batchSize {
			break
		}
		cursor = repository.CursorAfter(&orders[len(orders)-1])
	}

	if result.Checked > 0 {
		logrus.WithFields(logrus.Fields{
			"checked":   result.Checked,
			"confirmed": result.Confirmed,
			"expired":   result.Expired,
			"failed":    result.Failed,
		}).Info("Reconciliation sweep finished")
	}
	return result, nil
}

func (s *ReconciliationService) check(ctx context.Context, now time.Time, order *models.Order, result *SweepResult) {
	result.Checked++

	verify, err := s.crypto.Reconcile(ctx, order)
	if err != nil {
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			result.Failed++
			logrus.WithError(err).WithField("order_id", order.ID).Warn("Reconciliation check failed")
			return
		}
	} else if verify.Paid {
		result.Confirmed++
		return
	}

	if s.pendingTTL > 0 && now.Sub(order.CreatedAt) > s.pendingTTL {
		expired, err := s.expire(ctx, order)
		if err != nil {
			result.Failed++
			logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to expire order")
			return
		}
		if expired {
			result.Expired++
		}
	}
}

func (s *ReconciliationService) expire(ctx context.Context, order *models.Order) (bool, error) {
	ok, err := s.store.Orders().Transition(ctx, order.ID, models.OrderStatusPendingPayment, repository.OrderUpdate{
		Status:        models.OrderStatusExpired,
		PaymentStatus: models.PaymentStatusFailed,
	})
	if err != nil {
		return false, err
	}
	if ok {
		logrus.WithFields(logrus.Fields{
			"order_id": order.ID,
			"user_id":  order.UserID,
			"age":      s.now().Sub(order.CreatedAt).Round(time.Minute).String(),
		}).Info("Unfunded crypto order expired")
	}
	return ok, nil
}
