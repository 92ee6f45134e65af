// internal/services/checkout_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/telemetry"
	"github.com/petespantry/storefront/internal/utils"
)

type CheckoutService struct {
	store     repository.Store
	pricing   *PricingService
	ledger    *LedgerService
	gateway   CardGateway
	publisher OrderEventPublisher
	metrics   *telemetry.PaymentMetrics
	currency  string
}

type CardPaymentRequest struct {
	Token string         `json:"token" validate:"required"`
	Items []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	models.ShippingDetails
}

type CardPaymentResult struct {
	Order         *models.Order   `json:"order"`
	PaymentID     string          `json:"payment_id"`
	AmountCharged decimal.Decimal `json:"amount_charged"`
}

// BalancePaymentRequest takes an optional shipping address. When any part
// of it is given, all of it is required.
type BalancePaymentRequest struct {
	Items                  []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	models.ShippingDetails `validate:"-"`
}

type BalancePaymentResult struct {
	Order      *models.Order   `json:"order"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

func NewCheckoutService(
	store repository.Store,
	pricing *PricingService,
	ledger *LedgerService,
	gateway CardGateway,
	publisher OrderEventPublisher,
	metrics *telemetry.PaymentMetrics,
	currency string,
) *CheckoutService {
	return &CheckoutService{
		store:     store,
		pricing:   pricing,
		ledger:    ledger,
		gateway:   gateway,
		publisher: publisher,
		metrics:   metrics,
		currency:  currency,
	}
}

// PayByCard charges the verified total and, only when the gateway reports a
// successful charge, records the paid order. A repeated idempotency key
// returns the order created by the first call without charging again.
func (s *CheckoutService) PayByCard(ctx context.Context, userID string, req *CardPaymentRequest, idempotencyKey string) (*CardPaymentResult, error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, validationErrorf("card token is required")
	}
	if err := validateShipping(req.ShippingDetails); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		if result, err := s.replayCardPayment(ctx, userID, idempotencyKey); result != nil || err != nil {
			return result, err
		}
	}

	cart, err := s.pricing.Verify(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{"user_id": userID}
	if idempotencyKey != "" {
		metadata["idempotency_key"] = idempotencyKey
	}

	started := time.Now()
	charge, err := s.gateway.Charge(ctx, ChargeRequest{
		Token:          req.Token,
		AmountInCents:  cart.AmountInCents(),
		Currency:       s.currency,
		IdempotencyKey: gatewayIdempotencyKey(userID, idempotencyKey),
		Metadata:       metadata,
	})
	s.metrics.RecordGatewayCall(ctx, s.gateway.Name(), "charge", started, err)
	if err != nil {
		s.metrics.RecordPayment(ctx, models.PaymentMethodCard, "error")
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"amount":  cart.Total.StringFixed(2),
		}).Warn("Card charge failed")
		return nil, err
	}
	if charge.Status != ChargeStatusSuccessful {
		s.metrics.RecordPayment(ctx, models.PaymentMethodCard, "declined")
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,
			"charge_id": charge.ID,
			"status":    charge.Status,
		}).Warn("Card charge not successful")
		return nil, &GatewayError{
			Gateway:  s.gateway.Name(),
			Declined: true,
			Err:      fmt.Errorf("charge %s returned status %q", charge.ID, charge.Status),
		}
	}

	now := time.Now().UTC()
	order := &models.Order{
		UserID:               userID,
		Status:               models.OrderStatusPaid,
		Total:                cart.Total,
		PaymentMethod:        models.PaymentMethodCard,
		PaymentStatus:        models.PaymentStatusCompleted,
		PaymentTransactionID: charge.ID,
		PaidAt:               &now,
		Items:                cart.OrderItems(),
	}
	order.SetShipping(req.ShippingDetails)
	if idempotencyKey != "" {
		order.IdempotencyKey = &idempotencyKey
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return s.ledger.SettleExternal(ctx, tx, order)
	})
	if err != nil {
		if idempotencyKey != "" && errors.Is(err, repository.ErrDuplicate) {
			if result, replayErr := s.replayCardPayment(ctx, userID, idempotencyKey); result != nil {
				return result, nil
			} else if replayErr != nil {
				return nil, replayErr
			}
		}
		s.metrics.RecordPayment(ctx, models.PaymentMethodCard, "error")
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":   userID,
			"charge_id": charge.ID,
			"amount":    cart.Total.StringFixed(2),
		}).Error("Card charge succeeded but the order could not be recorded")
		return nil, err
	}

	s.metrics.RecordPayment(ctx, models.PaymentMethodCard, "paid")
	logrus.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"user_id":   userID,
		"charge_id": charge.ID,
		"amount":    order.Total.StringFixed(2),
	}).Info("Card payment completed")

	publishOrderPaid(ctx, s.publisher, order)

	return &CardPaymentResult{
		Order:         order,
		PaymentID:     charge.ID,
		AmountCharged: order.Total,
	}, nil
}

func (s *CheckoutService) replayCardPayment(ctx context.Context, userID, key string) (*CardPaymentResult, error) {
	order, err := s.store.Orders().GetByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
	}).Info("Replaying card payment for repeated idempotency key")

	return &CardPaymentResult{
		Order:         order,
		PaymentID:     order.PaymentTransactionID,
		AmountCharged: order.Total,
	}, nil
}

// gatewayIdempotencyKey scopes a client key to its user. Gateway keys are
// unique per merchant account, client keys only per user.
func gatewayIdempotencyKey(userID, key string) string {
	if key == "" {
		return ""
	}
	return utils.HashString(userID + ":" + key)
}

// PayByBalance debits the verified total from the stored balance.
func (s *CheckoutService) PayByBalance(ctx context.Context, userID string, req *BalancePaymentRequest) (*BalancePaymentResult, error) {
	if req.ShippingDetails != (models.ShippingDetails{}) {
		if err := validateShipping(req.ShippingDetails); err != nil {
			return nil, err
		}
	}

	cart, err := s.pricing.Verify(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &models.Order{
		UserID:        userID,
		Status:        models.OrderStatusPaid,
		Total:         cart.Total,
		PaymentMethod: models.PaymentMethodBalance,
		PaymentStatus: models.PaymentStatusCompleted,
		PaidAt:        &now,
		Items:         cart.OrderItems(),
	}
	order.SetShipping(req.ShippingDetails)

	var newBalance decimal.Decimal
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		balance, err := s.ledger.DebitForOrder(ctx, tx, order)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		var insufficient *InsufficientBalanceError
		if errors.As(err, &insufficient) {
			s.metrics.RecordPayment(ctx, models.PaymentMethodBalance, "declined")
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"balance": insufficient.Balance.StringFixed(2),
				"amount":  cart.Total.StringFixed(2),
			}).Warn("Balance payment rejected")
		} else {
			s.metrics.RecordPayment(ctx, models.PaymentMethodBalance, "error")
		}
		return nil, err
	}

	s.metrics.RecordPayment(ctx, models.PaymentMethodBalance, "paid")
	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"amount":   order.Total.StringFixed(2),
	}).Info("Balance payment completed")

	publishOrderPaid(ctx, s.publisher, order)

	return &BalancePaymentResult{Order: order, NewBalance: newBalance}, nil
}
