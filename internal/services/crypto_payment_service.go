// internal/services/crypto_payment_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/telemetry"
)

// cryptoPrecision is the number of decimal places quoted for crypto amounts.
const cryptoPrecision = 8

type CryptoPaymentService struct {
	store     repository.Store
	pricing   *PricingService
	ledger    *LedgerService
	exchange  CryptoExchange
	publisher OrderEventPublisher
	metrics   *telemetry.PaymentMetrics
	currency  string
}

type CryptoInitRequest struct {
	Asset string         `json:"asset" validate:"required,crypto_asset"`
	Items []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	models.ShippingDetails
}

type CryptoInitResult struct {
	Order         *models.Order   `json:"order"`
	CryptoAddress string          `json:"crypto_address"`
	CryptoAmount  string          `json:"crypto_amount"`
	Asset         string          `json:"asset"`
	AddressID     string          `json:"address_id"`
	VerifiedTotal decimal.Decimal `json:"verified_total"`
}

// CryptoVerifyRequest identifies the order to check. AddressID and
// ExpectedAmount are what the client was shown; the stored order is
// authoritative.
type CryptoVerifyRequest struct {
	OrderID        uuid.UUID `json:"order_id" validate:"required"`
	AddressID      string    `json:"address_id"`
	ExpectedAmount string    `json:"expected_amount"`
}

type CryptoVerifyResult struct {
	Paid     bool            `json:"paid"`
	Order    *models.Order   `json:"order"`
	Received decimal.Decimal `json:"received"`
}

func NewCryptoPaymentService(
	store repository.Store,
	pricing *PricingService,
	ledger *LedgerService,
	exchange CryptoExchange,
	publisher OrderEventPublisher,
	metrics *telemetry.PaymentMetrics,
	currency string,
) *CryptoPaymentService {
	return &CryptoPaymentService{
		store:     store,
		pricing:   pricing,
		ledger:    ledger,
		exchange:  exchange,
		publisher: publisher,
		metrics:   metrics,
		currency:  currency,
	}
}

// InitPayment quotes the verified total in asset and opens a receive
// address. The order waits in pending_payment; nothing touches the ledger.
func (s *CryptoPaymentService) InitPayment(ctx context.Context, userID string, req *CryptoInitRequest) (*CryptoInitResult, error) {
	asset := models.CryptoAsset(strings.ToUpper(strings.TrimSpace(req.Asset)))
	if !asset.Supported() {
		return nil, validationErrorf("unsupported asset %q", req.Asset)
	}
	if err := validateShipping(req.ShippingDetails); err != nil {
		return nil, err
	}

	cart, err := s.pricing.Verify(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	rate, err := s.exchange.Rate(ctx, asset, s.currency)
	s.metrics.RecordGatewayCall(ctx, s.exchange.Name(), "rate", started, err)
	if err != nil {
		return nil, err
	}
	amount := CryptoAmount(cart.Total, rate)

	started = time.Now()
	address, err := s.exchange.CreateReceiveAddress(ctx, asset)
	s.metrics.RecordGatewayCall(ctx, s.exchange.Name(), "create_address", started, err)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPendingPayment,
		Total:           cart.Total,
		PaymentMethod:   models.PaymentMethodCryptoBase + strings.ToLower(string(asset)),
		PaymentStatus:   models.PaymentStatusPending,
		CryptoAsset:     asset,
		CryptoAddress:   address.Address,
		CryptoAddressID: address.ID,
		CryptoAmount:    &amount,
		Items:           cart.OrderItems(),
	}
	order.SetShipping(req.ShippingDetails)

	if err := s.store.Orders().Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.metrics.RecordPayment(ctx, order.PaymentMethod, "initiated")
	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"asset":    asset,
		"amount":   amount.StringFixed(cryptoPrecision),
		"total":    cart.Total.StringFixed(2),
	}).Info("Crypto payment initiated")

	return &CryptoInitResult{
		Order:         order,
		CryptoAddress: address.Address,
		CryptoAmount:  amount.StringFixed(cryptoPrecision),
		Asset:         string(asset),
		AddressID:     address.ID,
		VerifiedTotal: cart.Total,
	}, nil
}

// VerifyPayment checks the receive address and confirms the order once the
// quoted amount has arrived. Calling it again on a paid order is a no-op
// that reports success.
func (s *CryptoPaymentService) VerifyPayment(ctx context.Context, userID string, req *CryptoVerifyRequest) (*CryptoVerifyResult, error) {
	order, err := loadOwnedOrder(ctx, s.store, userID, req.OrderID)
	if err != nil {
		return nil, err
	}

	s.warnOnClientMismatch(order, req)
	return s.reconcile(ctx, order)
}

// Reconcile is VerifyPayment without the ownership check, for the sweep.
func (s *CryptoPaymentService) Reconcile(ctx context.Context, order *models.Order) (*CryptoVerifyResult, error) {
	return s.reconcile(ctx, order)
}

func (s *CryptoPaymentService) reconcile(ctx context.Context, order *models.Order) (*CryptoVerifyResult, error) {
	switch order.Status {
	case models.OrderStatusPaid, models.OrderStatusCompleted:
		return &CryptoVerifyResult{Paid: true, Order: order}, nil
	case models.OrderStatusPendingPayment:
	default:
		return nil, validationErrorf("order %s is not awaiting payment", order.Reference())
	}

	if order.CryptoAmount == nil || order.CryptoAddressID == "" {
		return nil, validationErrorf("order %s is not a crypto payment", order.Reference())
	}

	started := time.Now()
	received, err := s.exchange.ReceivedAmount(ctx, order.CryptoAsset, order.CryptoAddressID)
	s.metrics.RecordGatewayCall(ctx, s.exchange.Name(), "received_amount", started, err)
	if err != nil {
		return nil, err
	}

	if received.LessThan(*order.CryptoAmount) {
		logrus.WithFields(logrus.Fields{
			"order_id": order.ID,
			"received": received.String(),
			"expected": order.CryptoAmount.StringFixed(cryptoPrecision),
		}).Debug("Crypto payment not yet received")
		return &CryptoVerifyResult{Paid: false, Order: order, Received: received}, nil
	}

	confirmed, err := s.confirm(ctx, order)
	if err != nil {
		return nil, err
	}
	return &CryptoVerifyResult{Paid: true, Order: confirmed, Received: received}, nil
}

// confirm moves the order to paid and books it in one unit of work. Only the
// caller that wins the status transition writes ledger entries.
func (s *CryptoPaymentService) confirm(ctx context.Context, order *models.Order) (*models.Order, error) {
	now := time.Now().UTC()
	won := false

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		ok, err := tx.Orders().Transition(ctx, order.ID, models.OrderStatusPendingPayment, repository.OrderUpdate{
			Status:        models.OrderStatusPaid,
			PaymentStatus: models.PaymentStatusCompleted,
			PaidAt:        &now,
		})
		if err != nil {
			return fmt.Errorf("failed to transition order: %w", err)
		}
		if !ok {
			return nil
		}
		won = true
		return s.ledger.SettleExternal(ctx, tx, order)
	})
	if err != nil {
		s.metrics.RecordPayment(ctx, order.PaymentMethod, "error")
		return nil, err
	}

	confirmed, err := s.store.Orders().GetByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	if !won {
		if confirmed.Status != models.OrderStatusPaid && confirmed.Status != models.OrderStatusCompleted {
			return nil, validationErrorf("order %s is %s", confirmed.Reference(), confirmed.Status)
		}
		return confirmed, nil
	}

	s.metrics.RecordPayment(ctx, order.PaymentMethod, "paid")
	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"asset":    order.CryptoAsset,
		"amount":   order.Total.StringFixed(2),
	}).Info("Crypto payment confirmed")

	publishOrderPaid(ctx, s.publisher, confirmed)
	return confirmed, nil
}

func (s *CryptoPaymentService) warnOnClientMismatch(order *models.Order, req *CryptoVerifyRequest) {
	fields := logrus.Fields{"order_id": order.ID}
	mismatch := false

	if req.AddressID != "" && req.AddressID != order.CryptoAddressID {
		fields["client_address_id"] = req.AddressID
		mismatch = true
	}
	if req.ExpectedAmount != "" && order.CryptoAmount != nil {
		expected, err := decimal.NewFromString(req.ExpectedAmount)
		if err != nil || !expected.Equal(*order.CryptoAmount) {
			fields["client_expected_amount"] = req.ExpectedAmount
			mismatch = true
		}
	}

	if mismatch {
		logrus.WithFields(fields).Warn("Client supplied crypto details differ from the stored order")
	}
}

// CryptoAmount converts a fiat total at rate, rounded to 8 decimal places.
func CryptoAmount(total, rate decimal.Decimal) decimal.Decimal {
	return total.DivRound(rate, cryptoPrecision)
}
