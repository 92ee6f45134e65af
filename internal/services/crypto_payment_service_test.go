package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/petespantry/storefront/internal/models"
)

func initCrypto(t *testing.T, f *fixture) *CryptoInitResult {
	t.Helper()

	f.exchange.On("Rate", mock.Anything, models.CryptoAssetBitcoin, "ZAR").Return(dec("500000"), nil).Once()
	f.exchange.On("CreateReceiveAddress", mock.Anything, models.CryptoAssetBitcoin).
		Return(&ReceiveAddress{ID: "addr-1", Address: "bc1qexample", Asset: models.CryptoAssetBitcoin}, nil).Once()

	result, err := f.crypto.InitPayment(context.Background(), f.userID, &CryptoInitRequest{
		Asset:           "xbt",
		Items:           []CheckoutItem{{ID: f.mild.ID, Quantity: 2}},
		ShippingDetails: shipping(),
	})
	require.NoError(t, err)
	return result
}

func TestCryptoInitPayment(t *testing.T) {
	f := newFixture(t)
	result := initCrypto(t, f)

	assert.Equal(t, "0.00034000", result.CryptoAmount)
	assert.Equal(t, "bc1qexample", result.CryptoAddress)
	assert.Equal(t, "addr-1", result.AddressID)
	assert.Equal(t, "XBT", result.Asset)
	assert.Equal(t, "170.00", result.VerifiedTotal.StringFixed(2))

	order := result.Order
	assert.Equal(t, models.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "crypto_xbt", order.PaymentMethod)
	require.NotNil(t, order.CryptoAmount)
	assert.True(t, dec("0.00034").Equal(*order.CryptoAmount))

	assert.Empty(t, f.transactionsFor(t, order.ID), "init never touches the ledger")
	assert.True(t, f.balance(t).IsZero())
	assert.Empty(t, f.publisher.events)
}

func TestCryptoInitRejectsUnknownAsset(t *testing.T) {
	f := newFixture(t)

	_, err := f.crypto.InitPayment(context.Background(), f.userID, &CryptoInitRequest{
		Asset:           "LTC",
		Items:           []CheckoutItem{{ID: f.mild.ID, Quantity: 1}},
		ShippingDetails: shipping(),
	})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	f.exchange.AssertNotCalled(t, "Rate", mock.Anything, mock.Anything, mock.Anything)
}

func TestCryptoInitExchangeFailureCreatesNoOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.exchange.On("Rate", mock.Anything, models.CryptoAssetEthereum, "ZAR").
		Return(dec("0"), &GatewayError{Gateway: "mock", Err: errors.New("ticker unavailable")}).Once()

	_, err := f.crypto.InitPayment(ctx, f.userID, &CryptoInitRequest{
		Asset:           "ETH",
		Items:           []CheckoutItem{{ID: f.mild.ID, Quantity: 1}},
		ShippingDetails: shipping(),
	})
	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)

	orders, err := f.store.Orders().ListByStatus(ctx, models.OrderStatusPendingPayment, farFuture(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCryptoVerifyPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initResult := initCrypto(t, f)
	orderID := initResult.Order.ID

	t.Run("not yet received", func(t *testing.T) {
		f.exchange.On("ReceivedAmount", mock.Anything, models.CryptoAssetBitcoin, "addr-1").Return(dec("0.0001"), nil).Once()

		result, err := f.crypto.VerifyPayment(ctx, f.userID, &CryptoVerifyRequest{OrderID: orderID})
		require.NoError(t, err)
		assert.False(t, result.Paid)
		assert.Equal(t, models.OrderStatusPendingPayment, result.Order.Status)
		assert.Empty(t, f.transactionsFor(t, orderID))
	})

	t.Run("client values do not lower the expected amount", func(t *testing.T) {
		f.exchange.On("ReceivedAmount", mock.Anything, models.CryptoAssetBitcoin, "addr-1").Return(dec("0.0001"), nil).Once()

		result, err := f.crypto.VerifyPayment(ctx, f.userID, &CryptoVerifyRequest{
			OrderID:        orderID,
			AddressID:      "someone-elses-address",
			ExpectedAmount: "0.00000001",
		})
		require.NoError(t, err)
		assert.False(t, result.Paid)
	})

	t.Run("received in full", func(t *testing.T) {
		f.exchange.On("ReceivedAmount", mock.Anything, models.CryptoAssetBitcoin, "addr-1").Return(dec("0.00034"), nil).Once()

		result, err := f.crypto.VerifyPayment(ctx, f.userID, &CryptoVerifyRequest{OrderID: orderID})
		require.NoError(t, err)
		assert.True(t, result.Paid)
		assert.Equal(t, models.OrderStatusPaid, result.Order.Status)
		assert.Equal(t, models.PaymentStatusCompleted, result.Order.PaymentStatus)
		assert.NotNil(t, result.Order.PaidAt)

		txns := f.transactionsFor(t, orderID)
		require.Len(t, txns, 2)
		assert.Contains(t, txns[0].Description, "XBT funding for order")
		assert.True(t, f.balance(t).IsZero())
		assert.Len(t, f.publisher.events, 1)
	})

	t.Run("repeat verify is a no-op", func(t *testing.T) {
		result, err := f.crypto.VerifyPayment(ctx, f.userID, &CryptoVerifyRequest{OrderID: orderID})
		require.NoError(t, err)
		assert.True(t, result.Paid)
		assert.Len(t, f.transactionsFor(t, orderID), 2)
		assert.Len(t, f.publisher.events, 1)
	})

	f.exchange.AssertExpectations(t)
}

func TestCryptoVerifyOtherUsersOrder(t *testing.T) {
	f := newFixture(t)
	initResult := initCrypto(t, f)

	_, err := f.crypto.VerifyPayment(context.Background(), "someone-else", &CryptoVerifyRequest{OrderID: initResult.Order.ID})
	assert.ErrorIs(t, err, ErrOrderNotFound)
	f.exchange.AssertNotCalled(t, "ReceivedAmount", mock.Anything, mock.Anything, mock.Anything)
}

func TestCryptoVerifyExchangeFailureKeepsOrderPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	initResult := initCrypto(t, f)

	f.exchange.On("ReceivedAmount", mock.Anything, models.CryptoAssetBitcoin, "addr-1").
		Return(dec("0"), &GatewayError{Gateway: "mock", Err: errors.New("timeout")}).Once()

	_, err := f.crypto.VerifyPayment(ctx, f.userID, &CryptoVerifyRequest{OrderID: initResult.Order.ID})
	require.Error(t, err)

	order, err := f.store.Orders().GetByID(ctx, initResult.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPendingPayment, order.Status)
}

func TestCryptoAmount(t *testing.T) {
	assert.Equal(t, "0.00034000", CryptoAmount(dec("170"), dec("500000")).StringFixed(8))
	assert.Equal(t, "0.33333333", CryptoAmount(dec("1"), dec("3")).StringFixed(8))
}
