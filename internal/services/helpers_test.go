package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/petespantry/storefront/internal/events"
	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository/memstore"
)

type mockCardGateway struct {
	mock.Mock
}

func (m *mockCardGateway) Name() string { return "mock" }

func (m *mockCardGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	args := m.Called(ctx, req)
	charge, _ := args.Get(0).(*Charge)
	return charge, args.Error(1)
}

type mockExchange struct {
	mock.Mock
}

func (m *mockExchange) Name() string { return "mock" }

func (m *mockExchange) Rate(ctx context.Context, asset models.CryptoAsset, fiat string) (decimal.Decimal, error) {
	args := m.Called(ctx, asset, fiat)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockExchange) CreateReceiveAddress(ctx context.Context, asset models.CryptoAsset) (*ReceiveAddress, error) {
	args := m.Called(ctx, asset)
	address, _ := args.Get(0).(*ReceiveAddress)
	return address, args.Error(1)
}

func (m *mockExchange) ReceivedAmount(ctx context.Context, asset models.CryptoAsset, addressID string) (decimal.Decimal, error) {
	args := m.Called(ctx, asset, addressID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type recordingPublisher struct {
	events []events.OrderPaidEvent
}

func (p *recordingPublisher) PublishOrderPaid(ctx context.Context, event events.OrderPaidEvent) error {
	p.events = append(p.events, event)
	return nil
}

// fixture wires the payment services over an in-memory store holding the
// default catalog and one customer.
type fixture struct {
	store     *memstore.Store
	pricing   *PricingService
	ledger    *LedgerService
	gateway   *mockCardGateway
	exchange  *mockExchange
	publisher *recordingPublisher
	checkout  *CheckoutService
	crypto    *CryptoPaymentService
	mild      models.Product
	hot       models.Product
	userID    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:     memstore.New(),
		gateway:   &mockCardGateway{},
		exchange:  &mockExchange{},
		publisher: &recordingPublisher{},
		userID:    "user-1",
	}

	catalog := NewCatalogService(f.store, nil)
	added, err := catalog.SeedDefaults(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, added)

	products, err := catalog.ListProducts(ctx)
	require.NoError(t, err)
	f.mild, f.hot = products[0], products[1]

	require.NoError(t, f.store.Users().Create(ctx, &models.User{ID: f.userID, Email: "pete@example.com"}))

	f.pricing = NewPricingService(f.store, decimal.NewFromInt(50))
	f.ledger = NewLedgerService(f.store, decimal.NewFromInt(50))
	f.checkout = NewCheckoutService(f.store, f.pricing, f.ledger, f.gateway, f.publisher, nil, "ZAR")
	f.crypto = NewCryptoPaymentService(f.store, f.pricing, f.ledger, f.exchange, f.publisher, nil, "ZAR")
	return f
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	user, err := f.store.Users().GetByID(context.Background(), f.userID)
	require.NoError(t, err)
	return user.Balance
}

func (f *fixture) transactionsFor(t *testing.T, orderID uuid.UUID) []models.Transaction {
	t.Helper()
	txns, err := f.store.Transactions().ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	return txns
}

func shipping() models.ShippingDetails {
	return models.ShippingDetails{
		ShippingAddress: "12 Long Street",
		City:            "Cape Town",
		Province:        "Western Cape",
		PostalCode:      "8001",
		Country:         "South Africa",
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func farFuture() time.Time {
	return time.Now().Add(24 * time.Hour)
}
