//go:build integration

package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/petespantry/storefront/internal/events"
	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/testutil"
)

func TestConcurrentCryptoVerifyBooksOnce(t *testing.T) {
	ctx := context.Background()
	store := repository.NewGormStore(testutil.SetupPostgres(ctx, t))

	catalog := NewCatalogService(store, nil)
	_, err := catalog.SeedDefaults(ctx)
	require.NoError(t, err)
	products, err := catalog.ListProducts(ctx)
	require.NoError(t, err)

	users := NewUserService(store)
	_, err = users.EnsureUser(ctx, "crypto-user", "crypto@example.com")
	require.NoError(t, err)

	exchange := &mockExchange{}
	exchange.On("Rate", mock.Anything, models.CryptoAssetEthereum, "ZAR").Return(decimal.NewFromInt(40000), nil)
	exchange.On("CreateReceiveAddress", mock.Anything, models.CryptoAssetEthereum).
		Return(&ReceiveAddress{ID: "eth-1", Address: "0xabc", Asset: models.CryptoAssetEthereum}, nil)
	exchange.On("ReceivedAmount", mock.Anything, models.CryptoAssetEthereum, "eth-1").Return(decimal.NewFromInt(1), nil)

	publisher := &lockedPublisher{}
	pricing := NewPricingService(store, decimal.NewFromInt(50))
	ledger := NewLedgerService(store, decimal.NewFromInt(50))
	crypto := NewCryptoPaymentService(store, pricing, ledger, exchange, publisher, nil, "ZAR")

	initResult, err := crypto.InitPayment(ctx, "crypto-user", &CryptoInitRequest{
		Asset:           "ETH",
		Items:           []CheckoutItem{{ID: products[0].ID, Quantity: 2}},
		ShippingDetails: shipping(),
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00425000", initResult.CryptoAmount)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := crypto.VerifyPayment(ctx, "crypto-user", &CryptoVerifyRequest{OrderID: initResult.Order.ID})
			if err == nil && !res.Paid {
				err = assert.AnError
			}
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	for err := range results {
		require.NoError(t, err)
	}

	txns, err := store.Transactions().ListByOrder(ctx, initResult.Order.ID)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	user, err := users.GetProfile(ctx, "crypto-user")
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero(), user.Balance.String())
	assert.Equal(t, 1, publisher.count())
}

type lockedPublisher struct {
	mu sync.Mutex
	n  int
}

func (p *lockedPublisher) PublishOrderPaid(ctx context.Context, event events.OrderPaidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	return nil
}

func (p *lockedPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
