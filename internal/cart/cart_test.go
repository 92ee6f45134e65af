package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petespantry/storefront/internal/repository/memstore"
	"github.com/petespantry/storefront/internal/services"
)

func TestSubtotalUsesSnapshotPrices(t *testing.T) {
	c := &Cart{Lines: []Line{
		{ID: uuid.New(), Price: decimal.NewFromInt(60), Quantity: 3},
		{ID: uuid.New(), Price: decimal.RequireFromString("12.50"), Quantity: 2},
	}}
	assert.Equal(t, "205.00", c.Subtotal().StringFixed(2))
	assert.True(t, (&Cart{}).Subtotal().IsZero())
}

func TestCheckoutItemsMergesDuplicates(t *testing.T) {
	id := uuid.New()
	other := uuid.New()
	c := &Cart{Lines: []Line{
		{ID: id, Quantity: 1},
		{ID: other, Quantity: 4},
		{ID: id, Quantity: 2},
	}}

	items := c.CheckoutItems()
	require.Len(t, items, 2)
	assert.Equal(t, services.CheckoutItem{ID: id, Quantity: 3}, items[0])
	assert.Equal(t, services.CheckoutItem{ID: other, Quantity: 4}, items[1])
	assert.Len(t, c.Lines, 2, "the cart itself is not modified")
}

func TestQuoteFor(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	catalog := services.NewCatalogService(store, nil)
	_, err := catalog.SeedDefaults(ctx)
	require.NoError(t, err)
	products, err := catalog.ListProducts(ctx)
	require.NoError(t, err)

	pricing := services.NewPricingService(store, decimal.NewFromInt(50))
	c := &Cart{Lines: []Line{
		{ID: products[0].ID, Price: decimal.NewFromInt(60), Quantity: 2},
		{ID: products[1].ID, Price: decimal.NewFromInt(1), Quantity: 1},
	}}

	quote, err := QuoteFor(ctx, pricing, c)
	require.NoError(t, err)

	assert.Equal(t, "180.00", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "230.00", quote.Total.StringFixed(2))
	assert.Equal(t, "121.00", quote.ClientSubtotal.StringFixed(2))
	assert.True(t, quote.PriceChanged)
	require.Len(t, quote.Lines, 2)
	assert.False(t, quote.Lines[0].PriceChanged)
	assert.True(t, quote.Lines[1].PriceChanged)
	assert.Equal(t, "60.00", quote.Lines[1].CatalogPrice.StringFixed(2))
}

func TestQuoteForUnknownProduct(t *testing.T) {
	pricing := services.NewPricingService(memstore.New(), decimal.NewFromInt(50))
	c := &Cart{Lines: []Line{{ID: uuid.New(), Quantity: 1}}}

	_, err := QuoteFor(context.Background(), pricing, c)
	var validationErr *services.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
