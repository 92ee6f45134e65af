package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("two jars plus shipping", func(t *testing.T) {
		cart, err := f.pricing.Verify(ctx, []CheckoutItem{{ID: f.mild.ID, Quantity: 2}})
		require.NoError(t, err)

		assert.True(t, dec("120").Equal(cart.Subtotal))
		assert.True(t, dec("50").Equal(cart.Shipping))
		assert.Equal(t, "170.00", cart.Total.StringFixed(2))
		assert.Equal(t, int64(17000), cart.AmountInCents())

		items := cart.OrderItems()
		require.Len(t, items, 1)
		assert.Equal(t, f.mild.ID, items[0].ProductID)
		assert.True(t, dec("60").Equal(items[0].Price))
	})

	t.Run("mixed lines", func(t *testing.T) {
		cart, err := f.pricing.Verify(ctx, []CheckoutItem{
			{ID: f.mild.ID, Quantity: 1},
			{ID: f.hot.ID, Quantity: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, "290.00", cart.Total.StringFixed(2))
		assert.Len(t, cart.Lines, 2)
	})

	t.Run("unknown product fails the whole cart", func(t *testing.T) {
		missing := uuid.New()
		_, err := f.pricing.Verify(ctx, []CheckoutItem{
			{ID: f.mild.ID, Quantity: 1},
			{ID: missing, Quantity: 1},
		})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Message, missing.String())
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := f.pricing.Verify(ctx, []CheckoutItem{{ID: f.mild.ID, Quantity: 0}})
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("quantity above the line cap", func(t *testing.T) {
		_, err := f.pricing.Verify(ctx, []CheckoutItem{{ID: f.mild.ID, Quantity: MaxItemQuantity + 1}})
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("total beyond the order column", func(t *testing.T) {
		items := make([]CheckoutItem, 0, 2000)
		for i := 0; i < 2000; i++ {
			items = append(items, CheckoutItem{ID: f.mild.ID, Quantity: MaxItemQuantity})
		}
		_, err := f.pricing.Verify(ctx, items)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Message, "exceeds")
	})

	t.Run("empty cart", func(t *testing.T) {
		_, err := f.pricing.Verify(ctx, nil)
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestAmountInCentsRounds(t *testing.T) {
	cart := &VerifiedCart{Total: dec("10.005")}
	assert.Equal(t, int64(1001), cart.AmountInCents())
}
