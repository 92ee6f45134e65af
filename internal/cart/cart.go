// Package cart models the client-held shopping cart. Prices on a Line are the
// snapshot the customer saw when adding it; checkout always reprices from
// the catalog, and Quote reports where the two disagree.
package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/petespantry/storefront/internal/services"
)

type Line struct {
	ID       uuid.UUID       `json:"id" validate:"required"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity" validate:"required,min=1,max=1000"`
}

type Cart struct {
	Lines []Line `json:"items" validate:"required,min=1,dive"`
}

// Subtotal uses the snapshot prices and is for display only.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// CheckoutItems is what the client submits to a payment endpoint. Lines for
// the same product are merged.
func (c *Cart) CheckoutItems() []services.CheckoutItem {
	items := make([]services.CheckoutItem, 0, len(c.Lines))
	index := make(map[uuid.UUID]int, len(c.Lines))
	for _, line := range c.Lines {
		if i, ok := index[line.ID]; ok {
			items[i].Quantity += line.Quantity
			continue
		}
		index[line.ID] = len(items)
		items = append(items, services.CheckoutItem{ID: line.ID, Quantity: line.Quantity})
	}
	return items
}

// Pricer verifies checkout items against the catalog.
type Pricer interface {
	Verify(ctx context.Context, items []services.CheckoutItem) (*services.VerifiedCart, error)
}

type QuoteLine struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	ClientPrice  decimal.Decimal `json:"client_price"`
	CatalogPrice decimal.Decimal `json:"catalog_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
	PriceChanged bool            `json:"price_changed"`
}

type Quote struct {
	Lines          []QuoteLine     `json:"lines"`
	ClientSubtotal decimal.Decimal `json:"client_subtotal"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping"`
	Total          decimal.Decimal `json:"total"`
	PriceChanged   bool            `json:"price_changed"`
}

// QuoteFor prices the cart from the catalog and flags lines whose snapshot
// price has drifted.
func QuoteFor(ctx context.Context, pricer Pricer, c *Cart) (*Quote, error) {
	items := c.CheckoutItems()
	verified, err := pricer.Verify(ctx, items)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[uuid.UUID]decimal.Decimal, len(c.Lines))
	for _, line := range c.Lines {
		if _, seen := snapshot[line.ID]; !seen {
			snapshot[line.ID] = line.Price
		}
	}

	quote := &Quote{
		Lines:          make([]QuoteLine, 0, len(verified.Lines)),
		ClientSubtotal: c.Subtotal(),
		Subtotal:       verified.Subtotal,
		Shipping:       verified.Shipping,
		Total:          verified.Total,
	}
	for _, line := range verified.Lines {
		clientPrice := snapshot[line.Product.ID]
		changed := !clientPrice.Equal(line.UnitPrice)
		quote.Lines = append(quote.Lines, QuoteLine{
			ID:           line.Product.ID,
			Name:         line.Product.Name,
			Quantity:     line.Quantity,
			ClientPrice:  clientPrice,
			CatalogPrice: line.UnitPrice,
			LineTotal:    line.LineTotal,
			PriceChanged: changed,
		})
		if changed {
			quote.PriceChanged = true
		}
	}
	return quote, nil
}
