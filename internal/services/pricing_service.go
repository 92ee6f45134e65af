// internal/services/pricing_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
)

// MaxItemQuantity caps a single checkout line.
const MaxItemQuantity = 1000

// maxOrderTotal is the largest value orders.total (DECIMAL(10,2)) holds.
var maxOrderTotal = decimal.RequireFromString("99999999.99")

// CheckoutItem is a line submitted by the client. Any price the client
// holds is ignored.
type CheckoutItem struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1,max=1000"`
}

type VerifiedLine struct {
	Product   models.Product  `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type VerifiedCart struct {
	Lines    []VerifiedLine  `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// OrderItems converts the verified lines into order items at catalog price.
func (v *VerifiedCart) OrderItems() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(v.Lines))
	for _, line := range v.Lines {
		items = append(items, models.OrderItem{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice,
		})
	}
	return items
}

// AmountInCents is the total in minor units, rounded half away from zero.
func (v *VerifiedCart) AmountInCents() int64 {
	return v.Total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type PricingService struct {
	store       repository.Store
	shippingFee decimal.Decimal
}

func NewPricingService(store repository.Store, shippingFee decimal.Decimal) *PricingService {
	return &PricingService{
		store:       store,
		shippingFee: shippingFee,
	}
}

func (s *PricingService) ShippingFee() decimal.Decimal {
	return s.shippingFee
}

// Verify prices items from the catalog. A single bad line fails the whole
// request.
func (s *PricingService) Verify(ctx context.Context, items []CheckoutItem) (*VerifiedCart, error) {
	if len(items) == 0 {
		return nil, validationErrorf("cart is empty")
	}

	cart := &VerifiedCart{
		Lines:    make([]VerifiedLine, 0, len(items)),
		Subtotal: decimal.Zero,
		Shipping: s.shippingFee,
	}

	for i, item := range items {
		if item.Quantity < 1 || item.Quantity > MaxItemQuantity {
			return nil, validationErrorf("invalid quantity %d for item %d", item.Quantity, i+1)
		}

		product, err := s.store.Products().GetByID(ctx, item.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, validationErrorf("product %s not found", item.ID)
			}
			return nil, fmt.Errorf("failed to load product %s: %w", item.ID, err)
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		cart.Lines = append(cart.Lines, VerifiedLine{
			Product:   *product,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			LineTotal: lineTotal,
		})
		cart.Subtotal = cart.Subtotal.Add(lineTotal)
	}

	cart.Total = cart.Subtotal.Add(cart.Shipping)
	if cart.Total.GreaterThan(maxOrderTotal) {
		return nil, validationErrorf("order total %s exceeds the maximum of %s", cart.Total.StringFixed(2), maxOrderTotal.StringFixed(2))
	}
	return cart, nil
}
