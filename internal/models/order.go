// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	UserID               string           `json:"user_id" gorm:"size:255;not null;index"`
	Status               OrderStatus      `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Total                decimal.Decimal  `json:"total" gorm:"type:decimal(10,2);not null"`
	PaymentMethod        string           `json:"payment_method" gorm:"size:50"`
	PaymentStatus        PaymentStatus    `json:"payment_status" gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentTransactionID string           `json:"payment_transaction_id,omitempty" gorm:"size:255"`
	CryptoAsset          CryptoAsset      `json:"crypto_asset,omitempty" gorm:"type:varchar(10)"`
	CryptoAddress        string           `json:"crypto_address,omitempty" gorm:"size:255"`
	CryptoAddressID      string           `json:"crypto_address_id,omitempty" gorm:"size:255"`
	CryptoAmount         *decimal.Decimal `json:"crypto_amount,omitempty" gorm:"type:decimal(20,8)"`
	IdempotencyKey       *string          `json:"-" gorm:"size:255"`
	ShippingAddress      string           `json:"shipping_address" gorm:"type:text"`
	City                 string           `json:"city" gorm:"size:100"`
	Province             string           `json:"province" gorm:"size:100"`
	PostalCode           string           `json:"postal_code" gorm:"size:20"`
	Country              string           `json:"country" gorm:"size:100"`
	PaidAt               *time.Time       `json:"paid_at,omitempty"`

	// Relationships
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// Reference is the short order number shown to customers.
func (o *Order) Reference() string {
	return "#" + o.ID.String()[:8]
}

func (o *Order) SetShipping(s ShippingDetails) {
	o.ShippingAddress = s.ShippingAddress
	o.City = s.City
	o.Province = s.Province
	o.PostalCode = s.PostalCode
	o.Country = s.Country
}

type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
