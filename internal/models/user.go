// internal/models/user.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User mirrors the identity provider's subject. Balance is a cached running
// total of the user's transactions and is only changed through relative
// updates issued next to a transaction insert.
type User struct {
	ID              string          `json:"id" gorm:"primaryKey;size:255"`
	Email           string          `json:"email" gorm:"size:255;index"`
	FirstName       string          `json:"first_name" gorm:"size:100"`
	LastName        string          `json:"last_name" gorm:"size:100"`
	ProfileImageURL string          `json:"profile_image_url" gorm:"size:500"`
	Phone           string          `json:"phone" gorm:"size:50"`
	Address         string          `json:"address" gorm:"type:text"`
	ShippingAddress string          `json:"shipping_address" gorm:"type:text"`
	City            string          `json:"city" gorm:"size:100"`
	Province        string          `json:"province" gorm:"size:100"`
	PostalCode      string          `json:"postal_code" gorm:"size:20"`
	Country         string          `json:"country" gorm:"size:100"`
	Role            UserRole        `json:"role" gorm:"type:varchar(20);default:'customer'"`
	Balance         decimal.Decimal `json:"balance" gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ShippingDetails is the address block captured at checkout and on the profile.
type ShippingDetails struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	City            string `json:"city" validate:"required"`
	Province        string `json:"province" validate:"required"`
	PostalCode      string `json:"postal_code" validate:"required"`
	Country         string `json:"country" validate:"required"`
}
