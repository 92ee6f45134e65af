// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Base model with common fields. Orders, items and ledger rows are never
// deleted, so there is no soft-delete column.
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusExpired        OrderStatus = "expired"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypePayment TransactionType = "payment"
)

// Payment methods recorded on orders and transactions.
const (
	PaymentMethodCard       = "card"
	PaymentMethodBalance    = "balance"
	PaymentMethodCryptoBase = "crypto_"
)

// Deposit funding methods offered on the profile page.
const (
	DepositMethodCreditCard = "credit-card"
	DepositMethodDebitCard  = "debit-card"
	DepositMethodEFT        = "eft"
)

// CryptoAsset is an exchange asset code, e.g. XBT.
type CryptoAsset string

const (
	CryptoAssetBitcoin  CryptoAsset = "XBT"
	CryptoAssetEthereum CryptoAsset = "ETH"
	CryptoAssetTether   CryptoAsset = "USDT"
	CryptoAssetDogecoin CryptoAsset = "DOGE"
	CryptoAssetMonero   CryptoAsset = "XMR"
)

var SupportedCryptoAssets = []CryptoAsset{
	CryptoAssetBitcoin,
	CryptoAssetEthereum,
	CryptoAssetTether,
	CryptoAssetDogecoin,
	CryptoAssetMonero,
}

func (a CryptoAsset) Supported() bool {
	for _, s := range SupportedCryptoAssets {
		if a == s {
			return true
		}
	}
	return false
}
