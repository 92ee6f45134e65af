// internal/models/transaction.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an append-only ledger entry. Amount is the signed change
// applied to the owner's balance: deposits are positive, payments negative.
type Transaction struct {
	BaseModel
	UserID        string          `json:"user_id" gorm:"size:255;not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Type          TransactionType `json:"type" gorm:"type:varchar(20);not null;index"`
	Description   string          `json:"description" gorm:"type:text"`
	PaymentMethod string          `json:"payment_method,omitempty" gorm:"size:50"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty" gorm:"type:uuid;index"`
}
