// Package repository is the persistence boundary of the storefront. Services
// depend on Store; the gorm implementation backs production and memstore
// backs unit tests.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/utils"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Store interface {
	Products() ProductRepository
	Users() UserRepository
	Orders() OrderRepository
	Transactions() TransactionRepository
	AuditLogs() AuditLogRepository

	// WithTx runs fn against a transactional Store. Returning an error
	// rolls back every write made through tx.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type ProductRepository interface {
	List(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, product *models.Product) error
	UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error
	// AdjustBalance applies a relative change and returns the new balance.
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
	// DebitBalance subtracts amount only when the balance covers it. ok is
	// false when it does not, in which case the current balance is returned.
	DebitBalance(ctx context.Context, id string, amount decimal.Decimal) (balance decimal.Decimal, ok bool, err error)
}

type OrderRepository interface {
	// Create inserts the order together with its items.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Order, int64, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	// Transition moves an order from one status to another. It reports false
	// without error when the order was no longer in the from status.
	Transition(ctx context.Context, id uuid.UUID, from models.OrderStatus, update OrderUpdate) (bool, error)
	// ListByStatus pages through orders in (created_at, id) order. A nil
	// cursor starts from the oldest order.
	ListByStatus(ctx context.Context, status models.OrderStatus, createdBefore time.Time, after *OrderCursor, limit int) ([]models.Order, error)
}

// OrderCursor is the position of the last order of a ListByStatus page.
type OrderCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func CursorAfter(order *models.Order) *OrderCursor {
	return &OrderCursor{CreatedAt: order.CreatedAt, ID: order.ID}
}

// OrderUpdate carries the columns written on a status transition.
type OrderUpdate struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	PaidAt        *time.Time
}

type TransactionRepository interface {
	// Create returns ErrDuplicate when the order already has a transaction
	// of the same type.
	Create(ctx context.Context, txn *models.Transaction) error
	ListByUser(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Transaction, int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error)
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}
