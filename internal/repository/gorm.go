package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petespantry/storefront/internal/database"
	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/utils"
)

const uniqueViolation = "23505"

var returningBalance = clause.Returning{Columns: []clause.Column{{Name: "balance"}}}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Products() ProductRepository         { return &gormProducts{db: s.db} }
func (s *gormStore) Users() UserRepository               { return &gormUsers{db: s.db} }
func (s *gormStore) Orders() OrderRepository             { return &gormOrders{db: s.db} }
func (s *gormStore) Transactions() TransactionRepository { return &gormTransactions{db: s.db} }
func (s *gormStore) AuditLogs() AuditLogRepository       { return &gormAuditLogs{db: s.db} }

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

type gormProducts struct {
	db *gorm.DB
}

func (r *gormProducts) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("name asc").Find(&products).Error
	return products, translateError(err)
}

func (r *gormProducts) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

func (r *gormProducts) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error
	return count, translateError(err)
}

func (r *gormProducts) Create(ctx context.Context, product *models.Product) error {
	return translateError(r.db.WithContext(ctx).Create(product).Error)
}

func (r *gormProducts) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("image_url", imageURL)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormUsers struct {
	db *gorm.DB
}

func (r *gormUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *gormUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *gormUsers) Create(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUsers) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormUsers) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	var user models.User
	result := r.db.WithContext(ctx).Model(&user).
		Clauses(returningBalance).
		Where("id = ?", id).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return decimal.Zero, translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, ErrNotFound
	}
	return user.Balance, nil
}

func (r *gormUsers) DebitBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	var user models.User
	result := r.db.WithContext(ctx).Model(&user).
		Clauses(returningBalance).
		Where("id = ? AND balance >= ?", id, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return decimal.Zero, false, translateError(result.Error)
	}
	if result.RowsAffected == 1 {
		return user.Balance, true, nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, false, err
	}
	return current.Balance, false, nil
}

type gormOrders struct {
	db *gorm.DB
}

func (r *gormOrders) Create(ctx context.Context, order *models.Order) error {
	return translateError(r.db.WithContext(ctx).Create(order).Error)
}

func (r *gormOrders) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (r *gormOrders) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").
		First(&order, "user_id = ? AND idempotency_key = ?", userID, key).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (r *gormOrders) ListByUser(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	allowedSortFields := []string{"created_at", "total", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return orders, total, nil
}

func (r *gormOrders) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).Preload("Product").
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&items).Error
	return items, translateError(err)
}

func (r *gormOrders) Transition(ctx context.Context, id uuid.UUID, from models.OrderStatus, update OrderUpdate) (bool, error) {
	fields := map[string]interface{}{
		"status": update.Status,
	}
	if update.PaymentStatus != "" {
		fields["payment_status"] = update.PaymentStatus
	}
	if update.PaidAt != nil {
		fields["paid_at"] = *update.PaidAt
	}

	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *gormOrders) ListByStatus(ctx context.Context, status models.OrderStatus, createdBefore time.Time, after *OrderCursor, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, createdBefore)
	if after != nil {
		query = query.Where("(created_at, id) > (?, ?)", after.CreatedAt, after.ID)
	}
	err := query.
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&orders).Error
	return orders, translateError(err)
}

type gormTransactions struct {
	db *gorm.DB
}

func (r *gormTransactions) Create(ctx context.Context, txn *models.Transaction) error {
	return translateError(r.db.WithContext(ctx).Create(txn).Error)
}

func (r *gormTransactions) ListByUser(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	allowedSortFields := []string{"created_at", "amount", "type"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return transactions, total, nil
}

func (r *gormTransactions) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&transactions).Error
	return transactions, translateError(err)
}

type gormAuditLogs struct {
	db *gorm.DB
}

func (r *gormAuditLogs) Create(ctx context.Context, entry *models.AuditLog) error {
	return translateError(r.db.WithContext(ctx).Create(entry).Error)
}
