// Package memstore is an in-memory repository.Store. WithTx holds a single
// lock for the whole callback and restores a snapshot when it fails, which
// gives the same all-or-nothing behaviour as the SQL store. It enforces the
// unique indexes of the schema that the services rely on.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/utils"
)

type data struct {
	products     map[uuid.UUID]models.Product
	users        map[string]models.User
	orders       map[uuid.UUID]models.Order
	items        map[uuid.UUID][]models.OrderItem
	transactions []models.Transaction
	auditLogs    []models.AuditLog
	seq          map[uuid.UUID]int64
	nextSeq      int64
}

func newData() *data {
	return &data{
		products: make(map[uuid.UUID]models.Product),
		users:    make(map[string]models.User),
		orders:   make(map[uuid.UUID]models.Order),
		items:    make(map[uuid.UUID][]models.OrderItem),
		seq:      make(map[uuid.UUID]int64),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.items {
		c.items[k] = append([]models.OrderItem(nil), v...)
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	c.transactions = append([]models.Transaction(nil), d.transactions...)
	c.auditLogs = append([]models.AuditLog(nil), d.auditLogs...)
	c.nextSeq = d.nextSeq
	return c
}

func (d *data) stamp(base *models.BaseModel) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	now := time.Now().UTC()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
	d.nextSeq++
	d.seq[base.ID] = d.nextSeq
}

type Store struct {
	mu   *sync.Mutex
	d    *data
	inTx bool
}

// New returns an empty store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, d: newData()}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Products() repository.ProductRepository         { return products{s} }
func (s *Store) Users() repository.UserRepository               { return users{s} }
func (s *Store) Orders() repository.OrderRepository             { return orders{s} }
func (s *Store) Transactions() repository.TransactionRepository { return transactions{s} }
func (s *Store) AuditLogs() repository.AuditLogRepository       { return auditLogs{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	tx := &Store{mu: s.mu, d: s.d, inTx: true}

	defer func() {
		if r := recover(); r != nil {
			*s.d = *snapshot
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		*s.d = *snapshot
	}
	return err
}

// AuditEntries returns a copy of the recorded audit rows.
func (s *Store) AuditEntries() []models.AuditLog {
	defer s.lock()()
	return append([]models.AuditLog(nil), s.d.auditLogs...)
}

type products struct{ s *Store }

func (r products) List(ctx context.Context) ([]models.Product, error) {
	defer r.s.lock()()
	out := make([]models.Product, 0, len(r.s.d.products))
	for _, p := range r.s.d.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r products) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	defer r.s.lock()()
	p, ok := r.s.d.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r products) Count(ctx context.Context) (int64, error) {
	defer r.s.lock()()
	return int64(len(r.s.d.products)), nil
}

func (r products) Create(ctx context.Context, product *models.Product) error {
	defer r.s.lock()()
	r.s.d.stamp(&product.BaseModel)
	r.s.d.products[product.ID] = *product
	return nil
}

func (r products) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	defer r.s.lock()()
	p, ok := r.s.d.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.ImageURL = imageURL
	r.s.d.products[id] = p
	return nil
}

type users struct{ s *Store }

func (r users) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r users) Create(ctx context.Context, user *models.User) error {
	defer r.s.lock()()
	if _, exists := r.s.d.users[user.ID]; exists {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Role == "" {
		user.Role = models.UserRoleCustomer
	}
	r.s.d.users[user.ID] = *user
	return nil
}

func (r users) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	defer r.s.lock()()
	u, ok := r.s.d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for column, value := range fields {
		v, _ := value.(string)
		switch column {
		case "email":
			u.Email = v
		case "first_name":
			u.FirstName = v
		case "last_name":
			u.LastName = v
		case "phone":
			u.Phone = v
		case "address":
			u.Address = v
		case "shipping_address":
			u.ShippingAddress = v
		case "city":
			u.City = v
		case "province":
			u.Province = v
		case "postal_code":
			u.PostalCode = v
		case "country":
			u.Country = v
		}
	}
	u.UpdatedAt = time.Now().UTC()
	r.s.d.users[id] = u
	return nil
}

func (r users) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	defer r.s.lock()()
	u, ok := r.s.d.users[id]
	if !ok {
		return decimal.Zero, repository.ErrNotFound
	}
	u.Balance = u.Balance.Add(delta)
	r.s.d.users[id] = u
	return u.Balance, nil
}

func (r users) DebitBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	defer r.s.lock()()
	u, ok := r.s.d.users[id]
	if !ok {
		return decimal.Zero, false, repository.ErrNotFound
	}
	if u.Balance.LessThan(amount) {
		return u.Balance, false, nil
	}
	u.Balance = u.Balance.Sub(amount)
	r.s.d.users[id] = u
	return u.Balance, true, nil
}

type orders struct{ s *Store }

func (r orders) Create(ctx context.Context, order *models.Order) error {
	defer r.s.lock()()
	if order.IdempotencyKey != nil {
		for _, o := range r.s.d.orders {
			if o.UserID == order.UserID && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return repository.ErrDuplicate
			}
		}
	}

	r.s.d.stamp(&order.BaseModel)
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusPending
	}

	items := make([]models.OrderItem, len(order.Items))
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		r.s.d.stamp(&order.Items[i].BaseModel)
		items[i] = order.Items[i]
		items[i].Product = nil
	}

	stored := *order
	stored.Items = nil
	r.s.d.orders[order.ID] = stored
	r.s.d.items[order.ID] = items
	return nil
}

func (r orders) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	defer r.s.lock()()
	o, ok := r.s.d.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r orders) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	defer r.s.lock()()
	for _, o := range r.s.d.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			o.Items = append([]models.OrderItem(nil), r.s.d.items[o.ID]...)
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r orders) ListByUser(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Order, int64, error) {
	defer r.s.lock()()
	var out []models.Order
	for _, o := range r.s.d.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	r.s.sortBySeq(len(out), func(i int) uuid.UUID { return out[i].ID }, func(i, j int) { out[i], out[j] = out[j], out[i] }, params.Order)
	total := int64(len(out))
	return paginate(out, params), total, nil
}

func (r orders) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	defer r.s.lock()()
	items := append([]models.OrderItem(nil), r.s.d.items[orderID]...)
	for i := range items {
		if p, ok := r.s.d.products[items[i].ProductID]; ok {
			items[i].Product = &p
		}
	}
	return items, nil
}

func (r orders) Transition(ctx context.Context, id uuid.UUID, from models.OrderStatus, update repository.OrderUpdate) (bool, error) {
	defer r.s.lock()()
	o, ok := r.s.d.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = update.Status
	if update.PaymentStatus != "" {
		o.PaymentStatus = update.PaymentStatus
	}
	if update.PaidAt != nil {
		paidAt := *update.PaidAt
		o.PaidAt = &paidAt
	}
	o.UpdatedAt = time.Now().UTC()
	r.s.d.orders[id] = o
	return true, nil
}

func (r orders) ListByStatus(ctx context.Context, status models.OrderStatus, createdBefore time.Time, after *repository.OrderCursor, limit int) ([]models.Order, error) {
	defer r.s.lock()()
	var out []models.Order
	for _, o := range r.s.d.orders {
		if o.Status != status || !o.CreatedAt.Before(createdBefore) {
			continue
		}
		if after != nil && !cursorLess(after.CreatedAt, after.ID, o.CreatedAt, o.ID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return cursorLess(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// cursorLess orders by created_at then id, the way postgres compares the
// (created_at, id) row.
func cursorLess(aAt time.Time, aID uuid.UUID, bAt time.Time, bID uuid.UUID) bool {
	if !aAt.Equal(bAt) {
		return aAt.Before(bAt)
	}
	return aID.String() < bID.String()
}

// SetCreatedAt backdates an order, for exercising age-based sweeps.
func (s *Store) SetCreatedAt(id uuid.UUID, createdAt time.Time) {
	defer s.lock()()
	if o, ok := s.d.orders[id]; ok {
		o.CreatedAt = createdAt
		s.d.orders[id] = o
	}
}

type transactions struct{ s *Store }

func (r transactions) Create(ctx context.Context, txn *models.Transaction) error {
	defer r.s.lock()()
	if txn.OrderID != nil {
		for _, t := range r.s.d.transactions {
			if t.OrderID != nil && *t.OrderID == *txn.OrderID && t.Type == txn.Type {
				return repository.ErrDuplicate
			}
		}
	}
	r.s.d.stamp(&txn.BaseModel)
	r.s.d.transactions = append(r.s.d.transactions, *txn)
	return nil
}

func (r transactions) ListByUser(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	defer r.s.lock()()
	var out []models.Transaction
	for _, t := range r.s.d.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	r.s.sortBySeq(len(out), func(i int) uuid.UUID { return out[i].ID }, func(i, j int) { out[i], out[j] = out[j], out[i] }, params.Order)
	total := int64(len(out))
	return paginate(out, params), total, nil
}

func (r transactions) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	defer r.s.lock()()
	var out []models.Transaction
	for _, t := range r.s.d.transactions {
		if t.OrderID != nil && *t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out, nil
}

type auditLogs struct{ s *Store }

func (r auditLogs) Create(ctx context.Context, entry *models.AuditLog) error {
	defer r.s.lock()()
	r.s.d.stamp(&entry.BaseModel)
	r.s.d.auditLogs = append(r.s.d.auditLogs, *entry)
	return nil
}

// sortBySeq orders rows by insertion, newest first unless order is "asc".
func (s *Store) sortBySeq(n int, id func(int) uuid.UUID, swap func(i, j int), order string) {
	keys := make([]int64, n)
	for i := 0; i < n; i++ {
		keys[i] = s.d.seq[id(i)]
	}
	sort.Sort(bySeq{keys: keys, swap: swap, asc: order == "asc"})
}

type bySeq struct {
	keys []int64
	swap func(i, j int)
	asc  bool
}

func (b bySeq) Len() int { return len(b.keys) }
func (b bySeq) Less(i, j int) bool {
	if b.asc {
		return b.keys[i] < b.keys[j]
	}
	return b.keys[i] > b.keys[j]
}
func (b bySeq) Swap(i, j int) {
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
	b.swap(i, j)
}

func paginate[T any](rows []T, params utils.PaginationParams) []T {
	if params.Limit <= 0 {
		return rows
	}
	offset := (params.Page - 1) * params.Limit
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + params.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
