//go:build integration

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/testutil"
	"github.com/petespantry/storefront/internal/utils"
)

type GormStoreTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   repository.Store
	product models.Product
}

func (s *GormStoreTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.store = repository.NewGormStore(testutil.SetupPostgres(s.ctx, s.T()))

	s.product = models.Product{Name: "Mild", Price: decimal.NewFromInt(60), HeatLevel: 1, Stock: 10}
	s.Require().NoError(s.store.Products().Create(s.ctx, &s.product))
}

func (s *GormStoreTestSuite) newUser(id string) {
	s.Require().NoError(s.store.Users().Create(s.ctx, &models.User{ID: id, Email: id + "@example.com", Role: models.UserRoleCustomer}))
}

func (s *GormStoreTestSuite) newOrder(userID string, status models.OrderStatus) *models.Order {
	order := &models.Order{
		UserID: userID,
		Status: status,
		Total:  decimal.NewFromInt(110),
		Items: []models.OrderItem{
			{ProductID: s.product.ID, Quantity: 1, Price: s.product.Price},
		},
	}
	s.Require().NoError(s.store.Orders().Create(s.ctx, order))
	return order
}

func (s *GormStoreTestSuite) TestUserDuplicateAndNotFound() {
	s.newUser("dup-user")
	err := s.store.Users().Create(s.ctx, &models.User{ID: "dup-user"})
	s.ErrorIs(err, repository.ErrDuplicate)

	_, err = s.store.Users().GetByID(s.ctx, "nobody")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *GormStoreTestSuite) TestBalanceUpdatesReturnNewValue() {
	s.newUser("balance-user")

	balance, err := s.store.Users().AdjustBalance(s.ctx, "balance-user", decimal.NewFromInt(100))
	s.Require().NoError(err)
	s.True(balance.Equal(decimal.NewFromInt(100)), balance.String())

	balance, ok, err := s.store.Users().DebitBalance(s.ctx, "balance-user", decimal.NewFromInt(150))
	s.Require().NoError(err)
	s.False(ok)
	s.True(balance.Equal(decimal.NewFromInt(100)))

	balance, ok, err = s.store.Users().DebitBalance(s.ctx, "balance-user", decimal.RequireFromString("60.50"))
	s.Require().NoError(err)
	s.True(ok)
	s.True(balance.Equal(decimal.RequireFromString("39.50")), balance.String())

	_, err = s.store.Users().AdjustBalance(s.ctx, "nobody", decimal.NewFromInt(1))
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *GormStoreTestSuite) TestOrderTransactionTypesAreUnique() {
	s.newUser("ledger-user")
	order := s.newOrder("ledger-user", models.OrderStatusPaid)

	payment := func() *models.Transaction {
		return &models.Transaction{
			UserID:  "ledger-user",
			Amount:  decimal.NewFromInt(-110),
			Type:    models.TransactionTypePayment,
			OrderID: &order.ID,
		}
	}
	s.Require().NoError(s.store.Transactions().Create(s.ctx, payment()))
	s.ErrorIs(s.store.Transactions().Create(s.ctx, payment()), repository.ErrDuplicate)

	txns, err := s.store.Transactions().ListByOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Len(txns, 1)
}

func (s *GormStoreTestSuite) TestTransitionIsConditional() {
	s.newUser("transition-user")
	order := s.newOrder("transition-user", models.OrderStatusPendingPayment)

	paidAt := time.Now().UTC()
	update := repository.OrderUpdate{
		Status:        models.OrderStatusPaid,
		PaymentStatus: models.PaymentStatusCompleted,
		PaidAt:        &paidAt,
	}

	ok, err := s.store.Orders().Transition(s.ctx, order.ID, models.OrderStatusPendingPayment, update)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.Orders().Transition(s.ctx, order.ID, models.OrderStatusPendingPayment, update)
	s.Require().NoError(err)
	s.False(ok)

	stored, err := s.store.Orders().GetByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPaid, stored.Status)
	s.Require().NotNil(stored.PaidAt)
}

func (s *GormStoreTestSuite) TestListByStatusPagesWithCursor() {
	s.newUser("sweep-user")
	want := map[string]bool{}
	for i := 0; i < 5; i++ {
		want[s.newOrder("sweep-user", models.OrderStatusPendingPayment).ID.String()] = true
	}

	seen := map[string]bool{}
	var last *repository.OrderCursor
	for {
		page, err := s.store.Orders().ListByStatus(s.ctx, models.OrderStatusPendingPayment, time.Now().Add(time.Minute), last, 2)
		s.Require().NoError(err)
		for i := range page {
			id := page[i].ID.String()
			s.False(seen[id], "order %s listed twice", id)
			seen[id] = true
			if last != nil {
				s.False(page[i].CreatedAt.Before(last.CreatedAt))
			}
		}
		if len(page) < 2 {
			break
		}
		last = repository.CursorAfter(&page[len(page)-1])
	}

	for id := range want {
		s.True(seen[id], "order %s was skipped", id)
	}
}

func (s *GormStoreTestSuite) TestWithTxRollsBack() {
	s.newUser("rollback-user")

	boom := errors.New("boom")
	err := s.store.WithTx(s.ctx, func(tx repository.Store) error {
		if _, err := tx.Users().AdjustBalance(s.ctx, "rollback-user", decimal.NewFromInt(500)); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	user, err := s.store.Users().GetByID(s.ctx, "rollback-user")
	s.Require().NoError(err)
	s.True(user.Balance.IsZero())
}

func (s *GormStoreTestSuite) TestOrderHistoryAndItems() {
	s.newUser("history-user")
	first := s.newOrder("history-user", models.OrderStatusPaid)
	time.Sleep(10 * time.Millisecond)
	second := s.newOrder("history-user", models.OrderStatusPaid)

	orders, total, err := s.store.Orders().ListByUser(s.ctx, "history-user", utils.PaginationParams{Page: 1, Limit: 10, Sort: "created_at", Order: "desc"})
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Require().Len(orders, 2)
	s.Equal(second.ID, orders[0].ID)
	s.Equal(first.ID, orders[1].ID)

	items, err := s.store.Orders().ListItems(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Require().NotNil(items[0].Product)
	s.Equal("Mild", items[0].Product.Name)
}

func (s *GormStoreTestSuite) TestIdempotencyKeyLookup() {
	s.newUser("idem-user")
	key := "checkout-123"
	order := &models.Order{
		UserID:         "idem-user",
		Status:         models.OrderStatusPaid,
		Total:          decimal.NewFromInt(110),
		IdempotencyKey: &key,
		Items:          []models.OrderItem{{ProductID: s.product.ID, Quantity: 1, Price: s.product.Price}},
	}
	s.Require().NoError(s.store.Orders().Create(s.ctx, order))

	again := &models.Order{UserID: "idem-user", Status: models.OrderStatusPaid, Total: decimal.NewFromInt(110), IdempotencyKey: &key}
	s.ErrorIs(s.store.Orders().Create(s.ctx, again), repository.ErrDuplicate)

	found, err := s.store.Orders().GetByIdempotencyKey(s.ctx, "idem-user", key)
	s.Require().NoError(err)
	s.Equal(order.ID, found.ID)
	s.Len(found.Items, 1)
}

func TestGormStoreTestSuite(t *testing.T) {
	suite.Run(t, new(GormStoreTestSuite))
}
