// internal/services/ledger_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/utils"
)

// LedgerService owns every write to users.balance. Each Transaction it
// appends moves the balance by exactly its amount inside the same unit of
// work.
type LedgerService struct {
	store          repository.Store
	minimumDeposit decimal.Decimal
}

type DepositRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"deposit_method"`
}

type DepositResult struct {
	Transaction *models.Transaction `json:"transaction"`
	NewBalance  decimal.Decimal     `json:"new_balance"`
}

func NewLedgerService(store repository.Store, minimumDeposit decimal.Decimal) *LedgerService {
	return &LedgerService{
		store:          store,
		minimumDeposit: minimumDeposit,
	}
}

func (s *LedgerService) Deposit(ctx context.Context, userID string, req *DepositRequest) (*DepositResult, error) {
	if !req.Amount.IsPositive() {
		return nil, validationErrorf("amount must be greater than zero")
	}
	if req.Amount.LessThan(s.minimumDeposit) {
		return nil, validationErrorf("minimum deposit is %s", s.minimumDeposit.StringFixed(2))
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, validationErrorf("amount has more than two decimal places")
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.DepositMethodCreditCard
	}

	var result *DepositResult
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		txn := &models.Transaction{
			UserID:        userID,
			Amount:        req.Amount,
			Type:          models.TransactionTypeDeposit,
			Description:   "Funds deposit",
			PaymentMethod: method,
		}
		balance, err := s.appendEntry(ctx, tx, txn)
		if err != nil {
			return err
		}
		result = &DepositResult{Transaction: txn, NewBalance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  req.Amount.StringFixed(2),
		"method":  method,
	}).Info("Deposit recorded")

	return result, nil
}

// CreditWelcome records the one-off credit given to a new demo account.
func (s *LedgerService) CreditWelcome(ctx context.Context, tx repository.Store, userID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	_, err := s.appendEntry(ctx, tx, &models.Transaction{
		UserID:        userID,
		Amount:        amount,
		Type:          models.TransactionTypeDeposit,
		Description:   "Welcome credit",
		PaymentMethod: "promotion",
	})
	return err
}

// SettleExternal books an order paid outside the balance: a funding deposit
// for the total followed by the payment, leaving the balance unchanged.
func (s *LedgerService) SettleExternal(ctx context.Context, tx repository.Store, order *models.Order) error {
	funding := &models.Transaction{
		UserID:        order.UserID,
		Amount:        order.Total,
		Type:          models.TransactionTypeDeposit,
		Description:   fmt.Sprintf("%s funding for order %s", fundingSource(order.PaymentMethod), order.Reference()),
		PaymentMethod: order.PaymentMethod,
		OrderID:       &order.ID,
	}
	if _, err := s.appendEntry(ctx, tx, funding); err != nil {
		return err
	}

	_, err := s.appendEntry(ctx, tx, paymentEntry(order))
	return err
}

// DebitForOrder takes the order total from the balance, failing with
// InsufficientBalanceError when it does not cover it.
func (s *LedgerService) DebitForOrder(ctx context.Context, tx repository.Store, order *models.Order) (decimal.Decimal, error) {
	balance, ok, err := tx.Users().DebitBalance(ctx, order.UserID, order.Total)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to debit balance: %w", err)
	}
	if !ok {
		return decimal.Zero, &InsufficientBalanceError{Balance: balance, Needed: order.Total}
	}

	if err := tx.Transactions().Create(ctx, paymentEntry(order)); err != nil {
		return decimal.Zero, fmt.Errorf("failed to record payment: %w", err)
	}
	return balance, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	transactions, total, err := s.store.Transactions().ListByUser(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, total, nil
}

func (s *LedgerService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, err
	}
	return user.Balance, nil
}

func (s *LedgerService) appendEntry(ctx context.Context, tx repository.Store, txn *models.Transaction) (decimal.Decimal, error) {
	if err := tx.Transactions().Create(ctx, txn); err != nil {
		return decimal.Zero, fmt.Errorf("failed to record %s: %w", txn.Type, err)
	}

	balance, err := tx.Users().AdjustBalance(ctx, txn.UserID, txn.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return balance, nil
}

func paymentEntry(order *models.Order) *models.Transaction {
	return &models.Transaction{
		UserID:        order.UserID,
		Amount:        order.Total.Neg(),
		Type:          models.TransactionTypePayment,
		Description:   "Payment for order " + order.Reference(),
		PaymentMethod: order.PaymentMethod,
		OrderID:       &order.ID,
	}
}

func fundingSource(method string) string {
	if asset, ok := strings.CutPrefix(method, models.PaymentMethodCryptoBase); ok {
		return strings.ToUpper(asset)
	}
	return "Card"
}
