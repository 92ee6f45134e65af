package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository/memstore"
	"github.com/petespantry/storefront/internal/utils"
)

func newAuthService(store *memstore.Store, enabled bool) (*AuthService, *utils.JWTManager) {
	jwt := utils.NewJWTManager("test-secret", "storefront-test", time.Hour)
	ledger := NewLedgerService(store, decimal.NewFromInt(50))
	return NewAuthService(store, ledger, jwt, enabled, decimal.NewFromInt(100)), jwt
}

func TestSimpleLoginCreatesDemoUser(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	auth, jwt := newAuthService(store, true)

	result, err := auth.SimpleLogin(ctx, &SimpleLoginRequest{Email: "  Pete@Example.com "})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.User.ID, "demo_"))
	assert.Equal(t, "pete@example.com", result.User.Email)
	assert.Equal(t, "Demo", result.User.FirstName)
	assert.True(t, decimal.NewFromInt(100).Equal(result.User.Balance))

	claims, err := jwt.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, string(models.UserRoleCustomer), claims.Role)

	stored, err := store.Users().GetByID(ctx, result.User.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(stored.Balance))

	txns, total, err := store.Transactions().ListByUser(ctx, result.User.ID, utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, models.TransactionTypeDeposit, txns[0].Type)
	assert.Equal(t, "Welcome credit", txns[0].Description)
}

func TestSimpleLoginReusesExistingUser(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	auth, _ := newAuthService(store, true)

	first, err := auth.SimpleLogin(ctx, &SimpleLoginRequest{Email: "pete@example.com"})
	require.NoError(t, err)
	second, err := auth.SimpleLogin(ctx, &SimpleLoginRequest{Email: "PETE@example.com"})
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)

	_, total, err := store.Transactions().ListByUser(ctx, first.User.ID, utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "the welcome credit is granted once")
}

func TestSimpleLoginDisabled(t *testing.T) {
	auth, _ := newAuthService(memstore.New(), false)

	_, err := auth.SimpleLogin(context.Background(), &SimpleLoginRequest{Email: "pete@example.com"})
	assert.ErrorIs(t, err, ErrDemoLoginDisabled)
}

func TestSimpleLoginRequiresEmail(t *testing.T) {
	auth, _ := newAuthService(memstore.New(), true)

	_, err := auth.SimpleLogin(context.Background(), &SimpleLoginRequest{Email: "   "})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSimpleLoginRefusesNonDemoAccounts(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	auth, _ := newAuthService(store, true)

	require.NoError(t, store.Users().Create(ctx, &models.User{ID: "idp|admin-1", Email: "boss@example.com", Role: models.UserRoleAdmin}))
	require.NoError(t, store.Users().Create(ctx, &models.User{ID: "idp|cust-1", Email: "jane@example.com", Role: models.UserRoleCustomer}))
	require.NoError(t, store.Users().Create(ctx, &models.User{ID: "demo_promoted", Email: "ops@example.com", Role: models.UserRoleAdmin}))

	for _, email := range []string{"boss@example.com", "Jane@Example.com", "ops@example.com"} {
		result, err := auth.SimpleLogin(ctx, &SimpleLoginRequest{Email: email})
		assert.ErrorIs(t, err, ErrNotDemoAccount, email)
		assert.Nil(t, result, email)
	}
}
