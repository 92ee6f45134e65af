// internal/services/auth_service.go
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

var (
	ErrDemoLoginDisabled = errors.New("demo login is disabled")
	// ErrNotDemoAccount is returned when the email belongs to an account
	// that was not created by the demo login.
	ErrNotDemoAccount = errors.New("email belongs to a non-demo account")
)

// AuthService issues tokens for the demo login. Real customers arrive with
// tokens from the identity provider and never pass through here.
type AuthService struct {
	store      repository.Store
	ledger     *LedgerService
	jwt        *utils.JWTManager
	enabled    bool
	demoCredit decimal.Decimal
}

type SimpleLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(store repository.Store, ledger *LedgerService, jwt *utils.JWTManager, enabled bool, demoCredit decimal.Decimal) *AuthService {
	return &AuthService{
		store:      store,
		ledger:     ledger,
		jwt:        jwt,
		enabled:    enabled,
		demoCredit: demoCredit,
	}
}

// SimpleLogin signs in the demo user for email, creating it with the
// welcome credit on first use.
func (s *AuthService) SimpleLogin(ctx context.Context, req *SimpleLoginRequest) (*LoginResult, error) {
	if !s.enabled {
		return nil, ErrDemoLoginDisabled
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, validationErrorf("email is required")
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !isDemoUser(user) {
			logrus.WithField("user_id", user.ID).Warn("Demo login refused for non-demo account")
			return nil, ErrNotDemoAccount
		}
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.createDemoUser(ctx, email)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := s.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	logrus.WithField("user_id", user.ID).Info("Demo login")
	return &LoginResult{Token: token, User: user}, nil
}

func isDemoUser(user *models.User) bool {
	return strings.HasPrefix(user.ID, utils.DemoUserIDPrefix) && user.Role == models.UserRoleCustomer
}

func (s *AuthService) createDemoUser(ctx context.Context, email string) (*models.User, error) {
	id, err := utils.GenerateDemoUserID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}

	user := &models.User{
		ID:        id,
		Email:     email,
		FirstName: "Demo",
		LastName:  "User",
		Role:      models.UserRoleCustomer,
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.ledger.CreditWelcome(ctx, tx, user.ID, s.demoCredit)
	})
	if err != nil {
		return nil, err
	}

	user.Balance = s.demoCredit
	if !user.Balance.IsPositive() {
		user.Balance = decimal.Zero
	}
	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"credit":  user.Balance.StringFixed(2),
	}).Info("Demo user created")
	return user, nil
}
