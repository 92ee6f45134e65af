// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
)

type UserService struct {
	store repository.Store
}

// UpdateProfileRequest leaves fields that are nil untouched.
type UpdateProfileRequest struct {
	FirstName       *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName        *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address         *string `json:"address,omitempty"`
	ShippingAddress *string `json:"shipping_address,omitempty"`
	City            *string `json:"city,omitempty" validate:"omitempty,max=100"`
	Province        *string `json:"province,omitempty" validate:"omitempty,max=100"`
	PostalCode      *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country         *string `json:"country,omitempty" validate:"omitempty,max=100"`
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

// EnsureUser creates the local row for an identity-provider subject on
// first sight.
func (s *UserService) EnsureUser(ctx context.Context, userID, email string) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	user = &models.User{
		ID:    userID,
		Email: email,
		Role:  models.UserRoleCustomer,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.GetProfile(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithField("user_id", userID).Info("User provisioned")
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error) {
	fields := map[string]interface{}{}
	set := func(column string, value *string) {
		if value != nil {
			fields[column] = strings.TrimSpace(*value)
		}
	}
	set("first_name", req.FirstName)
	set("last_name", req.LastName)
	set("phone", req.Phone)
	set("address", req.Address)
	set("shipping_address", req.ShippingAddress)
	set("city", req.City)
	set("province", req.Province)
	set("postal_code", req.PostalCode)
	set("country", req.Country)

	if len(fields) == 0 {
		return s.GetProfile(ctx, userID)
	}

	if err := s.store.Users().UpdateProfile(ctx, userID, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.GetProfile(ctx, userID)
}
