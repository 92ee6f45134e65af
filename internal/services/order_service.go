// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/events"
	"github.com/petespantry/storefront/internal/models"
	"github.com/petespantry/storefront/internal/repository"
	"github.com/petespantry/storefront/internal/utils"
)

// OrderEventPublisher announces committed order state changes.
type OrderEventPublisher interface {
	PublishOrderPaid(ctx context.Context, event events.OrderPaidEvent) error
}

type OrderService struct {
	store repository.Store
}

func NewOrderService(store repository.Store) *OrderService {
	return &OrderService{store: store}
}

func (s *OrderService) ListOrders(ctx context.Context, userID string, params utils.PaginationParams) ([]models.Order, int64, error) {
	orders, total, err := s.store.Orders().ListByUser(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// GetOrder returns the caller's order. Orders owned by someone else are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error) {
	return loadOwnedOrder(ctx, s.store, userID, orderID)
}

func (s *OrderService) ListOrderItems(ctx context.Context, userID string, orderID uuid.UUID) ([]models.OrderItem, error) {
	if _, err := loadOwnedOrder(ctx, s.store, userID, orderID); err != nil {
		return nil, err
	}

	items, err := s.store.Orders().ListItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	return items, nil
}

// MarkCompleted records fulfilment of a paid order.
func (s *OrderService) MarkCompleted(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	ok, err := s.store.Orders().Transition(ctx, orderID, models.OrderStatusPaid, repository.OrderUpdate{
		Status: models.OrderStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}

	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !ok && order.Status != models.OrderStatusCompleted {
		return nil, validationErrorf("order %s is %s, only paid orders can be completed", order.Reference(), order.Status)
	}

	logrus.WithField("order_id", order.ID).Info("Order completed")
	return order, nil
}

func loadOwnedOrder(ctx context.Context, store repository.Store, userID string, orderID uuid.UUID) (*models.Order, error) {
	order, err := store.Orders().GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// publishOrderPaid never fails the caller; the order is already committed.
func publishOrderPaid(ctx context.Context, publisher OrderEventPublisher, order *models.Order) {
	if publisher == nil {
		return
	}

	paidAt := time.Now().UTC()
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}

	event := events.OrderPaidEvent{
		OrderID:       order.ID.String(),
		UserID:        order.UserID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		PaidAt:        paidAt,
	}
	if err := publisher.PublishOrderPaid(ctx, event); err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to publish order paid event")
	}
}

func validateShipping(details models.ShippingDetails) error {
	if errs := utils.GetValidationErrors(utils.ValidateStruct(&details)); len(errs) > 0 {
		return validationErrorf("incomplete shipping address: %s is required", errs[0].Field)
	}
	return nil
}
