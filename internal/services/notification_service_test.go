package services

import (
	"context"
	"html"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/petespantry/storefront/internal/config"
	"github.com/petespantry/storefront/internal/models"
)

type sentMail struct {
	to, subject, body string
}

func TestSendOrderConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(&Charge{ID: "ch_1", Status: ChargeStatusSuccessful}, nil)

	paid, err := f.checkout.PayByCard(ctx, f.userID, &CardPaymentRequest{
		Token:           "tok",
		Items:           []CheckoutItem{{ID: f.mild.ID, Quantity: 2}},
		ShippingDetails: shipping(),
	}, "")
	require.NoError(t, err)

	var sent []sentMail
	notifier := NewNotificationService(f.store, config.EmailConfig{}, "https://shop.example.com")
	notifier.sendMail = func(to, subject, body string) error {
		sent = append(sent, sentMail{to, subject, body})
		return nil
	}

	require.NoError(t, notifier.SendOrderConfirmation(ctx, paid.Order.ID))
	require.Len(t, sent, 1)
	assert.Equal(t, "pete@example.com", sent[0].to)
	assert.Contains(t, sent[0].subject, paid.Order.Reference())
	assert.Contains(t, sent[0].body, "2 x "+html.EscapeString(f.mild.Name))
	assert.Contains(t, sent[0].body, "R120.00")
	assert.Contains(t, sent[0].body, "R50.00")
	assert.Contains(t, sent[0].body, "R170.00")
	assert.Contains(t, sent[0].body, "https://shop.example.com/orders")
}

func TestSendOrderConfirmationSkipsMissingEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Users().Create(ctx, &models.User{ID: "no-mail"}))

	order := &models.Order{UserID: "no-mail", Status: models.OrderStatusPaid}
	require.NoError(t, f.store.Orders().Create(ctx, order))

	notifier := NewNotificationService(f.store, config.EmailConfig{}, "")
	notifier.sendMail = func(to, subject, body string) error {
		t.Fatal("no mail expected")
		return nil
	}
	assert.NoError(t, notifier.SendOrderConfirmation(ctx, order.ID))
}

func TestSendOrderConfirmationUnknownOrder(t *testing.T) {
	notifier := NewNotificationService(newFixture(t).store, config.EmailConfig{}, "")
	assert.ErrorIs(t, notifier.SendOrderConfirmation(context.Background(), uuid.New()), ErrOrderNotFound)
}

func TestSendSMTPWithoutHostIsNoop(t *testing.T) {
	notifier := NewNotificationService(nil, config.EmailConfig{}, "")
	assert.NoError(t, notifier.sendSMTP("pete@example.com", "subject", "body"))
}
