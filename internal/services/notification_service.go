// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/config"
	"github.com/petespantry/storefront/internal/repository"
)

type NotificationService struct {
	store    repository.Store
	email    config.EmailConfig
	siteURL  string
	sendMail func(to, subject, body string) error
}

type EmailTemplate struct {
	Subject string
	Body    string
}

type orderEmailLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	LineTotal string
}

func NewNotificationService(store repository.Store, email config.EmailConfig, siteURL string) *NotificationService {
	s := &NotificationService{
		store:   store,
		email:   email,
		siteURL: siteURL,
	}
	s.sendMail = s.sendSMTP
	return s
}

// SendOrderConfirmation emails the customer a receipt for a paid order.
func (s *NotificationService) SendOrderConfirmation(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	user, err := s.store.Users().GetByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("failed to load customer: %w", err)
	}
	if user.Email == "" {
		logrus.WithField("order_id", order.ID).Warn("Customer has no email address, skipping confirmation")
		return nil
	}

	items, err := s.store.Orders().ListItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	lines := make([]orderEmailLine, 0, len(items))
	subtotal := decimal.Zero
	for i := range items {
		name := items[i].ProductID.String()
		if items[i].Product != nil {
			name = items[i].Product.Name
		}
		lines = append(lines, orderEmailLine{
			Name:      name,
			Quantity:  items[i].Quantity,
			UnitPrice: items[i].Price.StringFixed(2),
			LineTotal: items[i].LineTotal().StringFixed(2),
		})
		subtotal = subtotal.Add(items[i].LineTotal())
	}

	data := map[string]interface{}{
		"FirstName":     user.FirstName,
		"Reference":     order.Reference(),
		"Lines":         lines,
		"Subtotal":      subtotal.StringFixed(2),
		"Shipping":      order.Total.Sub(subtotal).StringFixed(2),
		"Total":         order.Total.StringFixed(2),
		"PaymentMethod": order.PaymentMethod,
		"Address":       order.ShippingAddress,
		"City":          order.City,
		"PostalCode":    order.PostalCode,
		"OrdersURL":     s.siteURL + "/orders",
	}

	tmpl := s.getEmailTemplate("order_confirmation")
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("%s %s", tmpl.Subject, order.Reference())
	if err := s.sendMail(user.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send order confirmation: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  user.ID,
	}).Info("Order confirmation sent")
	return nil
}

func (s *NotificationService) sendSMTP(to, subject, body string) error {
	if s.email.SMTPHost == "" {
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Email not configured, skipping send")
		return nil
	}

	auth := smtp.PlainAuth("", s.email.SMTPUsername, s.email.SMTPPassword, s.email.SMTPHost)

	from := s.email.FromEmail
	if s.email.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.email.FromName, s.email.FromEmail)
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", from, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.email.SMTPHost, s.email.SMTPPort)
	return smtp.SendMail(addr, auth, s.email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"order_confirmation": {
			Subject: "Your Pete's Pantry order",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Thanks{{if .FirstName}} {{.FirstName}}{{end}}, your order {{.Reference}} is paid!</h2>
	<table>
		{{range .Lines}}
		<tr><td>{{.Quantity}} x {{.Name}}</td><td>R{{.UnitPrice}}</td><td>R{{.LineTotal}}</td></tr>
		{{end}}
		<tr><td colspan="2">Subtotal</td><td>R{{.Subtotal}}</td></tr>
		<tr><td colspan="2">Shipping</td><td>R{{.Shipping}}</td></tr>
		<tr><td colspan="2"><strong>Total</strong></td><td><strong>R{{.Total}}</strong></td></tr>
	</table>
	<p>Paid with {{.PaymentMethod}}. We will ship to {{.Address}}, {{.City}} {{.PostalCode}}.</p>
	<a href="{{.OrdersURL}}">View your orders</a>
	<p>Best regards,<br>Pete's Pantry</p>
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
