// internal/services/stripe_gateway.go
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/petespantry/storefront/internal/config"
)

// StripeGateway confirms a PaymentIntent against a card payment method in a
// single call. It uses its own client, never the package-level stripe.Key.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(cfg config.StripeConfig, httpClient *http.Client) *StripeGateway {
	if cfg.SecretKey == "" {
		return &StripeGateway{}
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.BackendURL != "" {
		backendConfig.URL = stripe.String(cfg.BackendURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}

	return &StripeGateway{api: client.New(cfg.SecretKey, backends)}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if g.api == nil {
		return nil, &GatewayError{Gateway: g.Name(), Err: ErrGatewayNotConfigured}
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountInCents),
		Currency:           stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod:      stripe.String(req.Token),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		declined := errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard
		return nil, &GatewayError{Gateway: g.Name(), Declined: declined, Err: err}
	}

	status := string(pi.Status)
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		status = ChargeStatusSuccessful
	}
	return &Charge{ID: pi.ID, Status: status}, nil
}
