// internal/services/card_gateway.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/petespantry/storefront/internal/config"
)

// ChargeStatusSuccessful is the only charge status that lets an order be
// written.
const ChargeStatusSuccessful = "successful"

var ErrGatewayNotConfigured = errors.New("gateway credentials are not configured")

type ChargeRequest struct {
	Token          string
	AmountInCents  int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

type Charge struct {
	ID     string
	Status string
}

// CardGateway charges a single-use card token synchronously.
type CardGateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// NewCardGateway builds the adapter selected by PAYMENT_CARD_PROVIDER.
func NewCardGateway(cfg *config.Config, client *http.Client) (CardGateway, error) {
	switch cfg.Payment.CardProvider {
	case "yoco":
		return NewYocoGateway(cfg.Yoco, client), nil
	case "stripe":
		return NewStripeGateway(cfg.Stripe, client), nil
	default:
		return nil, fmt.Errorf("unknown card provider %q", cfg.Payment.CardProvider)
	}
}

type YocoGateway struct {
	config config.YocoConfig
	client *http.Client
}

type yocoChargeRequest struct {
	Token         string            `json:"token"`
	AmountInCents int64             `json:"amountInCents"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type yocoChargeResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
	CreatedDate string `json:"createdDate"`
}

func NewYocoGateway(cfg config.YocoConfig, client *http.Client) *YocoGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &YocoGateway{config: cfg, client: client}
}

func (g *YocoGateway) Name() string { return "yoco" }

func (g *YocoGateway) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if g.config.SecretKey == "" {
		return nil, &GatewayError{Gateway: g.Name(), Err: ErrGatewayNotConfigured}
	}

	body, err := json.Marshal(yocoChargeRequest{
		Token:         req.Token,
		AmountInCents: req.AmountInCents,
		Currency:      req.Currency,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode charge: %w", err)
	}

	endpoint := strings.TrimRight(g.config.BaseURL, "/") + "/charges/"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &GatewayError{Gateway: g.Name(), Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Gateway: g.Name(), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{Gateway: g.Name(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GatewayError{
			Gateway:  g.Name(),
			Declined: isDeclineStatus(resp.StatusCode),
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))),
		}
	}

	var charge yocoChargeResponse
	if err := json.Unmarshal(payload, &charge); err != nil {
		return nil, &GatewayError{Gateway: g.Name(), Err: fmt.Errorf("invalid response: %w", err)}
	}

	return &Charge{ID: charge.ID, Status: charge.Status}, nil
}

// 4xx answers other than auth failures mean the card or token was refused.
func isDeclineStatus(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusUnauthorized && status != http.StatusForbidden
}
