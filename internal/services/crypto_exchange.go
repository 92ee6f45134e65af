// internal/services/crypto_exchange.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/petespantry/storefront/internal/config"
	"github.com/petespantry/storefront/internal/models"
)

type ReceiveAddress struct {
	ID      string
	Address string
	Asset   models.CryptoAsset
}

// CryptoExchange quotes rates and watches receive addresses on an exchange.
type CryptoExchange interface {
	Name() string
	// Rate is the fiat price of one unit of asset.
	Rate(ctx context.Context, asset models.CryptoAsset, fiat string) (decimal.Decimal, error)
	CreateReceiveAddress(ctx context.Context, asset models.CryptoAsset) (*ReceiveAddress, error)
	// ReceivedAmount is the total confirmed amount sent to the address.
	ReceivedAmount(ctx context.Context, asset models.CryptoAsset, addressID string) (decimal.Decimal, error)
}

type LunoExchange struct {
	config config.LunoConfig
	client *http.Client
}

type lunoFundingAddress struct {
	ID               string `json:"id"`
	Address          string `json:"address"`
	Asset            string `json:"asset"`
	TotalReceived    string `json:"total_received"`
	TotalUnconfirmed string `json:"total_unconfirmed"`
}

type lunoTicker struct {
	Pair      string `json:"pair"`
	LastTrade string `json:"last_trade"`
}

func NewLunoExchange(cfg config.LunoConfig, client *http.Client) *LunoExchange {
	if client == nil {
		client = http.DefaultClient
	}
	return &LunoExchange{config: cfg, client: client}
}

func (e *LunoExchange) Name() string { return "luno" }

func (e *LunoExchange) Rate(ctx context.Context, asset models.CryptoAsset, fiat string) (decimal.Decimal, error) {
	query := url.Values{"pair": {string(asset) + strings.ToUpper(fiat)}}

	var ticker lunoTicker
	if err := e.do(ctx, http.MethodGet, "/ticker?"+query.Encode(), nil, false, &ticker); err != nil {
		return decimal.Zero, err
	}

	rate, err := decimal.NewFromString(ticker.LastTrade)
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, &GatewayError{Gateway: e.Name(), Err: fmt.Errorf("invalid rate %q for %s", ticker.LastTrade, query.Get("pair"))}
	}
	return rate, nil
}

func (e *LunoExchange) CreateReceiveAddress(ctx context.Context, asset models.CryptoAsset) (*ReceiveAddress, error) {
	form := url.Values{"asset": {string(asset)}}

	var address lunoFundingAddress
	if err := e.do(ctx, http.MethodPost, "/funding_address", form, true, &address); err != nil {
		return nil, err
	}
	if address.ID == "" || address.Address == "" {
		return nil, &GatewayError{Gateway: e.Name(), Err: fmt.Errorf("empty funding address for %s", asset)}
	}

	return &ReceiveAddress{ID: address.ID, Address: address.Address, Asset: asset}, nil
}

func (e *LunoExchange) ReceivedAmount(ctx context.Context, asset models.CryptoAsset, addressID string) (decimal.Decimal, error) {
	var address lunoFundingAddress
	path := "/funding_address/" + url.PathEscape(addressID)
	if err := e.do(ctx, http.MethodGet, path, nil, true, &address); err != nil {
		return decimal.Zero, err
	}

	if address.TotalReceived == "" {
		return decimal.Zero, nil
	}
	received, err := decimal.NewFromString(address.TotalReceived)
	if err != nil {
		return decimal.Zero, &GatewayError{Gateway: e.Name(), Err: fmt.Errorf("invalid total_received %q", address.TotalReceived)}
	}
	return received, nil
}

func (e *LunoExchange) do(ctx context.Context, method, path string, form url.Values, authenticated bool, out interface{}) error {
	if authenticated && (e.config.APIKeyID == "" || e.config.APIKeySecret == "") {
		return &GatewayError{Gateway: e.Name(), Err: ErrGatewayNotConfigured}
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(e.config.BaseURL, "/")+path, body)
	if err != nil {
		return &GatewayError{Gateway: e.Name(), Err: err}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if authenticated {
		req.SetBasicAuth(e.config.APIKeyID, e.config.APIKeySecret)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return &GatewayError{Gateway: e.Name(), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &GatewayError{Gateway: e.Name(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{
			Gateway: e.Name(),
			Err:     fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(payload))),
		}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return &GatewayError{Gateway: e.Name(), Err: fmt.Errorf("invalid response: %w", err)}
	}
	return nil
}
