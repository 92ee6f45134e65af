// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
)

// ValidationError is a caller mistake. Nothing has been written when it is
// returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// GatewayError wraps a failure reported by, or while reaching, an external
// payment provider.
type GatewayError struct {
	Gateway  string
	Declined bool
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Declined {
		return fmt.Sprintf("%s payment declined: %v", e.Gateway, e.Err)
	}
	return fmt.Sprintf("%s gateway error: %v", e.Gateway, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// StatusCode is 402 for a declined charge and 502 otherwise.
func (e *GatewayError) StatusCode() int {
	if e.Declined {
		return http.StatusPaymentRequired
	}
	return http.StatusBadGateway
}

type InsufficientBalanceError struct {
	Balance decimal.Decimal
	Needed  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s", e.Balance.StringFixed(2), e.Needed.StringFixed(2))
}
