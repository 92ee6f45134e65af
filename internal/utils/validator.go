// internal/utils/validator.go
package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/petespantry/storefront/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("crypto_asset", validateCryptoAsset)
	validate.RegisterValidation("deposit_method", validateDepositMethod)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateCryptoAsset(fl validator.FieldLevel) bool {
	asset := strings.ToUpper(fl.Field().String())
	return models.CryptoAsset(asset).Supported()
}

// Empty is allowed; the ledger defaults it to credit-card.
func validateDepositMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", models.DepositMethodCreditCard, models.DepositMethodDebitCard, models.DepositMethodEFT:
		return true
	default:
		return false
	}
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "uuid":
		return e.Field() + " must be a valid id"
	case "crypto_asset":
		return "Asset must be one of XBT, ETH, USDT, DOGE, XMR"
	case "deposit_method":
		return "Payment method must be credit-card, debit-card or eft"
	default:
		return e.Field() + " is invalid"
	}
}
