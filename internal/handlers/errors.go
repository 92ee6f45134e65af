// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/i18n"
	"github.com/petespantry/storefront/internal/services"
	"github.com/petespantry/storefront/internal/utils"
)

// bindJSON decodes and validates the request body, writing the error
// response itself when either step fails.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func requireUserID(c *gin.Context) (string, bool) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
	}
	return userID, exists
}

// respondError maps service errors onto the response envelope. Anything
// unrecognised is logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var validationErr *services.ValidationError
	var gatewayErr *services.GatewayError
	var balanceErr *services.InsufficientBalanceError

	switch {
	case errors.As(err, &validationErr):
		utils.BadRequestResponse(c, validationErr.Message, nil)
	case errors.As(err, &balanceErr):
		utils.ErrorResponse(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE", i18n.T(lang, i18n.KeyBalanceInsufficient), gin.H{
			"balance": balanceErr.Balance,
			"needed":  balanceErr.Needed,
		})
	case errors.As(err, &gatewayErr):
		code := "GATEWAY_ERROR"
		if gatewayErr.Declined {
			code = "PAYMENT_DECLINED"
		}
		logrus.WithError(err).WithField("gateway", gatewayErr.Gateway).Warn("Payment gateway failure")
		utils.ErrorResponse(c, gatewayErr.StatusCode(), code, i18n.T(lang, i18n.KeyPaymentGatewayError, gatewayErr.Err.Error()), nil)
	case errors.Is(err, services.ErrOrderNotFound):
		utils.NotFoundResponse(c, "order")
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, "product")
	case errors.Is(err, services.ErrUserNotFound):
		utils.NotFoundResponse(c, "user")
	case errors.Is(err, services.ErrDemoLoginDisabled):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyAuthDemoDisabled))
	case errors.Is(err, services.ErrNotDemoAccount):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyAuthNotDemoAccount))
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}
