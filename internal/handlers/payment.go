// internal/handlers/payment.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/petespantry/storefront/internal/i18n"
	"github.com/petespantry/storefront/internal/services"
	"github.com/petespantry/storefront/internal/utils"
)

const idempotencyKeyHeader = "Idempotency-Key"

type PaymentHandler struct {
	checkoutService *services.CheckoutService
	cryptoService   *services.CryptoPaymentService
}

func NewPaymentHandler(checkoutService *services.CheckoutService, cryptoService *services.CryptoPaymentService) *PaymentHandler {
	return &PaymentHandler{
		checkoutService: checkoutService,
		cryptoService:   cryptoService,
	}
}

// POST /payment/card
func (h *PaymentHandler) PayByCard(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CardPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	if len(key) > 255 {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, idempotencyKeyHeader), nil)
		return
	}

	result, err := h.checkoutService.PayByCard(c.Request.Context(), userID, &req, key)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

// POST /payment/crypto/init
func (h *PaymentHandler) InitCryptoPayment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CryptoInitRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.cryptoService.InitPayment(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

// POST /payment/crypto/verify
func (h *PaymentHandler) VerifyCryptoPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CryptoVerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.cryptoService.VerifyPayment(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	// Funds not arriving yet is an answer, not an error.
	if !result.Paid {
		utils.OutcomeResponse(c, false, i18n.T(lang, i18n.KeyPaymentNotYetReceived), gin.H{
			"order":    result.Order,
			"received": result.Received,
		})
		return
	}

	utils.OutcomeResponse(c, true, i18n.T(lang, i18n.KeyPaymentConfirmed), gin.H{
		"order": result.Order,
	})
}

// POST /payment/balance
func (h *PaymentHandler) PayByBalance(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.BalancePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.checkoutService.PayByBalance(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}
