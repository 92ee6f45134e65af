// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/petespantry/storefront/internal/cart"
	"github.com/petespantry/storefront/internal/utils"
)

type CartHandler struct {
	pricer cart.Pricer
}

func NewCartHandler(pricer cart.Pricer) *CartHandler {
	return &CartHandler{
		pricer: pricer,
	}
}

// POST /cart/quote
func (h *CartHandler) Quote(c *gin.Context) {
	var req cart.Cart
	if !bindJSON(c, &req) {
		return
	}

	quote, err := cart.QuoteFor(c.Request.Context(), h.pricer, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, quote)
}
