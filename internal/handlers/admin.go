// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/petespantry/storefront/internal/services"
	"github.com/petespantry/storefront/internal/utils"
)

type AdminHandler struct {
	orderService          *services.OrderService
	reconciliationService *services.ReconciliationService
}

func NewAdminHandler(orderService *services.OrderService, reconciliationService *services.ReconciliationService) *AdminHandler {
	return &AdminHandler{
		orderService:          orderService,
		reconciliationService: reconciliationService,
	}
}

// POST /admin/orders/:id/complete
func (h *AdminHandler) CompleteOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.MarkCompleted(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// POST /admin/payments/reconcile runs one pending-payment sweep now.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	result, err := h.reconciliationService.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}
