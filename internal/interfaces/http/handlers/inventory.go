// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-pos/internal/domain/inventory"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http/middleware"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
)

// InventoryHandler handles inventory endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// AdjustStock handles POST /inventory/products/:id/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req inventory.AdjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.inventoryService.AdjustStock(c.Request.Context(), a, productID, &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted successfully",
		"data":    result,
	})
}

// GetStockHistory handles GET /inventory/history
func (h *InventoryHandler) GetStockHistory(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req inventory.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.AbortWithError(c, apperrors.Validation("invalid query parameters").WithDetail("query", err.Error()))
		return
	}

	history, err := h.inventoryService.StockHistory(c.Request.Context(), a.TenantID, req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Stock history retrieved successfully",
		"data":       history.Entries,
		"pagination": history.Pagination,
	})
}

// GetLowStock handles GET /inventory/low-stock
func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.inventoryService.LowStock(c.Request.Context(), a.TenantID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Low stock products retrieved successfully",
		"data":    items,
	})
}
