// internal/interfaces/http/handlers/sale.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-pos/internal/domain/sale"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http/middleware"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
)

// SaleHandler handles checkout endpoints
type SaleHandler struct {
	saleService *sale.Service
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(saleService *sale.Service) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
	}
}

// ProcessSale handles POST /sales
func (h *SaleHandler) ProcessSale(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req sale.SaleRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.IgnoreStock && !a.CanOverrideStock() {
		middleware.AbortWithError(c, apperrors.Forbidden("selling past available stock requires the owner role or override permission"))
		return
	}

	result, err := h.saleService.ProcessSale(c.Request.Context(), a, &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	message := "Sale completed successfully"
	if result.Sale.HasShortfall() {
		message = "Sale completed with stock warnings"
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": message,
		"data":    result,
	})
}

// GetSale handles GET /sales/:id
func (h *SaleHandler) GetSale(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	s, err := h.saleService.GetSale(c.Request.Context(), a.TenantID, id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale retrieved successfully",
		"data":    s,
	})
}
