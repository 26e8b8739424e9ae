package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-pos/internal/domain/reconciliation"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http/middleware"
)

// ReconciliationHandler handles reconciliation case endpoints
type ReconciliationHandler struct {
	reconciliationService *reconciliation.Service
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(reconciliationService *reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
	}
}

// ListCases handles GET /reconciliations
func (h *ReconciliationHandler) ListCases(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	cases, err := h.reconciliationService.List(c.Request.Context(), a.TenantID, reconciliation.Status(c.Query("status")))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reconciliation cases retrieved successfully",
		"data":    cases,
	})
}

// GetStats handles GET /reconciliations/stats
func (h *ReconciliationHandler) GetStats(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	stats, err := h.reconciliationService.Stats(c.Request.Context(), a.TenantID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reconciliation statistics retrieved successfully",
		"data":    stats,
	})
}

// ResolveCase handles PUT /reconciliations/:id/resolve
func (h *ReconciliationHandler) ResolveCase(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reconciliation.ResolveRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.reconciliationService.Resolve(c.Request.Context(), a, id, &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reconciliation case updated successfully",
		"data":    updated,
	})
}

// AdjustFromCase handles POST /reconciliations/:id/adjust
func (h *ReconciliationHandler) AdjustFromCase(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reconciliation.AdjustRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.reconciliationService.AdjustFromCase(c.Request.Context(), a, id, &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted and case closed",
		"data":    result,
	})
}
