// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-pos/internal/domain/product"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http/middleware"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	productService *product.Service
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req product.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.AbortWithError(c, apperrors.Validation("invalid query parameters").WithDetail("query", err.Error()))
		return
	}

	response, err := h.productService.List(c.Request.Context(), a.TenantID, &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Products retrieved successfully",
		"data":       response.Products,
		"pagination": response.Pagination,
	})
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	p, err := h.productService.Get(c.Request.Context(), a.TenantID, id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    p,
	})
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req product.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.productService.Create(c.Request.Context(), a, &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"data":    p,
	})
}

// UpdateProductStatus handles PUT /products/:id/status
func (h *ProductHandler) UpdateProductStatus(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req product.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.productService.SetStatus(c.Request.Context(), a, id, &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product status updated successfully",
		"data":    p,
	})
}
