package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printshop-os/opsboard/internal/api/dto"
)

// ProductHandler serves the product catalog.
type ProductHandler struct {
	deps *Dependencies
}

// NewProductHandler creates a new ProductHandler instance.
func NewProductHandler(deps *Dependencies) *ProductHandler {
	return &ProductHandler{deps: deps}
}

// ListProducts handles GET /api/v1/products.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products := h.deps.Snapshot.Products()

	out := make([]dto.ProductResponse, len(products))
	for i, product := range products {
		out[i] = toProductResponse(product)
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}
