package handlers

import (
	"net/http"
	"strings"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/catalog"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- Storefront ---

// ListProducts handles GET /v1/products
// Only active products are listed. Supports ?q=&category=&gender=&size=
// &minPrice=&maxPrice=&limit=&offset=
func (h *Handlers) ListProducts(c *gin.Context) {
	filter, ok := productFilter(c)
	if !ok {
		return
	}
	filter.ActiveOnly = true
	h.listProducts(c, filter)
}

// GetProductBySlug handles GET /v1/products/:slug
func (h *Handlers) GetProductBySlug(c *gin.Context) {
	p, err := h.Catalog.PublicProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- Admin ---

// AdminListProducts handles GET /v1/admin/products
// Inactive products are included unless ?active=true.
func (h *Handlers) AdminListProducts(c *gin.Context) {
	filter, ok := productFilter(c)
	if !ok {
		return
	}
	filter.ActiveOnly = c.Query("active") == "true"
	h.listProducts(c, filter)
}

// AdminGetProduct handles GET /v1/admin/products/:id
func (h *Handlers) AdminGetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.Catalog.Product(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProduct handles POST /v1/admin/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	var input catalog.ProductInput
	if !h.bindJSON(c, &input) {
		return
	}
	p, err := h.Catalog.CreateProduct(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdateProduct handles PATCH /v1/admin/products/:id
func (h *Handlers) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input catalog.ProductUpdate
	if !h.bindJSON(c, &input) {
		return
	}
	p, err := h.Catalog.UpdateProduct(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProduct handles DELETE /v1/admin/products/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// CreateVariant handles POST /v1/admin/products/:id/variants
func (h *Handlers) CreateVariant(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input catalog.VariantInput
	if !h.bindJSON(c, &input) {
		return
	}
	v, err := h.Catalog.CreateVariant(c.Request.Context(), productID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// UpdateVariant handles PATCH /v1/admin/products/:id/variants/:variantId
func (h *Handlers) UpdateVariant(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	variantID, ok := idParam(c, "variantId")
	if !ok {
		return
	}
	var input catalog.VariantUpdate
	if !h.bindJSON(c, &input) {
		return
	}
	v, err := h.Catalog.UpdateVariant(c.Request.Context(), productID, variantID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// DeleteVariant handles DELETE /v1/admin/products/:id/variants/:variantId
func (h *Handlers) DeleteVariant(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	variantID, ok := idParam(c, "variantId")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteVariant(c.Request.Context(), productID, variantID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Variant deleted successfully"})
}

// RecomputeProduct handles POST /v1/admin/products/:id/recompute
func (h *Handlers) RecomputeProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.Recompute(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	p, err := h.Catalog.Product(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// RecomputeAllProducts handles POST /v1/admin/products/recompute
func (h *Handlers) RecomputeAllProducts(c *gin.Context) {
	result, err := h.Catalog.RecomputeAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) listProducts(c *gin.Context, filter models.ProductFilter) {
	products, total, err := h.Catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": total})
}

func productFilter(c *gin.Context) (models.ProductFilter, bool) {
	filter := models.ProductFilter{
		Query:    strings.TrimSpace(c.Query("q")),
		Category: c.Query("category"),
		Gender:   c.Query("gender"),
		Size:     c.Query("size"),
		Limit:    queryInt(c, "limit", 20),
		Offset:   queryInt(c, "offset", 0),
	}
	for key, dst := range map[string]**decimal.Decimal{"minPrice": &filter.MinPrice, "maxPrice": &filter.MaxPrice} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key, "kind": apperr.KindValidation})
			return filter, false
		}
		*dst = &d
	}
	return filter, true
}
