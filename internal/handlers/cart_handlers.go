package handlers

import (
	"net/http"

	"github.com/01moynul/storefront-api/internal/cart"
	"github.com/gin-gonic/gin"
)

// UpdateCartItemInput defines the JSON for changing a line's quantity.
// Zero or less removes the line.
type UpdateCartItemInput struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart handles GET /v1/cart
func (h *Handlers) GetCart(c *gin.Context) {
	view, err := h.Carts.Get(c.Request.Context(), subjectID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddToCart handles POST /v1/cart/items
func (h *Handlers) AddToCart(c *gin.Context) {
	var input cart.AddInput
	if !h.bindJSON(c, &input) {
		return
	}
	view, err := h.Carts.Add(c.Request.Context(), subjectID(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateCartItem handles PATCH /v1/cart/items/:itemId
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	var input UpdateCartItemInput
	if !h.bindJSON(c, &input) {
		return
	}
	view, err := h.Carts.Update(c.Request.Context(), subjectID(c), itemID, *input.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteCartItem handles DELETE /v1/cart/items/:itemId
func (h *Handlers) DeleteCartItem(c *gin.Context) {
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	view, err := h.Carts.Remove(c.Request.Context(), subjectID(c), itemID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ClearCart handles DELETE /v1/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	if err := h.Carts.Clear(c.Request.Context(), subjectID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
