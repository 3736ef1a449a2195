package handlers

import (
	"net/http"

	"github.com/01moynul/storefront-api/internal/auth"
	"github.com/gin-gonic/gin"
)

// ListAdmins handles GET /v1/admin/admins
// (Super Admin Only)
func (h *Handlers) ListAdmins(c *gin.Context) {
	admins, err := h.Admins.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

// CreateAdmin handles POST /v1/admin/admins
// (Super Admin Only)
func (h *Handlers) CreateAdmin(c *gin.Context) {
	var input auth.CreateAdminInput
	if !h.bindJSON(c, &input) {
		return
	}
	admin, err := h.Admins.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}

// UpdateAdmin handles PATCH /v1/admin/admins/:id
// (Super Admin Only)
func (h *Handlers) UpdateAdmin(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input auth.UpdateAdminInput
	if !h.bindJSON(c, &input) {
		return
	}
	admin, err := h.Admins.Update(c.Request.Context(), subjectID(c), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, admin)
}
