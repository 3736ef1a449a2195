package handlers

import (
	"net/http"
	"net/url"

	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/order"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UpdateOrderStatusInput defines the JSON for an admin status change.
type UpdateOrderStatusInput struct {
	Status models.OrderStatus `json:"status" binding:"required,oneof=paid processing shipped delivered cancelled"`
}

// Checkout handles POST /v1/checkout
// Converts the user's cart into a pending_payment order.
func (h *Handlers) Checkout(c *gin.Context) {
	var input order.CheckoutInput
	if !h.bindJSON(c, &input) {
		return
	}
	o, err := h.Orders.Checkout(c.Request.Context(), subjectID(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// GetMyOrders handles GET /v1/orders
func (h *Handlers) GetMyOrders(c *gin.Context) {
	orders, err := h.Orders.UserOrders(c.Request.Context(), subjectID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderDetails handles GET /v1/orders/:id
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.UserOrder(c.Request.Context(), subjectID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// CancelOrder handles POST /v1/orders/:id/cancel
func (h *Handlers) CancelOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.CancelForUser(c.Request.Context(), subjectID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// PayOrder handles POST /v1/orders/:id/pay
func (h *Handlers) PayOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	payURL, err := h.Payments.StartPayment(c.Request.Context(), subjectID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paymentUrl": payURL})
}

// PaymentCallback handles GET /v1/payment/callback?Authority=&Status=
// The gateway sends the customer's browser here after payment. With a
// configured return URL the customer is redirected to the storefront.
func (h *Handlers) PaymentCallback(c *gin.Context) {
	res, err := h.Payments.HandleCallback(c.Request.Context(), c.Query("Authority"), c.Query("Status"))
	if err != nil && res == nil {
		h.respondError(c, err)
		return
	}
	if err != nil {
		h.Log.Warn("payment verification failed", zap.Int64("order_id", res.Order.ID), zap.Error(err))
	}

	if returnURL := h.Config.Zarinpal.ReturnURL; returnURL != "" {
		q := url.Values{}
		q.Set("order", res.Order.TrackingCode)
		if res.Success {
			q.Set("status", "success")
			q.Set("refId", res.RefID)
		} else {
			q.Set("status", "failed")
		}
		c.Redirect(http.StatusFound, returnURL+"?"+q.Encode())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": res.Success, "refId": res.RefID, "order": res.Order})
}

// --- Admin ---

// AdminListOrders handles GET /v1/admin/orders?status=&userId=&limit=&offset=
func (h *Handlers) AdminListOrders(c *gin.Context) {
	filter := models.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		UserID: int64(queryInt(c, "userId", 0)),
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	orders, total, err := h.Orders.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

// AdminGetOrder handles GET /v1/admin/orders/:id
func (h *Handlers) AdminGetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.Order(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// UpdateOrderStatus handles PATCH /v1/admin/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input UpdateOrderStatusInput
	if !h.bindJSON(c, &input) {
		return
	}
	o, err := h.Orders.UpdateStatus(c.Request.Context(), id, input.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
