package handlers

import (
	"net/http"
	"time"

	"github.com/01moynul/storefront-api/internal/auth"
	"github.com/01moynul/storefront-api/internal/middleware"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/gin-gonic/gin"
)

// OTPRequestInput defines the JSON for requesting a login code.
type OTPRequestInput struct {
	Phone string `json:"phone" binding:"required,iranphone"`
}

// OTPVerifyInput defines the JSON for logging in with a code.
type OTPVerifyInput struct {
	Phone string `json:"phone" binding:"required,iranphone"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// RequestOTP handles POST /v1/auth/otp/request
func (h *Handlers) RequestOTP(c *gin.Context) {
	h.requestCode(c, models.AudienceUser)
}

// RequestAdminOTP handles POST /v1/admin/auth/otp/request
func (h *Handlers) RequestAdminOTP(c *gin.Context) {
	h.requestCode(c, models.AudienceAdmin)
}

func (h *Handlers) requestCode(c *gin.Context, audience models.OTPAudience) {
	var input OTPRequestInput
	if !h.bindJSON(c, &input) {
		return
	}
	if err := h.OTP.RequestCode(c.Request.Context(), audience, input.Phone); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the number is registered, a code has been sent."})
}

// VerifyOTP handles POST /v1/auth/otp/verify
func (h *Handlers) VerifyOTP(c *gin.Context) {
	var input OTPVerifyInput
	if !h.bindJSON(c, &input) {
		return
	}
	sess, err := h.OTP.VerifyUser(c.Request.Context(), input.Phone, input.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setSession(c, sess)
	c.JSON(http.StatusOK, gin.H{"token": sess.Token, "expiresAt": sess.ExpiresAt, "user": sess.User})
}

// VerifyAdminOTP handles POST /v1/admin/auth/otp/verify
func (h *Handlers) VerifyAdminOTP(c *gin.Context) {
	var input OTPVerifyInput
	if !h.bindJSON(c, &input) {
		return
	}
	sess, err := h.OTP.VerifyAdmin(c.Request.Context(), input.Phone, input.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setSession(c, sess)
	c.JSON(http.StatusOK, gin.H{"token": sess.Token, "expiresAt": sess.ExpiresAt, "admin": sess.Admin})
}

// Logout handles POST /v1/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.Config.CookieName, "", -1, "/", "", h.Config.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me handles GET /v1/me
func (h *Handlers) Me(c *gin.Context) {
	ctx := c.Request.Context()
	id := subjectID(c)

	switch kind, _ := c.Get(middleware.KeyKind); kind {
	case auth.KindAdmin:
		admin, err := h.Accounts.Admin(ctx, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": auth.KindAdmin, "admin": admin})
	default:
		user, err := h.Users.UserByID(ctx, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": auth.KindUser, "user": user})
	}
}

func (h *Handlers) setSession(c *gin.Context, sess *auth.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.Config.CookieName, sess.Token, maxAge, "/", "", h.Config.CookieSecure, true)
}
