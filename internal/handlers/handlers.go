package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/auth"
	"github.com/01moynul/storefront-api/internal/cart"
	"github.com/01moynul/storefront-api/internal/catalog"
	"github.com/01moynul/storefront-api/internal/config"
	"github.com/01moynul/storefront-api/internal/middleware"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/order"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// UserLookup loads customer profiles for GET /me.
type UserLookup interface {
	UserByID(ctx context.Context, userID int64) (*models.User, error)
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Catalog  *catalog.Service
	Carts    *cart.Service
	Orders   *order.Service
	Payments *order.PaymentService
	OTP      *auth.OTPService
	Admins   *auth.AdminService
	Accounts auth.AdminStore
	Users    UserLookup
	Stats    StatsReader
	Log      *zap.Logger
	Config   config.Config
}

// RegisterValidators adds the custom binding tags used by the request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("binding validator is not go-playground/validator")
	}
	err := v.RegisterValidation("iranphone", func(fl validator.FieldLevel) bool {
		_, ok := auth.NormalizePhone(fl.Field().String())
		return ok
	})
	if err != nil {
		return fmt.Errorf("register iranphone validator: %w", err)
	}
	return nil
}

// respondError writes err with the status of its kind. Causes are logged,
// never sent.
func (h *Handlers) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if kind == apperr.KindInternal || kind == apperr.KindUpstream {
		h.Log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err), "kind": kind})
}

// bindJSON binds the body into dst and answers 400 when it is invalid.
func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error(), "kind": apperr.KindValidation})
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name, "kind": apperr.KindValidation})
		return 0, false
	}
	return id, true
}

func subjectID(c *gin.Context) int64 {
	return c.GetInt64(middleware.KeySubjectID)
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
