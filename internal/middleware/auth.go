package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/auth"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by the middleware.
const (
	KeySubjectID = "subjectID"
	KeyKind      = "subjectKind"
	KeyAdmin     = "admin"
)

// AdminLookup loads the current state of an admin account.
type AdminLookup interface {
	Admin(ctx context.Context, adminID int64) (*models.Admin, error)
}

// AuthMiddleware is the "security guard": it accepts a Bearer token or the
// session cookie and stores the subject in the context.
func AuthMiddleware(tokens *auth.TokenManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Find the token ---
		tokenString := ""
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				abort(c, http.StatusUnauthorized, "Invalid token format (must be Bearer)")
				return
			}
			tokenString = parts[1]
		} else if cookie, err := c.Cookie(cookieName); err == nil {
			tokenString = cookie
		}
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		// 2. --- Validate ---
		sub, err := tokens.Validate(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		// 3. --- Success ---
		c.Set(KeySubjectID, sub.ID)
		c.Set(KeyKind, sub.Kind)
		c.Next()
	}
}

// RequireUser lets storefront sessions through.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if kind, _ := c.Get(KeyKind); kind != auth.KindUser {
			abort(c, http.StatusForbidden, "Access denied: customer session required")
			return
		}
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware. It reloads the admin so that a
// disabled account or a changed role takes effect before the token expires,
// then checks the role against roles (any role when empty).
func RequireAdmin(admins AdminLookup, log *zap.Logger, roles ...models.AdminRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if kind, _ := c.Get(KeyKind); kind != auth.KindAdmin {
			abort(c, http.StatusForbidden, "Access denied: admin session required")
			return
		}

		admin, err := admins.Admin(c.Request.Context(), c.GetInt64(KeySubjectID))
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				abort(c, http.StatusUnauthorized, "Invalid admin")
				return
			}
			log.Error("failed to load admin for role check", zap.Error(err))
			abort(c, http.StatusInternalServerError, "Database error checking role")
			return
		}
		if !admin.IsActive {
			abort(c, http.StatusForbidden, "Access denied: admin account is disabled")
			return
		}
		if len(roles) > 0 && !hasRole(admin.Role, roles) {
			abort(c, http.StatusForbidden, "Access denied: insufficient role")
			return
		}

		c.Set(KeyAdmin, admin)
		c.Next()
	}
}

func hasRole(role models.AdminRole, allowed []models.AdminRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
