package routes

import (
	"net/http"
	"time"

	"github.com/01moynul/storefront-api/internal/auth"
	"github.com/01moynul/storefront-api/internal/handlers"
	"github.com/01moynul/storefront-api/internal/middleware"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// corsMiddleware lets the storefront and admin frontends send the session
// cookie along with their requests.
func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func SetupRouter(h *handlers.Handlers, tokens *auth.TokenManager) *gin.Engine {
	if err := handlers.RegisterValidators(); err != nil {
		h.Log.Panic("failed to register validators", zap.Error(err))
	}

	router := gin.New()
	router.Use(middleware.Recovery(h.Log), middleware.RequestLogger(h.Log))

	// --- APPLY THE CORS GUARD ---
	router.Use(corsMiddleware(h.Config.AllowedOrigins))

	router.Static("/uploads", h.Config.UploadDir)

	requireAuth := middleware.AuthMiddleware(tokens, h.Config.CookieName)

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/auth/otp/request", h.RequestOTP)
		v1.POST("/auth/otp/verify", h.VerifyOTP)
		v1.POST("/auth/logout", h.Logout)
		v1.POST("/admin/auth/otp/request", h.RequestAdminOTP)
		v1.POST("/admin/auth/otp/verify", h.VerifyAdminOTP)

		// --- Public Product Routes ---
		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:slug", h.GetProductBySlug)

		// --- Payment Gateway Callback (Public) ---
		v1.GET("/payment/callback", h.PaymentCallback)

		// --- Any Session ---
		v1.GET("/me", requireAuth, h.Me)

		// --- Customer Routes (Login Required) ---
		customer := v1.Group("/")
		customer.Use(requireAuth, middleware.RequireUser())
		{
			customer.GET("/cart", h.GetCart)
			customer.DELETE("/cart", h.ClearCart)
			customer.POST("/cart/items", h.AddToCart)
			customer.PATCH("/cart/items/:itemId", h.UpdateCartItem)
			customer.DELETE("/cart/items/:itemId", h.DeleteCartItem)

			customer.POST("/checkout", h.Checkout)
			customer.GET("/orders", h.GetMyOrders)
			customer.GET("/orders/:id", h.GetOrderDetails)
			customer.POST("/orders/:id/cancel", h.CancelOrder)
			customer.POST("/orders/:id/pay", h.PayOrder)
		}

		// --- Staff Routes (Any Admin Role) ---
		staff := v1.Group("/admin")
		staff.Use(requireAuth, middleware.RequireAdmin(h.Accounts, h.Log))
		{
			staff.GET("/dashboard-stats", h.GetDashboardStats)

			staff.GET("/products", h.AdminListProducts)
			staff.GET("/products/:id", h.AdminGetProduct)

			staff.GET("/orders", h.AdminListOrders)
			staff.GET("/orders/:id", h.AdminGetOrder)
			staff.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		}

		// --- Catalog Routes (Super Admin / Manager) ---
		catalogAdmin := v1.Group("/admin")
		catalogAdmin.Use(requireAuth, middleware.RequireAdmin(h.Accounts, h.Log, models.RoleSuperAdmin, models.RoleManager))
		{
			catalogAdmin.POST("/products", h.CreateProduct)
			catalogAdmin.POST("/products/recompute", h.RecomputeAllProducts)
			catalogAdmin.PATCH("/products/:id", h.UpdateProduct)
			catalogAdmin.DELETE("/products/:id", h.DeleteProduct)
			catalogAdmin.POST("/products/:id/recompute", h.RecomputeProduct)
			catalogAdmin.POST("/products/:id/variants", h.CreateVariant)
			catalogAdmin.PATCH("/products/:id/variants/:variantId", h.UpdateVariant)
			catalogAdmin.DELETE("/products/:id/variants/:variantId", h.DeleteVariant)

			catalogAdmin.POST("/uploads", h.UploadFile)
		}

		// --- Super Admin-Only Routes ---
		owner := v1.Group("/admin")
		owner.Use(requireAuth, middleware.RequireAdmin(h.Accounts, h.Log, models.RoleSuperAdmin))
		{
			owner.GET("/admins", h.ListAdmins)
			owner.POST("/admins", h.CreateAdmin)
			owner.PATCH("/admins/:id", h.UpdateAdmin)
		}
	}

	return router
}
