package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/01moynul/storefront-api/internal/cart"
	"github.com/01moynul/storefront-api/internal/config"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/payment/zarinpal"
	"github.com/01moynul/storefront-api/internal/store/memory"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	ownerPhone    = "09120000001"
	customerPhone = "09350000002"
	authority     = "A00000000000000000000000000000000042"
)

type stubGateway struct{}

func (stubGateway) Request(context.Context, zarinpal.PaymentRequest) (string, error) {
	return authority, nil
}

func (stubGateway) Verify(context.Context, int64, string) (zarinpal.Verification, error) {
	return zarinpal.Verification{Code: zarinpal.CodeSuccess, RefID: "98765"}, nil
}

func (stubGateway) StartPayURL(a string) string {
	return "https://sandbox.zarinpal.com/pg/StartPay/" + a
}

type inbox map[string]string

func (b inbox) SendOTP(_ context.Context, phone, code string) error {
	b[phone] = code
	return nil
}

type env struct {
	app   *App
	inbox inbox
	cfg   config.Config
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		AppEnv:          "test",
		BaseURL:         "http://api.test",
		Storage:         "memory",
		JWTSecret:       "test-secret",
		SessionTTL:      time.Hour,
		CookieName:      "session",
		OTPTTL:          2 * time.Minute,
		OTPWindow:       10 * time.Minute,
		OTPMaxPerWindow: 5,
		OTPMaxAttempts:  5,
		AllowedOrigins:  []string{"http://localhost:3000"},
		UploadDir:       t.TempDir(),
		Zarinpal: config.Zarinpal{
			CallbackURL: "http://api.test/v1/payment/callback",
			Description: "Order",
		},
	}
	e := &env{inbox: inbox{}, cfg: cfg}
	e.app = New(cfg, Deps{
		Backend: memory.New(),
		Gateway: stubGateway{},
		Sender:  e.inbox,
		Log:     zap.NewNop(),
	})
	require.NoError(t, e.app.Admins.Bootstrap(context.Background(), ownerPhone))
	return e
}

func (e *env) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.app.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

// login runs the OTP flow for phone against prefix ("" or "/admin").
func (e *env) login(t *testing.T, prefix, phone string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1"+prefix+"/auth/otp/request", gin.H{"phone": phone}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/v1"+prefix+"/auth/otp/verify", gin.H{"phone": phone, "code": e.inbox[phone]}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Token string `json:"token"`
	}
	decode(t, w, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestPing(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/v1/ping", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong!")
}

func TestShoppingFlow(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "/admin", ownerPhone)

	// 1. --- Catalog ---
	w := e.do(t, http.MethodPost, "/v1/admin/products", gin.H{"name": "Linen Shirt", "category": "shirts"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product models.Product
	decode(t, w, &product)
	assert.Equal(t, "linen-shirt", product.Slug)

	w = e.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/products/%d/variants", product.ID),
		gin.H{"size": "M", "color": "Blue", "price": "250000", "stock": 5}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var variant models.Variant
	decode(t, w, &variant)

	w = e.do(t, http.MethodGet, "/v1/products/linen-shirt", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &product)
	assert.True(t, decimal.NewFromInt(250000).Equal(product.Price))
	assert.Equal(t, 5, product.TotalStock)
	assert.Equal(t, []string{"M"}, product.AvailableSizes)

	// 2. --- Cart ---
	customer := e.login(t, "", customerPhone)
	w = e.do(t, http.MethodPost, "/v1/cart/items", gin.H{"productId": product.ID, "variantId": variant.ID, "quantity": 2}, customer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view cart.View
	decode(t, w, &view)
	require.Len(t, view.Items, 1)
	assert.True(t, decimal.NewFromInt(500000).Equal(view.Subtotal))
	assert.Equal(t, 2, view.TotalItems)

	// 3. --- Checkout and payment ---
	w = e.do(t, http.MethodPost, "/v1/checkout", gin.H{"address": "Tehran, Valiasr St, No. 12"}, customer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var o models.Order
	decode(t, w, &o)
	assert.Equal(t, models.OrderPendingPayment, o.Status)

	w = e.do(t, http.MethodPost, fmt.Sprintf("/v1/orders/%d/pay", o.ID), nil, customer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "StartPay/"+authority)

	w = e.do(t, http.MethodGet, "/v1/payment/callback?Authority="+authority+"&Status=OK", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cb struct {
		Success bool         `json:"success"`
		RefID   string       `json:"refId"`
		Order   models.Order `json:"order"`
	}
	decode(t, w, &cb)
	assert.True(t, cb.Success)
	assert.Equal(t, "98765", cb.RefID)
	assert.Equal(t, models.OrderPaid, cb.Order.Status)

	// 4. --- Fulfilment ---
	w = e.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/orders/%d/status", o.ID), gin.H{"status": "processing"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/orders/%d/status", o.ID), gin.H{"status": "delivered"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodGet, "/v1/orders", nil, customer)
	require.Equal(t, http.StatusOK, w.Code)
	var mine struct {
		Orders []models.Order `json:"orders"`
	}
	decode(t, w, &mine)
	require.Len(t, mine.Orders, 1)
	assert.Equal(t, models.OrderProcessing, mine.Orders[0].Status)

	w = e.do(t, http.MethodGet, "/v1/admin/dashboard-stats?lowStock=3", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats models.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.OrdersByStatus[models.OrderProcessing])
	assert.True(t, decimal.NewFromInt(500000).Equal(stats.Revenue))
	assert.Equal(t, 1, stats.ActiveProducts)
	assert.Equal(t, 1, stats.LowStockProducts)

	// Stock left the shelf and the cart is empty.
	w = e.do(t, http.MethodGet, "/v1/products/linen-shirt", nil, "")
	decode(t, w, &product)
	assert.Equal(t, 3, product.TotalStock)

	w = e.do(t, http.MethodGet, "/v1/cart", nil, customer)
	decode(t, w, &view)
	assert.Empty(t, view.Items)
}

func TestPaymentCallbackRedirects(t *testing.T) {
	e := newEnv(t)
	e.app.Handlers.Config.Zarinpal.ReturnURL = "https://shop.test/payment/result"
	admin := e.login(t, "/admin", ownerPhone)

	stock := 4
	w := e.do(t, http.MethodPost, "/v1/admin/products", gin.H{"name": "Mug", "price": "90000", "stock": stock, "isActive": true}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product models.Product
	decode(t, w, &product)

	customer := e.login(t, "", customerPhone)
	w = e.do(t, http.MethodPost, "/v1/cart/items", gin.H{"productId": product.ID, "quantity": 1}, customer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = e.do(t, http.MethodPost, "/v1/checkout", gin.H{"address": "Shiraz, Zand Blvd, No. 4"}, customer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var o models.Order
	decode(t, w, &o)
	w = e.do(t, http.MethodPost, fmt.Sprintf("/v1/orders/%d/pay", o.ID), nil, customer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/v1/payment/callback?Authority="+authority+"&Status=NOK", nil, "")
	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "https://shop.test/payment/result?"))
	assert.Contains(t, loc, "status=failed")
	assert.Contains(t, loc, "order="+o.TrackingCode)
}

func TestAccessControl(t *testing.T) {
	e := newEnv(t)
	owner := e.login(t, "/admin", ownerPhone)
	customer := e.login(t, "", customerPhone)

	// No session.
	w := e.do(t, http.MethodGet, "/v1/cart", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Customers are not staff and staff have no cart.
	w = e.do(t, http.MethodGet, "/v1/admin/orders", nil, customer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodGet, "/v1/cart", nil, owner)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Support staff can read orders but not edit the catalog or manage admins.
	supportPhone := "09120000003"
	w = e.do(t, http.MethodPost, "/v1/admin/admins", gin.H{"phone": supportPhone, "fullName": "Reza", "role": "support"}, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var support models.Admin
	decode(t, w, &support)

	supportToken := e.login(t, "/admin", supportPhone)
	w = e.do(t, http.MethodGet, "/v1/admin/orders", nil, supportToken)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodPost, "/v1/admin/products", gin.H{"name": "Hat"}, supportToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodGet, "/v1/admin/admins", nil, supportToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A disabled admin is locked out even with a valid token.
	w = e.do(t, http.MethodPatch, fmt.Sprintf("/v1/admin/admins/%d", support.ID), gin.H{"isActive": false}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = e.do(t, http.MethodGet, "/v1/admin/orders", nil, supportToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/v1/cart", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionCookie(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/v1/auth/otp/request", gin.H{"phone": "+98 935 000 0002"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = e.do(t, http.MethodPost, "/v1/auth/otp/verify", gin.H{"phone": customerPhone, "code": e.inbox[customerPhone]}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == e.cfg.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	e.app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), customerPhone)
}

func TestValidationErrors(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/v1/auth/otp/request", gin.H{"phone": "12345"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/v1/auth/otp/verify", gin.H{"phone": customerPhone, "code": "123456"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"unauthorized"`)

	customer := e.login(t, "", customerPhone)
	w = e.do(t, http.MethodPost, "/v1/checkout", gin.H{"address": "Tehran, Valiasr St, No. 12"}, customer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"validation"`)

	w = e.do(t, http.MethodPost, "/v1/cart/items", gin.H{"productId": 999, "quantity": 1}, customer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/v1/orders/abc", nil, customer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "/admin", ownerPhone)

	upload := func(name string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/admin/uploads", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+admin)
		w := httptest.NewRecorder()
		e.app.Router.ServeHTTP(w, req)
		return w
	}

	w := upload("photo.PNG")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		URL string `json:"url"`
	}
	decode(t, w, &out)
	require.True(t, strings.HasPrefix(out.URL, "http://api.test/uploads/"))
	assert.True(t, strings.HasSuffix(out.URL, ".png"))

	_, err := os.Stat(filepath.Join(e.cfg.UploadDir, filepath.Base(out.URL)))
	assert.NoError(t, err)

	w = upload("script.sh")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
