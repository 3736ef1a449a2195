package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBindJSONUsesPhoneValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	h := &Handlers{Log: zap.NewNop()}
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid mobile", `{"phone":"+989121234567"}`, http.StatusOK},
		{"landline", `{"phone":"0212345678"}`, http.StatusBadRequest},
		{"missing", `{}`, http.StatusBadRequest},
		{"not json", `phone`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var in OTPRequestInput
			if h.bindJSON(c, &in) {
				c.Status(http.StatusOK)
			}
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestIDParamRejectsNonPositive(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, raw := range []string{"0", "-3", "abc"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		_, ok := idParam(c, "id")
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "12"}}
	id, ok := idParam(c, "id")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}
