package apperr

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("loading cart: %w", NotFound("cart item not found"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindConflict))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(sql.ErrConnDone))
	assert.Equal(t, "internal server error", PublicMessage(sql.ErrConnDone))
}

func TestPublicMessageHidesCause(t *testing.T) {
	err := Upstream("payment gateway unavailable", sql.ErrConnDone)

	assert.Equal(t, "payment gateway unavailable", PublicMessage(err))
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), sql.ErrConnDone.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:     http.StatusNotFound,
		KindValidation:   http.StatusBadRequest,
		KindConflict:     http.StatusConflict,
		KindUpstream:     http.StatusBadGateway,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindRateLimited:  http.StatusTooManyRequests,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind)
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "loading product"))

	notFound := NotFound("product not found")
	assert.Same(t, notFound, Wrap(notFound, "loading product"))

	wrapped := Wrap(sql.ErrConnDone, "loading product")
	assert.Equal(t, KindUpstream, KindOf(wrapped))
	assert.Equal(t, "loading product", PublicMessage(wrapped))
}
