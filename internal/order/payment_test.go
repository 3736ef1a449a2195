package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/cart"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/order"
	"github.com/01moynul/storefront-api/internal/payment/zarinpal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	requested []zarinpal.PaymentRequest
	verified  []int64
	verifyErr error
}

func (g *fakeGateway) Request(_ context.Context, req zarinpal.PaymentRequest) (string, error) {
	g.requested = append(g.requested, req)
	return "A0000000000000000000000000000000001", nil
}

func (g *fakeGateway) Verify(_ context.Context, amount int64, _ string) (zarinpal.Verification, error) {
	g.verified = append(g.verified, amount)
	if g.verifyErr != nil {
		return zarinpal.Verification{}, g.verifyErr
	}
	return zarinpal.Verification{Code: zarinpal.CodeSuccess, RefID: "123456"}, nil
}

func (g *fakeGateway) StartPayURL(authority string) string {
	return "https://sandbox.zarinpal.com/pg/StartPay/" + authority
}

func placeOrder(t *testing.T, f *fixture) *models.Order {
	t.Helper()
	ctx := context.Background()
	mug := f.mug(t)
	_, err := f.carts.Add(ctx, userID, cart.AddInput{ProductID: mug.ID, Quantity: 2})
	require.NoError(t, err)
	o, err := f.orders.Checkout(ctx, userID, address)
	require.NoError(t, err)
	return o
}

func newPayments(f *fixture, gw *fakeGateway) *order.PaymentService {
	return order.NewPaymentService(f.store, gw, order.PaymentConfig{
		CallbackURL: "https://api.shop.test/v1/payment/callback",
		Description: "Order",
	}, zap.NewNop())
}

func TestStartPaymentAndVerify(t *testing.T) {
	f := newFixture()
	gw := &fakeGateway{}
	payments := newPayments(f, gw)
	ctx := context.Background()
	o := placeOrder(t, f)

	url, err := payments.StartPayment(ctx, userID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.zarinpal.com/pg/StartPay/A0000000000000000000000000000000001", url)
	require.Len(t, gw.requested, 1)
	assert.Equal(t, int64(20), gw.requested[0].Amount)
	assert.Equal(t, "Order "+o.TrackingCode, gw.requested[0].Description)

	res, err := payments.HandleCallback(ctx, "A0000000000000000000000000000000001", "OK")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "123456", res.RefID)
	assert.Equal(t, models.OrderPaid, res.Order.Status)
	assert.Equal(t, models.PaymentPaid, res.Order.PaymentStatus)
	assert.NotNil(t, res.Order.PaidAt)

	// A repeated callback does not verify again.
	res, err = payments.HandleCallback(ctx, "A0000000000000000000000000000000001", "OK")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, gw.verified, 1)

	_, err = payments.StartPayment(ctx, userID, o.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestStartPaymentSendsPayerMobile(t *testing.T) {
	f := newFixture()
	gw := &fakeGateway{}
	payments := newPayments(f, gw)
	ctx := context.Background()

	now := time.Now()
	payer := &models.User{Phone: "09351112233", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.CreateUser(ctx, payer))

	mug := f.mug(t)
	_, err := f.carts.Add(ctx, payer.ID, cart.AddInput{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	o, err := f.orders.Checkout(ctx, payer.ID, address)
	require.NoError(t, err)

	_, err = payments.StartPayment(ctx, payer.ID, o.ID)
	require.NoError(t, err)
	require.Len(t, gw.requested, 1)
	assert.Equal(t, "09351112233", gw.requested[0].Mobile)
	assert.Equal(t, o.TrackingCode, gw.requested[0].OrderID)
}

func TestCallbackCancelledByCustomer(t *testing.T) {
	f := newFixture()
	gw := &fakeGateway{}
	payments := newPayments(f, gw)
	ctx := context.Background()
	o := placeOrder(t, f)

	_, err := payments.StartPayment(ctx, userID, o.ID)
	require.NoError(t, err)

	res, err := payments.HandleCallback(ctx, "A0000000000000000000000000000000001", "NOK")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, gw.verified)

	got, err := f.orders.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPendingPayment, got.Status)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
}

func TestCallbackVerifyFailureIsUpstream(t *testing.T) {
	f := newFixture()
	gw := &fakeGateway{verifyErr: &zarinpal.Error{Code: -51, Message: "not paid"}}
	payments := newPayments(f, gw)
	ctx := context.Background()
	o := placeOrder(t, f)

	_, err := payments.StartPayment(ctx, userID, o.ID)
	require.NoError(t, err)

	res, err := payments.HandleCallback(ctx, "A0000000000000000000000000000000001", "OK")
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	var gerr *zarinpal.Error
	assert.True(t, errors.As(err, &gerr))
	require.NotNil(t, res)
	assert.False(t, res.Success)
}

func TestCallbackUnknownAuthority(t *testing.T) {
	f := newFixture()
	payments := newPayments(f, &fakeGateway{})

	_, err := payments.HandleCallback(context.Background(), "A-unknown", "OK")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = payments.HandleCallback(context.Background(), "", "OK")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestStartPaymentForeignOrder(t *testing.T) {
	f := newFixture()
	payments := newPayments(f, &fakeGateway{})
	o := placeOrder(t, f)

	_, err := payments.StartPayment(context.Background(), userID+1, o.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
