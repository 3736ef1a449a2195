package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/cart"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const userID = int64(42)

func seedProduct(t *testing.T, s *memory.Store, name string, price int64, stock int) *models.Product {
	t.Helper()
	now := time.Now()
	p := &models.Product{
		Slug:       name,
		Name:       name,
		Price:      decimal.NewFromInt(price),
		TotalStock: stock,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func seedVariant(t *testing.T, s *memory.Store, productID int64, size string, price *int64, stock int) *models.Variant {
	t.Helper()
	v := &models.Variant{ProductID: productID, Size: size, Color: "Blue", Stock: stock, IsActive: true, Image: size + ".jpg"}
	if price != nil {
		v.Price = decimal.NewNullDecimal(decimal.NewFromInt(*price))
	}
	require.NoError(t, s.CreateVariant(context.Background(), v))
	return v
}

func newService() (*cart.Service, *memory.Store) {
	s := memory.New()
	return cart.NewService(s, zap.NewNop()), s
}

func ptr(v int64) *int64 { return &v }

func TestGetCreatesEmptyCart(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	first, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, first.Items)
	assert.NotNil(t, first.Items)
	assert.True(t, first.Subtotal.IsZero())
	assert.Equal(t, 0, first.TotalItems)

	second, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestAddAndMergeLines(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	x := seedProduct(t, s, "x", 20, 10)

	view, err := svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, decimal.NewFromInt(40).Equal(view.Subtotal))
	assert.Equal(t, 2, view.TotalItems)

	view, err = svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(60).Equal(view.Subtotal))
	assert.Equal(t, 3, view.TotalItems)
}

func TestRemoveOnlyItemEmptiesCart(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	x := seedProduct(t, s, "x", 20, 10)

	view, err := svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 2})
	require.NoError(t, err)

	view, err = svc.Remove(ctx, userID, view.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Subtotal.IsZero())
	assert.Equal(t, 0, view.TotalItems)
}

func TestUpdateToZeroRemoves(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	x := seedProduct(t, s, "x", 20, 10)
	y := seedProduct(t, s, "y", 5, 10)

	_, err := svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 2})
	require.NoError(t, err)
	view, err := svc.Add(ctx, userID, cart.AddInput{ProductID: y.ID, Quantity: 1})
	require.NoError(t, err)

	view, err = svc.Update(ctx, userID, view.Items[0].ID, 0)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, y.ID, view.Items[0].ProductID)
	assert.True(t, decimal.NewFromInt(5).Equal(view.Subtotal))
}

func TestVariantPriceOverrideAndLabel(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	p := seedProduct(t, s, "shirt", 20, 0)
	withPrice := seedVariant(t, s, p.ID, "M", ptr(25), 4)
	withoutPrice := seedVariant(t, s, p.ID, "L", nil, 4)

	view, err := svc.Add(ctx, userID, cart.AddInput{ProductID: p.ID, VariantID: &withPrice.ID, Quantity: 1})
	require.NoError(t, err)
	view, err = svc.Add(ctx, userID, cart.AddInput{ProductID: p.ID, VariantID: &withoutPrice.ID, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.True(t, decimal.NewFromInt(25).Equal(view.Items[0].Price))
	assert.True(t, decimal.NewFromInt(20).Equal(view.Items[1].Price))
	require.NotNil(t, view.Items[0].VariantName)
	assert.Equal(t, "Blue, M", *view.Items[0].VariantName)
	assert.Equal(t, "M.jpg", view.Items[0].Image)
	assert.True(t, decimal.NewFromInt(45).Equal(view.Subtotal))
}

func TestLinePriceIsFrozen(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	x := seedProduct(t, s, "x", 20, 10)

	_, err := svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, s.UpdateAggregates(ctx, x.ID, models.ProductAggregates{
		Price: decimal.NewFromInt(99), TotalStock: 10, IsActive: true,
	}, time.Now()))

	view, err := svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 1})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(view.Items[0].Price))
	assert.True(t, decimal.NewFromInt(40).Equal(view.Subtotal))
}

func TestDeletedProductShowsPlaceholder(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	x := seedProduct(t, s, "x", 20, 10)

	_, err := svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, s.DeleteProduct(ctx, x.ID))

	view, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, cart.UnavailableProductName, view.Items[0].Name)
	assert.False(t, view.Items[0].Available)
	assert.True(t, decimal.NewFromInt(40).Equal(view.Subtotal))
}

func TestAddErrors(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	x := seedProduct(t, s, "x", 20, 3)
	other := seedProduct(t, s, "other", 5, 3)
	foreign := seedVariant(t, s, other.ID, "M", nil, 3)

	_, err := svc.Add(ctx, userID, cart.AddInput{ProductID: 999, Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, VariantID: &foreign.ID, Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 4})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 0})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestProductWithVariantsNeedsVariant(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	shirt := seedProduct(t, s, "shirt", 25, 5)
	m := seedVariant(t, s, shirt.ID, "M", nil, 5)

	_, err := svc.Add(ctx, userID, cart.AddInput{ProductID: shirt.ID, Quantity: 2})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	view, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	view, err = svc.Add(ctx, userID, cart.AddInput{ProductID: shirt.ID, VariantID: &m.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, &m.ID, view.Items[0].VariantID)
}

func TestItemOperationsWithoutCart(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Update(ctx, userID, 1, 2)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Remove(ctx, userID, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.NoError(t, svc.Clear(ctx, userID))
}

func TestItemsOfAnotherUserAreNotFound(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	x := seedProduct(t, s, "x", 20, 10)

	view, err := svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Get(ctx, userID+1)
	require.NoError(t, err)

	_, err = svc.Update(ctx, userID+1, view.Items[0].ID, 5)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestClearEmptiesCart(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()
	x := seedProduct(t, s, "x", 20, 10)

	_, err := svc.Add(ctx, userID, cart.AddInput{ProductID: x.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, userID))

	view, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}
