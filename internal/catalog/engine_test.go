package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func price(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		variants   []models.Variant
		wantPrice  int64
		wantStock  int
		wantSizes  []string
		wantImages []string
		wantActive bool
		wantMain   string
	}{
		{
			name: "min price and summed stock",
			variants: []models.Variant{
				{Size: "M", Price: price(10), Stock: 3, IsActive: true, Image: "a.jpg"},
				{Size: "L", Price: price(8), Stock: 2, IsActive: true, Image: "b.jpg"},
			},
			wantPrice:  8,
			wantStock:  5,
			wantSizes:  []string{"M", "L"},
			wantImages: []string{"a.jpg", "b.jpg"},
			wantActive: true,
			wantMain:   "a.jpg",
		},
		{
			name: "inactive variants are ignored",
			variants: []models.Variant{
				{Size: "S", Price: price(1), Stock: 100, IsActive: false, Image: "x.jpg"},
				{Size: "M", Price: price(10), Stock: 3, IsActive: true},
			},
			wantPrice:  10,
			wantStock:  3,
			wantSizes:  []string{"M"},
			wantImages: []string{},
			wantActive: true,
		},
		{
			name: "duplicates keep first occurrence",
			variants: []models.Variant{
				{Size: "M", Color: "Red", Stock: 1, IsActive: true, Image: "r.jpg"},
				{Size: "L", Color: "Red", Stock: 1, IsActive: true, Image: "r.jpg"},
				{Size: "M", Color: "Blue", Stock: 1, IsActive: true, Image: "b.jpg"},
			},
			wantPrice:  0,
			wantStock:  3,
			wantSizes:  []string{"M", "L"},
			wantImages: []string{"r.jpg", "b.jpg"},
			wantActive: true,
			wantMain:   "r.jpg",
		},
		{
			name:       "no active variants",
			variants:   []models.Variant{{Size: "M", Price: price(10), Stock: 3, IsActive: false}},
			wantPrice:  0,
			wantStock:  0,
			wantSizes:  []string{},
			wantImages: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := Aggregate(tt.variants)

			assert.True(t, decimal.NewFromInt(tt.wantPrice).Equal(agg.Price), "price %s", agg.Price)
			assert.Equal(t, tt.wantStock, agg.TotalStock)
			assert.Equal(t, tt.wantSizes, agg.AvailableSizes)
			assert.Equal(t, tt.wantImages, agg.Images)
			assert.Equal(t, tt.wantActive, agg.IsActive)
			assert.Equal(t, tt.wantMain != "", agg.MainImage.Valid)
			assert.Equal(t, tt.wantMain, agg.MainImage.String)
		})
	}
}

func seedProduct(t *testing.T, s *memory.Store, slug string) *models.Product {
	t.Helper()
	now := time.Now()
	p := &models.Product{Slug: slug, Name: slug, Price: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func seedVariant(t *testing.T, s *memory.Store, v models.Variant) {
	t.Helper()
	require.NoError(t, s.CreateVariant(context.Background(), &v))
}

func TestRecomputePersistsAggregates(t *testing.T) {
	s := memory.New()
	engine := NewEngine(s, zap.NewNop())
	ctx := context.Background()

	p := seedProduct(t, s, "shirt")
	seedVariant(t, s, models.Variant{ProductID: p.ID, Size: "M", Color: "A", Price: price(10), Stock: 3, IsActive: true, Image: "a.jpg"})
	seedVariant(t, s, models.Variant{ProductID: p.ID, Size: "L", Color: "B", Price: price(8), Stock: 2, IsActive: true})

	require.NoError(t, engine.Recompute(ctx, p.ID))

	got, err := s.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8).Equal(got.Price))
	assert.Equal(t, 5, got.TotalStock)
	assert.True(t, got.IsActive)
	assert.Equal(t, []string{"M", "L"}, got.AvailableSizes)
	require.NotNil(t, got.MainImage)
	assert.Equal(t, "a.jpg", *got.MainImage)

	// Idempotent.
	require.NoError(t, engine.Recompute(ctx, p.ID))
	again, err := s.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(again.Price))
	assert.Equal(t, got.TotalStock, again.TotalStock)
	assert.Equal(t, got.AvailableSizes, again.AvailableSizes)
	assert.Equal(t, got.Images, again.Images)
}

func TestRecomputeWithOnlyInactiveVariants(t *testing.T) {
	s := memory.New()
	engine := NewEngine(s, zap.NewNop())
	ctx := context.Background()

	p := seedProduct(t, s, "shirt")
	require.NoError(t, s.UpdateAggregates(ctx, p.ID, models.ProductAggregates{
		Price: decimal.NewFromInt(50), TotalStock: 9, IsActive: true,
		AvailableSizes: []string{"M"}, Images: []string{"old.jpg"},
	}, time.Now()))
	seedVariant(t, s, models.Variant{ProductID: p.ID, Size: "M", Price: price(10), Stock: 3, IsActive: false})

	require.NoError(t, engine.Recompute(ctx, p.ID))

	got, err := s.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.IsZero())
	assert.Equal(t, 0, got.TotalStock)
	assert.False(t, got.IsActive)
	assert.Empty(t, got.AvailableSizes)
	assert.Empty(t, got.Images)
	assert.Nil(t, got.MainImage)
}

func TestRecomputeMissingProduct(t *testing.T) {
	engine := NewEngine(memory.New(), zap.NewNop())

	err := engine.Recompute(context.Background(), 404)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

// failingRepo fails the aggregate write for one product.
type failingRepo struct {
	*memory.Store
	failFor int64
}

func (r failingRepo) UpdateAggregates(ctx context.Context, id int64, agg models.ProductAggregates, at time.Time) error {
	if id == r.failFor {
		return errors.New("connection reset")
	}
	return r.Store.UpdateAggregates(ctx, id, agg, at)
}

func TestRecomputeAllContinuesAfterFailure(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	seedProduct(t, s, "a")
	b := seedProduct(t, s, "b")
	c := seedProduct(t, s, "c")
	seedVariant(t, s, models.Variant{ProductID: c.ID, Size: "M", Price: price(7), Stock: 1, IsActive: true})

	engine := NewEngine(failingRepo{Store: s, failFor: b.ID}, zap.NewNop())
	result, err := engine.RecomputeAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, b.ID, result.Failed[0].ProductID)

	got, err := s.Product(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7).Equal(got.Price))
}
