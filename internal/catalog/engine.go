// Package catalog owns products and variants and keeps the product aggregate
// fields in line with the active variants.
package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository is the storage the aggregation engine works against.
type Repository interface {
	ProductExists(ctx context.Context, productID int64) (bool, error)
	ActiveVariants(ctx context.Context, productID int64) ([]models.Variant, error)
	// UpdateAggregates writes every aggregate field and updated_at in a single statement.
	UpdateAggregates(ctx context.Context, productID int64, agg models.ProductAggregates, at time.Time) error
	ProductIDs(ctx context.Context) ([]int64, error)
}

// Engine recomputes product aggregates from active variants.
type Engine struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewEngine(repo Repository, log *zap.Logger) *Engine {
	return &Engine{repo: repo, log: log, now: time.Now}
}

// Recompute derives price, total stock, sizes, images, main image and the
// active flag of a product from its active variants and persists them
// together. It is idempotent.
func (e *Engine) Recompute(ctx context.Context, productID int64) error {
	exists, err := e.repo.ProductExists(ctx, productID)
	if err != nil {
		return apperr.Wrap(err, "failed to load product")
	}
	if !exists {
		return apperr.NotFoundf("product %d not found", productID)
	}

	variants, err := e.repo.ActiveVariants(ctx, productID)
	if err != nil {
		return apperr.Wrap(err, "failed to load variants")
	}

	agg := Aggregate(variants)
	if err := e.repo.UpdateAggregates(ctx, productID, agg, e.now()); err != nil {
		return apperr.Wrap(err, "failed to update product aggregates")
	}

	e.log.Debug("product aggregates recomputed",
		zap.Int64("product_id", productID),
		zap.Int("active_variants", len(variants)),
		zap.String("price", agg.Price.String()),
		zap.Int("total_stock", agg.TotalStock),
	)
	return nil
}

// BatchFailure records a product whose recompute failed during RecomputeAll.
type BatchFailure struct {
	ProductID int64  `json:"productId"`
	Error     string `json:"error"`
}

// BatchResult summarises a RecomputeAll run.
type BatchResult struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// RecomputeAll recomputes every product. A failing product is recorded and
// skipped; only a failure to list the products aborts the run.
func (e *Engine) RecomputeAll(ctx context.Context) (BatchResult, error) {
	result := BatchResult{Failed: []BatchFailure{}}

	ids, err := e.repo.ProductIDs(ctx)
	if err != nil {
		return result, apperr.Wrap(err, "failed to list products")
	}

	for _, id := range ids {
		result.Processed++
		if err := e.Recompute(ctx, id); err != nil {
			e.log.Warn("recompute failed", zap.Int64("product_id", id), zap.Error(err))
			result.Failed = append(result.Failed, BatchFailure{ProductID: id, Error: err.Error()})
			continue
		}
		result.Succeeded++
	}

	e.log.Info("batch recompute finished",
		zap.Int("processed", result.Processed),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// Aggregate computes the aggregate fields for a set of variants. Inactive
// variants are ignored.
func Aggregate(variants []models.Variant) models.ProductAggregates {
	agg := models.ProductAggregates{
		Price:          decimal.Zero,
		AvailableSizes: []string{},
		Images:         []string{},
	}

	var minPrice *decimal.Decimal
	seenSizes := make(map[string]bool)
	seenImages := make(map[string]bool)

	for _, v := range variants {
		if !v.IsActive {
			continue
		}
		agg.IsActive = true
		agg.TotalStock += v.Stock

		if v.Price.Valid && (minPrice == nil || v.Price.Decimal.LessThan(*minPrice)) {
			p := v.Price.Decimal
			minPrice = &p
		}
		if v.Size != "" && !seenSizes[v.Size] {
			seenSizes[v.Size] = true
			agg.AvailableSizes = append(agg.AvailableSizes, v.Size)
		}
		if v.Image != "" && !seenImages[v.Image] {
			seenImages[v.Image] = true
			agg.Images = append(agg.Images, v.Image)
		}
	}

	// No price override among the active variants leaves the price at zero.
	if minPrice != nil {
		agg.Price = *minPrice
	}
	if len(agg.Images) > 0 {
		agg.MainImage = sql.NullString{String: agg.Images[0], Valid: true}
	}
	return agg
}
