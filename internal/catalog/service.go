package catalog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the catalog persistence used by the admin and storefront routes.
type Store interface {
	Repository

	CreateProduct(ctx context.Context, p *models.Product) error
	// UpdateProductDetails writes the descriptive columns only, never the aggregates.
	UpdateProductDetails(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, productID int64) error
	Product(ctx context.Context, productID int64) (*models.Product, error)
	ProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error)

	Variants(ctx context.Context, productID int64) ([]models.Variant, error)
	Variant(ctx context.Context, variantID int64) (*models.Variant, error)
	CreateVariant(ctx context.Context, v *models.Variant) error
	UpdateVariant(ctx context.Context, v *models.Variant) error
	DeleteVariant(ctx context.Context, variantID int64) error
}

// Revalidator invalidates storefront caches. It never fails the caller.
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

// Service implements product and variant management. Every variant mutation
// is followed by a synchronous Recompute of the owning product.
type Service struct {
	store  Store
	engine *Engine
	reval  Revalidator
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, engine *Engine, reval Revalidator, log *zap.Logger) *Service {
	return &Service{store: store, engine: engine, reval: reval, log: log, now: time.Now}
}

// --- Inputs ---

// ProductInput creates a product. Price, Stock, IsActive and Images are the
// base values of a product sold without variants.
type ProductInput struct {
	Name        string           `json:"name" binding:"required,max=200"`
	Slug        string           `json:"slug" binding:"omitempty,max=200"`
	SKU         *string          `json:"sku" binding:"omitempty,max=64"`
	Description string           `json:"description"`
	Category    string           `json:"category" binding:"max=100"`
	Tags        []string         `json:"tags"`
	Gender      string           `json:"gender" binding:"omitempty,oneof=men women unisex kids"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" binding:"omitempty,gte=0"`
	IsActive    *bool            `json:"isActive"`
	Images      []string         `json:"images"`
}

// ProductUpdate patches a product. Nil fields are left alone.
type ProductUpdate struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Slug        *string          `json:"slug" binding:"omitempty,min=1,max=200"`
	SKU         *string          `json:"sku" binding:"omitempty,max=64"`
	Description *string          `json:"description"`
	Category    *string          `json:"category" binding:"omitempty,max=100"`
	Tags        *[]string        `json:"tags"`
	Gender      *string          `json:"gender" binding:"omitempty,oneof=men women unisex kids"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" binding:"omitempty,gte=0"`
	IsActive    *bool            `json:"isActive"`
	Images      *[]string        `json:"images"`
}

func (u ProductUpdate) touchesBasePricing() bool {
	return u.Price != nil || u.Stock != nil || u.IsActive != nil || u.Images != nil
}

// VariantInput creates a variant. A nil Price means the variant has no override.
type VariantInput struct {
	Size     string           `json:"size" binding:"max=50"`
	Color    string           `json:"color" binding:"max=50"`
	Price    *decimal.Decimal `json:"price"`
	Stock    int              `json:"stock" binding:"gte=0"`
	IsActive *bool            `json:"isActive"`
	Image    string           `json:"image"`
}

// VariantUpdate patches a variant. ClearPrice removes the price override.
type VariantUpdate struct {
	Size       *string          `json:"size" binding:"omitempty,max=50"`
	Color      *string          `json:"color" binding:"omitempty,max=50"`
	Price      *decimal.Decimal `json:"price"`
	ClearPrice bool             `json:"clearPrice"`
	Stock      *int             `json:"stock" binding:"omitempty,gte=0"`
	IsActive   *bool            `json:"isActive"`
	Image      *string          `json:"image"`
}

// --- Products ---

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	productSlug := makeSlug(in.Slug, name)
	if productSlug == "" {
		return nil, apperr.Validation("slug could not be derived from the name")
	}
	if in.Price != nil && in.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}

	now := s.now()
	p := &models.Product{
		SKU:            normalizeSKU(in.SKU),
		Slug:           productSlug,
		Name:           name,
		Description:    in.Description,
		Category:       strings.TrimSpace(in.Category),
		Tags:           cleanList(in.Tags),
		Gender:         in.Gender,
		Price:          decimal.Zero,
		Images:         cleanList(in.Images),
		AvailableSizes: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.TotalStock = *in.Stock
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if len(p.Images) > 0 {
		main := p.Images[0]
		p.MainImage = &main
	}

	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, apperr.Wrap(err, "failed to create product")
	}

	s.log.Info("product created", zap.Int64("product_id", p.ID), zap.String("slug", p.Slug))
	s.reval.Revalidate(ctx, productPaths(p.Slug)...)
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID int64, upd ProductUpdate) (*models.Product, error) {
	p, err := s.store.Product(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load product")
	}
	oldSlug := p.Slug

	// 1. --- Base pricing is only writable while the product has no variants ---
	if upd.touchesBasePricing() {
		variants, err := s.store.Variants(ctx, productID)
		if err != nil {
			return nil, apperr.Wrap(err, "failed to load variants")
		}
		if len(variants) > 0 {
			return nil, apperr.Validation("price, stock, images and active state are derived from the variants of this product")
		}
		if upd.Price != nil && upd.Price.IsNegative() {
			return nil, apperr.Validation("price must not be negative")
		}
	}

	// 2. --- Descriptive fields ---
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		p.Name = name
	}
	if upd.Slug != nil {
		p.Slug = makeSlug(*upd.Slug, p.Name)
		if p.Slug == "" {
			return nil, apperr.Validation("invalid slug")
		}
	}
	if upd.SKU != nil {
		p.SKU = normalizeSKU(upd.SKU)
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Category != nil {
		p.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.Tags != nil {
		p.Tags = cleanList(*upd.Tags)
	}
	if upd.Gender != nil {
		p.Gender = *upd.Gender
	}
	p.UpdatedAt = s.now()

	if err := s.store.UpdateProductDetails(ctx, p); err != nil {
		return nil, apperr.Wrap(err, "failed to update product")
	}

	// 3. --- Base pricing for variant-less products ---
	if upd.touchesBasePricing() {
		agg := models.ProductAggregates{
			Price:          p.Price,
			TotalStock:     p.TotalStock,
			AvailableSizes: []string{},
			Images:         p.Images,
			IsActive:       p.IsActive,
		}
		if upd.Price != nil {
			agg.Price = *upd.Price
		}
		if upd.Stock != nil {
			agg.TotalStock = *upd.Stock
		}
		if upd.IsActive != nil {
			agg.IsActive = *upd.IsActive
		}
		if upd.Images != nil {
			agg.Images = cleanList(*upd.Images)
		}
		if len(agg.Images) > 0 {
			agg.MainImage = sql.NullString{String: agg.Images[0], Valid: true}
		}
		if err := s.store.UpdateAggregates(ctx, productID, agg, p.UpdatedAt); err != nil {
			return nil, apperr.Wrap(err, "failed to update product pricing")
		}
	}

	s.revalidateProduct(ctx, oldSlug, p.Slug)
	return s.store.Product(ctx, productID)
}

func (s *Service) DeleteProduct(ctx context.Context, productID int64) error {
	p, err := s.store.Product(ctx, productID)
	if err != nil {
		return apperr.Wrap(err, "failed to load product")
	}
	if err := s.store.DeleteProduct(ctx, productID); err != nil {
		return apperr.Wrap(err, "failed to delete product")
	}
	s.log.Info("product deleted", zap.Int64("product_id", productID))
	s.reval.Revalidate(ctx, productPaths(p.Slug)...)
	return nil
}

// Product returns a product with all of its variants (admin view).
func (s *Service) Product(ctx context.Context, productID int64) (*models.Product, error) {
	p, err := s.store.Product(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load product")
	}
	variants, err := s.store.Variants(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load variants")
	}
	p.Variants = variants
	return p, nil
}

// PublicProduct returns an active product by slug with its active variants.
func (s *Service) PublicProduct(ctx context.Context, productSlug string) (*models.Product, error) {
	p, err := s.store.ProductBySlug(ctx, productSlug)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load product")
	}
	if !p.IsActive {
		return nil, apperr.NotFound("product not found")
	}
	variants, err := s.store.ActiveVariants(ctx, p.ID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load variants")
	}
	p.Variants = variants
	return p, nil
}

// ListProducts returns one page of products and the total match count.
func (s *Service) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	products, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to list products")
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, total, nil
}

// --- Variants ---

func (s *Service) CreateVariant(ctx context.Context, productID int64, in VariantInput) (*models.Variant, error) {
	p, err := s.store.Product(ctx, productID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load product")
	}
	if in.Stock < 0 {
		return nil, apperr.Validation("stock must not be negative")
	}
	if in.Price != nil && in.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}

	now := s.now()
	v := &models.Variant{
		ProductID: productID,
		Size:      strings.TrimSpace(in.Size),
		Color:     strings.TrimSpace(in.Color),
		Stock:     in.Stock,
		IsActive:  true,
		Image:     strings.TrimSpace(in.Image),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Price != nil {
		v.Price = decimal.NewNullDecimal(*in.Price)
	}
	if in.IsActive != nil {
		v.IsActive = *in.IsActive
	}

	if err := s.store.CreateVariant(ctx, v); err != nil {
		return nil, apperr.Wrap(err, "failed to create variant")
	}
	if err := s.afterVariantChange(ctx, p); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) UpdateVariant(ctx context.Context, productID, variantID int64, upd VariantUpdate) (*models.Variant, error) {
	p, v, err := s.loadVariant(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}

	if upd.Size != nil {
		v.Size = strings.TrimSpace(*upd.Size)
	}
	if upd.Color != nil {
		v.Color = strings.TrimSpace(*upd.Color)
	}
	switch {
	case upd.ClearPrice:
		v.Price = decimal.NullDecimal{}
	case upd.Price != nil:
		if upd.Price.IsNegative() {
			return nil, apperr.Validation("price must not be negative")
		}
		v.Price = decimal.NewNullDecimal(*upd.Price)
	}
	if upd.Stock != nil {
		if *upd.Stock < 0 {
			return nil, apperr.Validation("stock must not be negative")
		}
		v.Stock = *upd.Stock
	}
	if upd.IsActive != nil {
		v.IsActive = *upd.IsActive
	}
	if upd.Image != nil {
		v.Image = strings.TrimSpace(*upd.Image)
	}
	v.UpdatedAt = s.now()

	if err := s.store.UpdateVariant(ctx, v); err != nil {
		return nil, apperr.Wrap(err, "failed to update variant")
	}
	if err := s.afterVariantChange(ctx, p); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) DeleteVariant(ctx context.Context, productID, variantID int64) error {
	p, _, err := s.loadVariant(ctx, productID, variantID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteVariant(ctx, variantID); err != nil {
		return apperr.Wrap(err, "failed to delete variant")
	}
	return s.afterVariantChange(ctx, p)
}

// Recompute recomputes one product and revalidates its storefront pages.
func (s *Service) Recompute(ctx context.Context, productID int64) error {
	p, err := s.store.Product(ctx, productID)
	if err != nil {
		return apperr.Wrap(err, "failed to load product")
	}
	return s.afterVariantChange(ctx, p)
}

// RecomputeAll runs the batch recompute and revalidates the listings once.
func (s *Service) RecomputeAll(ctx context.Context) (BatchResult, error) {
	result, err := s.engine.RecomputeAll(ctx)
	if err != nil {
		return result, err
	}
	s.reval.Revalidate(ctx, "/", "/products")
	return result, nil
}

func (s *Service) loadVariant(ctx context.Context, productID, variantID int64) (*models.Product, *models.Variant, error) {
	p, err := s.store.Product(ctx, productID)
	if err != nil {
		return nil, nil, apperr.Wrap(err, "failed to load product")
	}
	v, err := s.store.Variant(ctx, variantID)
	if err != nil {
		return nil, nil, apperr.Wrap(err, "failed to load variant")
	}
	if v.ProductID != productID {
		return nil, nil, apperr.NotFound("variant not found")
	}
	return p, v, nil
}

func (s *Service) afterVariantChange(ctx context.Context, p *models.Product) error {
	if err := s.engine.Recompute(ctx, p.ID); err != nil {
		return err
	}
	s.reval.Revalidate(ctx, productPaths(p.Slug)...)
	return nil
}

func (s *Service) revalidateProduct(ctx context.Context, oldSlug, newSlug string) {
	paths := productPaths(newSlug)
	if oldSlug != newSlug {
		paths = append(paths, "/products/"+oldSlug)
	}
	s.reval.Revalidate(ctx, paths...)
}

func productPaths(productSlug string) []string {
	return []string{"/", "/products", "/products/" + productSlug}
}

func makeSlug(explicit, name string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return slug.Make(s)
	}
	return slug.Make(name)
}

func normalizeSKU(sku *string) *string {
	if sku == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*sku)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// cleanList trims, drops empty entries and removes duplicates, keeping the
// first occurrence.
func cleanList(in []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
