package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
)

var errDuplicateProduct = apperr.Conflict("a product with this slug or sku already exists")
var errDuplicateVariant = apperr.Conflict("this product already has a variant with the same size and color")

func (s *Store) ProductExists(_ context.Context, productID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.products[productID]
	return ok, nil
}

func (s *Store) ActiveVariants(_ context.Context, productID int64) ([]models.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variantsOf(productID, true), nil
}

func (s *Store) UpdateAggregates(_ context.Context, productID int64, agg models.ProductAggregates, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return apperr.NotFound("product not found")
	}
	p.Price = agg.Price
	p.TotalStock = agg.TotalStock
	p.AvailableSizes = copyStrings(agg.AvailableSizes)
	p.Images = copyStrings(agg.Images)
	p.IsActive = agg.IsActive
	p.MainImage = nil
	if agg.MainImage.Valid {
		main := agg.MainImage.String
		p.MainImage = &main
	}
	p.UpdatedAt = at
	return nil
}

func (s *Store) ProductIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.productClashes(p, 0) {
		return errDuplicateProduct
	}
	p.ID = s.nextID("products")
	s.products[p.ID] = copyProduct(p)
	return nil
}

func (s *Store) UpdateProductDetails(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.products[p.ID]
	if !ok {
		return apperr.NotFound("product not found")
	}
	if s.productClashes(p, p.ID) {
		return errDuplicateProduct
	}
	stored.SKU = copyString(p.SKU)
	stored.Slug = p.Slug
	stored.Name = p.Name
	stored.Description = p.Description
	stored.Category = p.Category
	stored.Tags = copyStrings(p.Tags)
	stored.Gender = p.Gender
	stored.UpdatedAt = p.UpdatedAt
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return apperr.NotFound("product not found")
	}
	delete(s.products, productID)
	for id, v := range s.variants {
		if v.ProductID == productID {
			delete(s.variants, id)
		}
	}
	return nil
}

func (s *Store) Product(_ context.Context, productID int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.product(productID)
}

func (s *Store) ProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.Slug == slug {
			return copyProduct(p), nil
		}
	}
	return nil, apperr.NotFound("product not found")
}

func (s *Store) ListProducts(_ context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Product
	for _, p := range s.products {
		if matchesProduct(p, filter) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	page := make([]models.Product, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, *copyProduct(p))
	}
	return page, total, nil
}

func (s *Store) Variants(_ context.Context, productID int64) ([]models.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variantsOf(productID, false), nil
}

func (s *Store) Variant(_ context.Context, variantID int64) (*models.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variant(variantID)
}

func (s *Store) CreateVariant(_ context.Context, v *models.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[v.ProductID]; !ok {
		return apperr.NotFound("product not found")
	}
	if s.variantClashes(v) {
		return errDuplicateVariant
	}
	v.ID = s.nextID("variants")
	c := *v
	s.variants[v.ID] = &c
	return nil
}

func (s *Store) UpdateVariant(_ context.Context, v *models.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.variants[v.ID]; !ok {
		return apperr.NotFound("variant not found")
	}
	if s.variantClashes(v) {
		return errDuplicateVariant
	}
	c := *v
	s.variants[v.ID] = &c
	return nil
}

func (s *Store) DeleteVariant(_ context.Context, variantID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.variants[variantID]; !ok {
		return apperr.NotFound("variant not found")
	}
	delete(s.variants, variantID)
	return nil
}

// --- lock held helpers ---

func (s *Store) product(productID int64) (*models.Product, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, apperr.NotFound("product not found")
	}
	return copyProduct(p), nil
}

func (s *Store) variant(variantID int64) (*models.Variant, error) {
	v, ok := s.variants[variantID]
	if !ok {
		return nil, apperr.NotFound("variant not found")
	}
	c := *v
	return &c, nil
}

func (s *Store) variantsOf(productID int64, activeOnly bool) []models.Variant {
	out := []models.Variant{}
	for _, v := range s.variants {
		if v.ProductID != productID || (activeOnly && !v.IsActive) {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) productClashes(p *models.Product, selfID int64) bool {
	for id, other := range s.products {
		if id == selfID {
			continue
		}
		if other.Slug == p.Slug {
			return true
		}
		if p.SKU != nil && other.SKU != nil && *other.SKU == *p.SKU {
			return true
		}
	}
	return false
}

func (s *Store) variantClashes(v *models.Variant) bool {
	for id, other := range s.variants {
		if id != v.ID && other.ProductID == v.ProductID && other.Size == v.Size && other.Color == v.Color {
			return true
		}
	}
	return false
}

func matchesProduct(p *models.Product, f models.ProductFilter) bool {
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Gender != "" && p.Gender != f.Gender {
		return false
	}
	if f.Size != "" && !contains(p.AvailableSizes, f.Size) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
