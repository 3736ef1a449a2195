package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
)

const productColumns = `id, sku, slug, name, description, category, tags, gender, price, total_stock,
	main_image, images, is_active, available_sizes, created_at, updated_at`

const variantColumns = `id, product_id, size, color, price, stock, is_active, image, created_at, updated_at`

var errDuplicateProduct = apperr.Conflict("a product with this slug or sku already exists")
var errDuplicateVariant = apperr.Conflict("this product already has a variant with the same size and color")

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	var sku, mainImage sql.NullString
	var tags, images, sizes []byte

	err := row.Scan(
		&p.ID, &sku, &p.Slug, &p.Name, &p.Description, &p.Category, &tags, &p.Gender, &p.Price, &p.TotalStock,
		&mainImage, &images, &p.IsActive, &sizes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SKU = stringPtr(sku)
	p.MainImage = stringPtr(mainImage)
	if p.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("bad tags for product %d: %w", p.ID, err)
	}
	if p.Images, err = decodeList(images); err != nil {
		return nil, fmt.Errorf("bad images for product %d: %w", p.ID, err)
	}
	if p.AvailableSizes, err = decodeList(sizes); err != nil {
		return nil, fmt.Errorf("bad sizes for product %d: %w", p.ID, err)
	}
	return &p, nil
}

func scanVariant(row scanner) (*models.Variant, error) {
	var v models.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &v.Price, &v.Stock, &v.IsActive, &v.Image, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func queryVariants(ctx context.Context, q Querier, query string, args ...interface{}) ([]models.Variant, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variants := []models.Variant{}
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, *v)
	}
	return variants, rows.Err()
}

// --- aggregation engine ---

func (s *Store) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM products WHERE id = ?", productID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ActiveVariants(ctx context.Context, productID int64) ([]models.Variant, error) {
	return queryVariants(ctx, s.db,
		"SELECT "+variantColumns+" FROM product_variants WHERE product_id = ? AND is_active = TRUE ORDER BY id",
		productID)
}

// UpdateAggregates writes all aggregate fields in one statement so readers
// never observe a half-updated product.
func (s *Store) UpdateAggregates(ctx context.Context, productID int64, agg models.ProductAggregates, at time.Time) error {
	sizes, err := encodeList(agg.AvailableSizes)
	if err != nil {
		return err
	}
	images, err := encodeList(agg.Images)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET price = ?, total_stock = ?, available_sizes = ?, images = ?, is_active = ?, main_image = ?, updated_at = ?
		WHERE id = ?`
	_, err = s.db.ExecContext(ctx, query,
		agg.Price, agg.TotalStock, sizes, images, agg.IsActive, agg.MainImage, at, productID,
	)
	return err
}

func (s *Store) ProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM products ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- products ---

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	tags, err := encodeList(p.Tags)
	if err != nil {
		return err
	}
	images, err := encodeList(p.Images)
	if err != nil {
		return err
	}
	sizes, err := encodeList(p.AvailableSizes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products
		(sku, slug, name, description, category, tags, gender, price, total_stock,
		 main_image, images, is_active, available_sizes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		nullString(p.SKU), p.Slug, p.Name, p.Description, p.Category, tags, p.Gender, p.Price, p.TotalStock,
		nullString(p.MainImage), images, p.IsActive, sizes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return errDuplicateProduct
		}
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdateProductDetails(ctx context.Context, p *models.Product) error {
	tags, err := encodeList(p.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET sku = ?, slug = ?, name = ?, description = ?, category = ?, tags = ?, gender = ?, updated_at = ?
		WHERE id = ?`
	_, err = s.db.ExecContext(ctx, query,
		nullString(p.SKU), p.Slug, p.Name, p.Description, p.Category, tags, p.Gender, p.UpdatedAt, p.ID,
	)
	if isDuplicate(err) {
		return errDuplicateProduct
	}
	return err
}

func (s *Store) DeleteProduct(ctx context.Context, productID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", productID)
	if err != nil {
		return err
	}
	return requireRows(res, "product not found")
}

func (s *Store) Product(ctx context.Context, productID int64) (*models.Product, error) {
	return productByID(ctx, s.db, productID, "")
}

func (s *Store) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE slug = ?", slug)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err, "product not found")
	}
	return p, nil
}

func productByID(ctx context.Context, q Querier, productID int64, suffix string) (*models.Product, error) {
	row := q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?"+suffix, productID)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err, "product not found")
	}
	return p, nil
}

// ListProducts builds the WHERE clause from the filter and returns one page
// ordered newest first, along with the total number of matches.
func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	var where []string
	var args []interface{}

	if filter.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Gender != "" {
		where = append(where, "gender = ?")
		args = append(args, filter.Gender)
	}
	if filter.Size != "" {
		where = append(where, "JSON_CONTAINS(available_sizes, JSON_QUOTE(?))")
		args = append(args, filter.Size)
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, "(name LIKE ? OR description LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	// 1. --- Count ---
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// 2. --- Page ---
	query := "SELECT " + productColumns + " FROM products" + clause + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

// --- variants ---

func (s *Store) Variants(ctx context.Context, productID int64) ([]models.Variant, error) {
	return queryVariants(ctx, s.db,
		"SELECT "+variantColumns+" FROM product_variants WHERE product_id = ? ORDER BY id",
		productID)
}

func (s *Store) Variant(ctx context.Context, variantID int64) (*models.Variant, error) {
	return variantByID(ctx, s.db, variantID, "")
}

func variantByID(ctx context.Context, q Querier, variantID int64, suffix string) (*models.Variant, error) {
	row := q.QueryRowContext(ctx, "SELECT "+variantColumns+" FROM product_variants WHERE id = ?"+suffix, variantID)
	v, err := scanVariant(row)
	if err != nil {
		return nil, notFound(err, "variant not found")
	}
	return v, nil
}

func (s *Store) CreateVariant(ctx context.Context, v *models.Variant) error {
	query := `
		INSERT INTO product_variants
		(product_id, size, color, price, stock, is_active, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		v.ProductID, v.Size, v.Color, v.Price, v.Stock, v.IsActive, v.Image, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		switch {
		case isDuplicate(err):
			return errDuplicateVariant
		case isMissingReference(err):
			return apperr.NotFound("product not found")
		}
		return err
	}
	v.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdateVariant(ctx context.Context, v *models.Variant) error {
	query := `
		UPDATE product_variants
		SET size = ?, color = ?, price = ?, stock = ?, is_active = ?, image = ?, updated_at = ?
		WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query,
		v.Size, v.Color, v.Price, v.Stock, v.IsActive, v.Image, v.UpdatedAt, v.ID,
	)
	if isDuplicate(err) {
		return errDuplicateVariant
	}
	return err
}

func (s *Store) DeleteVariant(ctx context.Context, variantID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM product_variants WHERE id = ?", variantID)
	if err != nil {
		return err
	}
	return requireRows(res, "variant not found")
}
