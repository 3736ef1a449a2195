package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
)

func (s *Store) CartByUser(ctx context.Context, userID int64) (*models.Cart, error) {
	var c models.Cart
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ?", userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "cart not found")
	}
	return &c, nil
}

// CreateCart relies on the unique user_id key: a concurrent creation makes
// this one fail with a Conflict error.
func (s *Store) CreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)", userID, now, now,
	)
	if err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("cart already exists")
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Cart{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
}

// CartLines joins every line with its product and variant. The LEFT JOINs
// keep lines whose product or variant has been deleted.
func (s *Store) CartLines(ctx context.Context, cartID int64) ([]models.CartLine, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.variant_id, ci.quantity, ci.price, ci.created_at, ci.updated_at,
		       p.id, p.name, p.slug, p.main_image,
		       v.id, v.color, v.size, v.image
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_variants v ON v.id = ci.variant_id
		WHERE ci.cart_id = ?
		ORDER BY ci.id`
	rows, err := s.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var l models.CartLine
		var variantID, productID, joinedVariantID sql.NullInt64
		var name, slug, image, color, size, variantImage sql.NullString

		err := rows.Scan(
			&l.Item.ID, &l.Item.CartID, &l.Item.ProductID, &variantID, &l.Item.Quantity, &l.Item.Price,
			&l.Item.CreatedAt, &l.Item.UpdatedAt,
			&productID, &name, &slug, &image,
			&joinedVariantID, &color, &size, &variantImage,
		)
		if err != nil {
			return nil, err
		}
		l.Item.VariantID = int64Ptr(variantID)
		if productID.Valid {
			l.ProductFound = true
			l.ProductName = name.String
			l.ProductSlug = slug.String
			l.ProductImage = image.String
		}
		if joinedVariantID.Valid {
			l.VariantFound = true
			l.VariantColor = color.String
			l.VariantSize = size.String
			l.VariantImage = variantImage.String
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

const cartItemColumns = `id, cart_id, product_id, variant_id, quantity, price, created_at, updated_at`

func scanCartItem(row scanner) (*models.CartItem, error) {
	var it models.CartItem
	var variantID sql.NullInt64
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &variantID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "cart item not found")
	}
	it.VariantID = int64Ptr(variantID)
	return &it, nil
}

func (s *Store) CartItem(ctx context.Context, cartID, itemID int64) (*models.CartItem, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+cartItemColumns+" FROM cart_items WHERE id = ? AND cart_id = ?", itemID, cartID)
	return scanCartItem(row)
}

// FindCartItem uses the NULL-safe comparison so a nil variant matches the
// variant-less line.
func (s *Store) FindCartItem(ctx context.Context, cartID, productID int64, variantID *int64) (*models.CartItem, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+cartItemColumns+" FROM cart_items WHERE cart_id = ? AND product_id = ? AND variant_id <=> ?",
		cartID, productID, nullInt64(variantID))
	return scanCartItem(row)
}

func (s *Store) InsertCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, variant_id, quantity, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		item.CartID, item.ProductID, nullInt64(item.VariantID), item.Quantity, item.Price, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("cart item already exists")
		}
		return err
	}
	item.ID, err = res.LastInsertId()
	return err
}

func (s *Store) SetCartItemQuantity(ctx context.Context, itemID int64, quantity int, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ?", quantity, at, itemID)
	return err
}

func (s *Store) DeleteCartItem(ctx context.Context, cartID, itemID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = ? AND cart_id = ?", itemID, cartID)
	if err != nil {
		return err
	}
	return requireRows(res, "cart item not found")
}

func (s *Store) ClearCart(ctx context.Context, cartID int64) error {
	return clearCart(ctx, s.db, cartID)
}

func clearCart(ctx context.Context, q Querier, cartID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ?", cartID)
	return err
}
