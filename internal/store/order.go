package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/order"
)

const orderColumns = `id, user_id, tracking_code, status, total, address, note, payment_status,
	payment_authority, payment_ref_id, paid_at, created_at, updated_at`

const orderNotFound = "order not found"

func scanOrder(row scanner) (*models.Order, error) {
	var o models.Order
	var status, paymentStatus string
	var authority, refID sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.UserID, &o.TrackingCode, &status, &o.Total, &o.Address, &o.Note, &paymentStatus,
		&authority, &refID, &paidAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	o.PaymentStatus = models.PaymentStatus(paymentStatus)
	o.PaymentAuthority = stringPtr(authority)
	o.PaymentRefID = stringPtr(refID)
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	return &o, nil
}

func loadOrderItems(ctx context.Context, q Querier, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant_id, product_name, variant_name, price, quantity
		FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		var variantID sql.NullInt64
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &variantID, &it.ProductName, &it.VariantName, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		it.VariantID = int64Ptr(variantID)
		items = append(items, it)
	}
	return items, rows.Err()
}

// orderWhere loads one order and its items.
func orderWhere(ctx context.Context, q Querier, clause string, args ...interface{}) (*models.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE "+clause, args...))
	if err != nil {
		return nil, notFound(err, orderNotFound)
	}
	if o.Items, err = loadOrderItems(ctx, q, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) Order(ctx context.Context, orderID int64) (*models.Order, error) {
	return orderWhere(ctx, s.db, "id = ?", orderID)
}

func (s *Store) OrderForUser(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	return orderWhere(ctx, s.db, "id = ? AND user_id = ?", orderID, userID)
}

func (s *Store) OrderByAuthority(ctx context.Context, authority string) (*models.Order, error) {
	return orderWhere(ctx, s.db, "payment_authority = ?", authority)
}

func (s *Store) OrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, _, err := s.ListOrders(ctx, models.OrderFilter{UserID: userID})
	return orders, err
}

// ListOrders returns order headers without items. A zero Limit returns every match.
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	var where []string
	var args []interface{}
	if filter.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + orderColumns + " FROM orders" + clause + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

func (s *Store) SetPaymentAuthority(ctx context.Context, orderID int64, authority string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_authority = ?, payment_status = ?, updated_at = ? WHERE id = ?",
		authority, string(models.PaymentPending), at, orderID)
	if err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("payment authority already in use")
		}
		return err
	}
	return requireRows(res, orderNotFound)
}

func (s *Store) MarkPaymentFailed(ctx context.Context, orderID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?",
		string(models.PaymentFailed), at, orderID)
	return err
}

// InTx begins a transaction, passes it to fn and commits. It rolls back if
// fn returns an error.
func (s *Store) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // no-op after Commit

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	return productByID(ctx, t.tx, productID, " FOR UPDATE")
}

func (t *sqlTx) HasVariants(ctx context.Context, productID int64) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM product_variants WHERE product_id = ? FOR UPDATE", productID).Scan(&n)
	return n > 0, err
}

func (t *sqlTx) VariantForUpdate(ctx context.Context, variantID int64) (*models.Variant, error) {
	return variantByID(ctx, t.tx, variantID, " FOR UPDATE")
}

func (t *sqlTx) AdjustProductStock(ctx context.Context, productID int64, delta int) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET total_stock = total_stock + ?, updated_at = ? WHERE id = ?", delta, time.Now(), productID)
	if err != nil {
		return err
	}
	return requireRows(res, "product not found")
}

func (t *sqlTx) AdjustVariantStock(ctx context.Context, variantID int64, delta int) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE product_variants SET stock = stock + ?, updated_at = ? WHERE id = ?", delta, time.Now(), variantID)
	if err != nil {
		return err
	}
	return requireRows(res, "variant not found")
}

func (t *sqlTx) CreateOrder(ctx context.Context, o *models.Order) error {
	// 1. --- Order header ---
	query := `
		INSERT INTO orders
		(user_id, tracking_code, status, total, address, note, payment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, query,
		o.UserID, o.TrackingCode, string(o.Status), o.Total, o.Address, o.Note, string(o.PaymentStatus), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("tracking code already in use")
		}
		return err
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	// 2. --- Item snapshots ---
	itemQuery := `
		INSERT INTO order_items (order_id, product_id, variant_id, product_name, variant_name, price, quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		res, err := t.tx.ExecContext(ctx, itemQuery,
			it.OrderID, it.ProductID, nullInt64(it.VariantID), it.ProductName, it.VariantName, it.Price, it.Quantity,
		)
		if err != nil {
			return err
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) OrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	return orderWhere(ctx, t.tx, "id = ? FOR UPDATE", orderID)
}

func (t *sqlTx) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ?", string(status), at, orderID)
	return err
}

func (t *sqlTx) MarkPaid(ctx context.Context, orderID int64, refID string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_status = ?, payment_ref_id = ?, paid_at = ?, updated_at = ?
		WHERE id = ?`,
		string(models.OrderPaid), string(models.PaymentPaid), refID, at, at, orderID)
	return err
}

func (t *sqlTx) DeleteCartItems(ctx context.Context, cartID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	query := "DELETE FROM cart_items WHERE cart_id = ? AND id IN (?" + strings.Repeat(", ?", len(itemIDs)-1) + ")"
	args := make([]interface{}, 0, len(itemIDs)+1)
	args = append(args, cartID)
	for _, id := range itemIDs {
		args = append(args, id)
	}
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}
