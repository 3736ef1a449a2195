package memory

import (
	"context"
	"sort"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
)

var errOrderNotFound = apperr.NotFound("order not found")

func (s *Store) Order(_ context.Context, orderID int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order(orderID)
}

func (s *Store) OrderForUser(_ context.Context, userID, orderID int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, errOrderNotFound
	}
	return copyOrder(o), nil
}

func (s *Store) OrdersByUser(_ context.Context, userID int64) ([]models.Order, error) {
	orders, _, err := s.ListOrders(context.Background(), models.OrderFilter{UserID: userID})
	return orders, err
}

func (s *Store) ListOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Order
	for _, o := range s.orders {
		if filter.UserID != 0 && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, o)
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

	page := make([]models.Order, 0, end-start)
	for _, o := range matched[start:end] {
		c := copyOrder(o)
		c.Items = nil
		page = append(page, *c)
	}
	return page, total, nil
}

func (s *Store) OrderByAuthority(_ context.Context, authority string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.PaymentAuthority != nil && *o.PaymentAuthority == authority {
			return copyOrder(o), nil
		}
	}
	return nil, errOrderNotFound
}

func (s *Store) SetPaymentAuthority(_ context.Context, orderID int64, authority string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return errOrderNotFound
	}
	o.PaymentAuthority = &authority
	o.PaymentStatus = models.PaymentPending
	o.UpdatedAt = at
	return nil
}

func (s *Store) MarkPaymentFailed(_ context.Context, orderID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return errOrderNotFound
	}
	o.PaymentStatus = models.PaymentFailed
	o.UpdatedAt = at
	return nil
}

func (s *Store) order(orderID int64) (*models.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, errOrderNotFound
	}
	return copyOrder(o), nil
}

// --- transaction ---

func (t *tx) ProductForUpdate(_ context.Context, productID int64) (*models.Product, error) {
	return t.s.product(productID)
}

func (t *tx) HasVariants(_ context.Context, productID int64) (bool, error) {
	for _, v := range t.s.variants {
		if v.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) VariantForUpdate(_ context.Context, variantID int64) (*models.Variant, error) {
	return t.s.variant(variantID)
}

func (t *tx) AdjustProductStock(_ context.Context, productID int64, delta int) error {
	p, ok := t.s.products[productID]
	if !ok {
		return apperr.NotFound("product not found")
	}
	p.TotalStock += delta
	p.UpdatedAt = time.Now()
	return nil
}

func (t *tx) AdjustVariantStock(_ context.Context, variantID int64, delta int) error {
	v, ok := t.s.variants[variantID]
	if !ok {
		return apperr.NotFound("variant not found")
	}
	v.Stock += delta
	v.UpdatedAt = time.Now()
	return nil
}

func (t *tx) CreateOrder(_ context.Context, o *models.Order) error {
	for _, existing := range t.s.orders {
		if existing.TrackingCode == o.TrackingCode {
			return apperr.Conflict("tracking code already in use")
		}
	}
	o.ID = t.s.nextID("orders")
	for i := range o.Items {
		o.Items[i].ID = t.s.nextID("order_items")
		o.Items[i].OrderID = o.ID
	}
	t.s.orders[o.ID] = copyOrder(o)
	return nil
}

func (t *tx) OrderForUpdate(_ context.Context, orderID int64) (*models.Order, error) {
	return t.s.order(orderID)
}

func (t *tx) UpdateOrderStatus(_ context.Context, orderID int64, status models.OrderStatus, at time.Time) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return errOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	return nil
}

func (t *tx) MarkPaid(_ context.Context, orderID int64, refID string, at time.Time) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return errOrderNotFound
	}
	o.Status = models.OrderPaid
	o.PaymentStatus = models.PaymentPaid
	o.PaymentRefID = &refID
	paidAt := at
	o.PaidAt = &paidAt
	o.UpdatedAt = at
	return nil
}

func (t *tx) DeleteCartItems(_ context.Context, cartID int64, itemIDs []int64) error {
	for _, id := range itemIDs {
		if it, ok := t.s.cartItems[id]; ok && it.CartID == cartID {
			delete(t.s.cartItems, id)
		}
	}
	return nil
}
