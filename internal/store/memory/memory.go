// Package memory is an in-process implementation of the storefront
// persistence, used when STORAGE=memory and by the tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/01moynul/storefront-api/internal/models"
	"github.com/01moynul/storefront-api/internal/order"
)

// Store keeps every table in maps guarded by one mutex. Values are copied
// on the way in and out so callers never share memory with the store.
type Store struct {
	mu  sync.Mutex
	seq map[string]int64

	products  map[int64]*models.Product
	variants  map[int64]*models.Variant
	carts     map[int64]*models.Cart
	cartItems map[int64]*models.CartItem
	orders    map[int64]*models.Order
	users     map[int64]*models.User
	admins    map[int64]*models.Admin
	otps      map[int64]*models.OTPCode
}

func New() *Store {
	return &Store{
		seq:       make(map[string]int64),
		products:  make(map[int64]*models.Product),
		variants:  make(map[int64]*models.Variant),
		carts:     make(map[int64]*models.Cart),
		cartItems: make(map[int64]*models.CartItem),
		orders:    make(map[int64]*models.Order),
		users:     make(map[int64]*models.User),
		admins:    make(map[int64]*models.Admin),
		otps:      make(map[int64]*models.OTPCode),
	}
}

func (s *Store) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// snapshot holds the tables a transaction may write.
type snapshot struct {
	products  map[int64]*models.Product
	variants  map[int64]*models.Variant
	cartItems map[int64]*models.CartItem
	orders    map[int64]*models.Order
	seq       map[string]int64
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		products:  make(map[int64]*models.Product, len(s.products)),
		variants:  make(map[int64]*models.Variant, len(s.variants)),
		cartItems: make(map[int64]*models.CartItem, len(s.cartItems)),
		orders:    make(map[int64]*models.Order, len(s.orders)),
		seq:       make(map[string]int64, len(s.seq)),
	}
	for id, p := range s.products {
		snap.products[id] = copyProduct(p)
	}
	for id, v := range s.variants {
		c := *v
		snap.variants[id] = &c
	}
	for id, it := range s.cartItems {
		snap.cartItems[id] = copyCartItem(it)
	}
	for id, o := range s.orders {
		snap.orders[id] = copyOrder(o)
	}
	for k, v := range s.seq {
		snap.seq[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.variants = snap.variants
	s.cartItems = snap.cartItems
	s.orders = snap.orders
	s.seq = snap.seq
}

// InTx runs fn with exclusive access to the store. Every change fn made is
// undone when it returns an error.
func (s *Store) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.snapshot()
	if err := fn(&tx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// tx runs with s.mu held.
type tx struct {
	s *Store
}

func copyProduct(p *models.Product) *models.Product {
	c := *p
	c.SKU = copyString(p.SKU)
	c.MainImage = copyString(p.MainImage)
	c.Tags = copyStrings(p.Tags)
	c.Images = copyStrings(p.Images)
	c.AvailableSizes = copyStrings(p.AvailableSizes)
	c.Variants = nil
	return &c
}

func copyCartItem(it *models.CartItem) *models.CartItem {
	c := *it
	c.VariantID = copyInt64(it.VariantID)
	return &c
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.PaymentAuthority = copyString(o.PaymentAuthority)
	c.PaymentRefID = copyString(o.PaymentRefID)
	c.PaidAt = copyTime(o.PaidAt)
	c.Items = make([]models.OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.VariantID = copyInt64(item.VariantID)
		c.Items[i] = item
	}
	return &c
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
