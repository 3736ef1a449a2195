package memory

import (
	"context"
	"sort"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
)

func (s *Store) CartByUser(_ context.Context, userID int64) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.carts {
		if c.UserID == userID {
			cart := *c
			return &cart, nil
		}
	}
	return nil, apperr.NotFound("cart not found")
}

func (s *Store) CreateCart(_ context.Context, userID int64) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.carts {
		if c.UserID == userID {
			return nil, apperr.Conflict("cart already exists")
		}
	}
	now := time.Now()
	cart := &models.Cart{ID: s.nextID("carts"), UserID: userID, CreatedAt: now, UpdatedAt: now}
	s.carts[cart.ID] = cart
	c := *cart
	return &c, nil
}

func (s *Store) CartLines(_ context.Context, cartID int64) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := []models.CartLine{}
	for _, it := range s.cartItems {
		if it.CartID != cartID {
			continue
		}
		line := models.CartLine{Item: *copyCartItem(it)}
		if p, ok := s.products[it.ProductID]; ok {
			line.ProductFound = true
			line.ProductName = p.Name
			line.ProductSlug = p.Slug
			if p.MainImage != nil {
				line.ProductImage = *p.MainImage
			}
		}
		if it.VariantID != nil {
			if v, ok := s.variants[*it.VariantID]; ok {
				line.VariantFound = true
				line.VariantColor = v.Color
				line.VariantSize = v.Size
				line.VariantImage = v.Image
			}
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Item.ID < lines[j].Item.ID })
	return lines, nil
}

func (s *Store) CartItem(_ context.Context, cartID, itemID int64) (*models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.cartItems[itemID]
	if !ok || it.CartID != cartID {
		return nil, apperr.NotFound("cart item not found")
	}
	return copyCartItem(it), nil
}

func (s *Store) FindCartItem(_ context.Context, cartID, productID int64, variantID *int64) (*models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if it := s.findCartItem(cartID, productID, variantID); it != nil {
		return copyCartItem(it), nil
	}
	return nil, apperr.NotFound("cart item not found")
}

func (s *Store) InsertCartItem(_ context.Context, item *models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findCartItem(item.CartID, item.ProductID, item.VariantID) != nil {
		return apperr.Conflict("cart item already exists")
	}
	item.ID = s.nextID("cart_items")
	s.cartItems[item.ID] = copyCartItem(item)
	return nil
}

func (s *Store) SetCartItemQuantity(_ context.Context, itemID int64, quantity int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.cartItems[itemID]
	if !ok {
		return apperr.NotFound("cart item not found")
	}
	it.Quantity = quantity
	it.UpdatedAt = at
	return nil
}

func (s *Store) DeleteCartItem(_ context.Context, cartID, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.cartItems[itemID]
	if !ok || it.CartID != cartID {
		return apperr.NotFound("cart item not found")
	}
	delete(s.cartItems, itemID)
	return nil
}

func (s *Store) ClearCart(_ context.Context, cartID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCart(cartID)
	return nil
}

func (s *Store) clearCart(cartID int64) {
	for id, it := range s.cartItems {
		if it.CartID == cartID {
			delete(s.cartItems, id)
		}
	}
}

// findCartItem treats a nil variant as its own key, like the variant_key
// column of the MySQL schema.
func (s *Store) findCartItem(cartID, productID int64, variantID *int64) *models.CartItem {
	for _, it := range s.cartItems {
		if it.CartID == cartID && it.ProductID == productID && sameVariant(it.VariantID, variantID) {
			return it
		}
	}
	return nil
}

func sameVariant(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
