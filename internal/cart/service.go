// Package cart implements the per-user cart with frozen line prices.
package cart

import (
	"context"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/models"
	"go.uber.org/zap"
)

// Repository is the cart persistence.
type Repository interface {
	// CartByUser returns a NotFound error when the user has no cart yet.
	CartByUser(ctx context.Context, userID int64) (*models.Cart, error)
	// CreateCart returns a Conflict error when the user already has a cart.
	CreateCart(ctx context.Context, userID int64) (*models.Cart, error)
	CartLines(ctx context.Context, cartID int64) ([]models.CartLine, error)
	CartItem(ctx context.Context, cartID, itemID int64) (*models.CartItem, error)
	FindCartItem(ctx context.Context, cartID, productID int64, variantID *int64) (*models.CartItem, error)
	// InsertCartItem returns a Conflict error when the (cart, product, variant) line exists.
	InsertCartItem(ctx context.Context, item *models.CartItem) error
	SetCartItemQuantity(ctx context.Context, itemID int64, quantity int, at time.Time) error
	DeleteCartItem(ctx context.Context, cartID, itemID int64) error
	ClearCart(ctx context.Context, cartID int64) error

	Product(ctx context.Context, productID int64) (*models.Product, error)
	Variant(ctx context.Context, variantID int64) (*models.Variant, error)
	Variants(ctx context.Context, productID int64) ([]models.Variant, error)
}

// Service is the cart pricing service.
type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// AddInput defines the JSON for adding an item to the cart.
type AddInput struct {
	ProductID int64  `json:"productId" binding:"required,gt=0"`
	VariantID *int64 `json:"variantId" binding:"omitempty,gt=0"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID int64) (*View, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// Add puts a product (and optional variant) into the cart. A product that has
// variants can only be added through one of them. An existing line for the
// same product and variant has its quantity increased instead.
func (s *Service) Add(ctx context.Context, userID int64, in AddInput) (*View, error) {
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	// 1. --- Resolve product and variant ---
	product, err := s.repo.Product(ctx, in.ProductID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load product")
	}
	if !product.IsActive {
		return nil, apperr.NotFound("product not found")
	}

	var variant *models.Variant
	if in.VariantID != nil {
		variant, err = s.repo.Variant(ctx, *in.VariantID)
		if err != nil {
			return nil, apperr.Wrap(err, "failed to load variant")
		}
		if variant.ProductID != product.ID || !variant.IsActive {
			return nil, apperr.NotFound("variant not found")
		}
	} else {
		// Products with variants are stocked per variant only.
		variants, err := s.repo.Variants(ctx, product.ID)
		if err != nil {
			return nil, apperr.Wrap(err, "failed to load variants")
		}
		if len(variants) > 0 {
			return nil, apperr.Validation("choose a variant")
		}
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 2. --- Existing line: go through the update path ---
	existing, err := s.repo.FindCartItem(ctx, cart.ID, product.ID, in.VariantID)
	if err == nil {
		return s.setQuantity(ctx, cart, existing, existing.Quantity+in.Quantity)
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Wrap(err, "failed to load cart item")
	}

	// 3. --- New line, priced now ---
	if available := stockOf(product, variant); in.Quantity > available {
		return nil, apperr.Conflict("insufficient stock")
	}

	price := product.Price
	if variant != nil && variant.Price.Valid {
		price = variant.Price.Decimal
	}

	now := s.now()
	item := &models.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		VariantID: in.VariantID,
		Quantity:  in.Quantity,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertCartItem(ctx, item); err != nil {
		if !apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Wrap(err, "failed to add item to cart")
		}
		// A concurrent add created the line first.
		existing, ferr := s.repo.FindCartItem(ctx, cart.ID, product.ID, in.VariantID)
		if ferr != nil {
			return nil, apperr.Wrap(ferr, "failed to load cart item")
		}
		return s.setQuantity(ctx, cart, existing, existing.Quantity+in.Quantity)
	}

	s.log.Debug("cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", product.ID),
		zap.Int("quantity", in.Quantity),
	)
	return s.view(ctx, cart)
}

// Update replaces the quantity of a line. A quantity of zero or less removes it.
func (s *Service) Update(ctx context.Context, userID, itemID int64, quantity int) (*View, error) {
	cart, err := s.existingCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.CartItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load cart item")
	}
	return s.setQuantity(ctx, cart, item, quantity)
}

// Remove deletes a line from the cart.
func (s *Service) Remove(ctx context.Context, userID, itemID int64) (*View, error) {
	cart, err := s.existingCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.remove(ctx, cart, itemID)
}

// Clear deletes every line. Clearing an empty or missing cart succeeds.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	cart, err := s.repo.CartByUser(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return apperr.Wrap(err, "failed to load cart")
	}
	if err := s.repo.ClearCart(ctx, cart.ID); err != nil {
		return apperr.Wrap(err, "failed to clear cart")
	}
	return nil
}

func (s *Service) setQuantity(ctx context.Context, cart *models.Cart, item *models.CartItem, quantity int) (*View, error) {
	if quantity <= 0 {
		return s.remove(ctx, cart, item.ID)
	}

	// Stock is only checked while the product still exists; lines of
	// deleted products are rejected at checkout.
	product, err := s.repo.Product(ctx, item.ProductID)
	switch {
	case err == nil:
		var variant *models.Variant
		if item.VariantID != nil {
			variant, err = s.repo.Variant(ctx, *item.VariantID)
			if err != nil && !apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.Wrap(err, "failed to load variant")
			}
		}
		if (item.VariantID == nil || variant != nil) && quantity > stockOf(product, variant) {
			return nil, apperr.Conflict("insufficient stock")
		}
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, apperr.Wrap(err, "failed to load product")
	}

	if err := s.repo.SetCartItemQuantity(ctx, item.ID, quantity, s.now()); err != nil {
		return nil, apperr.Wrap(err, "failed to update cart item")
	}
	return s.view(ctx, cart)
}

func (s *Service) remove(ctx context.Context, cart *models.Cart, itemID int64) (*View, error) {
	if err := s.repo.DeleteCartItem(ctx, cart.ID, itemID); err != nil {
		return nil, apperr.Wrap(err, "failed to remove cart item")
	}
	return s.view(ctx, cart)
}

func (s *Service) view(ctx context.Context, cart *models.Cart) (*View, error) {
	lines, err := s.repo.CartLines(ctx, cart.ID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load cart items")
	}
	return buildView(cart, lines), nil
}

// getOrCreateCart finds the user's cart or creates one. The unique user_id
// key decides concurrent creations; the loser reads the winner's row.
func (s *Service) getOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := s.repo.CartByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Wrap(err, "failed to load cart")
	}

	cart, err = s.repo.CreateCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if apperr.Is(err, apperr.KindConflict) {
		if cart, err = s.repo.CartByUser(ctx, userID); err == nil {
			return cart, nil
		}
	}
	return nil, apperr.Wrap(err, "failed to create cart")
}

// existingCart is used by the item level operations, which never create a
// cart: a user without one has no items to update.
func (s *Service) existingCart(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := s.repo.CartByUser(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("cart item not found")
		}
		return nil, apperr.Wrap(err, "failed to load cart")
	}
	return cart, nil
}

func stockOf(product *models.Product, variant *models.Variant) int {
	if variant != nil {
		return variant.Stock
	}
	return product.TotalStock
}
