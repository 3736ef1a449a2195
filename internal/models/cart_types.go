package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart defines the struct for the 'carts' table. user_id is unique.
type Cart struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartItem defines the struct for the 'cart_items' table.
// Price is frozen when the line is created and never re-derived.
type CartItem struct {
	ID        int64           `json:"id" db:"id"`
	CartID    int64           `json:"cartId" db:"cart_id"`
	ProductID int64           `json:"productId" db:"product_id"`
	VariantID *int64          `json:"variantId,omitempty" db:"variant_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// CartLine is a cart item joined with the display fields of its product and
// variant. ProductFound is false when the product was deleted after the item
// was added.
type CartLine struct {
	Item CartItem

	ProductFound bool
	ProductName  string
	ProductSlug  string
	ProductImage string

	VariantFound bool
	VariantColor string
	VariantSize  string
	VariantImage string
}
