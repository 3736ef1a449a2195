package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the model for the 'products' table.
// Price, TotalStock, MainImage, Images, IsActive and AvailableSizes are
// aggregate fields: once a product has variants they are only written by
// catalog.Engine.
type Product struct {
	ID          int64    `json:"id" db:"id"`
	SKU         *string  `json:"sku,omitempty" db:"sku"`
	Slug        string   `json:"slug" db:"slug"`
	Name        string   `json:"name" db:"name"`
	Description string   `json:"description" db:"description"`
	Category    string   `json:"category" db:"category"`
	Tags        []string `json:"tags" db:"tags"`
	Gender      string   `json:"gender" db:"gender"`

	// --- Aggregates ---
	Price          decimal.Decimal `json:"price" db:"price"`
	TotalStock     int             `json:"totalStock" db:"total_stock"`
	MainImage      *string         `json:"mainImage" db:"main_image"`
	Images         []string        `json:"images" db:"images"`
	IsActive       bool            `json:"isActive" db:"is_active"`
	AvailableSizes []string        `json:"availableSizes" db:"available_sizes"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (not in the products table)
	Variants []Variant `json:"variants,omitempty" db:"-"`
}

// Variant is the model for the 'product_variants' table.
// (product_id, size, color) is unique.
type Variant struct {
	ID        int64  `json:"id" db:"id"`
	ProductID int64  `json:"productId" db:"product_id"`
	Size      string `json:"size" db:"size"`
	Color     string `json:"color" db:"color"`

	// Price overrides the product price when valid.
	Price    decimal.NullDecimal `json:"price" db:"price"`
	Stock    int                 `json:"stock" db:"stock"`
	IsActive bool                `json:"isActive" db:"is_active"`
	Image    string              `json:"image" db:"image"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Label is the display name of the variant: the non-empty parts of
// color and size joined with ", ".
func (v Variant) Label() string {
	return VariantLabel(v.Color, v.Size)
}

// VariantLabel joins the non-empty parts of color and size.
func VariantLabel(color, size string) string {
	switch {
	case color != "" && size != "":
		return color + ", " + size
	case color != "":
		return color
	default:
		return size
	}
}

// ProductAggregates is the derived part of a product row, written in one
// statement. MainImage with Valid == false clears the column.
type ProductAggregates struct {
	Price          decimal.Decimal
	TotalStock     int
	AvailableSizes []string
	Images         []string
	IsActive       bool
	MainImage      sql.NullString
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Query      string
	Category   string
	Gender     string
	Size       string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	ActiveOnly bool
	Limit      int
	Offset     int
}
