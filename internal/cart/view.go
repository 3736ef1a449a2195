package cart

import (
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/shopspring/decimal"
)

// UnavailableProductName is shown for lines whose product was deleted.
const UnavailableProductName = "Unavailable product"

// View is the priced state of a cart. Subtotal and TotalItems are computed
// from the line items on every read and never stored.
type View struct {
	ID         int64           `json:"id"`
	Items      []ItemView      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalItems int             `json:"totalItems"`
}

// ItemView is one line of a View.
type ItemView struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	VariantID   *int64          `json:"variantId,omitempty"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug,omitempty"`
	Image       string          `json:"image,omitempty"`
	VariantName *string         `json:"variantName,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	Available   bool            `json:"available"`
}

func buildView(cart *models.Cart, lines []models.CartLine) *View {
	view := &View{
		ID:       cart.ID,
		Items:    make([]ItemView, 0, len(lines)),
		Subtotal: decimal.Zero,
	}

	for _, l := range lines {
		item := ItemView{
			ID:        l.Item.ID,
			ProductID: l.Item.ProductID,
			VariantID: l.Item.VariantID,
			Name:      UnavailableProductName,
			Price:     l.Item.Price,
			Quantity:  l.Item.Quantity,
			LineTotal: l.Item.Price.Mul(decimal.NewFromInt(int64(l.Item.Quantity))),
			Available: l.ProductFound,
		}
		if l.ProductFound {
			item.Name = l.ProductName
			item.Slug = l.ProductSlug
			item.Image = l.ProductImage
		}
		if l.VariantFound {
			if label := models.VariantLabel(l.VariantColor, l.VariantSize); label != "" {
				item.VariantName = &label
			}
			if l.VariantImage != "" {
				item.Image = l.VariantImage
			}
		} else if l.Item.VariantID != nil {
			item.Available = false
		}

		view.Subtotal = view.Subtotal.Add(item.LineTotal)
		view.TotalItems += item.Quantity
		view.Items = append(view.Items, item)
	}
	return view
}
