// Package order turns carts into orders and drives the order lifecycle,
// including stock restoration on cancellation and Zarinpal payments.
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/storefront-api/internal/apperr"
	"github.com/01moynul/storefront-api/internal/cart"
	"github.com/01moynul/storefront-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the order persistence.
type Store interface {
	// InTx runs fn in a database transaction, rolled back when fn fails.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Order(ctx context.Context, orderID int64) (*models.Order, error)
	OrderForUser(ctx context.Context, userID, orderID int64) (*models.Order, error)
	OrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error)
	OrderByAuthority(ctx context.Context, authority string) (*models.Order, error)
	SetPaymentAuthority(ctx context.Context, orderID int64, authority string, at time.Time) error
	MarkPaymentFailed(ctx context.Context, orderID int64, at time.Time) error
	UserByID(ctx context.Context, userID int64) (*models.User, error)
}

// Tx is the transactional part of the order persistence. The *ForUpdate
// reads lock their rows until the transaction ends.
type Tx interface {
	ProductForUpdate(ctx context.Context, productID int64) (*models.Product, error)
	HasVariants(ctx context.Context, productID int64) (bool, error)
	VariantForUpdate(ctx context.Context, variantID int64) (*models.Variant, error)
	AdjustProductStock(ctx context.Context, productID int64, delta int) error
	AdjustVariantStock(ctx context.Context, variantID int64, delta int) error
	CreateOrder(ctx context.Context, o *models.Order) error
	OrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus, at time.Time) error
	MarkPaid(ctx context.Context, orderID int64, refID string, at time.Time) error
	// DeleteCartItems removes the listed lines of the cart and leaves any other.
	DeleteCartItems(ctx context.Context, cartID int64, itemIDs []int64) error
}

// CartReader supplies the priced cart at checkout.
type CartReader interface {
	Get(ctx context.Context, userID int64) (*cart.View, error)
}

// Recomputer refreshes product aggregates after variant stock changes.
type Recomputer interface {
	Recompute(ctx context.Context, productID int64) error
}

// Service implements checkout and order status changes.
type Service struct {
	store   Store
	carts   CartReader
	catalog Recomputer
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, carts CartReader, catalog Recomputer, log *zap.Logger) *Service {
	return &Service{store: store, carts: carts, catalog: catalog, log: log, now: time.Now}
}

// CheckoutInput defines the JSON for placing an order.
type CheckoutInput struct {
	Address string `json:"address" binding:"required,min=10,max=500"`
	Note    string `json:"note" binding:"max=500"`
}

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPendingPayment: {models.OrderPaid, models.OrderCancelled},
	models.OrderPaid:           {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing:     {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:        {models.OrderDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Checkout places an order from the user's cart. Stock is checked and
// decremented per line (variant stock when a variant was chosen, product
// stock for products without variants), the order snapshots every line and
// the ordered lines leave the cart, all in one transaction.
func (s *Service) Checkout(ctx context.Context, userID int64, in CheckoutInput) (*models.Order, error) {
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return nil, apperr.Validation("address is required")
	}

	view, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 {
		return nil, apperr.Validation("your cart is empty")
	}

	now := s.now()
	order := &models.Order{
		UserID:        userID,
		TrackingCode:  newTrackingCode(),
		Status:        models.OrderPendingPayment,
		Total:         view.Subtotal,
		Address:       address,
		Note:          strings.TrimSpace(in.Note),
		PaymentStatus: models.PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	touched := make(map[int64]bool)
	ordered := make([]int64, 0, len(view.Items))
	err = s.store.InTx(ctx, func(tx Tx) error {
		order.Items = order.Items[:0]
		for _, item := range view.Items {
			ordered = append(ordered, item.ID)
			if !item.Available {
				return apperr.Conflict(fmt.Sprintf("%s is no longer available", item.Name))
			}

			if item.VariantID != nil {
				v, err := tx.VariantForUpdate(ctx, *item.VariantID)
				if err != nil {
					return unavailable(err, item.Name)
				}
				if v.ProductID != item.ProductID || !v.IsActive {
					return apperr.Conflict(fmt.Sprintf("%s is no longer available", item.Name))
				}
				if v.Stock < item.Quantity {
					return apperr.Conflict(fmt.Sprintf("not enough stock for %s", item.Name))
				}
				if err := tx.AdjustVariantStock(ctx, v.ID, -item.Quantity); err != nil {
					return err
				}
				touched[item.ProductID] = true
			} else {
				p, err := tx.ProductForUpdate(ctx, item.ProductID)
				if err != nil {
					return unavailable(err, item.Name)
				}
				if !p.IsActive {
					return apperr.Conflict(fmt.Sprintf("%s is no longer available", item.Name))
				}
				// Total stock of a product with variants is derived and never sold directly.
				hasVariants, err := tx.HasVariants(ctx, p.ID)
				if err != nil {
					return err
				}
				if hasVariants {
					return apperr.Conflict(fmt.Sprintf("choose a variant for %s", item.Name))
				}
				if p.TotalStock < item.Quantity {
					return apperr.Conflict(fmt.Sprintf("not enough stock for %s", item.Name))
				}
				if err := tx.AdjustProductStock(ctx, p.ID, -item.Quantity); err != nil {
					return err
				}
			}

			snapshot := models.OrderItem{
				ProductID:   item.ProductID,
				VariantID:   item.VariantID,
				ProductName: item.Name,
				Price:       item.Price,
				Quantity:    item.Quantity,
			}
			if item.VariantName != nil {
				snapshot.VariantName = *item.VariantName
			}
			order.Items = append(order.Items, snapshot)
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		return tx.DeleteCartItems(ctx, view.ID, ordered)
	})
	if err != nil {
		return nil, apperr.Wrap(err, "checkout failed")
	}

	s.log.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("total", order.Total.String()),
	)
	s.recompute(ctx, touched)
	return order, nil
}

// Order returns any order (admin view).
func (s *Service) Order(ctx context.Context, orderID int64) (*models.Order, error) {
	o, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load order")
	}
	return o, nil
}

// UserOrder returns an order owned by the user.
func (s *Service) UserOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	o, err := s.store.OrderForUser(ctx, userID, orderID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load order")
	}
	return o, nil
}

func (s *Service) UserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.store.OrdersByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *Service) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	orders, total, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to list orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, total, nil
}

// CancelForUser lets a customer cancel an order that has not been paid yet.
func (s *Service) CancelForUser(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	return s.transition(ctx, orderID, models.OrderCancelled, func(o *models.Order) error {
		if o.UserID != userID {
			return apperr.NotFound("order not found")
		}
		if o.Status != models.OrderPendingPayment {
			return apperr.Conflict("only unpaid orders can be cancelled")
		}
		return nil
	})
}

// UpdateStatus moves an order along the lifecycle (admin).
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	return s.transition(ctx, orderID, status, nil)
}

func (s *Service) transition(ctx context.Context, orderID int64, to models.OrderStatus, check func(*models.Order) error) (*models.Order, error) {
	touched := make(map[int64]bool)

	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		if !CanTransition(o.Status, to) {
			return apperr.Conflict(fmt.Sprintf("order cannot move from %s to %s", o.Status, to))
		}
		if to == models.OrderCancelled {
			if err := s.restoreStock(ctx, tx, o, touched); err != nil {
				return err
			}
		}
		return tx.UpdateOrderStatus(ctx, orderID, to, s.now())
	})
	if err != nil {
		return nil, apperr.Wrap(err, "failed to update order")
	}

	s.log.Info("order status changed", zap.Int64("order_id", orderID), zap.String("status", string(to)))
	s.recompute(ctx, touched)
	return s.Order(ctx, orderID)
}

// restoreStock gives back exactly what checkout took, per item. Items whose
// variant or product has since been deleted have nothing to restore to.
func (s *Service) restoreStock(ctx context.Context, tx Tx, o *models.Order, touched map[int64]bool) error {
	for _, item := range o.Items {
		var err error
		if item.VariantID != nil {
			err = tx.AdjustVariantStock(ctx, *item.VariantID, item.Quantity)
			if err == nil {
				touched[item.ProductID] = true
			}
		} else {
			err = tx.AdjustProductStock(ctx, item.ProductID, item.Quantity)
		}
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				s.log.Warn("stock restore skipped, item no longer exists",
					zap.Int64("order_id", o.ID),
					zap.Int64("product_id", item.ProductID),
				)
				continue
			}
			return err
		}
	}
	return nil
}

func (s *Service) recompute(ctx context.Context, productIDs map[int64]bool) {
	for id := range productIDs {
		if err := s.catalog.Recompute(ctx, id); err != nil {
			s.log.Error("recompute after stock change failed", zap.Int64("product_id", id), zap.Error(err))
		}
	}
}

func unavailable(err error, name string) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.Conflict(fmt.Sprintf("%s is no longer available", name))
	}
	return err
}

func newTrackingCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
