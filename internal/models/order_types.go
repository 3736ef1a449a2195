package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
	OrderProcessing     OrderStatus = "processing"
	OrderShipped        OrderStatus = "shipped"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// PaymentStatus tracks the gateway side of an order.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
	PaymentPaid    PaymentStatus = "paid"
)

// Order is the model for the 'orders' table
type Order struct {
	ID           int64           `json:"id" db:"id"`
	UserID       int64           `json:"userId" db:"user_id"`
	TrackingCode string          `json:"trackingCode" db:"tracking_code"`
	Status       OrderStatus     `json:"status" db:"status"`
	Total        decimal.Decimal `json:"total" db:"total"`
	Address      string          `json:"address" db:"address"`
	Note         string          `json:"note,omitempty" db:"note"`

	PaymentStatus    PaymentStatus `json:"paymentStatus" db:"payment_status"`
	PaymentAuthority *string       `json:"-" db:"payment_authority"`
	PaymentRefID     *string       `json:"paymentRefId,omitempty" db:"payment_ref_id"`
	PaidAt           *time.Time    `json:"paidAt,omitempty" db:"paid_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Items []OrderItem `json:"items,omitempty" db:"-"`
}

// OrderItem is the model for the 'order_items' table. Name, variant label,
// price and quantity are snapshots taken at checkout.
type OrderItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"orderId" db:"order_id"`
	ProductID   int64           `json:"productId" db:"product_id"`
	VariantID   *int64          `json:"variantId,omitempty" db:"variant_id"`
	ProductName string          `json:"productName" db:"product_name"`
	VariantName string          `json:"variantName,omitempty" db:"variant_name"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Quantity    int             `json:"quantity" db:"quantity"`
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status OrderStatus
	UserID int64
	Limit  int
	Offset int
}
