package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/pkg/enums"
)

// OrderCreatedEvent is emitted inside the checkout transaction once the
// order row and its items are persisted.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Total         decimal.Decimal `json:"total"`
	CouponCode    *string         `json:"coupon_code,omitempty"`
	ItemCount     int             `json:"item_count"`
}

// OrderStatusChangedEvent reports an admin-driven status transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderCancelledEvent is emitted when an order is cancelled before shipping.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// CouponRedeemedEvent records a successful usage increment for analytics.
type CouponRedeemedEvent struct {
	CouponID   uuid.UUID       `json:"coupon_id"`
	CouponCode string          `json:"coupon_code"`
	OrderID    uuid.UUID       `json:"order_id"`
	Discount   decimal.Decimal `json:"discount"`
}
