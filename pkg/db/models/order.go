package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/pkg/enums"
)

// Order is a completed checkout. Coupon code, discount total and the
// applied-rule explanation are persisted for analytics and audit.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber         string              `gorm:"column:order_number;uniqueIndex;not null"`
	CustomerName        string              `gorm:"column:customer_name;not null"`
	CustomerEmail       string              `gorm:"column:customer_email;not null;index"`
	CustomerPhone       *string             `gorm:"column:customer_phone"`
	AddressID           *uuid.UUID          `gorm:"column:address_id;type:uuid"`
	Status              enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus       enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod       string              `gorm:"column:payment_method;not null"`
	PaymentReference    *string             `gorm:"column:payment_reference"`
	Subtotal            decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal       decimal.Decimal     `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	Total               decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	CouponCode          *string             `gorm:"column:coupon_code;index"`
	DiscountExplanation *string             `gorm:"column:discount_explanation"`
	Items               []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
