package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/pkg/enums"
)

// Coupon is the admin-managed discount definition. Codes are stored
// uppercase; lookups normalize before querying.
type Coupon struct {
	ID                      uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                    string             `gorm:"column:code;uniqueIndex;not null"`
	Description             *string            `gorm:"column:description"`
	DiscountType            enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	DiscountValue           decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null;default:0"`
	MinPurchaseAmount       *decimal.Decimal   `gorm:"column:min_purchase_amount;type:numeric(12,2)"`
	MaxDiscountAmount       *decimal.Decimal   `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	UsageLimit              *int               `gorm:"column:usage_limit"`
	UsedCount               int                `gorm:"column:used_count;not null;default:0"`
	ValidFrom               *time.Time         `gorm:"column:valid_from"`
	ValidUntil              *time.Time         `gorm:"column:valid_until"`
	IsActive                bool               `gorm:"column:is_active;not null"`
	MaxApplicationsPerOrder int                `gorm:"column:max_applications_per_order;not null;default:1"`
	Rules                   []CouponRule       `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// HasRules reports whether the coupon uses advanced rule evaluation.
func (c Coupon) HasRules() bool {
	return len(c.Rules) > 0
}
