package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/pkg/enums"
)

// CouponRule is one advanced condition/benefit pair attached to a
// coupon. Storage permits arbitrary field combinations; fields
// irrelevant to the benefit_type are ignored at evaluation time, never
// rejected.
type CouponRule struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID     uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;index"`
	RuleName     string    `gorm:"column:rule_name;not null"`
	Description  *string   `gorm:"column:description"`
	RulePriority int       `gorm:"column:rule_priority;not null;default:0"`
	IsActive     bool      `gorm:"column:is_active;not null"`

	// Source condition: what must be in the cart.
	SourceType               enums.RuleSourceType `gorm:"column:source_type;type:rule_source_type;not null;default:'any'"`
	SourceCategoryID         *uuid.UUID           `gorm:"column:source_category_id;type:uuid"`
	SourceNewArrivalRequired *bool                `gorm:"column:source_new_arrival_required"`
	SourceMinQuantity        int                  `gorm:"column:source_min_quantity;not null;default:1"`
	SourceMaxQuantity        *int                 `gorm:"column:source_max_quantity"`
	SourceMinAmount          *decimal.Decimal     `gorm:"column:source_min_amount;type:numeric(12,2)"`

	// Benefit payload, discriminated by BenefitType.
	BenefitType              enums.BenefitType         `gorm:"column:benefit_type;type:benefit_type;not null"`
	TargetCategoryID         *uuid.UUID                `gorm:"column:target_category_id;type:uuid"`
	TargetNewArrivalRequired *bool                     `gorm:"column:target_new_arrival_required"`
	FreeQuantity             *int                      `gorm:"column:free_quantity"`
	FreeItemSelection        *enums.FreeItemSelection  `gorm:"column:free_item_selection;type:free_item_selection"`
	FreeDiscountPercentage   *decimal.Decimal          `gorm:"column:free_discount_percentage;type:numeric(5,2)"`
	DiscountAmount           *decimal.Decimal          `gorm:"column:discount_amount;type:numeric(12,2)"`
	DiscountPercentage       *decimal.Decimal          `gorm:"column:discount_percentage;type:numeric(5,2)"`
	DiscountTargetType       *enums.DiscountTargetType `gorm:"column:discount_target_type;type:discount_target_type"`
	DiscountTargetCategoryID *uuid.UUID                `gorm:"column:discount_target_category_id;type:uuid"`
	DiscountTargetNewArrival *bool                     `gorm:"column:discount_target_new_arrival"`
	BundleFixedPrice         *decimal.Decimal          `gorm:"column:bundle_fixed_price;type:numeric(12,2)"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
