package coupons

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
)

// CartItem is a cart line joined with its product, snapshotted for the
// duration of one validation call. The caller supplies the subtotal;
// the engine never recomputes it.
type CartItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	NewArrival  bool            `json:"new_arrival"`
}

// LineTotal returns price multiplied by quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// AppliedRule describes one rule that contributed to the discount.
type AppliedRule struct {
	RuleID      uuid.UUID         `json:"rule_id"`
	RuleName    string            `json:"rule_name"`
	Description *string           `json:"description,omitempty"`
	BenefitType enums.BenefitType `json:"benefit_type"`
	Discount    decimal.Decimal   `json:"discount"`

	SourceProductIDs []uuid.UUID `json:"source_product_ids"`
	TargetProductIDs []uuid.UUID `json:"target_product_ids"`

	// FreeProductIDs holds the auto-selected free items for free_items
	// benefits. For customer_choice selection the pick is provisional and
	// ChoiceEligibleProductIDs exposes the full pool so a UI can re-drive
	// the selection.
	FreeProductIDs           []uuid.UUID `json:"free_product_ids,omitempty"`
	ChoiceEligibleProductIDs []uuid.UUID `json:"choice_eligible_product_ids,omitempty"`

	Explanation string `json:"explanation"`
}

// Breakdown summarizes the discount arithmetic for display and audit.
type Breakdown struct {
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
	AppliedRuleCount int             `json:"applied_rule_count"`
	Explanation      string          `json:"explanation"`
}

// ValidationResult is the sole output contract consumed by checkout.
// Invalid coupons, unmet rules and infrastructure failures all surface
// here as Valid=false with a user-facing message; nothing escapes as an
// error across the checkout boundary.
type ValidationResult struct {
	Valid        bool            `json:"valid"`
	Message      string          `json:"message"`
	Discount     decimal.Decimal `json:"discount"`
	Coupon       *models.Coupon  `json:"coupon,omitempty"`
	AppliedRules []AppliedRule   `json:"applied_rules"`
	TotalSavings decimal.Decimal `json:"total_savings"`
	Breakdown    *Breakdown      `json:"breakdown,omitempty"`
}

func invalidResult(message string) *ValidationResult {
	return &ValidationResult{
		Valid:        false,
		Message:      message,
		Discount:     decimal.Zero,
		TotalSavings: decimal.Zero,
		AppliedRules: []AppliedRule{},
	}
}
