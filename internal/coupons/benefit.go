package coupons

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
)

// benefit is the tagged union behind a rule's benefit_type. Each
// variant carries only the fields relevant to it, so an invalid field
// combination is unrepresentable once a rule has been decoded.
type benefit interface {
	benefitType() enums.BenefitType
}

// targetSpec resolves which cart items a fixed or percentage discount
// applies to.
type targetSpec struct {
	Type       enums.DiscountTargetType
	CategoryID *uuid.UUID
	NewArrival enums.NewArrivalFilter
}

type freeItemsBenefit struct {
	TargetCategoryID *uuid.UUID
	TargetNewArrival enums.NewArrivalFilter
	// hasTargetFilter distinguishes "no target fields set, pool = source
	// items" from an explicit target filter.
	hasTargetFilter bool
	FreeQuantity    int
	Selection       enums.FreeItemSelection
	DiscountPercent decimal.Decimal
}

func (freeItemsBenefit) benefitType() enums.BenefitType { return enums.BenefitFreeItems }

type fixedDiscountBenefit struct {
	Amount decimal.Decimal
	Target targetSpec
}

func (fixedDiscountBenefit) benefitType() enums.BenefitType { return enums.BenefitFixedDiscount }

type percentageDiscountBenefit struct {
	Percent decimal.Decimal
	Target  targetSpec
}

func (percentageDiscountBenefit) benefitType() enums.BenefitType {
	return enums.BenefitPercentageDiscount
}

type bundlePriceBenefit struct {
	FixedPrice decimal.Decimal
}

func (bundlePriceBenefit) benefitType() enums.BenefitType { return enums.BenefitBundlePrice }

var oneHundred = decimal.NewFromInt(100)

// benefitFromRule decodes the stored rule row into its benefit variant.
// Missing fields resolve to permissive defaults rather than errors:
// free_quantity defaults to 1, free_discount_percentage to 100,
// selection to cheapest, discount amounts to zero and the discount
// target to the rule's source items. Misconfiguration therefore yields
// a zero or no-op discount, never a failure.
func benefitFromRule(rule models.CouponRule) benefit {
	switch rule.BenefitType {
	case enums.BenefitFreeItems:
		b := freeItemsBenefit{
			TargetCategoryID: rule.TargetCategoryID,
			TargetNewArrival: enums.NewArrivalFilterFromNullableBool(rule.TargetNewArrivalRequired),
			hasTargetFilter:  rule.TargetCategoryID != nil || rule.TargetNewArrivalRequired != nil,
			FreeQuantity:     1,
			Selection:        enums.FreeItemCheapest,
			DiscountPercent:  oneHundred,
		}
		if rule.FreeQuantity != nil && *rule.FreeQuantity > 0 {
			b.FreeQuantity = *rule.FreeQuantity
		}
		if rule.FreeItemSelection != nil && rule.FreeItemSelection.IsValid() {
			b.Selection = *rule.FreeItemSelection
		}
		if rule.FreeDiscountPercentage != nil {
			b.DiscountPercent = *rule.FreeDiscountPercentage
		}
		return b

	case enums.BenefitPercentageDiscount:
		b := percentageDiscountBenefit{
			Percent: decimal.Zero,
			Target:  targetSpecFromRule(rule),
		}
		if rule.DiscountPercentage != nil {
			b.Percent = *rule.DiscountPercentage
		}
		return b

	case enums.BenefitBundlePrice:
		b := bundlePriceBenefit{FixedPrice: decimal.Zero}
		if rule.BundleFixedPrice != nil {
			b.FixedPrice = *rule.BundleFixedPrice
		}
		return b

	default:
		// fixed_discount, and the safety net for unknown benefit types:
		// a zero fixed discount is a no-op, not an error.
		b := fixedDiscountBenefit{
			Amount: decimal.Zero,
			Target: targetSpecFromRule(rule),
		}
		if rule.DiscountAmount != nil {
			b.Amount = *rule.DiscountAmount
		}
		return b
	}
}

func targetSpecFromRule(rule models.CouponRule) targetSpec {
	spec := targetSpec{
		Type:       enums.DiscountTargetSource,
		CategoryID: rule.DiscountTargetCategoryID,
		NewArrival: enums.NewArrivalFilterFromNullableBool(rule.DiscountTargetNewArrival),
	}
	if rule.DiscountTargetType != nil && rule.DiscountTargetType.IsValid() {
		spec.Type = *rule.DiscountTargetType
	}
	return spec
}
