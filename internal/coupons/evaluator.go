package coupons

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
)

// evaluatedRule is the ephemeral per-call record for one rule. It is
// rebuilt on every validation and never persisted.
type evaluatedRule struct {
	rule    models.CouponRule
	ben     benefit
	source  []CartItem
	targets []CartItem
	free    []CartItem
	pool    []CartItem

	discount decimal.Decimal
	canApply bool
	reason   string
}

// evaluateAdvanced runs the rule engine for a coupon with loaded rules.
// Every rule sees the full, unmodified cart; rules never consume items
// from each other's view.
func evaluateAdvanced(coupon *models.Coupon, subtotal decimal.Decimal, items []CartItem) *ValidationResult {
	active := make([]models.CouponRule, 0, len(coupon.Rules))
	for _, rule := range coupon.Rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}
	if len(active) == 0 {
		return evaluateSimple(coupon, subtotal)
	}

	// Ties keep their original order; priority is the only sort key.
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].RulePriority > active[j].RulePriority
	})

	applicable := make([]evaluatedRule, 0, len(active))
	rejections := make([]string, 0)
	for _, rule := range active {
		evaluated := evaluateRule(rule, items)
		if evaluated.canApply {
			applicable = append(applicable, evaluated)
		} else {
			rejections = append(rejections, evaluated.reason)
		}
	}

	if len(applicable) == 0 {
		result := invalidResult(strings.Join(rejections, "; "))
		result.Coupon = coupon
		return result
	}

	maxApplications := coupon.MaxApplicationsPerOrder
	if maxApplications <= 0 {
		maxApplications = 1
	}
	if maxApplications > len(applicable) {
		maxApplications = len(applicable)
	}
	selected := applicable[:maxApplications]

	total := decimal.Zero
	appliedRules := make([]AppliedRule, 0, len(selected))
	explanations := make([]string, 0, len(selected))
	for _, evaluated := range selected {
		total = total.Add(evaluated.discount)
		applied := buildAppliedRule(evaluated)
		appliedRules = append(appliedRules, applied)
		explanations = append(explanations, applied.Explanation)
	}
	explanation := strings.Join(explanations, "; ")

	// No clamp to subtotal here: the rule path deliberately allows a
	// fixed discount to exceed its target value (see the uncapped
	// fixed_discount tests).
	return &ValidationResult{
		Valid:        true,
		Message:      "Coupon applied successfully",
		Discount:     total,
		Coupon:       coupon,
		AppliedRules: appliedRules,
		TotalSavings: total,
		Breakdown: &Breakdown{
			OriginalAmount:   subtotal,
			DiscountAmount:   total,
			FinalAmount:      subtotal.Sub(total),
			AppliedRuleCount: len(appliedRules),
			Explanation:      explanation,
		},
	}
}

// evaluateRule checks one rule against the full cart.
func evaluateRule(rule models.CouponRule, items []CartItem) evaluatedRule {
	evaluated := evaluatedRule{
		rule:     rule,
		ben:      benefitFromRule(rule),
		discount: decimal.Zero,
	}

	evaluated.source = matchSource(rule, items)

	totalQty := 0
	sourceAmount := decimal.Zero
	for _, item := range evaluated.source {
		totalQty += item.Quantity
		sourceAmount = sourceAmount.Add(item.LineTotal())
	}

	desc := describeSource(rule)
	minQty := rule.SourceMinQuantity
	if minQty < 1 {
		minQty = 1
	}
	if totalQty < minQty {
		evaluated.reason = fmt.Sprintf("Need %d %s, but only %d in cart", minQty, desc, totalQty)
		return evaluated
	}
	if rule.SourceMaxQuantity != nil && totalQty > *rule.SourceMaxQuantity {
		evaluated.reason = fmt.Sprintf("At most %d %s allowed, but cart has %d", *rule.SourceMaxQuantity, desc, totalQty)
		return evaluated
	}
	if rule.SourceMinAmount != nil && sourceAmount.LessThan(*rule.SourceMinAmount) {
		evaluated.reason = fmt.Sprintf("Need ₹%s worth of %s, but cart has ₹%s",
			rule.SourceMinAmount.StringFixed(2), desc, sourceAmount.StringFixed(2))
		return evaluated
	}

	// Threshold passed: the rule applies even when the computed discount
	// works out to zero.
	evaluated.canApply = true
	computeBenefit(&evaluated, items)
	evaluated.discount = evaluated.discount.Round(2)
	return evaluated
}

// matchSource selects cart items satisfying the rule's source predicate.
// Missing optional fields act as "no constraint".
func matchSource(rule models.CouponRule, items []CartItem) []CartItem {
	matched := make([]CartItem, 0, len(items))
	for _, item := range items {
		if sourceMatches(rule, item) {
			matched = append(matched, item)
		}
	}
	return matched
}

func sourceMatches(rule models.CouponRule, item CartItem) bool {
	switch rule.SourceType {
	case enums.RuleSourceCategory:
		return categoryMatches(rule.SourceCategoryID, item)
	case enums.RuleSourceNewArrival:
		return sourceArrivalFilter(rule).Matches(item.NewArrival)
	case enums.RuleSourceCategoryNewArrival:
		return categoryMatches(rule.SourceCategoryID, item) &&
			sourceArrivalFilter(rule).Matches(item.NewArrival)
	default:
		return true
	}
}

// sourceArrivalFilter defaults to "required" when the rule asks for new
// arrivals but leaves the nullable flag unset.
func sourceArrivalFilter(rule models.CouponRule) enums.NewArrivalFilter {
	if rule.SourceNewArrivalRequired == nil {
		return enums.NewArrivalRequired
	}
	return enums.NewArrivalFilterFromNullableBool(rule.SourceNewArrivalRequired)
}

func categoryMatches(categoryID *uuid.UUID, item CartItem) bool {
	if categoryID == nil {
		return true
	}
	return item.CategoryID != nil && *item.CategoryID == *categoryID
}

func describeSource(rule models.CouponRule) string {
	switch rule.SourceType {
	case enums.RuleSourceCategory:
		return "items from the required category"
	case enums.RuleSourceNewArrival:
		return "new arrival items"
	case enums.RuleSourceCategoryNewArrival:
		return "new arrival items from the required category"
	default:
		return "qualifying items"
	}
}

// computeBenefit dispatches on the decoded benefit variant and fills in
// discount, target items and (for free_items) the selection data.
func computeBenefit(evaluated *evaluatedRule, items []CartItem) {
	switch ben := evaluated.ben.(type) {
	case freeItemsBenefit:
		computeFreeItems(evaluated, ben, items)

	case fixedDiscountBenefit:
		evaluated.targets = resolveTarget(ben.Target, evaluated.source, items)
		evaluated.discount = ben.Amount

	case percentageDiscountBenefit:
		evaluated.targets = resolveTarget(ben.Target, evaluated.source, items)
		targetAmount := decimal.Zero
		for _, item := range evaluated.targets {
			targetAmount = targetAmount.Add(item.LineTotal())
		}
		evaluated.discount = targetAmount.Mul(ben.Percent).Div(oneHundred)

	case bundlePriceBenefit:
		evaluated.targets = evaluated.source
		sourceAmount := decimal.Zero
		for _, item := range evaluated.source {
			sourceAmount = sourceAmount.Add(item.LineTotal())
		}
		discount := sourceAmount.Sub(ben.FixedPrice)
		if discount.IsNegative() {
			discount = decimal.Zero
		}
		evaluated.discount = discount
	}
}

func computeFreeItems(evaluated *evaluatedRule, ben freeItemsBenefit, items []CartItem) {
	pool := evaluated.source
	if ben.hasTargetFilter {
		pool = make([]CartItem, 0, len(items))
		for _, item := range items {
			if categoryMatches(ben.TargetCategoryID, item) && ben.TargetNewArrival.Matches(item.NewArrival) {
				pool = append(pool, item)
			}
		}
	}
	evaluated.pool = pool

	selected := make([]CartItem, len(pool))
	copy(selected, pool)
	switch ben.Selection {
	case enums.FreeItemCheapest:
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].Price.LessThan(selected[j].Price)
		})
	case enums.FreeItemMostExpensive:
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].Price.GreaterThan(selected[j].Price)
		})
	case enums.FreeItemCustomerChoice:
		// Provisional auto-pick of the first N as encountered; the
		// eligible pool is exposed so a UI can capture the real choice.
	}
	if ben.FreeQuantity < len(selected) {
		selected = selected[:ben.FreeQuantity]
	}

	freeQty := decimal.NewFromInt(int64(ben.FreeQuantity))
	discount := decimal.Zero
	for _, item := range selected {
		units := decimal.NewFromInt(int64(item.Quantity))
		if units.GreaterThan(freeQty) {
			units = freeQty
		}
		discount = discount.Add(item.Price.Mul(units).Mul(ben.DiscountPercent).Div(oneHundred))
	}

	evaluated.free = selected
	evaluated.targets = pool
	evaluated.discount = discount
}

// resolveTarget maps a discount target spec onto concrete cart items.
func resolveTarget(spec targetSpec, source []CartItem, items []CartItem) []CartItem {
	switch spec.Type {
	case enums.DiscountTargetCart:
		return items
	case enums.DiscountTargetTarget:
		matched := make([]CartItem, 0, len(items))
		for _, item := range items {
			if categoryMatches(spec.CategoryID, item) && spec.NewArrival.Matches(item.NewArrival) {
				matched = append(matched, item)
			}
		}
		return matched
	default:
		return source
	}
}

func buildAppliedRule(evaluated evaluatedRule) AppliedRule {
	applied := AppliedRule{
		RuleID:           evaluated.rule.ID,
		RuleName:         evaluated.rule.RuleName,
		Description:      evaluated.rule.Description,
		BenefitType:      evaluated.rule.BenefitType,
		Discount:         evaluated.discount,
		SourceProductIDs: productIDs(evaluated.source),
		TargetProductIDs: productIDs(evaluated.targets),
		Explanation:      fmt.Sprintf("%s: ₹%s off", evaluated.rule.RuleName, evaluated.discount.StringFixed(2)),
	}
	if ben, ok := evaluated.ben.(freeItemsBenefit); ok {
		applied.FreeProductIDs = productIDs(evaluated.free)
		if ben.Selection == enums.FreeItemCustomerChoice {
			applied.ChoiceEligibleProductIDs = productIDs(evaluated.pool)
		}
	}
	return applied
}

func productIDs(items []CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// evaluateSimple is the zero-rule calculation path. Unlike the rule
// path, the discount here is clamped to the subtotal.
func evaluateSimple(coupon *models.Coupon, subtotal decimal.Decimal) *ValidationResult {
	if coupon.MinPurchaseAmount != nil && subtotal.LessThan(*coupon.MinPurchaseAmount) {
		result := invalidResult(fmt.Sprintf("Minimum purchase of ₹%s required", coupon.MinPurchaseAmount.StringFixed(2)))
		result.Coupon = coupon
		return result
	}

	var discount decimal.Decimal
	var explanation string
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(oneHundred)
		if coupon.MaxDiscountAmount != nil && discount.GreaterThan(*coupon.MaxDiscountAmount) {
			discount = *coupon.MaxDiscountAmount
		}
		explanation = fmt.Sprintf("%s%% off", coupon.DiscountValue.String())
	default:
		discount = coupon.DiscountValue
		explanation = fmt.Sprintf("Flat ₹%s off", coupon.DiscountValue.StringFixed(2))
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	discount = discount.Round(2)

	return &ValidationResult{
		Valid:        true,
		Message:      "Coupon applied successfully",
		Discount:     discount,
		Coupon:       coupon,
		AppliedRules: []AppliedRule{},
		TotalSavings: discount,
		Breakdown: &Breakdown{
			OriginalAmount:   subtotal,
			DiscountAmount:   discount,
			FinalAmount:      subtotal.Sub(discount),
			AppliedRuleCount: 0,
			Explanation:      explanation,
		},
	}
}
