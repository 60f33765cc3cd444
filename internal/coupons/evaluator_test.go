package coupons

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func dp(value string) *decimal.Decimal {
	dec := decimal.RequireFromString(value)
	return &dec
}

func ip(value int) *int { return &value }

func bp(value bool) *bool { return &value }

func item(name, price string, qty int, opts ...func(*CartItem)) CartItem {
	it := CartItem{
		ProductID:   uuid.New(),
		ProductName: name,
		Quantity:    qty,
		Price:       d(price),
	}
	for _, opt := range opts {
		opt(&it)
	}
	return it
}

func inCategory(id uuid.UUID) func(*CartItem) {
	return func(it *CartItem) { it.CategoryID = &id }
}

func asNewArrival() func(*CartItem) {
	return func(it *CartItem) { it.NewArrival = true }
}

func subtotalOf(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func baseCoupon() *models.Coupon {
	return &models.Coupon{
		ID:                      uuid.New(),
		Code:                    "TESTCODE",
		DiscountType:            enums.DiscountTypeFixed,
		DiscountValue:           d("100"),
		IsActive:                true,
		MaxApplicationsPerOrder: 1,
	}
}

func activeRule(priority int, mutate func(*models.CouponRule)) models.CouponRule {
	rule := models.CouponRule{
		ID:                uuid.New(),
		RuleName:          "Rule",
		RulePriority:      priority,
		IsActive:          true,
		SourceType:        enums.RuleSourceAny,
		SourceMinQuantity: 1,
		BenefitType:       enums.BenefitFixedDiscount,
	}
	if mutate != nil {
		mutate(&rule)
	}
	return rule
}

func TestEvaluateSimplePercentageWithCap(t *testing.T) {
	coupon := baseCoupon()
	coupon.DiscountType = enums.DiscountTypePercentage
	coupon.DiscountValue = d("20")
	coupon.MaxDiscountAmount = dp("150")

	result := evaluateSimple(coupon, d("1000"))
	if !result.Valid {
		t.Fatalf("expected valid result, got message %q", result.Message)
	}
	if !result.Discount.Equal(d("150")) {
		t.Fatalf("expected capped discount 150, got %s", result.Discount)
	}
	if !result.Breakdown.FinalAmount.Equal(d("850")) {
		t.Fatalf("expected final amount 850, got %s", result.Breakdown.FinalAmount)
	}
}

func TestEvaluateSimpleFixedClampedToSubtotal(t *testing.T) {
	coupon := baseCoupon()
	coupon.DiscountValue = d("500")

	result := evaluateSimple(coupon, d("200"))
	if !result.Valid {
		t.Fatalf("expected valid result, got message %q", result.Message)
	}
	if !result.Discount.Equal(d("200")) {
		t.Fatalf("expected discount clamped to 200, got %s", result.Discount)
	}
	if !result.Breakdown.FinalAmount.IsZero() {
		t.Fatalf("expected final amount 0, got %s", result.Breakdown.FinalAmount)
	}
}

func TestEvaluateSimpleMinPurchaseGate(t *testing.T) {
	coupon := baseCoupon()
	coupon.MinPurchaseAmount = dp("999")

	result := evaluateSimple(coupon, d("500"))
	if result.Valid {
		t.Fatal("expected invalid result below minimum purchase")
	}
	if result.Message != "Minimum purchase of ₹999.00 required" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if !result.Discount.IsZero() {
		t.Fatalf("expected zero discount, got %s", result.Discount)
	}
}

func TestEvaluateAdvancedFallsBackWithoutActiveRules(t *testing.T) {
	coupon := baseCoupon()
	coupon.DiscountValue = d("50")
	coupon.Rules = []models.CouponRule{
		activeRule(1, func(r *models.CouponRule) { r.IsActive = false }),
	}

	items := []CartItem{item("Tee", "400", 1)}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected fallback to simple path, got %q", result.Message)
	}
	if !result.Discount.Equal(d("50")) {
		t.Fatalf("expected flat 50 off, got %s", result.Discount)
	}
	if result.Breakdown.AppliedRuleCount != 0 {
		t.Fatalf("expected zero applied rules, got %d", result.Breakdown.AppliedRuleCount)
	}
}

func TestEvaluateAdvancedBuyTwoGetCheapestFree(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.RuleName = "Buy 2 Get 1 Free"
			r.SourceMinQuantity = 2
			r.BenefitType = enums.BenefitFreeItems
		}),
	}

	items := []CartItem{
		item("Hoodie", "500", 1),
		item("Tee", "300", 1),
	}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	if !result.Discount.Equal(d("300")) {
		t.Fatalf("expected cheapest item 300 free, got %s", result.Discount)
	}
	applied := result.AppliedRules[0]
	if len(applied.FreeProductIDs) != 1 || applied.FreeProductIDs[0] != items[1].ProductID {
		t.Fatalf("expected the cheapest item to be picked, got %v", applied.FreeProductIDs)
	}
	if applied.Explanation != "Buy 2 Get 1 Free: ₹300.00 off" {
		t.Fatalf("unexpected explanation %q", applied.Explanation)
	}
}

func TestEvaluateAdvancedMinQuantityRejectionMessage(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(0, func(r *models.CouponRule) { r.SourceMinQuantity = 3 }),
	}

	items := []CartItem{item("Tee", "300", 1)}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if result.Valid {
		t.Fatal("expected rejection below the quantity threshold")
	}
	if result.Message != "Need 3 qualifying items, but only 1 in cart" {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestEvaluateAdvancedMaxQuantityAndMinAmountRejections(t *testing.T) {
	categoryID := uuid.New()
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.SourceType = enums.RuleSourceCategory
			r.SourceCategoryID = &categoryID
			r.SourceMaxQuantity = ip(2)
		}),
		activeRule(5, func(r *models.CouponRule) {
			r.SourceMinAmount = dp("5000")
		}),
	}

	items := []CartItem{item("Tee", "300", 4, inCategory(categoryID))}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if result.Valid {
		t.Fatal("expected both rules to reject")
	}
	want := "At most 2 items from the required category allowed, but cart has 4; " +
		"Need ₹5000.00 worth of qualifying items, but cart has ₹1200.00"
	if result.Message != want {
		t.Fatalf("unexpected joined message %q", result.Message)
	}
}

func TestEvaluateAdvancedPriorityOrderAndStableTies(t *testing.T) {
	coupon := baseCoupon()
	first := activeRule(10, func(r *models.CouponRule) {
		r.RuleName = "First"
		r.DiscountAmount = dp("40")
	})
	second := activeRule(10, func(r *models.CouponRule) {
		r.RuleName = "Second"
		r.DiscountAmount = dp("60")
	})
	low := activeRule(1, func(r *models.CouponRule) {
		r.RuleName = "Low"
		r.DiscountAmount = dp("999")
	})
	coupon.Rules = []models.CouponRule{low, first, second}

	items := []CartItem{item("Tee", "500", 1)}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	if len(result.AppliedRules) != 1 || result.AppliedRules[0].RuleName != "First" {
		t.Fatalf("expected the first tied high-priority rule, got %+v", result.AppliedRules)
	}
	if !result.Discount.Equal(d("40")) {
		t.Fatalf("expected discount 40, got %s", result.Discount)
	}
}

func TestEvaluateAdvancedMaxApplicationsSums(t *testing.T) {
	coupon := baseCoupon()
	coupon.MaxApplicationsPerOrder = 2
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.RuleName = "Big"
			r.DiscountAmount = dp("100")
		}),
		activeRule(5, func(r *models.CouponRule) {
			r.RuleName = "Small"
			r.DiscountAmount = dp("50")
		}),
	}

	items := []CartItem{item("Tee", "500", 1)}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	if !result.Discount.Equal(d("150")) {
		t.Fatalf("expected summed discount 150, got %s", result.Discount)
	}
	if len(result.AppliedRules) != 2 {
		t.Fatalf("expected 2 applied rules, got %d", len(result.AppliedRules))
	}
	if result.Breakdown.Explanation != "Big: ₹100.00 off; Small: ₹50.00 off" {
		t.Fatalf("unexpected explanation %q", result.Breakdown.Explanation)
	}
}

func TestEvaluateAdvancedFixedDiscountNotCappedToTarget(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.DiscountAmount = dp("1000")
		}),
	}

	items := []CartItem{item("Tee", "300", 1)}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	if !result.Discount.Equal(d("1000")) {
		t.Fatalf("expected uncapped discount 1000, got %s", result.Discount)
	}
	if !result.Breakdown.FinalAmount.Equal(d("-700")) {
		t.Fatalf("expected final amount -700, got %s", result.Breakdown.FinalAmount)
	}
}

func TestEvaluateAdvancedZeroDiscountStillApplies(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, nil),
	}

	items := []CartItem{item("Tee", "300", 1)}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result for zero benefit, got %q", result.Message)
	}
	if !result.Discount.IsZero() {
		t.Fatalf("expected zero discount, got %s", result.Discount)
	}
	if result.Message != "Coupon applied successfully" {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestEvaluateAdvancedCustomerChoiceExposesPool(t *testing.T) {
	selection := enums.FreeItemCustomerChoice
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.BenefitType = enums.BenefitFreeItems
			r.FreeItemSelection = &selection
			r.FreeQuantity = ip(1)
		}),
	}

	items := []CartItem{
		item("A", "100", 1),
		item("B", "200", 1),
		item("C", "300", 1),
	}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	applied := result.AppliedRules[0]
	if len(applied.FreeProductIDs) != 1 || applied.FreeProductIDs[0] != items[0].ProductID {
		t.Fatalf("expected provisional pick of the first item, got %v", applied.FreeProductIDs)
	}
	if len(applied.ChoiceEligibleProductIDs) != 3 {
		t.Fatalf("expected full pool of 3 eligible items, got %d", len(applied.ChoiceEligibleProductIDs))
	}
}

func TestEvaluateAdvancedPartialFreeDiscountPercentage(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.BenefitType = enums.BenefitFreeItems
			r.FreeDiscountPercentage = dp("50")
		}),
	}

	items := []CartItem{item("Tee", "400", 1)}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	if !result.Discount.Equal(d("200")) {
		t.Fatalf("expected half-price 200, got %s", result.Discount)
	}
}

func TestEvaluateAdvancedFreeQuantityCapsPerItemUnits(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.BenefitType = enums.BenefitFreeItems
			r.FreeQuantity = ip(2)
		}),
	}

	// Two lines; free quantity 2 covers both selected lines, but only up
	// to 2 units of the 5-unit line.
	items := []CartItem{
		item("Cheap", "100", 5),
		item("Dear", "400", 1),
	}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	// 100*min(5,2) + 400*min(1,2) = 200 + 400
	if !result.Discount.Equal(d("600")) {
		t.Fatalf("expected discount 600, got %s", result.Discount)
	}
}

func TestEvaluateAdvancedBundleFloorsAtZero(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.BenefitType = enums.BenefitBundlePrice
			r.BundleFixedPrice = dp("1000")
		}),
	}

	items := []CartItem{item("Tee", "800", 1)}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	if !result.Discount.IsZero() {
		t.Fatalf("expected zero discount when bundle price exceeds value, got %s", result.Discount)
	}
}

func TestEvaluateAdvancedBundlePrice(t *testing.T) {
	categoryID := uuid.New()
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.SourceType = enums.RuleSourceCategory
			r.SourceCategoryID = &categoryID
			r.SourceMinQuantity = 2
			r.BenefitType = enums.BenefitBundlePrice
			r.BundleFixedPrice = dp("500")
		}),
	}

	items := []CartItem{
		item("Tee", "400", 2, inCategory(categoryID)),
		item("Cap", "250", 1),
	}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	// Bundle covers the 800 worth of category items at 500.
	if !result.Discount.Equal(d("300")) {
		t.Fatalf("expected discount 300, got %s", result.Discount)
	}
}

func TestEvaluateAdvancedDiscountTargetResolution(t *testing.T) {
	sourceCategory := uuid.New()
	targetCategory := uuid.New()
	items := []CartItem{
		item("Source", "1000", 1, inCategory(sourceCategory)),
		item("Target", "400", 1, inCategory(targetCategory)),
		item("Other", "600", 1),
	}

	cases := []struct {
		name   string
		target enums.DiscountTargetType
		want   string
	}{
		// 10% of the source line.
		{"source", enums.DiscountTargetSource, "100"},
		// 10% of the separately filtered target line.
		{"target", enums.DiscountTargetTarget, "40"},
		// 10% of the whole cart.
		{"cart", enums.DiscountTargetCart, "200"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := tc.target
			coupon := baseCoupon()
			coupon.Rules = []models.CouponRule{
				activeRule(10, func(r *models.CouponRule) {
					r.SourceType = enums.RuleSourceCategory
					r.SourceCategoryID = &sourceCategory
					r.BenefitType = enums.BenefitPercentageDiscount
					r.DiscountPercentage = dp("10")
					r.DiscountTargetType = &target
					if target == enums.DiscountTargetTarget {
						r.DiscountTargetCategoryID = &targetCategory
					}
				}),
			}

			result := evaluateAdvanced(coupon, subtotalOf(items), items)
			if !result.Valid {
				t.Fatalf("expected valid result, got %q", result.Message)
			}
			if !result.Discount.Equal(d(tc.want)) {
				t.Fatalf("expected discount %s, got %s", tc.want, result.Discount)
			}
		})
	}
}

func TestEvaluateAdvancedNewArrivalSource(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.SourceType = enums.RuleSourceNewArrival
			r.SourceMinQuantity = 2
			r.BenefitType = enums.BenefitPercentageDiscount
			r.DiscountPercentage = dp("25")
		}),
	}

	items := []CartItem{
		item("Fresh", "200", 2, asNewArrival()),
		item("Stale", "900", 1),
	}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	// 25% of the 400 worth of new arrivals only.
	if !result.Discount.Equal(d("100")) {
		t.Fatalf("expected discount 100, got %s", result.Discount)
	}
}

func TestEvaluateAdvancedNewArrivalExcluded(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.SourceType = enums.RuleSourceNewArrival
			r.SourceNewArrivalRequired = bp(false)
			r.BenefitType = enums.BenefitPercentageDiscount
			r.DiscountPercentage = dp("10")
		}),
	}

	items := []CartItem{
		item("Fresh", "500", 1, asNewArrival()),
		item("Classic", "300", 1),
	}
	result := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !result.Valid {
		t.Fatalf("expected valid result, got %q", result.Message)
	}
	if !result.Discount.Equal(d("30")) {
		t.Fatalf("expected discount on non-arrivals only, got %s", result.Discount)
	}
}

func TestEvaluateAdvancedIsIdempotent(t *testing.T) {
	coupon := baseCoupon()
	coupon.Rules = []models.CouponRule{
		activeRule(10, func(r *models.CouponRule) {
			r.BenefitType = enums.BenefitFreeItems
			r.SourceMinQuantity = 2
		}),
	}

	items := []CartItem{
		item("A", "500", 1),
		item("B", "300", 1),
	}
	first := evaluateAdvanced(coupon, subtotalOf(items), items)
	second := evaluateAdvanced(coupon, subtotalOf(items), items)
	if !first.Discount.Equal(second.Discount) {
		t.Fatalf("discounts diverged: %s vs %s", first.Discount, second.Discount)
	}
	if first.Breakdown.Explanation != second.Breakdown.Explanation {
		t.Fatalf("explanations diverged: %q vs %q", first.Breakdown.Explanation, second.Breakdown.Explanation)
	}
	if !strings.Contains(first.Breakdown.Explanation, "₹300.00 off") {
		t.Fatalf("unexpected explanation %q", first.Breakdown.Explanation)
	}
}
