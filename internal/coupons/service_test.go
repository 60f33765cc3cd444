package coupons

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
	"github.com/vastralabs/vastra-backend/pkg/logger"
)

func setupCouponsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  description TEXT,
  discount_type TEXT NOT NULL,
  discount_value TEXT NOT NULL DEFAULT '0',
  min_purchase_amount TEXT,
  max_discount_amount TEXT,
  usage_limit INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  valid_from DATETIME,
  valid_until DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  max_applications_per_order INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	couponRules := `
CREATE TABLE IF NOT EXISTS coupon_rules (
  id TEXT PRIMARY KEY,
  coupon_id TEXT NOT NULL,
  rule_name TEXT NOT NULL,
  description TEXT,
  rule_priority INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  source_type TEXT NOT NULL DEFAULT 'any',
  source_category_id TEXT,
  source_new_arrival_required INTEGER,
  source_min_quantity INTEGER NOT NULL DEFAULT 1,
  source_max_quantity INTEGER,
  source_min_amount TEXT,
  benefit_type TEXT NOT NULL,
  target_category_id TEXT,
  target_new_arrival_required INTEGER,
  free_quantity INTEGER,
  free_item_selection TEXT,
  free_discount_percentage TEXT,
  discount_amount TEXT,
  discount_percentage TEXT,
  discount_target_type TEXT,
  discount_target_category_id TEXT,
  discount_target_new_arrival INTEGER,
  bundle_fixed_price TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(coupons).Error)
	require.NoError(t, db.Exec(couponRules).Error)
	return db
}

type fakeCouponCache struct {
	values  map[string]string
	deleted []string
}

func newFakeCouponCache() *fakeCouponCache {
	return &fakeCouponCache{values: map[string]string{}}
}

func (f *fakeCouponCache) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeCouponCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeCouponCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeCouponCache) CouponCacheKey(code string) string {
	return "test:coupon:" + code
}

func newTestService(t *testing.T, db *gorm.DB, cache couponCache) *service {
	t.Helper()
	logg := logger.New(logger.Options{
		ServiceName: "coupons-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})
	svc, err := NewService(NewRepository(db), cache, time.Minute, nil, logg)
	require.NoError(t, err)
	return svc.(*service)
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		ID:                      uuid.New(),
		Code:                    "SAVE100",
		DiscountType:            enums.DiscountTypeFixed,
		DiscountValue:           d("100"),
		IsActive:                true,
		MaxApplicationsPerOrder: 1,
	}
	if mutate != nil {
		mutate(coupon)
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

func TestValidateUnknownCode(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)

	result := svc.Validate(context.Background(), "NOPE", d("500"), nil)
	require.False(t, result.Valid)
	require.Equal(t, "Invalid coupon code", result.Message)
}

func TestValidateNormalizesCode(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	seedCoupon(t, db, nil)

	result := svc.Validate(context.Background(), "  save100 ", d("500"), nil)
	require.True(t, result.Valid)
	require.True(t, result.Discount.Equal(d("100")), "got %s", result.Discount)
}

func TestValidateInactiveCoupon(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	seedCoupon(t, db, func(c *models.Coupon) { c.IsActive = false })

	result := svc.Validate(context.Background(), "SAVE100", d("500"), nil)
	require.False(t, result.Valid)
	require.Equal(t, "This coupon is no longer active", result.Message)
}

func TestValidateDateWindow(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "SOON"
		c.ValidFrom = &future
	})
	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "GONE"
		c.ValidUntil = &past
	})

	result := svc.Validate(context.Background(), "SOON", d("500"), nil)
	require.False(t, result.Valid)
	require.Equal(t, "This coupon is not yet valid", result.Message)

	result = svc.Validate(context.Background(), "GONE", d("500"), nil)
	require.False(t, result.Valid)
	require.Equal(t, "This coupon has expired", result.Message)
}

func TestValidateUsageLimitReached(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.UsageLimit = ip(5)
		c.UsedCount = 5
	})

	result := svc.Validate(context.Background(), "SAVE100", d("500"), nil)
	require.False(t, result.Valid)
	require.Equal(t, "This coupon has reached its usage limit", result.Message)
}

func TestValidateInfraErrorMessage(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	require.NoError(t, db.Exec("DROP TABLE coupons").Error)

	result := svc.Validate(context.Background(), "SAVE100", d("500"), nil)
	require.False(t, result.Valid)
	require.Equal(t, "Error validating coupon", result.Message)
}

func TestValidateDispatchesToRulePathWithItems(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	coupon := seedCoupon(t, db, nil)
	rule := models.CouponRule{
		ID:                uuid.New(),
		CouponID:          coupon.ID,
		RuleName:          "Flat 250",
		RulePriority:      1,
		IsActive:          true,
		SourceType:        enums.RuleSourceAny,
		SourceMinQuantity: 1,
		BenefitType:       enums.BenefitFixedDiscount,
		DiscountAmount:    dp("250"),
	}
	require.NoError(t, db.Create(&rule).Error)

	items := []CartItem{item("Tee", "400", 1)}
	result := svc.Validate(context.Background(), "SAVE100", d("400"), items)
	require.True(t, result.Valid)
	require.True(t, result.Discount.Equal(d("250")), "got %s", result.Discount)
	require.Len(t, result.AppliedRules, 1)

	// Without items the same coupon takes the simple path and uses the
	// coupon-level fixed value instead.
	result = svc.Validate(context.Background(), "SAVE100", d("400"), nil)
	require.True(t, result.Valid)
	require.True(t, result.Discount.Equal(d("100")), "got %s", result.Discount)
}

func TestValidateServesFromCache(t *testing.T) {
	db := setupCouponsTestDB(t)
	cache := newFakeCouponCache()
	svc := newTestService(t, db, cache)

	cached := models.Coupon{
		ID:                      uuid.New(),
		Code:                    "CACHED",
		DiscountType:            enums.DiscountTypeFixed,
		DiscountValue:           d("75"),
		IsActive:                true,
		MaxApplicationsPerOrder: 1,
	}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	cache.values[cache.CouponCacheKey("CACHED")] = string(payload)

	// No row in the database; only the cache can satisfy this.
	result := svc.Validate(context.Background(), "CACHED", d("500"), nil)
	require.True(t, result.Valid)
	require.True(t, result.Discount.Equal(d("75")), "got %s", result.Discount)
}

func TestValidatePopulatesCacheOnMiss(t *testing.T) {
	db := setupCouponsTestDB(t)
	cache := newFakeCouponCache()
	svc := newTestService(t, db, cache)
	seedCoupon(t, db, nil)

	result := svc.Validate(context.Background(), "SAVE100", d("500"), nil)
	require.True(t, result.Valid)
	require.Contains(t, cache.values, cache.CouponCacheKey("SAVE100"))
}

func TestRedeemUsageIncrementsAndStopsAtLimit(t *testing.T) {
	db := setupCouponsTestDB(t)
	cache := newFakeCouponCache()
	svc := newTestService(t, db, cache)
	seedCoupon(t, db, func(c *models.Coupon) { c.UsageLimit = ip(2) })

	ctx := context.Background()
	require.NoError(t, svc.RedeemUsage(ctx, db, "SAVE100"))
	require.NoError(t, svc.RedeemUsage(ctx, db, "SAVE100"))

	err := svc.RedeemUsage(ctx, db, "SAVE100")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeStateConflict, coded.Code())

	var stored models.Coupon
	require.NoError(t, db.Where("code = ?", "SAVE100").First(&stored).Error)
	require.Equal(t, 2, stored.UsedCount)
	require.Contains(t, cache.deleted, cache.CouponCacheKey("SAVE100"))
}

func TestRedeemUsageUnknownCode(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)

	err := svc.RedeemUsage(context.Background(), db, "MISSING")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestRedeemUsageUnlimitedCoupon(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	seedCoupon(t, db, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RedeemUsage(ctx, db, "SAVE100"))
	}
	var stored models.Coupon
	require.NoError(t, db.Where("code = ?", "SAVE100").First(&stored).Error)
	require.Equal(t, 3, stored.UsedCount)
}

func TestCreateCouponNormalizesCode(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)

	coupon, err := svc.CreateCoupon(context.Background(), CreateCouponInput{
		Code:          " summer25 ",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: d("25"),
		IsActive:      true,
	})
	require.NoError(t, err)
	require.Equal(t, "SUMMER25", coupon.Code)
	require.Equal(t, 1, coupon.MaxApplicationsPerOrder)
}

func TestCreateCouponRejectsBadInput(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)

	_, err := svc.CreateCoupon(context.Background(), CreateCouponInput{
		Code:          "",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: d("10"),
	})
	require.Error(t, err)

	_, err = svc.CreateCoupon(context.Background(), CreateCouponInput{
		Code:          "NEG",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: d("-10"),
	})
	require.Error(t, err)
}

func TestUpdateCouponInvalidatesCache(t *testing.T) {
	db := setupCouponsTestDB(t)
	cache := newFakeCouponCache()
	svc := newTestService(t, db, cache)
	coupon := seedCoupon(t, db, nil)
	cache.values[cache.CouponCacheKey("SAVE100")] = "stale"

	active := false
	updated, err := svc.UpdateCoupon(context.Background(), coupon.ID, UpdateCouponInput{
		IsActive: &active,
	})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.NotContains(t, cache.values, cache.CouponCacheKey("SAVE100"))
}

func TestRuleLifecycle(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	coupon := seedCoupon(t, db, nil)

	ctx := context.Background()
	rule, err := svc.CreateRule(ctx, coupon.ID, RuleInput{
		RuleName:          "Buy 2 Get 1",
		RulePriority:      10,
		IsActive:          true,
		SourceType:        enums.RuleSourceAny,
		SourceMinQuantity: 2,
		BenefitType:       enums.BenefitFreeItems,
	})
	require.NoError(t, err)
	require.Equal(t, coupon.ID, rule.CouponID)

	rules, err := svc.ListRules(ctx, coupon.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	updated, err := svc.UpdateRule(ctx, rule.ID, RuleInput{
		RuleName:          "Buy 3 Get 1",
		RulePriority:      20,
		IsActive:          true,
		SourceType:        enums.RuleSourceAny,
		SourceMinQuantity: 3,
		BenefitType:       enums.BenefitFreeItems,
	})
	require.NoError(t, err)
	require.Equal(t, "Buy 3 Get 1", updated.RuleName)
	require.Equal(t, rule.ID, updated.ID)

	require.NoError(t, svc.DeleteRule(ctx, rule.ID))
	rules, err = svc.ListRules(ctx, coupon.ID)
	require.NoError(t, err)
	require.Empty(t, rules)
}

func TestCreateRuleValidation(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	coupon := seedCoupon(t, db, nil)

	ctx := context.Background()
	_, err := svc.CreateRule(ctx, coupon.ID, RuleInput{
		RuleName:          "",
		SourceType:        enums.RuleSourceAny,
		SourceMinQuantity: 1,
		BenefitType:       enums.BenefitFreeItems,
	})
	require.Error(t, err)

	_, err = svc.CreateRule(ctx, coupon.ID, RuleInput{
		RuleName:          "Bad max",
		SourceType:        enums.RuleSourceAny,
		SourceMinQuantity: 3,
		SourceMaxQuantity: ip(2),
		BenefitType:       enums.BenefitFixedDiscount,
	})
	require.Error(t, err)

	_, err = svc.CreateRule(ctx, uuid.New(), RuleInput{
		RuleName:          "Orphan",
		SourceType:        enums.RuleSourceAny,
		SourceMinQuantity: 1,
		BenefitType:       enums.BenefitFixedDiscount,
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestCreateInactiveCouponAndRuleStayInactive(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	coupon, err := svc.CreateCoupon(ctx, CreateCouponInput{
		Code:          "DRAFT10",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: d("10"),
		IsActive:      false,
	})
	require.NoError(t, err)

	rule, err := svc.CreateRule(ctx, coupon.ID, RuleInput{
		RuleName:          "Draft rule",
		IsActive:          false,
		SourceType:        enums.RuleSourceAny,
		SourceMinQuantity: 1,
		BenefitType:       enums.BenefitFreeItems,
	})
	require.NoError(t, err)

	// Reload from the database: a draft must not come back active.
	var storedCoupon models.Coupon
	require.NoError(t, db.First(&storedCoupon, "id = ?", coupon.ID).Error)
	require.False(t, storedCoupon.IsActive)

	var storedRule models.CouponRule
	require.NoError(t, db.First(&storedRule, "id = ?", rule.ID).Error)
	require.False(t, storedRule.IsActive)
}

func TestDeleteCouponRemovesRules(t *testing.T) {
	db := setupCouponsTestDB(t)
	svc := newTestService(t, db, nil)
	coupon := seedCoupon(t, db, nil)
	_, err := svc.CreateRule(context.Background(), coupon.ID, RuleInput{
		RuleName:          "Rule",
		SourceType:        enums.RuleSourceAny,
		SourceMinQuantity: 1,
		BenefitType:       enums.BenefitFixedDiscount,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCoupon(context.Background(), coupon.ID))

	var ruleCount int64
	require.NoError(t, db.Model(&models.CouponRule{}).Count(&ruleCount).Error)
	require.Zero(t, ruleCount)
	_, err = svc.GetCoupon(context.Background(), coupon.ID)
	require.Error(t, err)
}
