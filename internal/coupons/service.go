package coupons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
	"github.com/vastralabs/vastra-backend/pkg/logger"
	"github.com/vastralabs/vastra-backend/pkg/metrics"
)

// Service exposes coupon validation, redemption and the admin CRUD
// surface for coupons and rules.
type Service interface {
	// Validate checks a code against the cart and returns the result
	// contract. It never returns an error: user-facing invalid states and
	// infrastructure failures alike surface as Valid=false with a message.
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, items []CartItem) *ValidationResult

	// RedeemUsage atomically increments used_count for a completed order.
	// Checkout calls this exactly once per order inside its transaction.
	RedeemUsage(ctx context.Context, tx *gorm.DB, code string) error

	CreateCoupon(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error)
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
	GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	ListCoupons(ctx context.Context, limit int) ([]models.Coupon, error)

	CreateRule(ctx context.Context, couponID uuid.UUID, input RuleInput) (*models.CouponRule, error)
	UpdateRule(ctx context.Context, ruleID uuid.UUID, input RuleInput) (*models.CouponRule, error)
	DeleteRule(ctx context.Context, ruleID uuid.UUID) error
	ListRules(ctx context.Context, couponID uuid.UUID) ([]models.CouponRule, error)
}

// CreateCouponInput holds the validated payload to create a coupon.
type CreateCouponInput struct {
	Code                    string
	Description             *string
	DiscountType            enums.DiscountType
	DiscountValue           decimal.Decimal
	MinPurchaseAmount       *decimal.Decimal
	MaxDiscountAmount       *decimal.Decimal
	UsageLimit              *int
	ValidFrom               *time.Time
	ValidUntil              *time.Time
	IsActive                bool
	MaxApplicationsPerOrder int
}

// UpdateCouponInput holds optional mutation values for a coupon.
type UpdateCouponInput struct {
	Description             *string
	DiscountType            *enums.DiscountType
	DiscountValue           *decimal.Decimal
	MinPurchaseAmount       *decimal.Decimal
	MaxDiscountAmount       *decimal.Decimal
	UsageLimit              *int
	ValidFrom               *time.Time
	ValidUntil              *time.Time
	IsActive                *bool
	MaxApplicationsPerOrder *int
}

// RuleInput maps one-to-one onto the coupon_rules row. Benefit fields
// irrelevant to the chosen benefit type are stored untouched and
// ignored at evaluation time.
type RuleInput struct {
	RuleName     string
	Description  *string
	RulePriority int
	IsActive     bool

	SourceType               enums.RuleSourceType
	SourceCategoryID         *uuid.UUID
	SourceNewArrivalRequired *bool
	SourceMinQuantity        int
	SourceMaxQuantity        *int
	SourceMinAmount          *decimal.Decimal

	BenefitType              enums.BenefitType
	TargetCategoryID         *uuid.UUID
	TargetNewArrivalRequired *bool
	FreeQuantity             *int
	FreeItemSelection        *enums.FreeItemSelection
	FreeDiscountPercentage   *decimal.Decimal
	DiscountAmount           *decimal.Decimal
	DiscountPercentage       *decimal.Decimal
	DiscountTargetType       *enums.DiscountTargetType
	DiscountTargetCategoryID *uuid.UUID
	DiscountTargetNewArrival *bool
	BundleFixedPrice         *decimal.Decimal
}

type couponCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CouponCacheKey(code string) string
}

type service struct {
	repo     *Repository
	cache    couponCache
	cacheTTL time.Duration
	metrics  *metrics.CouponMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the coupon service. Cache and metrics are
// optional; pass nil to disable them.
func NewService(repo *Repository, cache couponCache, cacheTTL time.Duration, couponMetrics *metrics.CouponMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  couponMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Validate(ctx context.Context, code string, subtotal decimal.Decimal, items []CartItem) *ValidationResult {
	start := s.now()
	result, outcome := s.validate(ctx, code, subtotal, items)
	s.metrics.ObserveValidation(outcome, s.now().Sub(start))
	if result.Valid {
		discount, _ := result.Discount.Float64()
		s.metrics.ObserveDiscount(discount)
	}
	return result
}

func (s *service) validate(ctx context.Context, code string, subtotal decimal.Decimal, items []CartItem) (*ValidationResult, string) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	ctx = s.logg.WithCouponCode(ctx, normalized)

	coupon, err := s.loadCoupon(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidResult("Invalid coupon code"), metrics.CouponOutcomeNotFound
		}
		s.logg.Error(ctx, "coupon lookup failed", err)
		return invalidResult("Error validating coupon"), metrics.CouponOutcomeInfraError
	}

	now := s.now()
	if !coupon.IsActive {
		return invalidResult("This coupon is no longer active"), metrics.CouponOutcomeInvalid
	}
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return invalidResult("This coupon is not yet valid"), metrics.CouponOutcomeInvalid
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return invalidResult("This coupon has expired"), metrics.CouponOutcomeInvalid
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return invalidResult("This coupon has reached its usage limit"), metrics.CouponOutcomeLimited
	}

	var result *ValidationResult
	if len(items) > 0 {
		result = evaluateAdvanced(coupon, subtotal, items)
	} else {
		result = evaluateSimple(coupon, subtotal)
	}

	if !result.Valid {
		return result, metrics.CouponOutcomeRulesFailed
	}
	return result, metrics.CouponOutcomeValid
}

// loadCoupon consults the short-TTL cache before the database. A stale
// used_count in the cache can only ever be pessimistic for the user;
// the redemption itself stays atomic at the persistence layer.
func (s *service) loadCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return s.repo.FindByCode(ctx, code)
	}

	key := s.cache.CouponCacheKey(code)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var coupon models.Coupon
		if err := json.Unmarshal([]byte(cached), &coupon); err == nil {
			return &coupon, nil
		}
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(coupon); err == nil {
		if err := s.cache.Set(ctx, key, string(payload), s.cacheTTL); err != nil {
			s.logg.Debug(ctx, "coupon cache write failed")
		}
	}
	return coupon, nil
}

func (s *service) invalidateCache(ctx context.Context, code string) {
	if s.cache == nil || code == "" {
		return
	}
	if err := s.cache.Del(ctx, s.cache.CouponCacheKey(code)); err != nil {
		s.logg.Debug(ctx, "coupon cache invalidation failed")
	}
}

func (s *service) RedeemUsage(ctx context.Context, tx *gorm.DB, code string) error {
	repo := s.repo.WithTx(tx)
	ok, err := repo.IncrementUsage(ctx, code)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "incrementing coupon usage")
	}
	if !ok {
		if _, err := repo.FindByCode(ctx, code); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon usage limit reached")
	}
	s.invalidateCache(ctx, code)
	return nil
}

func (s *service) CreateCoupon(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.DiscountValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
	}

	maxApplications := input.MaxApplicationsPerOrder
	if maxApplications <= 0 {
		maxApplications = 1
	}

	coupon := &models.Coupon{
		Code:                    code,
		Description:             input.Description,
		DiscountType:            input.DiscountType,
		DiscountValue:           input.DiscountValue,
		MinPurchaseAmount:       input.MinPurchaseAmount,
		MaxDiscountAmount:       input.MaxDiscountAmount,
		UsageLimit:              input.UsageLimit,
		ValidFrom:               input.ValidFrom,
		ValidUntil:              input.ValidUntil,
		IsActive:                input.IsActive,
		MaxApplicationsPerOrder: maxApplications,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "creating coupon")
	}
	return coupon, nil
}

func (s *service) UpdateCoupon(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}

	if input.Description != nil {
		coupon.Description = input.Description
	}
	if input.DiscountType != nil {
		if !input.DiscountType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
		}
		coupon.DiscountType = *input.DiscountType
	}
	if input.DiscountValue != nil {
		if input.DiscountValue.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
		}
		coupon.DiscountValue = *input.DiscountValue
	}
	if input.MinPurchaseAmount != nil {
		coupon.MinPurchaseAmount = input.MinPurchaseAmount
	}
	if input.MaxDiscountAmount != nil {
		coupon.MaxDiscountAmount = input.MaxDiscountAmount
	}
	if input.UsageLimit != nil {
		coupon.UsageLimit = input.UsageLimit
	}
	if input.ValidFrom != nil {
		coupon.ValidFrom = input.ValidFrom
	}
	if input.ValidUntil != nil {
		coupon.ValidUntil = input.ValidUntil
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	if input.MaxApplicationsPerOrder != nil && *input.MaxApplicationsPerOrder > 0 {
		coupon.MaxApplicationsPerOrder = *input.MaxApplicationsPerOrder
	}

	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating coupon")
	}
	s.invalidateCache(ctx, coupon.Code)
	return coupon, nil
}

func (s *service) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting coupon")
	}
	s.invalidateCache(ctx, coupon.Code)
	return nil
}

func (s *service) GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}
	return coupon, nil
}

func (s *service) ListCoupons(ctx context.Context, limit int) ([]models.Coupon, error) {
	coupons, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing coupons")
	}
	return coupons, nil
}

func (s *service) CreateRule(ctx context.Context, couponID uuid.UUID, input RuleInput) (*models.CouponRule, error) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	rule := ruleFromInput(input)
	rule.CouponID = coupon.ID
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating rule")
	}
	s.invalidateCache(ctx, coupon.Code)
	return rule, nil
}

func (s *service) UpdateRule(ctx context.Context, ruleID uuid.UUID, input RuleInput) (*models.CouponRule, error) {
	existing, err := s.repo.FindRuleByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading rule")
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	rule := ruleFromInput(input)
	rule.ID = existing.ID
	rule.CouponID = existing.CouponID
	rule.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating rule")
	}
	s.invalidateRuleCoupon(ctx, existing.CouponID)
	return rule, nil
}

func (s *service) DeleteRule(ctx context.Context, ruleID uuid.UUID) error {
	existing, err := s.repo.FindRuleByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "rule not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading rule")
	}
	if err := s.repo.DeleteRule(ctx, ruleID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting rule")
	}
	s.invalidateRuleCoupon(ctx, existing.CouponID)
	return nil
}

func (s *service) ListRules(ctx context.Context, couponID uuid.UUID) ([]models.CouponRule, error) {
	rules, err := s.repo.ListRulesByCoupon(ctx, couponID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing rules")
	}
	return rules, nil
}

func (s *service) invalidateRuleCoupon(ctx context.Context, couponID uuid.UUID) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		return
	}
	s.invalidateCache(ctx, coupon.Code)
}

// validateRuleInput guards the admin-facing shape of a rule. Evaluation
// stays permissive; this lint pass only rejects rows that could never
// mean anything.
func validateRuleInput(input RuleInput) error {
	if strings.TrimSpace(input.RuleName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rule name is required")
	}
	if !input.SourceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid source type")
	}
	if !input.BenefitType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid benefit type")
	}
	if input.SourceMinQuantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "source min quantity must be at least 1")
	}
	if input.SourceMaxQuantity != nil && *input.SourceMaxQuantity < input.SourceMinQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "source max quantity cannot be below the minimum")
	}
	if input.FreeItemSelection != nil && !input.FreeItemSelection.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid free item selection")
	}
	if input.DiscountTargetType != nil && !input.DiscountTargetType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount target type")
	}
	return nil
}

func ruleFromInput(input RuleInput) *models.CouponRule {
	return &models.CouponRule{
		RuleName:     strings.TrimSpace(input.RuleName),
		Description:  input.Description,
		RulePriority: input.RulePriority,
		IsActive:     input.IsActive,

		SourceType:               input.SourceType,
		SourceCategoryID:         input.SourceCategoryID,
		SourceNewArrivalRequired: input.SourceNewArrivalRequired,
		SourceMinQuantity:        input.SourceMinQuantity,
		SourceMaxQuantity:        input.SourceMaxQuantity,
		SourceMinAmount:          input.SourceMinAmount,

		BenefitType:              input.BenefitType,
		TargetCategoryID:         input.TargetCategoryID,
		TargetNewArrivalRequired: input.TargetNewArrivalRequired,
		FreeQuantity:             input.FreeQuantity,
		FreeItemSelection:        input.FreeItemSelection,
		FreeDiscountPercentage:   input.FreeDiscountPercentage,
		DiscountAmount:           input.DiscountAmount,
		DiscountPercentage:       input.DiscountPercentage,
		DiscountTargetType:       input.DiscountTargetType,
		DiscountTargetCategoryID: input.DiscountTargetCategoryID,
		DiscountTargetNewArrival: input.DiscountTargetNewArrival,
		BundleFixedPrice:         input.BundleFixedPrice,
	}
}
