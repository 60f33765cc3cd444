package coupons

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
)

// Repository wraps coupon and rule persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a Repository bound to the provided connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByCode loads a coupon and its rules by exact (uppercase) code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindByID loads a coupon and its rules by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("id = ?", id).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// List returns coupons ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]models.Coupon, error) {
	if limit <= 0 {
		limit = 100
	}
	var coupons []models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Rules").
		Order("created_at DESC").
		Limit(limit).
		Find(&coupons).Error
	return coupons, err
}

// Create inserts a coupon row.
func (r *Repository) Create(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(coupon).Error
}

// Update persists all fields of the coupon row.
func (r *Repository) Update(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

// Delete removes a coupon and all of its rules.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("coupon_id = ?", id).Delete(&models.CouponRule{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Coupon{}).Error
	})
}

// IncrementUsage performs the atomic conditional usage increment. It
// reports false when no row qualified, either because the code does not
// exist or because the usage limit is already reached. Two concurrent
// redemptions can never push used_count past usage_limit.
func (r *Repository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND (usage_limit IS NULL OR used_count < usage_limit)",
			strings.ToUpper(strings.TrimSpace(code))).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindRuleByID loads one rule.
func (r *Repository) FindRuleByID(ctx context.Context, id uuid.UUID) (*models.CouponRule, error) {
	var rule models.CouponRule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRulesByCoupon returns all rules for a coupon sorted by priority
// descending, creation time ascending for ties.
func (r *Repository) ListRulesByCoupon(ctx context.Context, couponID uuid.UUID) ([]models.CouponRule, error) {
	var rules []models.CouponRule
	err := r.db.WithContext(ctx).
		Where("coupon_id = ?", couponID).
		Order("rule_priority DESC").
		Order("created_at ASC").
		Find(&rules).Error
	return rules, err
}

// CreateRule inserts a rule row.
func (r *Repository) CreateRule(ctx context.Context, rule *models.CouponRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rule).Error
}

// UpdateRule persists all fields of the rule row.
func (r *Repository) UpdateRule(ctx context.Context, rule *models.CouponRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// DeleteRule removes one rule.
func (r *Repository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CouponRule{}).Error
}
