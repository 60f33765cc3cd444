package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/api/responses"
	"github.com/vastralabs/vastra-backend/api/validators"
	"github.com/vastralabs/vastra-backend/internal/coupons"
	"github.com/vastralabs/vastra-backend/pkg/enums"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
	"github.com/vastralabs/vastra-backend/pkg/logger"
)

type createCouponRequest struct {
	Code                    string           `json:"code" validate:"required,max=64"`
	Description             *string          `json:"description,omitempty"`
	DiscountType            string           `json:"discount_type" validate:"required"`
	DiscountValue           decimal.Decimal  `json:"discount_value"`
	MinPurchaseAmount       *decimal.Decimal `json:"min_purchase_amount,omitempty"`
	MaxDiscountAmount       *decimal.Decimal `json:"max_discount_amount,omitempty"`
	UsageLimit              *int             `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	ValidFrom               *time.Time       `json:"valid_from,omitempty"`
	ValidUntil              *time.Time       `json:"valid_until,omitempty"`
	IsActive                bool             `json:"is_active"`
	MaxApplicationsPerOrder int              `json:"max_applications_per_order" validate:"omitempty,min=1"`
}

// AdminCreateCoupon registers a new discount code.
func AdminCreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discountType, err := enums.ParseDiscountType(req.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_type"))
			return
		}
		coupon, err := svc.CreateCoupon(r.Context(), coupons.CreateCouponInput{
			Code:                    req.Code,
			Description:             req.Description,
			DiscountType:            discountType,
			DiscountValue:           req.DiscountValue,
			MinPurchaseAmount:       req.MinPurchaseAmount,
			MaxDiscountAmount:       req.MaxDiscountAmount,
			UsageLimit:              req.UsageLimit,
			ValidFrom:               req.ValidFrom,
			ValidUntil:              req.ValidUntil,
			IsActive:                req.IsActive,
			MaxApplicationsPerOrder: req.MaxApplicationsPerOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

type updateCouponRequest struct {
	Description             *string          `json:"description,omitempty"`
	DiscountType            *string          `json:"discount_type,omitempty"`
	DiscountValue           *decimal.Decimal `json:"discount_value,omitempty"`
	MinPurchaseAmount       *decimal.Decimal `json:"min_purchase_amount,omitempty"`
	MaxDiscountAmount       *decimal.Decimal `json:"max_discount_amount,omitempty"`
	UsageLimit              *int             `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	ValidFrom               *time.Time       `json:"valid_from,omitempty"`
	ValidUntil              *time.Time       `json:"valid_until,omitempty"`
	IsActive                *bool            `json:"is_active,omitempty"`
	MaxApplicationsPerOrder *int             `json:"max_applications_per_order,omitempty" validate:"omitempty,min=1"`
}

// AdminUpdateCoupon applies a partial coupon mutation.
func AdminUpdateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := coupons.UpdateCouponInput{
			Description:             req.Description,
			DiscountValue:           req.DiscountValue,
			MinPurchaseAmount:       req.MinPurchaseAmount,
			MaxDiscountAmount:       req.MaxDiscountAmount,
			UsageLimit:              req.UsageLimit,
			ValidFrom:               req.ValidFrom,
			ValidUntil:              req.ValidUntil,
			IsActive:                req.IsActive,
			MaxApplicationsPerOrder: req.MaxApplicationsPerOrder,
		}
		if req.DiscountType != nil {
			discountType, err := enums.ParseDiscountType(*req.DiscountType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_type"))
				return
			}
			input.DiscountType = &discountType
		}
		coupon, err := svc.UpdateCoupon(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// AdminGetCoupon returns a coupon with its rules.
func AdminGetCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.GetCoupon(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// AdminListCoupons lists coupons for the back office.
func AdminListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListCoupons(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminDeleteCoupon removes a coupon and its rules.
func AdminDeleteCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCoupon(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type ruleRequest struct {
	RuleName     string  `json:"rule_name" validate:"required,max=120"`
	Description  *string `json:"description,omitempty"`
	RulePriority int     `json:"rule_priority"`
	IsActive     bool    `json:"is_active"`

	SourceType               string           `json:"source_type" validate:"required"`
	SourceCategoryID         *uuid.UUID       `json:"source_category_id,omitempty"`
	SourceNewArrivalRequired *bool            `json:"source_new_arrival_required,omitempty"`
	SourceMinQuantity        int              `json:"source_min_quantity" validate:"min=1"`
	SourceMaxQuantity        *int             `json:"source_max_quantity,omitempty" validate:"omitempty,min=1"`
	SourceMinAmount          *decimal.Decimal `json:"source_min_amount,omitempty"`

	BenefitType              string           `json:"benefit_type" validate:"required"`
	TargetCategoryID         *uuid.UUID       `json:"target_category_id,omitempty"`
	TargetNewArrivalRequired *bool            `json:"target_new_arrival_required,omitempty"`
	FreeQuantity             *int             `json:"free_quantity,omitempty" validate:"omitempty,min=1"`
	FreeItemSelection        *string          `json:"free_item_selection,omitempty"`
	FreeDiscountPercentage   *decimal.Decimal `json:"free_discount_percentage,omitempty"`
	DiscountAmount           *decimal.Decimal `json:"discount_amount,omitempty"`
	DiscountPercentage       *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountTargetType       *string          `json:"discount_target_type,omitempty"`
	DiscountTargetCategoryID *uuid.UUID       `json:"discount_target_category_id,omitempty"`
	DiscountTargetNewArrival *bool            `json:"discount_target_new_arrival,omitempty"`
	BundleFixedPrice         *decimal.Decimal `json:"bundle_fixed_price,omitempty"`
}

func (req ruleRequest) input() (coupons.RuleInput, error) {
	sourceType, err := enums.ParseRuleSourceType(req.SourceType)
	if err != nil {
		return coupons.RuleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source_type")
	}
	benefitType, err := enums.ParseBenefitType(req.BenefitType)
	if err != nil {
		return coupons.RuleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid benefit_type")
	}

	input := coupons.RuleInput{
		RuleName:     req.RuleName,
		Description:  req.Description,
		RulePriority: req.RulePriority,
		IsActive:     req.IsActive,

		SourceType:               sourceType,
		SourceCategoryID:         req.SourceCategoryID,
		SourceNewArrivalRequired: req.SourceNewArrivalRequired,
		SourceMinQuantity:        req.SourceMinQuantity,
		SourceMaxQuantity:        req.SourceMaxQuantity,
		SourceMinAmount:          req.SourceMinAmount,

		BenefitType:              benefitType,
		TargetCategoryID:         req.TargetCategoryID,
		TargetNewArrivalRequired: req.TargetNewArrivalRequired,
		FreeQuantity:             req.FreeQuantity,
		FreeDiscountPercentage:   req.FreeDiscountPercentage,
		DiscountAmount:           req.DiscountAmount,
		DiscountPercentage:       req.DiscountPercentage,
		DiscountTargetCategoryID: req.DiscountTargetCategoryID,
		DiscountTargetNewArrival: req.DiscountTargetNewArrival,
		BundleFixedPrice:         req.BundleFixedPrice,
	}
	if req.FreeItemSelection != nil {
		selection, err := enums.ParseFreeItemSelection(*req.FreeItemSelection)
		if err != nil {
			return coupons.RuleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid free_item_selection")
		}
		input.FreeItemSelection = &selection
	}
	if req.DiscountTargetType != nil {
		targetType, err := enums.ParseDiscountTargetType(*req.DiscountTargetType)
		if err != nil {
			return coupons.RuleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_target_type")
		}
		input.DiscountTargetType = &targetType
	}
	return input, nil
}

// AdminCreateRule attaches an advanced rule to a coupon.
func AdminCreateRule(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := parseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req ruleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.input()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.CreateRule(r.Context(), couponID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rule)
	}
}

// AdminUpdateRule replaces a rule definition.
func AdminUpdateRule(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ruleID, err := parseUUIDParam(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req ruleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.input()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.UpdateRule(r.Context(), ruleID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

// AdminDeleteRule removes a rule from a coupon.
func AdminDeleteRule(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ruleID, err := parseUUIDParam(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteRule(r.Context(), ruleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminListRules lists a coupon's rules in priority order.
func AdminListRules(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := parseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rules, err := svc.ListRules(r.Context(), couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}
