package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vastralabs/vastra-backend/api/responses"
	"github.com/vastralabs/vastra-backend/api/validators"
	"github.com/vastralabs/vastra-backend/internal/cart"
	"github.com/vastralabs/vastra-backend/internal/coupons"
	"github.com/vastralabs/vastra-backend/pkg/logger"
)

type couponValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, items []coupons.CartItem) *coupons.ValidationResult
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// ApplyCoupon previews a coupon against the session's cart. The outcome
// is always a 200 with the validation result; an invalid code is not an
// HTTP error.
func ApplyCoupon(carts cart.Service, validator couponValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req applyCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := carts.Snapshot(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := validator.Validate(r.Context(), req.Code, snapshot.Subtotal, snapshot.CouponItems())
		responses.WriteSuccess(w, result)
	}
}
