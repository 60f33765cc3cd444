package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vastralabs/vastra-backend/api/responses"
	"github.com/vastralabs/vastra-backend/api/validators"
	"github.com/vastralabs/vastra-backend/internal/checkout"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
	"github.com/vastralabs/vastra-backend/pkg/logger"
)

type checkoutRequest struct {
	CustomerName     string     `json:"customer_name" validate:"required,max=120"`
	CustomerEmail    string     `json:"customer_email" validate:"required,email"`
	CustomerPhone    *string    `json:"customer_phone,omitempty" validate:"omitempty,max=20"`
	AddressID        *uuid.UUID `json:"address_id,omitempty"`
	PaymentMethod    string     `json:"payment_method" validate:"required,max=40"`
	PaymentReference *string    `json:"payment_reference,omitempty" validate:"omitempty,max=120"`
	CouponCode       string     `json:"coupon_code,omitempty" validate:"omitempty,max=64"`
}

// Checkout places an order from the session's cart. When a coupon code
// is rejected the response still carries the validation result so the
// storefront can show the reason inline.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PlaceOrder(r.Context(), checkout.Input{
			SessionID:        sessionID,
			CustomerName:     req.CustomerName,
			CustomerEmail:    req.CustomerEmail,
			CustomerPhone:    req.CustomerPhone,
			AddressID:        req.AddressID,
			PaymentMethod:    req.PaymentMethod,
			PaymentReference: req.PaymentReference,
			CouponCode:       req.CouponCode,
		})
		if err != nil {
			if result != nil && result.Coupon != nil && !result.Coupon.Valid {
				coded := pkgerrors.As(err)
				if coded != nil && coded.Code() == pkgerrors.CodeValidation {
					responses.WriteError(r.Context(), logg, w, coded.WithDetails(map[string]any{
						"coupon": result.Coupon,
					}))
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
