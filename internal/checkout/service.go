package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/internal/cart"
	"github.com/vastralabs/vastra-backend/internal/coupons"
	"github.com/vastralabs/vastra-backend/internal/orders"
	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
	"github.com/vastralabs/vastra-backend/pkg/logger"
	"github.com/vastralabs/vastra-backend/pkg/outbox"
	"github.com/vastralabs/vastra-backend/pkg/outbox/payloads"
)

// Input is the validated payload to place an order from a cart.
type Input struct {
	SessionID        string
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    *string
	AddressID        *uuid.UUID
	PaymentMethod    string
	PaymentReference *string
	CouponCode       string
}

// Result carries the created order plus the coupon outcome so the API
// can always render a discount breakdown alongside the order.
type Result struct {
	Order  *models.Order
	Coupon *coupons.ValidationResult
}

// Service turns a cart into an order inside one transaction.
type Service interface {
	PlaceOrder(ctx context.Context, input Input) (*Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	Snapshot(ctx context.Context, sessionID string) (*cart.Snapshot, error)
}

type couponValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, items []coupons.CartItem) *coupons.ValidationResult
	RedeemUsage(ctx context.Context, tx *gorm.DB, code string) error
}

type stockDeductor interface {
	DeductStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, color, size string, quantity int) error
}

type eventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	carts     cartReader
	cartRepo  *cart.Repository
	coupons   couponValidator
	stock     stockDeductor
	orderRepo *orders.Repository
	events    eventEmitter
	runner    txRunner
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs a checkout service instance. The event emitter
// is optional; pass nil to skip outbox emission.
func NewService(
	carts cartReader,
	cartRepo *cart.Repository,
	couponSvc couponValidator,
	stock stockDeductor,
	orderRepo *orders.Repository,
	events eventEmitter,
	runner txRunner,
	logg *logger.Logger,
) (Service, error) {
	if carts == nil || cartRepo == nil {
		return nil, fmt.Errorf("cart dependencies required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock deductor required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		carts:     carts,
		cartRepo:  cartRepo,
		coupons:   couponSvc,
		stock:     stock,
		orderRepo: orderRepo,
		events:    events,
		runner:    runner,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input Input) (*Result, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	snapshot, err := s.carts.Snapshot(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if snapshot.Cart.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart has already been checked out")
	}
	if len(snapshot.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	discount := decimal.Zero
	var couponResult *coupons.ValidationResult
	var couponCode *string
	var explanation *string
	if input.CouponCode != "" {
		couponResult = s.coupons.Validate(ctx, input.CouponCode, snapshot.Subtotal, snapshot.CouponItems())
		if !couponResult.Valid {
			return &Result{Coupon: couponResult}, pkgerrors.New(pkgerrors.CodeValidation, couponResult.Message)
		}
		discount = couponResult.Discount
		code := couponResult.Coupon.Code
		couponCode = &code
		if couponResult.Breakdown != nil && couponResult.Breakdown.Explanation != "" {
			text := couponResult.Breakdown.Explanation
			explanation = &text
		}
	}

	total := snapshot.Subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	order := &models.Order{
		OrderNumber:         s.orderNumber(),
		CustomerName:        input.CustomerName,
		CustomerEmail:       input.CustomerEmail,
		CustomerPhone:       input.CustomerPhone,
		AddressID:           input.AddressID,
		Status:              enums.OrderStatusPending,
		PaymentStatus:       enums.PaymentStatusPending,
		PaymentMethod:       input.PaymentMethod,
		PaymentReference:    input.PaymentReference,
		Subtotal:            snapshot.Subtotal,
		DiscountTotal:       discount,
		Total:               total,
		CouponCode:          couponCode,
		DiscountExplanation: explanation,
		Items:               orderItems(snapshot.Items),
	}

	ctx = s.logg.WithField(ctx, "order_number", order.OrderNumber)
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range snapshot.Items {
			if err := s.stock.DeductStock(ctx, tx, line.ProductID, line.Color, line.Size, line.Quantity); err != nil {
				return err
			}
		}
		if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}
		if couponCode != nil {
			if err := s.coupons.RedeemUsage(ctx, tx, *couponCode); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCouponRedeemed,
				AggregateType: enums.AggregateCoupon,
				AggregateID:   couponResult.Coupon.ID,
				Data: payloads.CouponRedeemedEvent{
					CouponID:   couponResult.Coupon.ID,
					CouponCode: *couponCode,
					OrderID:    order.ID,
					Discount:   discount,
				},
				Version: 1,
			}); err != nil {
				return err
			}
		}
		if err := s.cartRepo.WithTx(tx).MarkCheckedOut(ctx, snapshot.Cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "closing cart")
		}
		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CustomerEmail: input.CustomerEmail},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CustomerName:  order.CustomerName,
				CustomerEmail: order.CustomerEmail,
				Subtotal:      order.Subtotal,
				DiscountTotal: order.DiscountTotal,
				Total:         order.Total,
				CouponCode:    order.CouponCode,
				ItemCount:     len(order.Items),
			},
			Version: 1,
		})
	})
	if err != nil {
		return &Result{Coupon: couponResult}, err
	}

	s.logg.Info(ctx, "order placed")
	return &Result{Order: order, Coupon: couponResult}, nil
}

func validateInput(input *Input) error {
	input.SessionID = strings.TrimSpace(input.SessionID)
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerEmail = strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	input.PaymentMethod = strings.TrimSpace(input.PaymentMethod)
	input.CouponCode = strings.TrimSpace(input.CouponCode)

	switch {
	case input.SessionID == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	case input.CustomerName == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	case input.CustomerEmail == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	case input.PaymentMethod == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	return nil
}

func orderItems(lines []cart.ItemWithProduct) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Color:       line.Color,
			Size:        line.Size,
			Quantity:    line.Quantity,
			UnitPrice:   line.Price,
			LineTotal:   line.LineTotal(),
		})
	}
	return items
}

// orderNumber builds a short public identifier like VST-20260901-3F2A9C.
func (s *service) orderNumber() string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("VST-%s-%s", s.now().Format("20060102"), strings.ToUpper(hex.EncodeToString(suffix)))
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.events == nil {
		return nil
	}
	return s.events.EmitIfNotExists(ctx, tx, event)
}
