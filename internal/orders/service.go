package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
	"github.com/vastralabs/vastra-backend/pkg/logger"
	"github.com/vastralabs/vastra-backend/pkg/outbox"
	"github.com/vastralabs/vastra-backend/pkg/outbox/payloads"
	"github.com/vastralabs/vastra-backend/pkg/pagination"
)

// Page is one cursor-paginated slice of the admin order listing.
type Page struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// Service exposes order reads, status transitions and payment updates.
type Service interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListOrders(ctx context.Context, filter ListFilter) (*Page, error)
	ListCustomerOrders(ctx context.Context, email string, limit, offset int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus, reason string) (*models.Order, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, reference *string) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockRestorer interface {
	RestoreStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, color, size string, quantity int) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   *Repository
	runner txRunner
	stock  stockRestorer
	events eventEmitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService constructs an order service instance. The event emitter is
// optional; pass nil to skip outbox emission.
func NewService(repo *Repository, runner txRunner, stock stockRestorer, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		runner: runner,
		stock:  stock,
		events: events,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.load(ctx, id)
}

func (s *service) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	order, err := s.repo.FindByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) (*Page, error) {
	limit := pagination.NormalizeLimit(filter.Limit)
	fetch := filter
	fetch.Limit = limit + 1

	orderList, err := s.repo.List(ctx, fetch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}

	page := &Page{Orders: orderList}
	if len(orderList) > limit {
		page.Orders = orderList[:limit]
		last := page.Orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, email string, limit, offset int) ([]models.Order, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	orderList, err := s.repo.List(ctx, ListFilter{CustomerEmail: email, Limit: limit, Offset: offset})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return orderList, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus, reason string) (*models.Order, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, next); err != nil {
			return err
		}
		if next == enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := s.stock.RestoreStock(ctx, tx, item.ProductID, item.Color, item.Size, item.Quantity); err != nil {
					return err
				}
			}
			return s.emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderCancelledEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					Reason:      reason,
					CancelledAt: s.now(),
				},
				Version: 1,
			})
		}
		return s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        order.Status,
				To:          next,
				ChangedAt:   s.now(),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
	}

	s.logg.Info(ctx, fmt.Sprintf("order moved to %s", next))
	return s.load(ctx, id)
}

func (s *service) UpdatePayment(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, reference *string) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePayment(ctx, id, status, reference); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment")
	}
	return s.load(ctx, id)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, event)
}
