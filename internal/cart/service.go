package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/internal/coupons"
	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
)

// Snapshot is the cart joined with live product data at one point in
// time. Checkout and coupon validation both consume it so they agree on
// prices and the subtotal.
type Snapshot struct {
	Cart     *models.CartRecord
	Items    []ItemWithProduct
	Subtotal decimal.Decimal
}

// CouponItems converts the snapshot lines into the coupon engine's
// input shape.
func (s Snapshot) CouponItems() []coupons.CartItem {
	items := make([]coupons.CartItem, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, coupons.CartItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			CategoryID:  it.CategoryID,
			NewArrival:  it.NewArrival,
		})
	}
	return items
}

// Service exposes cart operations keyed by the customer's session token.
type Service interface {
	GetOrCreateCart(ctx context.Context, sessionID string) (*Snapshot, error)
	AddItem(ctx context.Context, sessionID string, productID uuid.UUID, color, size string, quantity int) (*Snapshot, error)
	UpdateItemQuantity(ctx context.Context, sessionID string, itemID uuid.UUID, quantity int) (*Snapshot, error)
	RemoveItem(ctx context.Context, sessionID string, itemID uuid.UUID) (*Snapshot, error)
	ClearCart(ctx context.Context, sessionID string) error
	Snapshot(ctx context.Context, sessionID string) (*Snapshot, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	products productLoader
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) GetOrCreateCart(ctx context.Context, sessionID string) (*Snapshot, error) {
	record, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.snapshotFor(ctx, record)
}

func (s *service) AddItem(ctx context.Context, sessionID string, productID uuid.UUID, color, size string, quantity int) (*Snapshot, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	record, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is no longer active")
	}

	existing, err := s.repo.FindItem(ctx, record.ID, productID, color, size)
	switch {
	case err == nil:
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart line")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := &models.CartItem{
			CartID:    record.ID,
			ProductID: productID,
			Color:     color,
			Size:      size,
			Quantity:  quantity,
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding cart line")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart line")
	}

	return s.snapshotFor(ctx, record)
}

func (s *service) UpdateItemQuantity(ctx context.Context, sessionID string, itemID uuid.UUID, quantity int) (*Snapshot, error) {
	record, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findOwnedItem(record, itemID); err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if err := s.repo.DeleteItem(ctx, itemID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart line")
		}
	} else if err := s.repo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart line")
	}
	return s.snapshotFor(ctx, record)
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, itemID uuid.UUID) (*Snapshot, error) {
	record, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findOwnedItem(record, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart line")
	}
	return s.snapshotFor(ctx, record)
}

func (s *service) ClearCart(ctx context.Context, sessionID string) error {
	record, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.repo.ClearItems(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func (s *service) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	record, err := s.repo.FindBySession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return s.snapshotFor(ctx, record)
}

func (s *service) loadOrCreate(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	record, err := s.repo.FindBySession(ctx, sessionID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	record, err = s.repo.Create(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating cart")
	}
	return record, nil
}

func (s *service) loadActive(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	record, err := s.repo.FindBySession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	if record.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is no longer active")
	}
	return record, nil
}

func (s *service) findOwnedItem(record *models.CartRecord, itemID uuid.UUID) (*models.CartItem, error) {
	for i := range record.Items {
		if record.Items[i].ID == itemID {
			return &record.Items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func (s *service) snapshotFor(ctx context.Context, record *models.CartRecord) (*Snapshot, error) {
	items, err := s.repo.ItemsWithProducts(ctx, record.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart items")
	}
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	return &Snapshot{Cart: record, Items: items, Subtotal: subtotal}, nil
}
