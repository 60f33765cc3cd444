package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
)

// ItemWithProduct is one cart line joined with its live product row.
// This is the snapshot projection handed to the coupon engine and to
// checkout; prices are never stored on the cart itself.
type ItemWithProduct struct {
	ItemID      uuid.UUID       `gorm:"column:item_id"`
	ProductID   uuid.UUID       `gorm:"column:product_id"`
	ProductName string          `gorm:"column:product_name"`
	Color       string          `gorm:"column:color"`
	Size        string          `gorm:"column:size"`
	Quantity    int             `gorm:"column:quantity"`
	Price       decimal.Decimal `gorm:"column:price"`
	CategoryID  *uuid.UUID      `gorm:"column:category_id"`
	NewArrival  bool            `gorm:"column:new_arrival"`
}

// LineTotal returns price multiplied by quantity.
func (i ItemWithProduct) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

const itemsWithProductsQuery = `
SELECT ci.id AS item_id,
       ci.product_id,
       p.name AS product_name,
       ci.color,
       ci.size,
       ci.quantity,
       p.price,
       p.category_id,
       p.new_arrival
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = ?
ORDER BY ci.created_at ASC
`

// Repository wraps cart and cart item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindBySession loads the cart and its raw lines for a session token.
func (r *Repository) FindBySession(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("session_id = ?", sessionID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new active cart for the session.
func (r *Repository) Create(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	record := &models.CartRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		Status:    enums.CartStatusActive,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindItem loads the line for a variant already on the cart, if any.
func (r *Repository) FindItem(ctx context.Context, cartID, productID uuid.UUID, color, size string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND color = ? AND size = ?", cartID, productID, color, size).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts a cart line.
func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItemQuantity sets the quantity on one line.
func (r *Repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		UpdateColumn("quantity", quantity).Error
}

// DeleteItem removes one line.
func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&models.CartItem{}).Error
}

// ClearItems removes every line on the cart.
func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// ItemsWithProducts runs the join projection for the cart.
func (r *Repository) ItemsWithProducts(ctx context.Context, cartID uuid.UUID) ([]ItemWithProduct, error) {
	var items []ItemWithProduct
	err := r.db.WithContext(ctx).Raw(itemsWithProductsQuery, cartID).Scan(&items).Error
	return items, err
}

// MarkCheckedOut flips the cart status after a successful order.
func (r *Repository) MarkCheckedOut(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"status":         enums.CartStatusCheckedOut,
			"checked_out_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
