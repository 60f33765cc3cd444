package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
)

// ListFilter narrows product listings. Zero values mean no constraint.
type ListFilter struct {
	CategoryID *uuid.UUID
	NewArrival *bool
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}

// Repository wraps product, category and stock persistence.
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

// FindByID loads a product with its stock rows.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Stock").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads a product with its stock rows by storefront slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Stock").
		Where("slug = ?", slug).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns products matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Stock")
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.NewArrival != nil {
		query = query.Where("new_arrival = ?", *filter.NewArrival)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var products []models.Product
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&products).Error
	return products, err
}

// Create inserts a product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(product).Error
}

// Update persists all fields of the product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Delete removes a product and its stock rows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductStock{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Product{}).Error
	})
}

// StockFor loads the stock row for one color/size variant.
func (r *Repository) StockFor(ctx context.Context, productID uuid.UUID, color, size string) (*models.ProductStock, error) {
	var stock models.ProductStock
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND color = ? AND size = ?", productID, color, size).
		First(&stock).Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// UpsertStock sets the on-hand quantity for a variant, creating the row
// when missing.
func (r *Repository) UpsertStock(ctx context.Context, productID uuid.UUID, color, size string, quantity int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ProductStock{}).
			Where("product_id = ? AND color = ? AND size = ?", productID, color, size).
			UpdateColumn("quantity", quantity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&models.ProductStock{
			ID:        uuid.New(),
			ProductID: productID,
			Color:     color,
			Size:      size,
			Quantity:  quantity,
		}).Error
	})
}

// DeductStock performs the atomic check-and-deduct for one variant. It
// reports false when the row is missing or holds fewer units than
// requested; concurrent checkouts can never drive quantity negative.
func (r *Repository) DeductStock(ctx context.Context, productID uuid.UUID, color, size string, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductStock{}).
		Where("product_id = ? AND color = ? AND size = ? AND quantity >= ?", productID, color, size, quantity).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RestoreStock returns units to a variant, used when an order is cancelled.
func (r *Repository) RestoreStock(ctx context.Context, productID uuid.UUID, color, size string, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductStock{}).
		Where("product_id = ? AND color = ? AND size = ?", productID, color, size).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity)).Error
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

// FindCategoryByID loads one category.
func (r *Repository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts a category row.
func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(category).Error
}
