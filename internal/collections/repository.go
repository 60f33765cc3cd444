package collections

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
)

// Repository wraps collection persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a collection with its products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("id = ?", id).
		First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// FindBySlug loads a collection with its products by storefront slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("slug = ?", slug).
		First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// List returns collections, optionally restricted to active ones.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.Collection, error) {
	query := r.db.WithContext(ctx).Model(&models.Collection{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var collectionList []models.Collection
	err := query.Order("created_at DESC").Find(&collectionList).Error
	return collectionList, err
}

// Create inserts a collection row.
func (r *Repository) Create(ctx context.Context, collection *models.Collection) error {
	if collection.ID == uuid.Nil {
		collection.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(collection).Error
}

// Update persists all fields of the collection row.
func (r *Repository) Update(ctx context.Context, collection *models.Collection) error {
	return r.db.WithContext(ctx).Save(collection).Error
}

// Delete removes a collection and its membership rows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM collection_products WHERE collection_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Collection{}).Error
	})
}

// ReplaceProducts swaps the full product membership of a collection.
func (r *Repository) ReplaceProducts(ctx context.Context, collection *models.Collection, products []models.Product) error {
	return r.db.WithContext(ctx).
		Model(collection).
		Association("Products").
		Replace(products)
}

// FindProducts loads the given product rows by ID.
func (r *Repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}
