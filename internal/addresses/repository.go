package addresses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
)

// Repository persists customer addresses.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, address *models.Address) error {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *Repository) Update(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Save(address).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Address{}, "id = ?", id).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).First(&address, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

// ListByCustomer returns the customer's addresses, default first.
func (r *Repository) ListByCustomer(ctx context.Context, customerEmail string) ([]models.Address, error) {
	var addressList []models.Address
	err := r.db.WithContext(ctx).
		Where("customer_email = ?", customerEmail).
		Order("is_default DESC, created_at ASC").
		Find(&addressList).Error
	return addressList, err
}

// ClearOtherDefaults unsets is_default on every address of the customer
// except the one that just became the default.
func (r *Repository) ClearOtherDefaults(ctx context.Context, customerEmail string, keepID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("customer_email = ? AND id <> ? AND is_default", customerEmail, keepID).
		UpdateColumn("is_default", false).Error
}
