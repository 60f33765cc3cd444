package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductStock holds on-hand quantity per color/size variant.
type ProductStock struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_stock_variant,priority:1"`
	Color     string    `gorm:"column:color;not null;uniqueIndex:idx_stock_variant,priority:2"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:idx_stock_variant,priority:3"`
	Quantity  int       `gorm:"column:quantity;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps the model onto the product_stock table.
func (ProductStock) TableName() string {
	return "product_stock"
}
