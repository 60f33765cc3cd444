package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vastralabs/vastra-backend/pkg/enums"
)

// CartRecord is a customer's open cart, keyed by an opaque session token.
type CartRecord struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID  string           `gorm:"column:session_id;uniqueIndex;not null"`
	Status     enums.CartStatus `gorm:"column:status;type:cart_status;not null;default:'active'"`
	Items      []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	CheckedOut *time.Time       `gorm:"column:checked_out_at"`
}

// TableName maps the model onto the carts table.
func (CartRecord) TableName() string {
	return "carts"
}
