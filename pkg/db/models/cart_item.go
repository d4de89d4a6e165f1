package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line per distinct product in a cart. PriceAtTime is a
// snapshot captured at insertion, never re-read from the catalog on later
// mutations. Total is always Quantity * PriceAtTime.
type CartItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID      uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	Quantity    int             `gorm:"column:quantity;not null;default:1"`
	PriceAtTime decimal.Decimal `gorm:"column:price_at_time;type:numeric(10,2);not null"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(10,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
