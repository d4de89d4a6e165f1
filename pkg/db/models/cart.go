package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nairamart/nairamart-backend/pkg/enums"
)

// Cart is the buyer's mutable collection of prospective purchase lines.
// TotalAmount is a cached sum of the line totals, recomputed in full after
// every mutation. The row is hard-deleted once its order is paid.
type Cart struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null"`
	Status      enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	TotalAmount decimal.Decimal  `gorm:"column:total_amount;type:numeric(10,2);not null;default:0"`
	Items       []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
