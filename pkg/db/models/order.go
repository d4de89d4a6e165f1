package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nairamart/nairamart-backend/pkg/enums"
)

// Order is the immutable snapshot frozen from a cart at checkout.
// TotalAmount is copied from the cart, never recomputed from items after
// creation. PaymentReference is set once, when payment initiation succeeds.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID          uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	Status           enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	PaymentReference *string           `gorm:"column:payment_reference;unique"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
