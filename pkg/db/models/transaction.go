package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nairamart/nairamart-backend/pkg/enums"
)

// Transaction correlates a local payment attempt with the gateway's record
// of it via Reference. It keeps CartID and OrderID as plain ids rather than
// owned associations because it must outlive the cart row, which is deleted
// on confirmed payment.
type Transaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference        string                  `gorm:"column:reference;not null;unique"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null"`
	BuyerID          uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null"`
	CartID           uuid.UUID               `gorm:"column:cart_id;type:uuid;not null"`
	Email            string                  `gorm:"column:email;not null"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(10,2);not null"`
	Status           enums.TransactionStatus `gorm:"column:status;not null;default:'pending'"`
	AccessCode       *string                 `gorm:"column:access_code"`
	AuthorizationURL *string                 `gorm:"column:authorization_url"`
	GatewayResponse  *string                 `gorm:"column:gateway_response"`
	Channel          *string                 `gorm:"column:channel"`
	CardType         *string                 `gorm:"column:card_type"`
	Bank             *string                 `gorm:"column:bank"`
	Metadata         json.RawMessage         `gorm:"column:metadata;type:jsonb"`
	PaidAt           *time.Time              `gorm:"column:paid_at"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
