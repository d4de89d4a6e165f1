package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nairamart/nairamart-backend/pkg/enums"
)

// User is the minimal identity anchor; credential handling lives outside
// this service.
type User struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string     `gorm:"column:email;not null;unique"`
	Role      enums.Role `gorm:"column:role;not null;default:'buyer'"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
