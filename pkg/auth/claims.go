package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nairamart/nairamart-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	BuyerID *uuid.UUID
	Email   string
	Role    enums.Role
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID  `json:"user_id"`
	BuyerID *uuid.UUID `json:"buyer_id,omitempty"`
	Email   string     `json:"email"`
	Role    enums.Role `json:"role"`
	jwt.RegisteredClaims
}
