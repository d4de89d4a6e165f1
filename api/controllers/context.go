package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nairamart/nairamart-backend/api/middleware"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
)

func buyerIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.BuyerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer profile required")
	}
	buyerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid buyer id")
	}
	return buyerID, nil
}
