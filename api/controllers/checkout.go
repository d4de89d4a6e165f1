package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nairamart/nairamart-backend/api/responses"
	"github.com/nairamart/nairamart-backend/api/validators"
	checkoutsvc "github.com/nairamart/nairamart-backend/internal/checkout"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
	"github.com/nairamart/nairamart-backend/pkg/logger"
)

// Checkout freezes the buyer's cart into an order and starts payment.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), buyerID, payload.CartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:          result.OrderID,
			Reference:        result.Reference,
			AuthorizationURL: result.AuthorizationURL,
		})
	}
}

type checkoutRequest struct {
	CartID uuid.UUID `json:"cart_id" validate:"required"`
}

type checkoutResponse struct {
	OrderID          uuid.UUID `json:"order_id"`
	Reference        string    `json:"reference"`
	AuthorizationURL string    `json:"authorization_url"`
}
