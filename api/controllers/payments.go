package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nairamart/nairamart-backend/api/responses"
	"github.com/nairamart/nairamart-backend/pkg/db/models"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
	"github.com/nairamart/nairamart-backend/pkg/logger"
)

// PaymentReconciler resolves a payment reference against the gateway and
// applies the resulting status transition.
type PaymentReconciler interface {
	VerifyAndReconcile(ctx context.Context, reference string) (*models.Transaction, error)
}

// PaymentVerify polls the gateway for a reference's outcome. Clients use it
// when the hosted payment page has redirected back but the webhook has not
// landed yet.
func PaymentVerify(svc PaymentReconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference is required"))
			return
		}

		txn, err := svc.VerifyAndReconcile(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTransactionResponse(txn))
	}
}

type transactionResponse struct {
	ID               uuid.UUID  `json:"id"`
	Reference        string     `json:"reference"`
	OrderID          uuid.UUID  `json:"order_id"`
	Status           string     `json:"status"`
	Amount           string     `json:"amount"`
	AuthorizationURL *string    `json:"authorization_url,omitempty"`
	GatewayResponse  *string    `json:"gateway_response,omitempty"`
	Channel          *string    `json:"channel,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func newTransactionResponse(txn *models.Transaction) transactionResponse {
	if txn == nil {
		return transactionResponse{}
	}
	return transactionResponse{
		ID:               txn.ID,
		Reference:        txn.Reference,
		OrderID:          txn.OrderID,
		Status:           string(txn.Status),
		Amount:           txn.Amount.StringFixed(2),
		AuthorizationURL: txn.AuthorizationURL,
		GatewayResponse:  txn.GatewayResponse,
		Channel:          txn.Channel,
		PaidAt:           txn.PaidAt,
		CreatedAt:        txn.CreatedAt,
	}
}
