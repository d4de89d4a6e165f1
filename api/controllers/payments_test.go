package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nairamart/nairamart-backend/pkg/db/models"
	"github.com/nairamart/nairamart-backend/pkg/enums"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
)

func TestPaymentVerifyReturnsTransaction(t *testing.T) {
	buyerID := uuid.New()
	txn := &models.Transaction{
		ID:        uuid.New(),
		Reference: "TXN_1_cafe",
		OrderID:   uuid.New(),
		Status:    enums.TransactionStatusSuccess,
		Amount:    decimal.RequireFromString("1500.50"),
	}
	svc := &stubReconciler{txn: txn}
	handler := PaymentVerify(svc, nil)

	req := buyerRequest(t, http.MethodGet, "/api/v1/payments/verify/"+txn.Reference, buyerID, nil)
	req = withURLParam(req, "reference", txn.Reference)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.reference != txn.Reference {
		t.Fatalf("expected reference forwarded, got %s", svc.reference)
	}

	var envelope struct {
		Data transactionResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != string(enums.TransactionStatusSuccess) {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
	if envelope.Data.Amount != "1500.50" {
		t.Fatalf("unexpected amount %s", envelope.Data.Amount)
	}
}

func TestPaymentVerifyRequiresReference(t *testing.T) {
	handler := PaymentVerify(&stubReconciler{}, nil)

	req := buyerRequest(t, http.MethodGet, "/api/v1/payments/verify/", uuid.New(), nil)
	req = withURLParam(req, "reference", " ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPaymentVerifyMapsUnknownReference(t *testing.T) {
	svc := &stubReconciler{err: pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")}
	handler := PaymentVerify(svc, nil)

	req := buyerRequest(t, http.MethodGet, "/api/v1/payments/verify/TXN_unknown", uuid.New(), nil)
	req = withURLParam(req, "reference", "TXN_unknown")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

type stubReconciler struct {
	txn       *models.Transaction
	err       error
	reference string
}

func (s *stubReconciler) VerifyAndReconcile(ctx context.Context, reference string) (*models.Transaction, error) {
	s.reference = reference
	if s.err != nil {
		return nil, s.err
	}
	return s.txn, nil
}
