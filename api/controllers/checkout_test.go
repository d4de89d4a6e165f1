package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	checkoutsvc "github.com/nairamart/nairamart-backend/internal/checkout"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
	"github.com/nairamart/nairamart-backend/pkg/types"
)

func TestCheckoutReturnsPaymentDetails(t *testing.T) {
	buyerID := uuid.New()
	cartID := uuid.New()
	result := &checkoutsvc.Result{
		OrderID:          uuid.New(),
		Reference:        "TXN_1_cafe",
		AuthorizationURL: "https://checkout.paystack.com/abc123",
	}
	svc := &stubCheckoutService{result: result}
	handler := Checkout(svc, nil)

	body := fmt.Sprintf(`{"cart_id":%q}`, cartID)
	req := buyerRequest(t, http.MethodPost, "/api/v1/checkout", buyerID, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.cartID != cartID {
		t.Fatalf("expected cart id forwarded, got %s", svc.cartID)
	}
	if svc.buyerID != buyerID {
		t.Fatalf("expected buyer id forwarded, got %s", svc.buyerID)
	}

	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != result.OrderID {
		t.Fatalf("unexpected order id %s", envelope.Data.OrderID)
	}
	if envelope.Data.Reference != result.Reference {
		t.Fatalf("unexpected reference %s", envelope.Data.Reference)
	}
	if envelope.Data.AuthorizationURL != result.AuthorizationURL {
		t.Fatalf("unexpected authorization url %s", envelope.Data.AuthorizationURL)
	}
}

func TestCheckoutRejectsEmptyBody(t *testing.T) {
	buyerID := uuid.New()
	handler := Checkout(&stubCheckoutService{}, nil)

	req := buyerRequest(t, http.MethodPost, "/api/v1/checkout", buyerID, bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutRequiresBuyerContext(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil)

	body := fmt.Sprintf(`{"cart_id":%q}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCheckoutSurfacesPendingPaymentConflict(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "a payment is already pending for this cart")}
	handler := Checkout(svc, nil)

	body := fmt.Sprintf(`{"cart_id":%q}`, uuid.New())
	req := buyerRequest(t, http.MethodPost, "/api/v1/checkout", buyerID, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}

type stubCheckoutService struct {
	result  *checkoutsvc.Result
	err     error
	buyerID uuid.UUID
	cartID  uuid.UUID
}

func (s *stubCheckoutService) Checkout(ctx context.Context, buyerID, cartID uuid.UUID) (*checkoutsvc.Result, error) {
	s.buyerID = buyerID
	s.cartID = cartID
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}
