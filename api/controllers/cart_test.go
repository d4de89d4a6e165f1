package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nairamart/nairamart-backend/api/middleware"
	cartsvc "github.com/nairamart/nairamart-backend/internal/cart"
	"github.com/nairamart/nairamart-backend/pkg/db/models"
	"github.com/nairamart/nairamart-backend/pkg/enums"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
	"github.com/nairamart/nairamart-backend/pkg/types"
)

func TestCartAddItemCreatesLine(t *testing.T) {
	buyerID := uuid.New()
	productID := uuid.New()
	svc := &stubCartService{cart: sampleCart(buyerID, productID)}
	handler := CartAddItem(svc, nil)

	body := fmt.Sprintf(`{"product_id":%q,"price_at_time":"1500.50"}`, productID)
	req := buyerRequest(t, http.MethodPost, "/api/v1/cart/items", buyerID, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.addInput.ProductID != productID {
		t.Fatalf("expected product forwarded, got %s", svc.addInput.ProductID)
	}
	if !svc.addInput.PriceAtTime.Equal(decimal.RequireFromString("1500.50")) {
		t.Fatalf("expected price forwarded, got %s", svc.addInput.PriceAtTime)
	}
}

func TestCartAddItemRejectsBadPrice(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubCartService{}
	handler := CartAddItem(svc, nil)

	body := fmt.Sprintf(`{"product_id":%q,"price_at_time":"not-a-number"}`, uuid.New())
	req := buyerRequest(t, http.MethodPost, "/api/v1/cart/items", buyerID, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCartAddItemRequiresBuyerContext(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)

	body := fmt.Sprintf(`{"product_id":%q,"price_at_time":"10.00"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without buyer context, got %d", rec.Code)
	}
}

func TestCartAddItemSurfacesInsufficientStock(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for product").
		WithDetails(map[string]any{"available": 2})}
	handler := CartAddItem(svc, nil)

	body := fmt.Sprintf(`{"product_id":%q,"price_at_time":"10.00"}`, uuid.New())
	req := buyerRequest(t, http.MethodPost, "/api/v1/cart/items", buyerID, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Details == nil {
		t.Fatal("expected available quantity in details")
	}
}

func TestCartUpdateQuantityParsesAction(t *testing.T) {
	buyerID := uuid.New()
	itemID := uuid.New()
	svc := &stubCartService{cart: sampleCart(buyerID, uuid.New())}
	handler := CartUpdateQuantity(svc, nil)

	req := buyerRequest(t, http.MethodPatch, "/api/v1/cart/items/"+itemID.String(), buyerID, bytes.NewBufferString(`{"action":"increase"}`))
	req = withURLParam(req, "itemID", itemID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.action != enums.QuantityActionIncrease {
		t.Fatalf("expected increase forwarded, got %s", svc.action)
	}
	if svc.itemID != itemID {
		t.Fatalf("expected item id forwarded, got %s", svc.itemID)
	}
}

func TestCartUpdateQuantityRejectsUnknownAction(t *testing.T) {
	buyerID := uuid.New()
	itemID := uuid.New()
	handler := CartUpdateQuantity(&stubCartService{}, nil)

	req := buyerRequest(t, http.MethodPatch, "/api/v1/cart/items/"+itemID.String(), buyerID, bytes.NewBufferString(`{"action":"double"}`))
	req = withURLParam(req, "itemID", itemID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCartRemoveItemReturnsCart(t *testing.T) {
	buyerID := uuid.New()
	itemID := uuid.New()
	cart := sampleCart(buyerID, uuid.New())
	cart.Items = nil
	cart.TotalAmount = decimal.Zero
	svc := &stubCartService{cart: cart}
	handler := CartRemoveItem(svc, nil)

	req := buyerRequest(t, http.MethodDelete, "/api/v1/cart/items/"+itemID.String(), buyerID, nil)
	req = withURLParam(req, "itemID", itemID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(envelope.Data.Items))
	}
	if envelope.Data.TotalAmount != "0.00" {
		t.Fatalf("expected zero total, got %s", envelope.Data.TotalAmount)
	}
}

func TestCartGetMapsNotFound(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")}
	handler := CartGet(svc, nil)

	req := buyerRequest(t, http.MethodGet, "/api/v1/cart", buyerID, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func sampleCart(buyerID, productID uuid.UUID) *models.Cart {
	price := decimal.RequireFromString("1500.50")
	return &models.Cart{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		Status:      enums.CartStatusActive,
		TotalAmount: price,
		Items: []models.CartItem{
			{
				ID:          uuid.New(),
				ProductID:   productID,
				Quantity:    1,
				PriceAtTime: price,
				Total:       price,
			},
		},
	}
}

func buyerRequest(t *testing.T, method, target string, buyerID uuid.UUID, body *bytes.Buffer) *http.Request {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	ctx := middleware.WithBuyerID(req.Context(), buyerID.String())
	ctx = middleware.WithUserID(ctx, uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.RoleBuyer))
	return req.WithContext(ctx)
}

func TestAdminCartItemsListReturnsLines(t *testing.T) {
	buyerID := uuid.New()
	productID := uuid.New()
	svc := &stubCartService{cart: sampleCart(buyerID, productID)}
	handler := AdminCartItemsList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/cart-items?limit=10", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data []adminCartItemResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected one line, got %d", len(envelope.Data))
	}
	if envelope.Data[0].ProductID != productID {
		t.Fatalf("expected product %s, got %s", productID, envelope.Data[0].ProductID)
	}
}

func TestAdminCartItemsListRejectsBadPagination(t *testing.T) {
	svc := &stubCartService{}
	handler := AdminCartItemsList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/cart-items?limit=not-a-number", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type stubCartService struct {
	cart     *models.Cart
	err      error
	addInput cartsvc.AddItemInput
	itemID   uuid.UUID
	action   enums.QuantityAction
}

func (s *stubCartService) AddItem(ctx context.Context, buyerID uuid.UUID, input cartsvc.AddItemInput) (*models.Cart, error) {
	s.addInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, buyerID, cartItemID uuid.UUID, action enums.QuantityAction) (*models.Cart, error) {
	s.itemID = cartItemID
	s.action = action
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, buyerID, cartItemID uuid.UUID) (*models.Cart, error) {
	s.itemID = cartItemID
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) GetActiveCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

func (s *stubCartService) ListAllItems(ctx context.Context, limit, offset int) ([]models.CartItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.cart == nil {
		return nil, nil
	}
	return s.cart.Items, nil
}
