package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
	"github.com/nairamart/nairamart-backend/pkg/paystack"
)

const testSecret = "sk_test_webhook"

func TestPaystackWebhook_SuccessAndIdempotent(t *testing.T) {
	payload, signature := buildSignedEvent(t, "TXN_1_cafe")
	service := &fakeWebhookService{}
	guard := newFakeGuard()
	handler := PaystackWebhook(service, fakeVerifier{}, guard, time.Minute, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set("x-paystack-signature", signature)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	// Redeliver the same event
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	req2.Header.Set("x-paystack-signature", signature)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected duplicate not processed, call count %d", service.calls)
	}
}

func TestPaystackWebhook_InvalidSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, "TXN_1_cafe")
	service := &fakeWebhookService{}
	handler := PaystackWebhook(service, fakeVerifier{}, newFakeGuard(), time.Minute, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set("x-paystack-signature", "deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestPaystackWebhook_MissingSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, "TXN_1_cafe")
	handler := PaystackWebhook(&fakeWebhookService{}, fakeVerifier{}, newFakeGuard(), time.Minute, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", rec.Code)
	}
}

func TestPaystackWebhook_ServiceErrorReleasesMark(t *testing.T) {
	payload, signature := buildSignedEvent(t, "TXN_2_beef")
	service := &fakeWebhookService{err: pkgerrors.New(pkgerrors.CodeDependency, "gateway down")}
	guard := newFakeGuard()
	handler := PaystackWebhook(service, fakeVerifier{}, guard, time.Minute, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set("x-paystack-signature", signature)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	// The mark was released, so the retry must reach the service again.
	service.err = nil
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	req2.Header.Set("x-paystack-signature", signature)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec2.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected two service calls, got %d", service.calls)
	}
}

func TestPaystackWebhook_GuardFailure(t *testing.T) {
	payload, signature := buildSignedEvent(t, "TXN_3_f00d")
	guard := newFakeGuard()
	guard.setErr = errors.New("redis down")
	handler := PaystackWebhook(&fakeWebhookService{}, fakeVerifier{}, guard, time.Minute, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set("x-paystack-signature", signature)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when guard unavailable, got %d", rec.Code)
	}
}

func buildSignedEvent(t *testing.T, reference string) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(paystack.Event{
		Event: paystack.EventChargeSuccess,
		Data: paystack.TransactionData{
			Reference: reference,
			Status:    paystack.StatusSuccess,
		},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(payload)
	return payload, hex.EncodeToString(mac.Sum(nil))
}

type fakeWebhookService struct {
	calls int
	err   error
}

func (f *fakeWebhookService) HandleEvent(ctx context.Context, event *paystack.Event) error {
	f.calls++
	return f.err
}

type fakeVerifier struct{}

func (fakeVerifier) VerifySignature(signature string, body []byte) bool {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(signature))
}

type fakeGuard struct {
	marks  map[string]bool
	setErr error
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{marks: map[string]bool{}}
}

func (g *fakeGuard) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if g.setErr != nil {
		return false, g.setErr
	}
	if g.marks[key] {
		return false, nil
	}
	g.marks[key] = true
	return true, nil
}

func (g *fakeGuard) WebhookEventKey(provider, reference string) string {
	return "nm:webhook:" + provider + ":" + reference
}

func (g *fakeGuard) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(g.marks, key)
	}
	return nil
}
