package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/nairamart/nairamart-backend/api/responses"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
	"github.com/nairamart/nairamart-backend/pkg/logger"
	"github.com/nairamart/nairamart-backend/pkg/paystack"
	"github.com/nairamart/nairamart-backend/pkg/redis"
)

const (
	signatureHeader = "x-paystack-signature"
	maxPayloadBytes = 1 << 20
	providerName    = "paystack"
)

type PaystackWebhookService interface {
	HandleEvent(ctx context.Context, event *paystack.Event) error
}

type signatureVerifier interface {
	VerifySignature(signature string, body []byte) bool
}

// PaystackWebhook receives gateway payment events. The raw body is verified
// against the signature header before any of it is parsed, and a short-lived
// idempotency mark suppresses redeliveries of the same reference.
func PaystackWebhook(svc PaystackWebhookService, verifier signatureVerifier, guard redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature missing"))
			return
		}
		if !verifier.VerifySignature(signature, payload) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature mismatch"))
			return
		}

		var event paystack.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event payload"))
			return
		}
		if event.Data.Reference == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event reference missing"))
			return
		}

		key := guard.WebhookEventKey(providerName, event.Data.Reference)
		fresh, err := guard.SetNX(ctx, key, 1, ttl)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if !fresh {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			// Release the mark so the gateway's retry can be processed.
			_ = guard.Del(ctx, key)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithReference(ctx, event.Data.Reference)
			logg.Info(ctx, "paystack event processed")
		}
		responses.WriteSuccess(w, nil)
	}
}
