package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nairamart/nairamart-backend/pkg/config"
	pkgerrors "github.com/nairamart/nairamart-backend/pkg/errors"
	"github.com/nairamart/nairamart-backend/pkg/logger"
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errBaseURLRequired   = errors.New("paystack base url is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Client exposes Paystack primitives with centralized auth, logging, and error mapping.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
	logger      *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		secretKey:   secretKey,
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		logger:      logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// SecretKey returns the configured Paystack secret.
func (c *Client) SecretKey() string {
	if c == nil {
		return ""
	}
	return c.secretKey
}

// CallbackURL reports the configured post-payment redirect target.
func (c *Client) CallbackURL() string {
	if c == nil {
		return ""
	}
	return c.callbackURL
}

// Initialize starts a hosted checkout session for the given reference.
func (c *Client) Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	if err := params.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid initialize params")
	}

	callback := strings.TrimSpace(params.CallbackURL)
	if callback == "" {
		callback = c.callbackURL
	}

	body := initializeRequest{
		Email:       params.Email,
		Amount:      ToKobo(params.Amount),
		Reference:   params.Reference,
		CallbackURL: callback,
		Metadata:    params.Metadata,
	}

	c.log(ctx, "request", "initialize_transaction", map[string]any{
		"reference":   params.Reference,
		"amount_kobo": body.Amount,
		"email":       params.Email,
	})

	var envelope struct {
		Status  bool               `json:"status"`
		Message string             `json:"message"`
		Data    initializeResponse `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &envelope); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}
	if !envelope.Status {
		err := fmt.Errorf("paystack rejected initialize: %s", envelope.Message)
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack initialize transaction failed")
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{
		"reference":   params.Reference,
		"access_code": envelope.Data.AccessCode,
	})

	return &InitializeResult{
		AuthorizationURL: envelope.Data.AuthorizationURL,
		AccessCode:       envelope.Data.AccessCode,
		Reference:        envelope.Data.Reference,
	}, nil
}

// Verify fetches the gateway's view of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*TransactionData, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	var envelope struct {
		Status  bool            `json:"status"`
		Message string          `json:"message"`
		Data    TransactionData `json:"data"`
	}
	path := "/transaction/verify/" + reference
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}
	if !envelope.Status {
		err := fmt.Errorf("paystack rejected verify: %s", envelope.Message)
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack verify transaction failed")
	}

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": reference,
		"status":    envelope.Data.Status,
	})
	return &envelope.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding paystack request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling paystack")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paystack response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		code := domainCodeForStatus(resp.StatusCode)
		return pkgerrors.Wrap(code,
			fmt.Errorf("paystack returned %d: %s", resp.StatusCode, truncate(string(raw), 256)),
			fmt.Sprintf("paystack %s %s failed", method, path))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack response")
		}
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"email", "secret", "key", "card", "authorization"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
