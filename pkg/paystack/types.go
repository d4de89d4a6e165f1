package paystack

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InitializeParams contains the fields required to start a hosted checkout.
type InitializeParams struct {
	Email       string
	Amount      decimal.Decimal
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

func (p InitializeParams) validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if strings.TrimSpace(p.Reference) == "" {
		return fmt.Errorf("reference is required")
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

type initializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type initializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InitializeResult is the outcome of a successful initialize call.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Authorization carries the card details the gateway reports after a charge.
type Authorization struct {
	Channel  string `json:"channel"`
	CardType string `json:"card_type"`
	Bank     string `json:"bank"`
	Last4    string `json:"last4"`
}

// TransactionData is the gateway's record of a transaction, shared by the
// verify endpoint and the charge webhook payload.
type TransactionData struct {
	ID              int64          `json:"id"`
	Status          string         `json:"status"`
	Reference       string         `json:"reference"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	GatewayResponse string         `json:"gateway_response"`
	Channel         string         `json:"channel"`
	PaidAt          *time.Time     `json:"paid_at"`
	Authorization   Authorization  `json:"authorization"`
	Metadata        map[string]any `json:"metadata"`
}

// AmountDecimal converts the kobo amount back to the major currency unit.
func (d TransactionData) AmountDecimal() decimal.Decimal {
	return FromKobo(d.Amount)
}

// Gateway transaction statuses relevant to reconciliation.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Event is the envelope Paystack posts to webhook endpoints.
type Event struct {
	Event string          `json:"event"`
	Data  TransactionData `json:"data"`
}

// EventChargeSuccess is the only webhook event reconciliation acts on.
const EventChargeSuccess = "charge.success"
