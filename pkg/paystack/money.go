package paystack

import "github.com/shopspring/decimal"

var koboPerNaira = decimal.NewFromInt(100)

// ToKobo converts a naira amount to the integer minor unit the gateway expects.
func ToKobo(amount decimal.Decimal) int64 {
	return amount.Mul(koboPerNaira).Round(0).IntPart()
}

// FromKobo converts a gateway minor-unit amount back to naira.
func FromKobo(kobo int64) decimal.Decimal {
	return decimal.NewFromInt(kobo).Div(koboPerNaira)
}
