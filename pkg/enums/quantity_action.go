package enums

import "fmt"

// QuantityAction is the direction of a cart line quantity adjustment.
type QuantityAction string

const (
	QuantityActionIncrease QuantityAction = "increase"
	QuantityActionDecrease QuantityAction = "decrease"
)

var validQuantityActions = []QuantityAction{
	QuantityActionIncrease,
	QuantityActionDecrease,
}

// String implements fmt.Stringer.
func (q QuantityAction) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuantityAction.
func (q QuantityAction) IsValid() bool {
	for _, candidate := range validQuantityActions {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuantityAction converts raw input into a QuantityAction.
func ParseQuantityAction(value string) (QuantityAction, error) {
	for _, candidate := range validQuantityActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quantity action %q", value)
}
