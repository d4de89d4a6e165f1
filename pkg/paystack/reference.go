package paystack

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewReference generates a unique transaction reference in the form
// TXN_<unix-millis>_<random>. References are persisted before the gateway
// call so a webhook can always be matched back to a local transaction.
func NewReference() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is unrecoverable for reference generation
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return fmt.Sprintf("TXN_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}
