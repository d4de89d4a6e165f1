package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignBody computes the hex HMAC-SHA512 digest of body under the secret key.
func (c *Client) SignBody(body []byte) string {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether the x-paystack-signature header matches the
// raw request body. Comparison is constant time.
func (c *Client) VerifySignature(signature string, body []byte) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	expected := c.SignBody(body)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}
