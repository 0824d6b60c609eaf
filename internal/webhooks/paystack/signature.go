package paystackwebhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// VerifySignature recomputes the HMAC-SHA512 of the raw request body and
// compares it to the x-paystack-signature header in constant time. The raw
// bytes must be hashed as received; re-serialized JSON can differ
// byte-for-byte and break the signature.
func VerifySignature(secret string, rawBody []byte, signatureHeader string) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if secret == "" || signatureHeader == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signatureHeader)))
}
