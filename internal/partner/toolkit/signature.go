// internal/partner/toolkit/signature.go
package toolkit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayload computes the hex-encoded HMAC-SHA256 of payload under secret.
// Partners sign the exact bytes they deliver, so callers must pass the raw
// request body, not a re-serialization of it.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a partner-supplied signature against the payload
// bytes in constant time. Undecodable signatures are simply invalid.
func VerifySignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(provided, mac.Sum(nil))
}
