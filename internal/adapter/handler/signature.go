package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw callback body.
const SignatureHeader = "X-Payment-Signature"

// SignCallback returns the signature a provider sends with a callback body.
func SignCallback(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

func validCallbackSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	return hmac.Equal([]byte(SignCallback(secret, body)), []byte(signature))
}
