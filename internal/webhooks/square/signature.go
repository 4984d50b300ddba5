package squarewebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the HMAC-SHA256 Square computes over the
// notification URL followed by the raw body.
const SignatureHeader = "X-Square-Hmacsha256-Signature"

// Verifier checks notification signatures for one subscription URL.
type Verifier struct {
	SignatureKey    string
	NotificationURL string
}

func (v Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(v.SignatureKey))
	mac.Write([]byte(v.NotificationURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (v Verifier) Valid(body []byte, signature string) bool {
	if v.SignatureKey == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(body)), []byte(signature))
}
