package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifySignature checks a Shopify webhook signature against the raw request
// body. Shopify sends base64(HMAC-SHA256(body, secret)) in the
// X-Shopify-Hmac-Sha256 header.
//
// The comparison is constant-time (hmac.Equal) to prevent timing attacks.
// Verification must run over the exact bytes received on the wire, before
// any JSON parsing: re-serialized JSON is not guaranteed byte-identical.
//
// Malformed or missing input is "not verified", never an error.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the base64 HMAC-SHA256 signature Shopify would attach to
// body. Used by tests and local delivery tooling.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
