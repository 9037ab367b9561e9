package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// signaturePrefix is the scheme tag Meta puts in X-Hub-Signature-256.
const signaturePrefix = "sha256="

// VerifySignature checks the X-Hub-Signature-256 header value against
// the HMAC-SHA256 of the body under the tenant's app secret. The
// comparison is constant-time.
func VerifySignature(appSecret string, body []byte, header string) error {
	if header == "" {
		return fmt.Errorf("missing signature header")
	}
	sig, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return fmt.Errorf("unexpected signature scheme")
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

// SignBody computes the header value a provider would send for body.
// Used by tests and local tooling.
func SignBody(appSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
