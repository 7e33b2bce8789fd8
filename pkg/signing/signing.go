// Package signing implements the shared HMAC utility used to sign outbound
// webhook bodies and to validate inbound payloads. Signatures are computed
// over a canonical JSON serialization so both sides agree on byte layout
// regardless of field order in the original document.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Canonicalize renders v as JSON with object keys in a stable (sorted) order.
// Marshalling through an intermediate map lets encoding/json apply its key
// ordering to every object level.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("failed to normalize payload: %w", err)
	}

	canonical, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	return canonical, nil
}

// Sign returns the hex HMAC-SHA256 of the canonical serialization of payload.
func Sign(payload any, secret string) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return SignBytes(canonical, secret), nil
}

func SignBytes(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares in constant time. Any
// mismatch, including a malformed payload, is rejected outright.
func Verify(payload any, signature, secret string) bool {
	expected, err := Sign(payload, secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}

func VerifyBytes(body []byte, signature, secret string) bool {
	return hmac.Equal([]byte(SignBytes(body, secret)), []byte(signature))
}
