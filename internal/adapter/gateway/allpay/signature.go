package allpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the AllPay request signature: non-empty field values are
// ordered by field name, joined with ":", the API key is appended, and
// the result is SHA-256 hashed to lowercase hex.
func Sign(fields map[string]string, apiKey string) string {
	names := make([]string, 0, len(fields))
	for name, value := range fields {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, 0, len(names)+1)
	for _, name := range names {
		values = append(values, fields[name])
	}
	values = append(values, apiKey)

	sum := sha256.Sum256([]byte(strings.Join(values, ":")))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks a webhook signature against the expected one.
// Uses constant-time comparison to prevent timing attacks.
func VerifySignature(fields map[string]string, apiKey, signature string) bool {
	expected := Sign(fields, apiKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}
