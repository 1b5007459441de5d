package allpay

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	fields := map[string]string{
		"login":    "merchant1",
		"order_id": "ORD-001",
		"currency": "ILS",
		"amount":   "150.50",
	}

	// Values sorted by field name (amount, currency, login, order_id),
	// joined with ":", api key appended, sha256 hex.
	sum := sha256.Sum256([]byte("150.50:ILS:merchant1:ORD-001:secret-key"))
	want := hex.EncodeToString(sum[:])

	assert.Equal(t, want, Sign(fields, "secret-key"))
}

func TestSign_SkipsEmptyFields(t *testing.T) {
	withEmpty := map[string]string{
		"login":    "merchant1",
		"order_id": "ORD-001",
		"comment":  "",
	}
	without := map[string]string{
		"login":    "merchant1",
		"order_id": "ORD-001",
	}
	assert.Equal(t, Sign(without, "k"), Sign(withEmpty, "k"))
}

func TestSign_OrderIndependent(t *testing.T) {
	a := Sign(map[string]string{"b": "2", "a": "1", "c": "3"}, "k")
	b := Sign(map[string]string{"c": "3", "a": "1", "b": "2"}, "k")
	assert.Equal(t, a, b)
}

func TestSign_KeyChangesSignature(t *testing.T) {
	fields := map[string]string{"order_id": "ORD-001"}
	assert.NotEqual(t, Sign(fields, "key-one"), Sign(fields, "key-two"))
}

func TestVerifySignature(t *testing.T) {
	fields := map[string]string{
		"transaction_id": "TXN_001",
		"status":         "1",
		"amount":         "150.50",
	}
	sig := Sign(fields, "secret-key")

	assert.True(t, VerifySignature(fields, "secret-key", sig))
	assert.False(t, VerifySignature(fields, "wrong-key", sig))
	assert.False(t, VerifySignature(fields, "secret-key", "forged"))

	tampered := map[string]string{
		"transaction_id": "TXN_001",
		"status":         "1",
		"amount":         "999.99",
	}
	assert.False(t, VerifySignature(tampered, "secret-key", sig))
}
