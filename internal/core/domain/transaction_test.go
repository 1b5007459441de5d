package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidStatusTransition(t *testing.T) {
	tests := []struct {
		name string
		from TransactionStatus
		to   TransactionStatus
		want bool
	}{
		{"pending to completed", TransactionStatusPending, TransactionStatusCompleted, true},
		{"pending to failed", TransactionStatusPending, TransactionStatusFailed, true},
		{"pending to cancelled", TransactionStatusPending, TransactionStatusCancelled, true},
		{"pending to refunded", TransactionStatusPending, TransactionStatusRefunded, false},
		{"pending to pending", TransactionStatusPending, TransactionStatusPending, false},
		{"completed to refunded", TransactionStatusCompleted, TransactionStatusRefunded, true},
		{"completed to partially refunded", TransactionStatusCompleted, TransactionStatusPartiallyRefunded, true},
		{"completed to pending", TransactionStatusCompleted, TransactionStatusPending, false},
		{"completed to failed", TransactionStatusCompleted, TransactionStatusFailed, false},
		{"failed retries to pending", TransactionStatusFailed, TransactionStatusPending, true},
		{"failed to completed", TransactionStatusFailed, TransactionStatusCompleted, false},
		{"cancelled is terminal", TransactionStatusCancelled, TransactionStatusPending, false},
		{"refunded is terminal", TransactionStatusRefunded, TransactionStatusCompleted, false},
		{"partially refunded to refunded", TransactionStatusPartiallyRefunded, TransactionStatusRefunded, true},
		{"partially refunded to completed", TransactionStatusPartiallyRefunded, TransactionStatusCompleted, false},
		{"unknown status never transitions", TransactionStatus("bogus"), TransactionStatusPending, false},
		{"no transition to unknown status", TransactionStatusPending, TransactionStatus("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidStatusTransition(tt.from, tt.to))
		})
	}
}

func TestGetValidNextStatuses(t *testing.T) {
	assert.ElementsMatch(t,
		[]TransactionStatus{TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled},
		GetValidNextStatuses(TransactionStatusPending))
	assert.ElementsMatch(t,
		[]TransactionStatus{TransactionStatusRefunded, TransactionStatusPartiallyRefunded},
		GetValidNextStatuses(TransactionStatusCompleted))
	assert.Empty(t, GetValidNextStatuses(TransactionStatusCancelled))
	assert.Empty(t, GetValidNextStatuses(TransactionStatusRefunded))
	assert.Empty(t, GetValidNextStatuses(TransactionStatus("bogus")))
}

func TestGetValidNextStatuses_ReturnsCopy(t *testing.T) {
	next := GetValidNextStatuses(TransactionStatusPending)
	require.NotEmpty(t, next)
	next[0] = TransactionStatusRefunded

	// Mutating the returned slice must not corrupt the table.
	assert.False(t, IsValidStatusTransition(TransactionStatusPending, TransactionStatusRefunded))
}

func TestIsTransactionFinal(t *testing.T) {
	assert.True(t, IsTransactionFinal(TransactionStatusCompleted))
	assert.True(t, IsTransactionFinal(TransactionStatusCancelled))
	assert.True(t, IsTransactionFinal(TransactionStatusRefunded))

	assert.False(t, IsTransactionFinal(TransactionStatusPending))
	assert.False(t, IsTransactionFinal(TransactionStatusFailed))
	// Still refundable in full, so not final even though completed is.
	assert.False(t, IsTransactionFinal(TransactionStatusPartiallyRefunded))
	assert.False(t, IsTransactionFinal(TransactionStatus("bogus")))
}

func TestFinalStatusesHaveNoExits(t *testing.T) {
	// Except completed, which is final for display purposes but still
	// admits refund transitions.
	for _, status := range []TransactionStatus{TransactionStatusCancelled, TransactionStatusRefunded} {
		assert.Empty(t, GetValidNextStatuses(status), "status %s", status)
	}
}

func TestTransaction_CanTransitionTo(t *testing.T) {
	tx := &Transaction{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: TransactionStatusPending,
	}
	assert.True(t, tx.CanTransitionTo(TransactionStatusCompleted))
	assert.False(t, tx.CanTransitionTo(TransactionStatusRefunded))
	assert.False(t, tx.IsFinal())

	tx.Status = TransactionStatusRefunded
	assert.True(t, tx.IsFinal())
	assert.False(t, tx.CanTransitionTo(TransactionStatusPending))
}

func TestFormatTransactionAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     string
	}{
		{"ILS", 100.0, "ILS", "₪100.00"},
		{"USD", 49.9, "USD", "$49.90"},
		{"EUR", 0.5, "EUR", "€0.50"},
		{"GBP", 1234.56, "GBP", "£1234.56"},
		{"UGX", 5000.0, "UGX", "USh5000.00"},
		{"unknown code used verbatim", 100.0, "XYZ", "XYZ100.00"},
		{"pads to two decimals", 7.0, "USD", "$7.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTransactionAmount(tt.amount, tt.currency))
		})
	}
}

func TestTransaction_Timestamps(t *testing.T) {
	now := time.Now().UTC()
	tx := &Transaction{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Amount:    10,
		Currency:  "ILS",
		Status:    TransactionStatusPending,
		CreatedAt: now,
		UpdatedAt: now.Add(-time.Second),
	}
	res := ValidateTransaction(tx)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "updatedAt must not be before createdAt")
}
