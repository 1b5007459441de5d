package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the lifecycle state of a payment attempt.
type TransactionStatus string

const (
	TransactionStatusPending           TransactionStatus = "pending"
	TransactionStatusCompleted         TransactionStatus = "completed"
	TransactionStatusFailed            TransactionStatus = "failed"
	TransactionStatusCancelled         TransactionStatus = "cancelled"
	TransactionStatusRefunded          TransactionStatus = "refunded"
	TransactionStatusPartiallyRefunded TransactionStatus = "partially_refunded"
)

// statusTransitions is the canonical transition table. A transaction may
// only move to a status listed for its current one.
var statusTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:           {TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled},
	TransactionStatusCompleted:         {TransactionStatusRefunded, TransactionStatusPartiallyRefunded},
	TransactionStatusFailed:            {TransactionStatusPending}, // retry
	TransactionStatusCancelled:         {},
	TransactionStatusRefunded:          {},
	TransactionStatusPartiallyRefunded: {TransactionStatusRefunded},
}

// IsValidStatusTransition reports whether a transaction may move from
// one status to another. Unknown statuses never transition.
func IsValidStatusTransition(from, to TransactionStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GetValidNextStatuses returns the statuses a transaction in the given
// status may move to. Terminal and unknown statuses yield an empty slice.
func GetValidNextStatuses(from TransactionStatus) []TransactionStatus {
	next, ok := statusTransitions[from]
	if !ok {
		return []TransactionStatus{}
	}
	out := make([]TransactionStatus, len(next))
	copy(out, next)
	return out
}

// IsTransactionFinal reports whether a status ends the transaction's
// lifecycle. partially_refunded is intentionally not final: it can still
// move to refunded.
func IsTransactionFinal(status TransactionStatus) bool {
	switch status {
	case TransactionStatusCompleted, TransactionStatusCancelled, TransactionStatusRefunded:
		return true
	}
	return false
}

// Transaction represents one payment attempt through the AllPay gateway.
// Rows are never deleted; they form the merchant's audit trail.
type Transaction struct {
	ID                  uuid.UUID         `json:"id"`
	UserID              uuid.UUID         `json:"user_id"`
	Amount              float64           `json:"amount"`
	Currency            string            `json:"currency"`
	Description         *string           `json:"description,omitempty"`
	PaymentURL          string            `json:"payment_url"`
	AllpayTransactionID *string           `json:"allpay_transaction_id,omitempty"`
	Status              TransactionStatus `json:"status"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// IsFinal reports whether the transaction is in a final status.
func (t *Transaction) IsFinal() bool {
	return IsTransactionFinal(t.Status)
}

// CanTransitionTo reports whether the transaction may move to the given status.
func (t *Transaction) CanTransitionTo(to TransactionStatus) bool {
	return IsValidStatusTransition(t.Status, to)
}

// currencySymbols maps ISO 4217 codes to display symbols.
var currencySymbols = map[string]string{
	"ILS": "₪",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"UGX": "USh",
}

// FormatTransactionAmount renders an amount for display with its currency
// symbol and two decimal places. Unknown currency codes are used verbatim
// as the symbol.
func FormatTransactionAmount(amount float64, currency string) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency
	}
	return fmt.Sprintf("%s%.2f", symbol, amount)
}
