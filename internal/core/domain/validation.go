package domain

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const maxTransactionAmount = 1_000_000

var (
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	allpayIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,100}$`)
	uuidRe     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// ValidationResult aggregates the outcome of field validation. All checks
// run; every violation is reported.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func newResult(errs []string) ValidationResult {
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateAmount checks a payment amount: finite, positive, at most
// 1,000,000, and no more than two fractional digits. Decimal places are
// counted on the shortest decimal string representation rather than by
// epsilon comparison, so 1000000.00 is valid and 1000000.01 is not.
func ValidateAmount(amount float64) ValidationResult {
	var errs []string

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		errs = append(errs, "amount is not a finite number")
		return newResult(errs)
	}
	if amount <= 0 {
		errs = append(errs, "amount must be greater than 0")
	}
	if amount > maxTransactionAmount {
		errs = append(errs, "amount exceeds maximum of 1000000")
	}
	if decimalPlaces(amount) > 2 {
		errs = append(errs, "amount has too many decimal places (maximum 2)")
	}
	return newResult(errs)
}

// decimalPlaces counts fractional digits of the shortest decimal form.
func decimalPlaces(amount float64) int {
	s := strconv.FormatFloat(amount, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// ValidateCurrency checks for a 3-letter uppercase ISO 4217 code.
func ValidateCurrency(currency string) ValidationResult {
	var errs []string
	if !currencyRe.MatchString(strings.TrimSpace(currency)) {
		errs = append(errs, "currency must be a 3-letter uppercase ISO 4217 code")
	}
	return newResult(errs)
}

// ValidatePaymentURL checks for an absolute HTTPS URL.
func ValidatePaymentURL(raw string) ValidationResult {
	var errs []string
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, "payment URL must be an absolute URL")
	} else if u.Scheme != "https" {
		errs = append(errs, "payment URL must use https")
	}
	return newResult(errs)
}

// ValidateAllpayTransactionID checks the gateway transaction token:
// alphanumeric plus underscore and dash, length 3 to 100. An empty value
// is accepted; the token only exists once the gateway has responded.
func ValidateAllpayTransactionID(id string) ValidationResult {
	var errs []string
	trimmed := strings.TrimSpace(id)
	if trimmed != "" && !allpayIDRe.MatchString(trimmed) {
		errs = append(errs, "allpay transaction id must be 3-100 characters of letters, digits, underscore or dash")
	}
	return newResult(errs)
}

// ValidateUserID checks for a canonical 8-4-4-4-12 UUID.
func ValidateUserID(id string) ValidationResult {
	var errs []string
	if !uuidRe.MatchString(strings.TrimSpace(id)) {
		errs = append(errs, "user id must be a valid UUID")
	}
	return newResult(errs)
}

// CreateTransactionData is the merchant-supplied input for a new payment.
type CreateTransactionData struct {
	UserID      string
	Amount      float64
	Currency    string
	Description string
}

// ValidateCreateTransactionData runs every field check on new-payment
// input and concatenates all violations.
func ValidateCreateTransactionData(data CreateTransactionData) ValidationResult {
	var errs []string
	errs = append(errs, ValidateUserID(data.UserID).Errors...)
	errs = append(errs, ValidateAmount(data.Amount).Errors...)
	errs = append(errs, ValidateCurrency(data.Currency).Errors...)
	return newResult(errs)
}

// ValidateTransaction runs every field and invariant check on a full
// transaction record.
func ValidateTransaction(t *Transaction) ValidationResult {
	var errs []string
	if t.UserID == uuid.Nil {
		errs = append(errs, "user id must be a valid UUID")
	}
	errs = append(errs, ValidateAmount(t.Amount).Errors...)
	errs = append(errs, ValidateCurrency(t.Currency).Errors...)
	if t.PaymentURL != "" {
		errs = append(errs, ValidatePaymentURL(t.PaymentURL).Errors...)
	}
	if t.AllpayTransactionID != nil {
		errs = append(errs, ValidateAllpayTransactionID(*t.AllpayTransactionID).Errors...)
	}
	if _, ok := statusTransitions[t.Status]; !ok {
		errs = append(errs, "status is not a known transaction status")
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		errs = append(errs, "updatedAt must not be before createdAt")
	}
	return newResult(errs)
}

// SanitizeCreateTransactionData normalizes new-payment input: trims
// strings, upper-cases the currency, and rounds the amount to two
// decimals half-away-from-zero. Applying it twice is a no-op.
func SanitizeCreateTransactionData(data CreateTransactionData) CreateTransactionData {
	return CreateTransactionData{
		UserID:      strings.TrimSpace(data.UserID),
		Amount:      math.Round(data.Amount*100) / 100,
		Currency:    strings.ToUpper(strings.TrimSpace(data.Currency)),
		Description: strings.TrimSpace(data.Description),
	}
}
