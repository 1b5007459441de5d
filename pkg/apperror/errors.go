package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses. The wrapped
// internal error is logged but never sent to clients.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_002", "Email already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- API Keys (KEY) ----

// ErrInvalidAPIKey is the single message shown for every validation
// failure; the specific reason is never revealed to the caller.
func ErrInvalidAPIKey() *AppError {
	return New("KEY_001", "Invalid API key", http.StatusUnauthorized)
}

func ErrPermissionDenied() *AppError {
	return New("KEY_002", "API key does not permit this operation", http.StatusForbidden)
}

func ErrAPIKeyNotFound() *AppError {
	return New("KEY_003", "API key not found", http.StatusNotFound)
}

// ---- Transactions (TXN) ----

func ErrValidation(message string) *AppError {
	return New("TXN_001", message, http.StatusBadRequest)
}

func ErrTransactionNotFound() *AppError {
	return New("TXN_002", "Transaction not found", http.StatusNotFound)
}

func ErrInvalidStatusTransition(from, to string) *AppError {
	return New("TXN_003", fmt.Sprintf("Cannot transition transaction from %s to %s", from, to), http.StatusConflict)
}

// ---- Gateway (GW) ----

func ErrGatewayFailure(err error) *AppError {
	return Wrap("GW_001", "Payment gateway request failed", http.StatusBadGateway, err)
}

func ErrInvalidWebhookSignature() *AppError {
	return New("GW_002", "Invalid webhook signature", http.StatusUnauthorized)
}

func ErrDuplicateWebhook() *AppError {
	return New("GW_003", "Webhook event already processed", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
