package dto

import (
	"time"

	"merchant-portal/internal/core/domain"
)

// RegisterRequest is the request body for merchant registration.
type RegisterRequest struct {
	Email         string  `json:"email" binding:"required,email,max=254"`
	Password      string  `json:"password" binding:"required,min=8,max=128"`
	BusinessName  string  `json:"business_name" binding:"required,min=1,max=100"`
	CompanyNumber *string `json:"company_number,omitempty" binding:"omitempty,max=20"`
	Currency      string  `json:"currency" binding:"required,currency_code"`
	Language      string  `json:"language" binding:"omitempty,max=8"`
}

// LoginRequest is the request body for merchant login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string       `json:"token"`
	Expiry int64        `json:"expiry"` // Unix timestamp
	User   UserResponse `json:"user"`
}

// UserResponse is the public view of a merchant account.
type UserResponse struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	BusinessName  string  `json:"business_name"`
	CompanyNumber *string `json:"company_number,omitempty"`
	Currency      string  `json:"currency"`
	Language      string  `json:"language"`
	CreatedAt     string  `json:"created_at"`
}

// UpdateProfileRequest is the request body for profile updates.
type UpdateProfileRequest struct {
	BusinessName  *string `json:"business_name,omitempty" binding:"omitempty,min=1,max=100"`
	CompanyNumber *string `json:"company_number,omitempty" binding:"omitempty,max=20"`
	Currency      *string `json:"currency,omitempty" binding:"omitempty,currency_code"`
	Language      *string `json:"language,omitempty" binding:"omitempty,max=8"`
}

// CreatePaymentRequest is the request body for payment link creation.
type CreatePaymentRequest struct {
	Amount      float64 `json:"amount" binding:"required"`
	Currency    string  `json:"currency" binding:"required,currency_code"`
	Description string  `json:"description" binding:"omitempty,max=255"`
}

// UpdateTransactionStatusRequest is the request body for manual status moves.
type UpdateTransactionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransactionResponse is the response body for transaction results.
type TransactionResponse struct {
	ID                  string   `json:"id"`
	Amount              float64  `json:"amount"`
	AmountDisplay       string   `json:"amount_display"`
	Currency            string   `json:"currency"`
	Description         *string  `json:"description,omitempty"`
	PaymentURL          string   `json:"payment_url"`
	AllpayTransactionID *string  `json:"allpay_transaction_id,omitempty"`
	Status              string   `json:"status"`
	NextStatuses        []string `json:"next_statuses"`
	CreatedAt           string   `json:"created_at"`
	UpdatedAt           string   `json:"updated_at"`
}

// PermissionDTO is one (resource, actions) grant.
type PermissionDTO struct {
	Resource string   `json:"resource" binding:"required,oneof=payments transactions webhooks profile"`
	Actions  []string `json:"actions" binding:"required,min=1,dive,oneof=create read update delete"`
}

// CreateAPIKeyRequest is the request body for API key creation.
type CreateAPIKeyRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=100"`
	Permissions []PermissionDTO `json:"permissions" binding:"required,min=1,dive"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

// CreateAPIKeyResponse returns the plaintext secret exactly once.
type CreateAPIKeyResponse struct {
	Key    string         `json:"key"` // Shown only at creation
	APIKey APIKeyResponse `json:"api_key"`
}

// APIKeyResponse is the public view of an API key.
type APIKeyResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Prefix      string          `json:"prefix"`
	Permissions []PermissionDTO `json:"permissions"`
	IsActive    bool            `json:"is_active"`
	ExpiresAt   *string         `json:"expires_at,omitempty"`
	LastUsedAt  *string         `json:"last_used_at,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

// UpdateAPIKeyRequest is the request body for API key updates.
type UpdateAPIKeyRequest struct {
	Name        *string         `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Permissions []PermissionDTO `json:"permissions,omitempty" binding:"omitempty,min=1,dive"`
	IsActive    *bool           `json:"is_active,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	ClearExpiry bool            `json:"clear_expiry,omitempty"`
}

// UsageStatsResponse is the response for per-key usage statistics.
type UsageStatsResponse struct {
	TotalRequests      int64             `json:"total_requests"`
	SuccessfulRequests int64             `json:"successful_requests"`
	ErrorRequests      int64             `json:"error_requests"`
	WindowDays         int               `json:"window_days"`
	Daily              []DailyUsageEntry `json:"daily"`
}

// DailyUsageEntry is one day within a usage stats window.
type DailyUsageEntry struct {
	Date     string `json:"date"`
	Requests int64  `json:"requests"`
	Errors   int64  `json:"errors"`
}

// AllPayWebhook is the gateway's status notification body. Its field
// names are fixed by the AllPay protocol.
type AllPayWebhook struct {
	EventID       string `json:"event_id"`
	TransactionID string `json:"transaction_id" binding:"required"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status" binding:"required"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Sign          string `json:"sign" binding:"required"`
}

// SignatureFields returns the signed subset of the webhook payload.
func (w *AllPayWebhook) SignatureFields() map[string]string {
	return map[string]string{
		"event_id":       w.EventID,
		"transaction_id": w.TransactionID,
		"order_id":       w.OrderID,
		"status":         w.Status,
		"amount":         w.Amount,
		"currency":       w.Currency,
	}
}

// ToPermissions converts permission DTOs to domain permissions.
func ToPermissions(dtos []PermissionDTO) []domain.Permission {
	if dtos == nil {
		return nil
	}
	perms := make([]domain.Permission, 0, len(dtos))
	for _, p := range dtos {
		actions := make([]domain.Action, 0, len(p.Actions))
		for _, a := range p.Actions {
			actions = append(actions, domain.Action(a))
		}
		perms = append(perms, domain.Permission{
			Resource: domain.Resource(p.Resource),
			Actions:  actions,
		})
	}
	return perms
}

// FromPermissions converts domain permissions to DTOs.
func FromPermissions(perms []domain.Permission) []PermissionDTO {
	dtos := make([]PermissionDTO, 0, len(perms))
	for _, p := range perms {
		actions := make([]string, 0, len(p.Actions))
		for _, a := range p.Actions {
			actions = append(actions, string(a))
		}
		dtos = append(dtos, PermissionDTO{
			Resource: string(p.Resource),
			Actions:  actions,
		})
	}
	return dtos
}
