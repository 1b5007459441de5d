package ports

import (
	"context"
	"time"

	"merchant-portal/internal/core/domain"

	"github.com/google/uuid"
)

// HashService handles slow salted hashing of secrets (passwords and API
// keys). Verify must resist timing side-channels.
type HashService interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext string, hash string) (bool, error)
}

// TokenService handles JWT token operations for the portal dashboard.
type TokenService interface {
	Generate(userID uuid.UUID, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
}

// GatewayClient is the AllPay payment gateway collaborator. Its wire
// protocol is fixed and opaque to the rest of the system.
type GatewayClient interface {
	CreatePaymentLink(ctx context.Context, req GatewayPaymentRequest) (*GatewayPaymentResponse, error)
	VerifyWebhookSignature(fields map[string]string, signature string) bool
}

// GatewayPaymentRequest is the input for creating a payment link.
type GatewayPaymentRequest struct {
	OrderID     string
	Amount      float64
	Currency    string
	Description string
}

// GatewayPaymentResponse holds the gateway's payment link result.
type GatewayPaymentResponse struct {
	PaymentURL    string
	TransactionID string
}

// WebhookDedupStore drops replayed gateway webhooks.
type WebhookDedupStore interface {
	// CheckAndSet atomically records an event id. Returns true if the
	// event is new, false if it was already seen.
	CheckAndSet(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	// Delete removes a recorded event id so a later delivery of the
	// same event is processed again.
	Delete(ctx context.Context, eventID string) error
}

// --- Service Ports (Business Logic) ---

// AuthService defines merchant account business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, time.Time, *domain.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*domain.User, error)
}

// RegisterRequest holds input for merchant registration.
type RegisterRequest struct {
	Email         string
	Password      string
	BusinessName  string
	CompanyNumber *string
	Currency      string
	Language      string
}

// UpdateProfileRequest holds the mutable profile fields. Nil means keep.
type UpdateProfileRequest struct {
	BusinessName  *string
	CompanyNumber *string
	Currency      *string
	Language      *string
}

// PaymentService defines the payment link and transaction lifecycle logic.
type PaymentService interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	UpdateTransactionStatus(ctx context.Context, userID, id uuid.UUID, to domain.TransactionStatus) (*domain.Transaction, error)
	ProcessGatewayWebhook(ctx context.Context, event GatewayWebhookEvent) error
}

// CreatePaymentRequest holds validated input for payment creation.
type CreatePaymentRequest struct {
	UserID      uuid.UUID
	Amount      float64
	Currency    string
	Description string
}

// GatewayWebhookEvent is a parsed AllPay status notification.
type GatewayWebhookEvent struct {
	EventID             string
	AllpayTransactionID string
	Status              string // Gateway status code
}

// APIKeyValidationReason distinguishes why a key failed validation.
// Reasons stay internal; clients only ever see a generic message.
type APIKeyValidationReason string

const (
	APIKeyInvalidFormat APIKeyValidationReason = "INVALID_FORMAT"
	APIKeyNotFound      APIKeyValidationReason = "NOT_FOUND"
	APIKeyExpired       APIKeyValidationReason = "EXPIRED"
	APIKeyInvalid       APIKeyValidationReason = "INVALID"
)

// APIKeyValidation is the outcome of validating a presented key.
type APIKeyValidation struct {
	Valid  bool
	Reason APIKeyValidationReason // Set when Valid is false
	Key    *domain.APIKey         // Set when Valid is true
}

// APIKeyUpdate holds the mutable API key fields. Nil means keep.
type APIKeyUpdate struct {
	Name        *string
	Permissions []domain.Permission
	IsActive    *bool
	ExpiresAt   *time.Time
	ClearExpiry bool
}

// APIKeyService defines issuance, validation and bookkeeping of bearer
// credentials.
type APIKeyService interface {
	CreateAPIKey(ctx context.Context, userID uuid.UUID, name string, permissions []domain.Permission, expiresAt *time.Time) (*domain.APIKey, string, error)
	ValidateAPIKey(ctx context.Context, rawKey string) *APIKeyValidation
	HasPermission(key *domain.APIKey, resource domain.Resource, action domain.Action) bool
	GetUserAPIKeys(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error)
	UpdateAPIKey(ctx context.Context, userID, id uuid.UUID, update APIKeyUpdate) (*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, userID, id uuid.UUID) error
	LogUsage(ctx context.Context, usage *domain.APIKeyUsage)
	GetUsageStats(ctx context.Context, userID, id uuid.UUID, windowDays int) (*domain.APIKeyUsageStats, error)
}
