package ports

import (
	"context"
	"time"

	"merchant-portal/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines persistence operations for merchant accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// TransactionRepository defines persistence operations for transactions.
// Methods accepting pgx.Tx run inside a database transaction so that
// status checks and updates are atomic.
type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error)
	GetByAllpayID(ctx context.Context, tx pgx.Tx, allpayID string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus) error
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	UserID   uuid.UUID
	Status   *domain.TransactionStatus
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// APIKeyRepository defines persistence operations for API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error)
	// GetActiveByPrefix looks up an active key by its cleartext prefix.
	// Deactivated keys are invisible to this lookup.
	GetActiveByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error)
	Update(ctx context.Context, key *domain.APIKey) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

// UsageLogRepository defines persistence for API key usage records.
type UsageLogRepository interface {
	Insert(ctx context.Context, usage *domain.APIKeyUsage) error
	GetStats(ctx context.Context, apiKeyID uuid.UUID, since time.Time) (*domain.APIKeyUsageStats, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
