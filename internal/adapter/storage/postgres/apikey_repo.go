package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"merchant-portal/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const apiKeyColumns = `id, user_id, name, key_hash, prefix, permissions, is_active, expires_at, last_used_at, created_at, updated_at`

// APIKeyRepo implements ports.APIKeyRepository. Permissions are stored
// as a JSONB column; the prefix column carries a unique index so lookups
// never scan secrets.
type APIKeyRepo struct {
	pool Pool
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(pool Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

// Create inserts a new API key.
func (r *APIKeyRepo) Create(ctx context.Context, k *domain.APIKey) error {
	perms, err := json.Marshal(k.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}

	query := `INSERT INTO api_keys (id, user_id, name, key_hash, prefix, permissions, is_active, expires_at, last_used_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.pool.Exec(ctx, query,
		k.ID, k.UserID, k.Name, k.KeyHash, k.Prefix, perms,
		k.IsActive, k.ExpiresAt, k.LastUsedAt,
		k.CreatedAt, k.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetByID fetches an API key by UUID.
func (r *APIKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys WHERE id = $1`, apiKeyColumns)
	return scanAPIKey(r.pool.QueryRow(ctx, query, id))
}

// GetActiveByPrefix fetches an active API key by its cleartext prefix.
// Deactivated keys are invisible here, so they fail validation the same
// way an unregistered prefix does.
func (r *APIKeyRepo) GetActiveByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys WHERE prefix = $1 AND is_active = true`, apiKeyColumns)
	return scanAPIKey(r.pool.QueryRow(ctx, query, prefix))
}

// ListByUser fetches all API keys owned by a user, newest first.
func (r *APIKeyRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, apiKeyColumns)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		k, err := scanAPIKeyRow(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api key rows: %w", err)
	}
	return keys, nil
}

// Update updates the mutable fields of an API key.
func (r *APIKeyRepo) Update(ctx context.Context, k *domain.APIKey) error {
	perms, err := json.Marshal(k.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}

	query := `UPDATE api_keys
		SET name=$1, permissions=$2, is_active=$3, expires_at=$4, updated_at=NOW()
		WHERE id=$5 AND user_id=$6`
	tag, err := r.pool.Exec(ctx, query,
		k.Name, perms, k.IsActive, k.ExpiresAt, k.ID, k.UserID,
	)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes an API key. Owner-scoped: the user id must match.
func (r *APIKeyRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateLastUsed stamps the key's last successful validation time.
// Concurrent writers race benignly; last writer wins.
func (r *APIKeyRepo) UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, usedAt, id)
	if err != nil {
		return fmt.Errorf("update api key last_used_at: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPIKeyRow(row rowScanner) (*domain.APIKey, error) {
	k := &domain.APIKey{}
	var perms []byte
	err := row.Scan(
		&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.Prefix, &perms,
		&k.IsActive, &k.ExpiresAt, &k.LastUsedAt,
		&k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &k.Permissions); err != nil {
			return nil, fmt.Errorf("unmarshal permissions: %w", err)
		}
	}
	return k, nil
}

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	k, err := scanAPIKeyRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return k, nil
}
