package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"
	"merchant-portal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	// keyLiteral is the constant lead-in of every API key secret.
	keyLiteral = "apk_live_"
	// keySecretBytes of randomness, hex-encoded to 32 characters.
	keySecretBytes = 16
	// keyPrefixLen characters of the full secret are stored in cleartext
	// for indexed lookup: the literal plus the first 7 hex characters.
	keyPrefixLen = 16

	defaultUsageWindowDays = 30
)

// APIKeyServiceImpl implements ports.APIKeyService.
type APIKeyServiceImpl struct {
	keyRepo   ports.APIKeyRepository
	usageRepo ports.UsageLogRepository
	hashSvc   ports.HashService
	log       zerolog.Logger
	now       func() time.Time
}

// NewAPIKeyService creates a new APIKeyServiceImpl.
func NewAPIKeyService(
	keyRepo ports.APIKeyRepository,
	usageRepo ports.UsageLogRepository,
	hashSvc ports.HashService,
	log zerolog.Logger,
) *APIKeyServiceImpl {
	return &APIKeyServiceImpl{
		keyRepo:   keyRepo,
		usageRepo: usageRepo,
		hashSvc:   hashSvc,
		log:       log,
		now:       time.Now,
	}
}

// GenerateAPIKey produces a new plaintext secret and its lookup prefix.
// The secret is apk_live_ followed by 32 hex characters; the prefix is
// the first 16 characters of the full string.
func GenerateAPIKey() (secret, prefix string, err error) {
	buf := make([]byte, keySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate key material: %w", err)
	}
	secret = keyLiteral + hex.EncodeToString(buf)
	return secret, secret[:keyPrefixLen], nil
}

// CreateAPIKey issues a new key for the user. The plaintext secret is
// returned exactly once and never persisted.
func (s *APIKeyServiceImpl) CreateAPIKey(
	ctx context.Context,
	userID uuid.UUID,
	name string,
	permissions []domain.Permission,
	expiresAt *time.Time,
) (*domain.APIKey, string, error) {
	secret, prefix, err := GenerateAPIKey()
	if err != nil {
		return nil, "", apperror.InternalError(err)
	}

	keyHash, err := s.hashSvc.Hash(secret)
	if err != nil {
		return nil, "", apperror.InternalError(fmt.Errorf("hash api key: %w", err))
	}

	now := s.now().UTC()
	key := &domain.APIKey{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		KeyHash:     keyHash,
		Prefix:      prefix,
		Permissions: permissions,
		IsActive:    true,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return nil, "", apperror.InternalError(fmt.Errorf("create api key: %w", err))
	}

	return key, secret, nil
}

// ValidateAPIKey checks a presented bearer credential. Failure reasons
// stay internal; any repository or hashing error collapses to a plain
// invalid result so nothing about stored keys leaks to the caller.
func (s *APIKeyServiceImpl) ValidateAPIKey(ctx context.Context, rawKey string) *ports.APIKeyValidation {
	if !strings.HasPrefix(rawKey, keyLiteral) || len(rawKey) < keyPrefixLen {
		return &ports.APIKeyValidation{Valid: false, Reason: ports.APIKeyInvalidFormat}
	}

	key, err := s.keyRepo.GetActiveByPrefix(ctx, rawKey[:keyPrefixLen])
	if err != nil {
		s.log.Error().Err(err).Msg("api key lookup failed")
		return &ports.APIKeyValidation{Valid: false, Reason: ports.APIKeyInvalid}
	}
	if key == nil {
		return &ports.APIKeyValidation{Valid: false, Reason: ports.APIKeyNotFound}
	}

	if key.IsExpired(s.now()) {
		return &ports.APIKeyValidation{Valid: false, Reason: ports.APIKeyExpired}
	}

	match, err := s.hashSvc.Verify(rawKey, key.KeyHash)
	if err != nil {
		s.log.Error().Err(err).Str("key_id", key.ID.String()).Msg("api key hash verify failed")
		return &ports.APIKeyValidation{Valid: false, Reason: ports.APIKeyInvalid}
	}
	if !match {
		return &ports.APIKeyValidation{Valid: false, Reason: ports.APIKeyInvalid}
	}

	// Best-effort: a failed stamp must not fail the request.
	s.touchLastUsed(key.ID)

	return &ports.APIKeyValidation{Valid: true, Key: key}
}

// touchLastUsed stamps last_used_at fire-and-forget.
func (s *APIKeyServiceImpl) touchLastUsed(id uuid.UUID) {
	usedAt := s.now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.keyRepo.UpdateLastUsed(ctx, id, usedAt); err != nil {
			s.log.Warn().Err(err).Str("key_id", id.String()).Msg("failed to update last_used_at")
		}
	}()
}

// HasPermission reports whether the key grants the action on the resource.
func (s *APIKeyServiceImpl) HasPermission(key *domain.APIKey, resource domain.Resource, action domain.Action) bool {
	return key != nil && key.HasPermission(resource, action)
}

// GetUserAPIKeys lists the keys owned by a user.
func (s *APIKeyServiceImpl) GetUserAPIKeys(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error) {
	keys, err := s.keyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list api keys: %w", err))
	}
	return keys, nil
}

// UpdateAPIKey applies the non-nil fields of the update to an owned key.
func (s *APIKeyServiceImpl) UpdateAPIKey(ctx context.Context, userID, id uuid.UUID, update ports.APIKeyUpdate) (*domain.APIKey, error) {
	key, err := s.keyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get api key: %w", err))
	}
	if key == nil || key.UserID != userID {
		return nil, apperror.ErrAPIKeyNotFound()
	}

	if update.Name != nil {
		key.Name = strings.TrimSpace(*update.Name)
	}
	if update.Permissions != nil {
		key.Permissions = update.Permissions
	}
	if update.IsActive != nil {
		key.IsActive = *update.IsActive
	}
	if update.ClearExpiry {
		key.ExpiresAt = nil
	} else if update.ExpiresAt != nil {
		key.ExpiresAt = update.ExpiresAt
	}

	if err := s.keyRepo.Update(ctx, key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrAPIKeyNotFound()
		}
		return nil, apperror.InternalError(fmt.Errorf("update api key: %w", err))
	}
	return key, nil
}

// DeleteAPIKey removes an owned key.
func (s *APIKeyServiceImpl) DeleteAPIKey(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.keyRepo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.ErrAPIKeyNotFound()
		}
		return apperror.InternalError(fmt.Errorf("delete api key: %w", err))
	}
	return nil
}

// LogUsage records an authenticated request fire-and-forget.
func (s *APIKeyServiceImpl) LogUsage(ctx context.Context, usage *domain.APIKeyUsage) {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = s.now().UTC()
	}
	go func() {
		logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.usageRepo.Insert(logCtx, usage); err != nil {
			s.log.Warn().Err(err).Str("key_id", usage.APIKeyID.String()).Msg("failed to persist usage log")
		}
	}()
}

// GetUsageStats aggregates usage of an owned key over a trailing window
// of days (default 30).
func (s *APIKeyServiceImpl) GetUsageStats(ctx context.Context, userID, id uuid.UUID, windowDays int) (*domain.APIKeyUsageStats, error) {
	key, err := s.keyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get api key: %w", err))
	}
	if key == nil || key.UserID != userID {
		return nil, apperror.ErrAPIKeyNotFound()
	}

	if windowDays <= 0 {
		windowDays = defaultUsageWindowDays
	}
	since := s.now().UTC().AddDate(0, 0, -windowDays)

	stats, err := s.usageRepo.GetStats(ctx, id, since)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get usage stats: %w", err))
	}
	return stats, nil
}
