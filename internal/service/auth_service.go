package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"
	"merchant-portal/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo: userRepo,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
	}
}

// Register creates a new merchant account.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	if res := domain.ValidateCurrency(strings.ToUpper(strings.TrimSpace(req.Currency))); !res.Valid {
		return nil, apperror.ErrValidation(strings.Join(res.Errors, "; "))
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  passwordHash,
		BusinessName:  req.BusinessName,
		CompanyNumber: req.CompanyNumber,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		Language:      language,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	return user, nil
}

// Login validates credentials and returns a JWT token with its expiry.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, *domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", time.Time{}, nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return "", time.Time{}, nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return "", time.Time{}, nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, nil, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(user.ID, user.Email)
	if err != nil {
		return "", time.Time{}, nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, user, nil
}

// GetProfile returns the merchant account for the given id.
func (s *AuthServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidToken()
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of the request to the account.
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, req ports.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidToken()
	}

	if req.BusinessName != nil {
		user.BusinessName = strings.TrimSpace(*req.BusinessName)
	}
	if req.CompanyNumber != nil {
		user.CompanyNumber = req.CompanyNumber
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if res := domain.ValidateCurrency(currency); !res.Valid {
			return nil, apperror.ErrValidation(strings.Join(res.Errors, "; "))
		}
		user.Currency = currency
	}
	if req.Language != nil {
		user.Language = strings.TrimSpace(*req.Language)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update user: %w", err))
	}
	return user, nil
}
