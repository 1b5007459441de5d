package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"
	"merchant-portal/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc      *AuthServiceImpl
	userRepo *mocks.MockUserRepository
	hashSvc  *mocks.MockHashService
	tokenSvc *mocks.MockTokenService
	ctrl     *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		userRepo: mocks.NewMockUserRepository(ctrl),
		hashSvc:  mocks.NewMockHashService(ctrl),
		tokenSvc: mocks.NewMockTokenService(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewAuthService(d.userRepo, d.hashSvc, d.tokenSvc)
	return d
}

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByEmail(ctx, "shop@example.com").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("s3cret-password").Return("hashed", nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, user *domain.User) error {
		assert.Equal(t, "shop@example.com", user.Email)
		assert.Equal(t, "hashed", user.PasswordHash)
		assert.Equal(t, "ILS", user.Currency)
		assert.Equal(t, "en", user.Language) // defaulted
		return nil
	})

	user, err := d.svc.Register(ctx, ports.RegisterRequest{
		Email:        "  Shop@Example.COM ",
		Password:     "s3cret-password",
		BusinessName: "Tel Aviv Coffee",
		Currency:     "ils",
	})
	require.NoError(t, err)
	assert.Equal(t, "Tel Aviv Coffee", user.BusinessName)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	existing := &domain.User{ID: uuid.New(), Email: "shop@example.com"}
	d.userRepo.EXPECT().GetByEmail(gomock.Any(), "shop@example.com").Return(existing, nil)

	user, err := d.svc.Register(context.Background(), ports.RegisterRequest{
		Email:    "shop@example.com",
		Password: "pw",
		Currency: "ILS",
	})
	assert.Nil(t, user)
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Register_BadCurrency(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	d.userRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)

	user, err := d.svc.Register(context.Background(), ports.RegisterRequest{
		Email:    "shop@example.com",
		Password: "pw",
		Currency: "shekels",
	})
	assert.Nil(t, user)
	assertAppError(t, err, "TXN_001")
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	user := &domain.User{ID: uuid.New(), Email: "shop@example.com", PasswordHash: "hashed"}
	wantExpiry := time.Now().Add(24 * time.Hour).UTC()
	d.userRepo.EXPECT().GetByEmail(gomock.Any(), "shop@example.com").Return(user, nil)
	d.hashSvc.EXPECT().Verify("pw", "hashed").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(user.ID, user.Email).Return("jwt-token", wantExpiry, nil)

	token, expiry, got, err := d.svc.Login(context.Background(), " Shop@Example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, wantExpiry, expiry)
	assert.Equal(t, user, got)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	d.userRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, _, _, err := d.svc.Login(context.Background(), "nobody@example.com", "pw")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	user := &domain.User{ID: uuid.New(), Email: "shop@example.com", PasswordHash: "hashed"}
	d.userRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(user, nil)
	d.hashSvc.EXPECT().Verify("wrong", "hashed").Return(false, nil)

	_, _, _, err := d.svc.Login(context.Background(), "shop@example.com", "wrong")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_RepoError(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	d.userRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, errors.New("pg down"))

	_, _, _, err := d.svc.Login(context.Background(), "shop@example.com", "pw")
	assertAppError(t, err, "SYS_001")
}

func TestAuthService_UpdateProfile(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	stored := &domain.User{ID: userID, BusinessName: "Old Name", Currency: "ILS", Language: "en"}

	newName := " New Name "
	newCurrency := "usd"
	d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(stored, nil)
	d.userRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	got, err := d.svc.UpdateProfile(context.Background(), userID, ports.UpdateProfileRequest{
		BusinessName: &newName,
		Currency:     &newCurrency,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.BusinessName)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "en", got.Language) // untouched
}

func TestAuthService_UpdateProfile_BadCurrency(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	userID := uuid.New()
	d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(&domain.User{ID: userID}, nil)

	bad := "dollars"
	got, err := d.svc.UpdateProfile(context.Background(), userID, ports.UpdateProfileRequest{Currency: &bad})
	assert.Nil(t, got)
	assertAppError(t, err, "TXN_001")
}
