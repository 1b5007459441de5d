package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"
	"merchant-portal/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tokenSvc := mocks.NewMockTokenService(ctrl)

	r := gin.New()
	r.GET("/secure", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_003")
}

func TestJWTAuth_BadToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("garbage").Return(nil, assertableErr("bad token"))

	r := gin.New()
	r.GET("/secure", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_Valid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tokenSvc := mocks.NewMockTokenService(ctrl)

	userID := uuid.New()
	tokenSvc.EXPECT().Validate("good-token").Return(&ports.TokenClaims{
		UserID: userID,
		Email:  "shop@example.com",
	}, nil)

	var gotUserID any
	r := gin.New()
	r.GET("/secure", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		gotUserID, _ = c.Get(CtxUserID)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotUserID)
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	keySvc := mocks.NewMockAPIKeyService(ctrl)

	r := gin.New()
	r.GET("/api", APIKeyAuth(keySvc, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "KEY_001")
}

func TestAPIKeyAuth_RejectionIsGeneric(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	keySvc := mocks.NewMockAPIKeyService(ctrl)

	// Different internal reasons, identical response body.
	reasons := []ports.APIKeyValidationReason{
		ports.APIKeyInvalidFormat,
		ports.APIKeyNotFound,
		ports.APIKeyExpired,
		ports.APIKeyInvalid,
	}
	for _, reason := range reasons {
		keySvc.EXPECT().ValidateAPIKey(gomock.Any(), "apk_live_bad").
			Return(&ports.APIKeyValidation{Valid: false, Reason: reason})

		r := gin.New()
		r.GET("/api", APIKeyAuth(keySvc, zerolog.Nop()), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.Header.Set(HeaderAPIKey, "apk_live_bad")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "reason %s", reason)
		assert.NotContains(t, w.Body.String(), string(reason))
		assert.Contains(t, w.Body.String(), "KEY_001")
		assert.Contains(t, w.Body.String(), "Invalid API key")
	}
}

func TestAPIKeyAuth_ValidKeyLogsUsage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	keySvc := mocks.NewMockAPIKeyService(ctrl)

	key := &domain.APIKey{ID: uuid.New(), UserID: uuid.New()}
	keySvc.EXPECT().ValidateAPIKey(gomock.Any(), "apk_live_good").
		Return(&ports.APIKeyValidation{Valid: true, Key: key})

	logged := make(chan *domain.APIKeyUsage, 1)
	keySvc.EXPECT().LogUsage(gomock.Any(), gomock.Any()).
		Do(func(_ any, usage *domain.APIKeyUsage) {
			logged <- usage
		})

	r := gin.New()
	r.Use(RequestID())
	r.POST("/api/v1/merchant/payments", APIKeyAuth(keySvc, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/merchant/payments", nil)
	req.Header.Set(HeaderAPIKey, "apk_live_good")
	req.Header.Set("User-Agent", "curl/8.5")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	select {
	case usage := <-logged:
		assert.Equal(t, key.ID, usage.APIKeyID)
		assert.Equal(t, "/api/v1/merchant/payments", usage.Endpoint)
		assert.Equal(t, http.MethodPost, usage.Method)
		assert.Equal(t, http.StatusCreated, usage.StatusCode)
		require.NotNil(t, usage.UserAgent)
		assert.Equal(t, "curl/8.5", *usage.UserAgent)
		require.NotNil(t, usage.RequestID)
	case <-time.After(2 * time.Second):
		t.Fatal("usage was never logged")
	}
}

func TestRequirePermission(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	keySvc := mocks.NewMockAPIKeyService(ctrl)

	key := &domain.APIKey{ID: uuid.New(), UserID: uuid.New()}

	r := gin.New()
	r.GET("/api",
		func(c *gin.Context) { c.Set(CtxAPIKey, key) },
		RequirePermission(keySvc, domain.ResourcePayments, domain.ActionCreate),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	t.Run("granted", func(t *testing.T) {
		keySvc.EXPECT().HasPermission(key, domain.ResourcePayments, domain.ActionCreate).Return(true)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("denied", func(t *testing.T) {
		keySvc.EXPECT().HasPermission(key, domain.ResourcePayments, domain.ActionCreate).Return(false)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "KEY_002")
	})
}

func TestRequirePermission_NoKeyInContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	keySvc := mocks.NewMockAPIKeyService(ctrl)

	r := gin.New()
	r.GET("/api",
		RequirePermission(keySvc, domain.ResourcePayments, domain.ActionCreate),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "client-supplied-id")
		r.ServeHTTP(w, req)
		assert.Equal(t, "client-supplied-id", w.Header().Get("X-Request-ID"))
	})
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SYS_001")
}

type assertableErr string

func (e assertableErr) Error() string { return string(e) }
