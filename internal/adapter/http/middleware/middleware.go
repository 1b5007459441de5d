package middleware

import (
	"net/http"
	"time"

	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"
	"merchant-portal/pkg/apperror"
	"merchant-portal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries the bearer credential for programmatic access.
	HeaderAPIKey = "X-API-Key"

	// Context keys
	CtxUserID    = "user_id"
	CtxUserEmail = "user_email"
	CtxAPIKey    = "api_key"
	CtxRequestID = "request_id"
)

// RequestID attaches a unique id to every request for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// JWTAuth creates a middleware that validates JWT tokens for dashboard routes.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(authHeader[7:])
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserEmail, claims.Email)
		c.Next()
	}
}

// APIKeyAuth creates a middleware that validates API keys for the
// programmatic surface. Every authenticated request is recorded against
// the key after the response is written; logging failures never fail the
// request. Validation failures return one generic message regardless of
// the internal reason.
func APIKeyAuth(keySvc ports.APIKeyService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader(HeaderAPIKey)
		if rawKey == "" {
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}

		result := keySvc.ValidateAPIKey(c.Request.Context(), rawKey)
		if !result.Valid {
			log.Debug().Str("reason", string(result.Reason)).Msg("api key rejected")
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}

		c.Set(CtxAPIKey, result.Key)
		c.Set(CtxUserID, result.Key.UserID)

		c.Next()

		keySvc.LogUsage(c.Request.Context(), buildUsage(c, result.Key.ID))
	}
}

// buildUsage assembles a usage record from request context after the
// response is written.
func buildUsage(c *gin.Context, keyID uuid.UUID) *domain.APIKeyUsage {
	usage := &domain.APIKeyUsage{
		APIKeyID:   keyID,
		Endpoint:   c.FullPath(),
		Method:     c.Request.Method,
		StatusCode: c.Writer.Status(),
	}
	if usage.Endpoint == "" {
		usage.Endpoint = c.Request.URL.Path
	}
	if ip := c.ClientIP(); ip != "" {
		usage.IPAddress = &ip
	}
	if ua := c.Request.UserAgent(); ua != "" {
		usage.UserAgent = &ua
	}
	if rid, ok := c.Get(CtxRequestID); ok {
		if s, ok := rid.(string); ok && s != "" {
			usage.RequestID = &s
		}
	}
	return usage
}

// APIKeyFromContext returns the validated key set by APIKeyAuth, or nil.
func APIKeyFromContext(c *gin.Context) *domain.APIKey {
	if v, ok := c.Get(CtxAPIKey); ok {
		if key, ok := v.(*domain.APIKey); ok {
			return key
		}
	}
	return nil
}

// RequirePermission gates a route on an API key permission grant.
func RequirePermission(keySvc ports.APIKeyService, resource domain.Resource, action domain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := APIKeyFromContext(c)
		if key == nil {
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}
		if !keySvc.HasPermission(key, resource, action) {
			response.Error(c, apperror.ErrPermissionDenied())
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and the
// request is rejected with 413 Payload Too Large.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
