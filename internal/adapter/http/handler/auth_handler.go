package handler

import (
	"time"

	"merchant-portal/internal/adapter/http/dto"
	"merchant-portal/internal/adapter/http/middleware"
	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"
	"merchant-portal/pkg/apperror"
	"merchant-portal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	user, err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Email:         req.Email,
		Password:      req.Password,
		BusinessName:  req.BusinessName,
		CompanyNumber: req.CompanyNumber,
		Currency:      req.Currency,
		Language:      req.Language,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toUserResponse(user))
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}

	token, expiry, user, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:  token,
		Expiry: expiry.Unix(),
		User:   toUserResponse(user),
	})
}

// GetProfile handles GET /api/v1/profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	user, err := h.authSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toUserResponse(user))
}

// UpdateProfile handles PUT /api/v1/profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	user, err := h.authSvc.UpdateProfile(c.Request.Context(), userID, ports.UpdateProfileRequest{
		BusinessName:  req.BusinessName,
		CompanyNumber: req.CompanyNumber,
		Currency:      req.Currency,
		Language:      req.Language,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toUserResponse(user))
}

// userIDFromContext extracts the authenticated user id set by JWTAuth or
// APIKeyAuth.
func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func toUserResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		BusinessName:  u.BusinessName,
		CompanyNumber: u.CompanyNumber,
		Currency:      u.Currency,
		Language:      u.Language,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}
