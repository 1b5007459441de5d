package handler

import (
	"time"

	"merchant-portal/internal/adapter/http/dto"
	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"
	"merchant-portal/pkg/apperror"
	"merchant-portal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIKeyHandler handles API key management endpoints (dashboard only).
type APIKeyHandler struct {
	keySvc          ports.APIKeyService
	usageWindowDays int
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keySvc ports.APIKeyService, usageWindowDays int) *APIKeyHandler {
	return &APIKeyHandler{keySvc: keySvc, usageWindowDays: usageWindowDays}
}

// Create handles POST /api/v1/api-keys.
func (h *APIKeyHandler) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}

	key, secret, err := h.keySvc.CreateAPIKey(
		c.Request.Context(), userID, req.Name,
		dto.ToPermissions(req.Permissions), req.ExpiresAt,
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The plaintext secret appears in this response and nowhere else.
	response.Created(c, dto.CreateAPIKeyResponse{
		Key:    secret,
		APIKey: toAPIKeyResponse(key),
	})
}

// List handles GET /api/v1/api-keys.
func (h *APIKeyHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	keys, err := h.keySvc.GetUserAPIKeys(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.APIKeyResponse, 0, len(keys))
	for i := range keys {
		items = append(items, toAPIKeyResponse(&keys[i]))
	}
	response.OK(c, items)
}

// Update handles PATCH /api/v1/api-keys/:id.
func (h *APIKeyHandler) Update(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrValidation("invalid api key id"))
		return
	}

	var req dto.UpdateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}

	key, err := h.keySvc.UpdateAPIKey(c.Request.Context(), userID, id, ports.APIKeyUpdate{
		Name:        req.Name,
		Permissions: dto.ToPermissions(req.Permissions),
		IsActive:    req.IsActive,
		ExpiresAt:   req.ExpiresAt,
		ClearExpiry: req.ClearExpiry,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toAPIKeyResponse(key))
}

// Delete handles DELETE /api/v1/api-keys/:id.
func (h *APIKeyHandler) Delete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrValidation("invalid api key id"))
		return
	}

	if err := h.keySvc.DeleteAPIKey(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UsageStats handles GET /api/v1/api-keys/:id/stats.
func (h *APIKeyHandler) UsageStats(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrValidation("invalid api key id"))
		return
	}

	windowDays := parseIntQuery(c, "window_days", h.usageWindowDays)

	stats, err := h.keySvc.GetUsageStats(c.Request.Context(), userID, id, windowDays)
	if err != nil {
		response.Error(c, err)
		return
	}

	daily := make([]dto.DailyUsageEntry, 0, len(stats.Daily))
	for _, d := range stats.Daily {
		daily = append(daily, dto.DailyUsageEntry{Date: d.Date, Requests: d.Requests, Errors: d.Errors})
	}

	response.OK(c, dto.UsageStatsResponse{
		TotalRequests:      stats.TotalRequests,
		SuccessfulRequests: stats.SuccessfulRequests,
		ErrorRequests:      stats.ErrorRequests,
		WindowDays:         windowDays,
		Daily:              daily,
	})
}

func toAPIKeyResponse(k *domain.APIKey) dto.APIKeyResponse {
	resp := dto.APIKeyResponse{
		ID:          k.ID.String(),
		Name:        k.Name,
		Prefix:      k.Prefix,
		Permissions: dto.FromPermissions(k.Permissions),
		IsActive:    k.IsActive,
		CreatedAt:   k.CreatedAt.Format(time.RFC3339),
	}
	if k.ExpiresAt != nil {
		s := k.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &s
	}
	if k.LastUsedAt != nil {
		s := k.LastUsedAt.Format(time.RFC3339)
		resp.LastUsedAt = &s
	}
	return resp
}
