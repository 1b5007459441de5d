package handler

import (
	"strconv"
	"time"

	"merchant-portal/internal/adapter/http/dto"
	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"
	"merchant-portal/pkg/apperror"
	"merchant-portal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment link and transaction endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// CreatePayment handles POST /api/v1/payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	tx, err := h.paymentSvc.CreatePayment(c.Request.Context(), ports.CreatePaymentRequest{
		UserID:      userID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(tx))
}

// GetTransaction handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrValidation("invalid transaction id"))
		return
	}

	tx, err := h.paymentSvc.GetTransaction(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(tx))
}

// ListTransactions handles GET /api/v1/payments.
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	params := ports.TransactionListParams{
		UserID:   userID,
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 20),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	if s := c.Query("status"); s != "" {
		status := domain.TransactionStatus(s)
		params.Status = &status
	}
	if from := c.Query("from"); from != "" {
		if v, err := strconv.ParseInt(from, 10, 64); err == nil {
			params.From = &v
		}
	}
	if to := c.Query("to"); to != "" {
		if v, err := strconv.ParseInt(to, 10, 64); err == nil {
			params.To = &v
		}
	}

	txns, total, err := h.paymentSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	response.Paginated(c, items, total, params.Page, params.PageSize)
}

// UpdateTransactionStatus handles PATCH /api/v1/payments/:id/status.
func (h *PaymentHandler) UpdateTransactionStatus(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrValidation("invalid transaction id"))
		return
	}

	var req dto.UpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}

	tx, err := h.paymentSvc.UpdateTransactionStatus(c.Request.Context(), userID, id, domain.TransactionStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(tx))
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

// toTransactionResponse converts domain.Transaction to its DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	next := domain.GetValidNextStatuses(tx.Status)
	nextStrs := make([]string, 0, len(next))
	for _, s := range next {
		nextStrs = append(nextStrs, string(s))
	}

	return dto.TransactionResponse{
		ID:                  tx.ID.String(),
		Amount:              tx.Amount,
		AmountDisplay:       domain.FormatTransactionAmount(tx.Amount, tx.Currency),
		Currency:            tx.Currency,
		Description:         tx.Description,
		PaymentURL:          tx.PaymentURL,
		AllpayTransactionID: tx.AllpayTransactionID,
		Status:              string(tx.Status),
		NextStatuses:        nextStrs,
		CreatedAt:           tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           tx.UpdatedAt.Format(time.RFC3339),
	}
}
