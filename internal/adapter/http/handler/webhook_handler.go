package handler

import (
	"errors"

	"merchant-portal/internal/adapter/http/dto"
	"merchant-portal/internal/core/ports"
	"merchant-portal/pkg/apperror"
	"merchant-portal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookHandler receives AllPay status notifications.
type WebhookHandler struct {
	paymentSvc ports.PaymentService
	gateway    ports.GatewayClient
	log        zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(paymentSvc ports.PaymentService, gateway ports.GatewayClient, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{paymentSvc: paymentSvc, gateway: gateway, log: log}
}

// HandleAllPay handles POST /api/v1/webhooks/allpay. The gateway expects
// a 200 on success and retries on anything else, so duplicates are
// acknowledged rather than errored.
func (h *WebhookHandler) HandleAllPay(c *gin.Context) {
	var payload dto.AllPayWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperror.ErrValidation(err.Error()))
		return
	}

	if !h.gateway.VerifyWebhookSignature(payload.SignatureFields(), payload.Sign) {
		h.log.Warn().
			Str("allpay_transaction_id", payload.TransactionID).
			Msg("webhook signature verification failed")
		response.Error(c, apperror.ErrInvalidWebhookSignature())
		return
	}

	err := h.paymentSvc.ProcessGatewayWebhook(c.Request.Context(), ports.GatewayWebhookEvent{
		EventID:             payload.EventID,
		AllpayTransactionID: payload.TransactionID,
		Status:              payload.Status,
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "GW_003" {
			// Replayed delivery; acknowledge so the gateway stops retrying.
			response.OK(c, gin.H{"status": "duplicate"})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"status": "ok"})
}
