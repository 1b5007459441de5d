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
	"github.com/rs/zerolog"
)

// webhookDedupTTL bounds how long processed gateway event ids are kept.
const webhookDedupTTL = 24 * time.Hour

// gatewayStatusMap translates AllPay notification statuses to internal ones.
var gatewayStatusMap = map[string]domain.TransactionStatus{
	"1":                  domain.TransactionStatusCompleted,
	"paid":               domain.TransactionStatusCompleted,
	"completed":          domain.TransactionStatusCompleted,
	"0":                  domain.TransactionStatusFailed,
	"failed":             domain.TransactionStatusFailed,
	"cancelled":          domain.TransactionStatusCancelled,
	"refunded":           domain.TransactionStatusRefunded,
	"partially_refunded": domain.TransactionStatusPartiallyRefunded,
}

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	txRepo     ports.TransactionRepository
	gateway    ports.GatewayClient
	transactor ports.DBTransactor
	dedupStore ports.WebhookDedupStore
	log        zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	txRepo ports.TransactionRepository,
	gateway ports.GatewayClient,
	transactor ports.DBTransactor,
	dedupStore ports.WebhookDedupStore,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		txRepo:     txRepo,
		gateway:    gateway,
		transactor: transactor,
		dedupStore: dedupStore,
		log:        log,
	}
}

// CreatePayment validates the request, asks the gateway for a payment
// link, and records the transaction in pending state.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, req ports.CreatePaymentRequest) (*domain.Transaction, error) {
	data := domain.SanitizeCreateTransactionData(domain.CreateTransactionData{
		UserID:      req.UserID.String(),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if res := domain.ValidateCreateTransactionData(data); !res.Valid {
		return nil, apperror.ErrValidation(strings.Join(res.Errors, "; "))
	}

	id := uuid.New()
	gwResp, err := s.gateway.CreatePaymentLink(ctx, ports.GatewayPaymentRequest{
		OrderID:     id.String(),
		Amount:      data.Amount,
		Currency:    data.Currency,
		Description: data.Description,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", req.UserID.String()).Msg("gateway payment link failed")
		return nil, apperror.ErrGatewayFailure(err)
	}

	if res := domain.ValidatePaymentURL(gwResp.PaymentURL); !res.Valid {
		return nil, apperror.ErrGatewayFailure(fmt.Errorf("gateway returned invalid payment url"))
	}
	if res := domain.ValidateAllpayTransactionID(gwResp.TransactionID); !res.Valid {
		return nil, apperror.ErrGatewayFailure(fmt.Errorf("gateway returned invalid transaction id"))
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:                  id,
		UserID:              req.UserID,
		Amount:              data.Amount,
		Currency:            data.Currency,
		PaymentURL:          gwResp.PaymentURL,
		AllpayTransactionID: &gwResp.TransactionID,
		Status:              domain.TransactionStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if data.Description != "" {
		tx.Description = &data.Description
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}
	return tx, nil
}

// GetTransaction fetches one owned transaction.
func (s *PaymentServiceImpl) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if tx == nil || tx.UserID != userID {
		return nil, apperror.ErrTransactionNotFound()
	}
	return tx, nil
}

// ListTransactions returns a paginated, filtered list.
func (s *PaymentServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// UpdateTransactionStatus moves an owned transaction to a new status.
// The transition table is consulted under a row lock so concurrent
// updates cannot skip states.
func (s *PaymentServiceImpl) UpdateTransactionStatus(ctx context.Context, userID, id uuid.UUID, to domain.TransactionStatus) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx)

	tx, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if tx == nil || tx.UserID != userID {
		return nil, apperror.ErrTransactionNotFound()
	}

	if !tx.CanTransitionTo(to) {
		return nil, apperror.ErrInvalidStatusTransition(string(tx.Status), string(to))
	}

	if err := s.txRepo.UpdateStatus(ctx, dbTx, tx.ID, to); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit: %w", err))
	}

	tx.Status = to
	tx.UpdatedAt = time.Now().UTC()
	return tx, nil
}

// ProcessGatewayWebhook applies an AllPay status notification. Replayed
// events are dropped; transitions outside the status table are rejected.
// The caller has already verified the webhook signature.
func (s *PaymentServiceImpl) ProcessGatewayWebhook(ctx context.Context, event ports.GatewayWebhookEvent) error {
	status, ok := gatewayStatusMap[strings.ToLower(strings.TrimSpace(event.Status))]
	if !ok {
		return apperror.ErrValidation(fmt.Sprintf("unknown gateway status: %s", event.Status))
	}

	eventID := event.EventID
	if eventID == "" {
		eventID = event.AllpayTransactionID + ":" + string(status)
	}
	fresh, dedupErr := s.dedupStore.CheckAndSet(ctx, eventID, webhookDedupTTL)
	if dedupErr != nil {
		// Degraded mode: dedup store down must not drop real updates.
		s.log.Warn().Err(dedupErr).Msg("webhook dedup store error, processing anyway")
	} else if !fresh {
		return apperror.ErrDuplicateWebhook()
	}

	// The event id is recorded before the database work. If that work
	// fails, the mark must be released or the gateway's retry would be
	// dropped as a duplicate and the update lost.
	marked := dedupErr == nil
	releaseDedup := func() {
		if !marked {
			return
		}
		if err := s.dedupStore.Delete(ctx, eventID); err != nil {
			s.log.Warn().Err(err).Str("event_id", eventID).Msg("failed to release webhook dedup mark")
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		releaseDedup()
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx)

	tx, err := s.txRepo.GetByAllpayID(ctx, dbTx, event.AllpayTransactionID)
	if err != nil {
		releaseDedup()
		return apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if tx == nil {
		releaseDedup()
		return apperror.ErrTransactionNotFound()
	}

	if tx.Status == status {
		// Repeated notification of the current state; nothing to do.
		return nil
	}
	if !tx.CanTransitionTo(status) {
		s.log.Warn().
			Str("transaction_id", tx.ID.String()).
			Str("from", string(tx.Status)).
			Str("to", string(status)).
			Msg("webhook requested illegal status transition")
		return apperror.ErrInvalidStatusTransition(string(tx.Status), string(status))
	}

	if err := s.txRepo.UpdateStatus(ctx, dbTx, tx.ID, status); err != nil {
		releaseDedup()
		return apperror.InternalError(fmt.Errorf("update status: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		releaseDedup()
		return apperror.InternalError(fmt.Errorf("commit: %w", err))
	}

	s.log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("from", string(tx.Status)).
		Str("to", string(status)).
		Msg("transaction status updated from gateway webhook")
	return nil
}
