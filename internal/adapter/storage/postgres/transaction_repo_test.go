package postgres

import (
	"context"
	"testing"
	"time"

	"merchant-portal/internal/core/domain"
	"merchant-portal/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestTransaction() *domain.Transaction {
	return &domain.Transaction{
		ID:                  uuid.New(),
		UserID:              uuid.New(),
		Amount:              150.50,
		Currency:            "ILS",
		Description:         strPtr("Invoice 42"),
		PaymentURL:          "https://allpay.co.il/pay/abc123",
		AllpayTransactionID: strPtr("TXN_001"),
		Status:              domain.TransactionStatusPending,
		CreatedAt:           time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:           time.Now().UTC().Truncate(time.Microsecond),
	}
}

func transactionTestColumns() []string {
	return []string{"id", "user_id", "amount", "currency", "description", "payment_url", "allpay_transaction_id", "status", "created_at", "updated_at"}
}

func transactionRow(tx *domain.Transaction) *pgxmock.Rows {
	return pgxmock.NewRows(transactionTestColumns()).AddRow(
		tx.ID, tx.UserID, tx.Amount, tx.Currency, tx.Description,
		tx.PaymentURL, tx.AllpayTransactionID, tx.Status,
		tx.CreatedAt, tx.UpdatedAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	tx := newTestTransaction()

	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(tx.ID, tx.UserID, tx.Amount, tx.Currency, tx.Description,
			tx.PaymentURL, tx.AllpayTransactionID, tx.Status,
			tx.CreatedAt, tx.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), tx)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	tx := newTestTransaction()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(tx.ID).
		WillReturnRows(transactionRow(tx))

	result, err := repo.GetByID(context.Background(), tx.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, tx.ID, result.ID)
	assert.Equal(t, tx.Status, result.Status)
	require.NotNil(t, result.AllpayTransactionID)
	assert.Equal(t, "TXN_001", *result.AllpayTransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(transactionTestColumns()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	tx := newTestTransaction()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id = .+ FOR UPDATE").
		WithArgs(tx.ID).
		WillReturnRows(transactionRow(tx))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), dbTx, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, tx.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs(domain.TransactionStatusCompleted, pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), dbTx, id, domain.TransactionStatusCompleted)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), dbTx, uuid.New(), domain.TransactionStatusCompleted)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	tx := newTestTransaction()
	status := domain.TransactionStatusPending

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(tx.UserID, status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE user_id = .+ AND status = .+ ORDER BY created_at DESC").
		WithArgs(tx.UserID, status, 20, 0).
		WillReturnRows(transactionRow(tx))

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{
		UserID:   tx.UserID,
		Status:   &status,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, txns, 1)
	assert.Equal(t, tx.ID, txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
