package analyzepaymentbehavior

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	commonerrors "trustlend-workers/internal/common/errors"
	"trustlend-workers/internal/common/logger"
	"trustlend-workers/internal/common/validation"
	"trustlend-workers/internal/models"
)

// ==========================
// Test Helpers
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: 10 * time.Second}
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock
}

func newTestValidator(t *testing.T) *validation.Validator {
	t.Helper()
	v, err := validation.NewValidator()
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}
	return v
}

var userColumns = []string{
	"id", "email", "full_name", "income", "credit_score",
	"date_of_birth", "employment_status", "trust_score", "created_at",
}

var paymentColumns = []string{
	"id", "user_id", "amount", "status", "due_date", "payment_date", "loan_type", "created_at",
}

func expectUserRow(mock sqlmock.Sqlmock, userID string, income float64) {
	mock.ExpectQuery("SELECT id, email, full_name, income").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID, "jane@example.com", "Jane Doe", income, 720,
				nil, "employed", nil, time.Now()))
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	handler := NewHandler(createTestConfig(), db, newTestValidator(t), logger.NewTestLogger(t))

	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	expectUserRow(mock, "user-123", 60000)
	mock.ExpectQuery("SELECT id, user_id, amount, status").
		WithArgs("user-123").
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow("pay-1", "user-123", 100.0, models.PaymentOnTime, base, base, "personal", base).
			AddRow("pay-2", "user-123", 100.0, models.PaymentOnTime, base, base, "personal", base.AddDate(0, 1, 0)).
			AddRow("pay-3", "user-123", 200.0, models.PaymentLate, base, nil, "personal", base.AddDate(0, 2, 0)).
			AddRow("pay-4", "user-123", 400.0, models.PaymentMissed, base, nil, "personal", base.AddDate(0, 3, 0)))

	output, err := handler.Execute(context.Background(), &Input{UserID: "user-123"})

	assert.NoError(t, err)
	assert.NotNil(t, output)

	stats := output.Behavior
	assert.Equal(t, "user-123", stats.UserID)
	assert.Equal(t, 4, stats.TotalPayments)
	assert.Equal(t, 2, stats.OnTimePayments)
	assert.Equal(t, 1, stats.LatePayments)
	assert.Equal(t, 1, stats.MissedPayments)

	// (100 + 100 + 200 + 400) / 4 = 200
	assert.Equal(t, 200.0, stats.AveragePaymentAmount)
	assert.Equal(t, 0.8, stats.IncomeStabilityScore)

	// Debt of 600 against the 18000 derived credit limit.
	assert.Equal(t, 0.033, stats.CreditUtilization)
	assert.Equal(t, 0.01, stats.DebtToIncomeRatio)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_EmptyLedger(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	handler := NewHandler(createTestConfig(), db, newTestValidator(t), logger.NewTestLogger(t))

	expectUserRow(mock, "user-new", 40000)
	mock.ExpectQuery("SELECT id, user_id, amount, status").
		WithArgs("user-new").
		WillReturnRows(sqlmock.NewRows(paymentColumns))

	output, err := handler.Execute(context.Background(), &Input{UserID: "user-new"})

	assert.NoError(t, err)
	assert.Equal(t, 0, output.Behavior.TotalPayments)
	assert.Equal(t, 0.0, output.Behavior.PaymentFrequency)
	assert.Equal(t, 0.0, output.Behavior.IncomeStabilityScore)
}

func TestHandler_Execute_UserNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	handler := NewHandler(createTestConfig(), db, newTestValidator(t), logger.NewTestLogger(t))

	mock.ExpectQuery("SELECT id, email, full_name, income").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := handler.Execute(context.Background(), &Input{UserID: "missing"})

	var stdErr *commonerrors.StandardError
	if assert.ErrorAs(t, err, &stdErr) {
		assert.Equal(t, commonerrors.ErrCodeUserNotFound, stdErr.Code)
	}
}
