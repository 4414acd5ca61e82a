package calculatetrustscore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	commonerrors "trustlend-workers/internal/common/errors"
	"trustlend-workers/internal/common/logger"
	"trustlend-workers/internal/common/observability"
	"trustlend-workers/internal/common/validation"
	"trustlend-workers/internal/models"
	"trustlend-workers/internal/trust"
)

// ==========================
// Test Helpers
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout:  15 * time.Second,
		CacheTTL: time.Hour,
	}
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock
}

func setupMockRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newTestValidator(t *testing.T) *validation.Validator {
	t.Helper()
	v, err := validation.NewValidator()
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}
	return v
}

func newTestRegistry(t *testing.T) *trust.Registry {
	t.Helper()
	return trust.NewRegistry(trust.RegistryConfig{
		ArtifactPath:  filepath.Join(t.TempDir(), "trust_model.json"),
		SyntheticRows: 60,
		SyntheticSeed: 42,
		RidgeAlpha:    1.0,
	}, logger.NewNoOpLogger())
}

var userColumns = []string{
	"id", "email", "full_name", "income", "credit_score",
	"date_of_birth", "employment_status", "trust_score", "created_at",
}

var paymentColumns = []string{
	"id", "user_id", "amount", "status", "due_date", "payment_date", "loan_type", "created_at",
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	mr, rdb := setupMockRedis(t)

	handler := NewHandler(createTestConfig(), db, rdb, newTestRegistry(t),
		observability.Noop(), newTestValidator(t), logger.NewTestLogger(t))

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, email, full_name, income").
		WithArgs("user-123").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("user-123", "jane@example.com", "Jane Doe", 60000.0, 750,
				now.AddDate(-30, 0, 0), "employed", nil, now.AddDate(-2, 0, 0)))

	rows := sqlmock.NewRows(paymentColumns)
	for i := 0; i < 12; i++ {
		rows.AddRow("pay-"+string(rune('a'+i)), "user-123", 150.0, models.PaymentOnTime,
			now.AddDate(0, -i, 0), now.AddDate(0, -i, 0), "personal", now.AddDate(0, -i, 0))
	}
	mock.ExpectQuery("SELECT id, user_id, amount, status").
		WithArgs("user-123").
		WillReturnRows(rows)

	mock.ExpectExec("INSERT INTO trust_scores").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET trust_score").
		WithArgs(sqlmock.AnyArg(), "user-123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{UserID: "user-123"})

	assert.NoError(t, err)
	assert.NotNil(t, output)

	assert.Equal(t, "user-123", output.UserID)
	assert.GreaterOrEqual(t, output.TrustScore, 0.0)
	assert.LessOrEqual(t, output.TrustScore, 1000.0)
	assert.Equal(t, models.LevelForScore(output.TrustScore), output.TrustLevel)

	// 12 on-time payments plus a fully known profile.
	assert.Equal(t, 1.0, output.Confidence)

	assert.Equal(t, 1.0, output.Factors["payment_history_score"])
	assert.Equal(t, 750.0, output.Factors["credit_score"])
	assert.Equal(t, 60000.0, output.Factors["income"])
	assert.Len(t, output.FeatureImportance, trust.FeatureCount)
	assert.Contains(t, output.ModelVersion, "ridge-")
	assert.NotEmpty(t, output.CalculatedAt)

	// The fresh score lands in the cache for the matching path.
	assert.True(t, mr.Exists("trust:score:user-123"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UserNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	_, rdb := setupMockRedis(t)

	handler := NewHandler(createTestConfig(), db, rdb, newTestRegistry(t),
		observability.Noop(), newTestValidator(t), logger.NewTestLogger(t))

	mock.ExpectQuery("SELECT id, email, full_name, income").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := handler.Execute(context.Background(), &Input{UserID: "missing"})

	var stdErr *commonerrors.StandardError
	if assert.ErrorAs(t, err, &stdErr) {
		assert.Equal(t, commonerrors.ErrCodeUserNotFound, stdErr.Code)
	}
}

func TestHandler_Execute_InsertFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	_, rdb := setupMockRedis(t)

	handler := NewHandler(createTestConfig(), db, rdb, newTestRegistry(t),
		observability.Noop(), newTestValidator(t), logger.NewTestLogger(t))

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, email, full_name, income").
		WithArgs("user-123").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("user-123", nil, nil, 60000.0, 750, nil, "employed", nil, now))
	mock.ExpectQuery("SELECT id, user_id, amount, status").
		WithArgs("user-123").
		WillReturnRows(sqlmock.NewRows(paymentColumns))
	mock.ExpectExec("INSERT INTO trust_scores").
		WillReturnError(errors.New("deadlock detected"))

	_, err := handler.Execute(context.Background(), &Input{UserID: "user-123"})

	var stdErr *commonerrors.StandardError
	if assert.ErrorAs(t, err, &stdErr) {
		assert.Equal(t, commonerrors.ErrCodeDatabaseInsertFailed, stdErr.Code)
	}
}

func TestHandler_Execute_CacheFailureIsNotFatal(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	mr, rdb := setupMockRedis(t)
	// A dead redis only costs the cache write, not the job.
	mr.Close()

	handler := NewHandler(createTestConfig(), db, rdb, newTestRegistry(t),
		observability.Noop(), newTestValidator(t), logger.NewTestLogger(t))

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, email, full_name, income").
		WithArgs("user-123").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("user-123", nil, nil, 60000.0, 750, nil, "employed", nil, now))
	mock.ExpectQuery("SELECT id, user_id, amount, status").
		WithArgs("user-123").
		WillReturnRows(sqlmock.NewRows(paymentColumns))
	mock.ExpectExec("INSERT INTO trust_scores").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET trust_score").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{UserID: "user-123"})

	assert.NoError(t, err)
	assert.NotNil(t, output)
}
