package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	commonerrors "trustlend-workers/internal/common/errors"
	"trustlend-workers/internal/models"
)

var trustScoreColumns = []string{
	"id", "user_id", "score", "level", "confidence", "factors", "model_version", "calculated_at",
}

func testScoreResult() *models.TrustScoreResult {
	return &models.TrustScoreResult{
		UserID:       "user-123",
		Score:        812.5,
		Level:        models.TrustExcellent,
		Confidence:   0.9,
		Factors:      map[string]float64{"payment_history_score": 0.95},
		ModelVersion: "ridge-20260301T120000Z",
		CalculatedAt: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTrustScoreStore_Insert(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO trust_scores").
		WithArgs(sqlmock.AnyArg(), "user-123", 812.5, models.TrustExcellent,
			0.9, sqlmock.AnyArg(), "ridge-20260301T120000Z", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := testScoreResult()
	err := NewTrustScoreStore(db).Insert(context.Background(), result)

	assert.NoError(t, err)
	assert.NotEmpty(t, result.ID, "a missing id gets generated on insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrustScoreStore_Insert_KeepsProvidedID(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO trust_scores").
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := testScoreResult()
	result.ID = "score-1"
	err := NewTrustScoreStore(db).Insert(context.Background(), result)

	assert.NoError(t, err)
	assert.Equal(t, "score-1", result.ID)
}

func TestTrustScoreStore_Insert_Failure(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO trust_scores").
		WillReturnError(errors.New("deadlock detected"))

	err := NewTrustScoreStore(db).Insert(context.Background(), testScoreResult())

	assertErrorCode(t, err, commonerrors.ErrCodeDatabaseInsertFailed)
}

func TestTrustScoreStore_LatestByUser(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	calculated := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, user_id, score, level").
		WithArgs("user-123").
		WillReturnRows(sqlmock.NewRows(trustScoreColumns).
			AddRow("score-1", "user-123", 812.5, models.TrustExcellent, 0.9,
				[]byte(`{"payment_history_score":0.95}`), "ridge-20260301T120000Z", calculated))

	result, err := NewTrustScoreStore(db).LatestByUser(context.Background(), "user-123")

	assert.NoError(t, err)
	assert.Equal(t, 812.5, result.Score)
	assert.Equal(t, models.TrustExcellent, result.Level)
	assert.Equal(t, 0.95, result.Factors["payment_history_score"])
	assert.Equal(t, calculated, result.CalculatedAt)
}

func TestTrustScoreStore_LatestByUser_NeverScored(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT id, user_id, score, level").
		WithArgs("user-new").
		WillReturnRows(sqlmock.NewRows(trustScoreColumns))

	_, err := NewTrustScoreStore(db).LatestByUser(context.Background(), "user-new")

	assertErrorCode(t, err, commonerrors.ErrCodeUserTrustScoreNotFound)
}

func TestTrustScoreStore_HistoryByUser(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	calculated := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, user_id, score, level").
		WithArgs("user-123", 10).
		WillReturnRows(sqlmock.NewRows(trustScoreColumns).
			AddRow("score-2", "user-123", 812.5, models.TrustExcellent, 0.9, nil, "ridge-b", calculated).
			AddRow("score-1", "user-123", 640.0, models.TrustFair, 0.7, nil, "ridge-a", calculated.AddDate(0, -1, 0)))

	history, err := NewTrustScoreStore(db).HistoryByUser(context.Background(), "user-123", 10)

	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 812.5, history[0].Score)
	assert.Equal(t, 640.0, history[1].Score)
}

func TestTrustScoreStore_ListScoredUserIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT user_id FROM trust_scores").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).
			AddRow("user-1").
			AddRow("user-2"))

	ids, err := NewTrustScoreStore(db).ListScoredUserIDs(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, ids)
}

func TestTrustScoreStore_CountAll(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := NewTrustScoreStore(db).CountAll(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 7, n)
}
