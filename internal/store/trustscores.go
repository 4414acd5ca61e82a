package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	commonerrors "trustlend-workers/internal/common/errors"
	"trustlend-workers/internal/models"
)

// TrustScoreStore persists scoring events. Rows are append-only; the
// latest row per user is the current score.
type TrustScoreStore struct {
	db *sql.DB
}

func NewTrustScoreStore(db *sql.DB) *TrustScoreStore {
	return &TrustScoreStore{db: db}
}

// Insert writes one scoring event and returns it with its generated id.
func (s *TrustScoreStore) Insert(ctx context.Context, result *models.TrustScoreResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}

	factors, err := json.Marshal(result.Factors)
	if err != nil {
		return commonerrors.NewDatabaseInsertFailedError(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trust_scores (id, user_id, score, level, confidence, factors, model_version, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.ID, result.UserID, result.Score, result.Level,
		result.Confidence, factors, result.ModelVersion, result.CalculatedAt,
	)
	if err != nil {
		return commonerrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// LatestByUser returns the most recent scoring event for a user.
// USER_TRUST_SCORE_NOT_FOUND when the user was never scored.
func (s *TrustScoreStore) LatestByUser(ctx context.Context, userID string) (*models.TrustScoreResult, error) {
	query := `
		SELECT id, user_id, score, level, confidence, factors, model_version, calculated_at
		FROM trust_scores
		WHERE user_id = $1
		ORDER BY calculated_at DESC
		LIMIT 1`

	result, err := scanTrustScore(s.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, commonerrors.NewUserTrustScoreNotFoundError(userID)
	}
	return result, err
}

// HistoryByUser returns up to limit scoring events, newest first.
func (s *TrustScoreStore) HistoryByUser(ctx context.Context, userID string, limit int) ([]models.TrustScoreResult, error) {
	query := `
		SELECT id, user_id, score, level, confidence, factors, model_version, calculated_at
		FROM trust_scores
		WHERE user_id = $1
		ORDER BY calculated_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("trust_score_history", err)
	}
	defer rows.Close()

	history := []models.TrustScoreResult{}
	for rows.Next() {
		result, err := scanTrustScore(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("trust_score_history", err)
	}
	return history, nil
}

// CountAll returns the number of stored scoring events, the labeled rows
// available for retraining.
func (s *TrustScoreStore) CountAll(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trust_scores`).Scan(&n)
	if err != nil {
		return 0, commonerrors.NewQueryExecutionFailedError("count_trust_scores", err)
	}
	return n, nil
}

// ListScoredUserIDs returns the distinct users with at least one scoring
// event, used to assemble the retraining dataset.
func (s *TrustScoreStore) ListScoredUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM trust_scores`)
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("list_scored_users", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, commonerrors.NewQueryExecutionFailedError("list_scored_users", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("list_scored_users", err)
	}
	return ids, nil
}

func scanTrustScore(row rowScanner) (*models.TrustScoreResult, error) {
	var (
		result  models.TrustScoreResult
		factors []byte
	)
	err := row.Scan(&result.ID, &result.UserID, &result.Score, &result.Level,
		&result.Confidence, &factors, &result.ModelVersion, &result.CalculatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("scan_trust_score", err)
	}
	if len(factors) > 0 {
		if err := json.Unmarshal(factors, &result.Factors); err != nil {
			return nil, commonerrors.NewQueryExecutionFailedError("scan_trust_score", err)
		}
	}
	return &result, nil
}
