// Package store holds the postgres repositories and redis caches behind
// the scoring and matching workers.
package store

import (
	"context"
	"database/sql"

	commonerrors "trustlend-workers/internal/common/errors"
	"trustlend-workers/internal/models"
)

// UserStore reads and updates borrower profiles.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// GetByID fetches one profile. A missing row maps to USER_NOT_FOUND.
func (s *UserStore) GetByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
		SELECT id, email, full_name, income, credit_score, date_of_birth,
		       employment_status, trust_score, created_at
		FROM users
		WHERE id = $1`

	var (
		user        models.UserProfile
		email       sql.NullString
		fullName    sql.NullString
		income      sql.NullFloat64
		creditScore sql.NullInt64
		dob         sql.NullTime
		employment  sql.NullString
		trustScore  sql.NullFloat64
	)

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &email, &fullName, &income, &creditScore, &dob,
		&employment, &trustScore, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, commonerrors.NewUserNotFoundError(userID)
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, commonerrors.NewQueryTimeoutError("get_user")
		}
		return nil, commonerrors.NewQueryExecutionFailedError("get_user", err)
	}

	user.Email = email.String
	user.FullName = fullName.String
	user.Income = income.Float64
	user.EmploymentStatus = employment.String
	if creditScore.Valid {
		cs := int(creditScore.Int64)
		user.CreditScore = &cs
	}
	if dob.Valid {
		d := dob.Time
		user.DateOfBirth = &d
	}
	if trustScore.Valid {
		ts := trustScore.Float64
		user.TrustScore = &ts
	}

	return &user, nil
}

// UpdateTrustScore writes the cached score column on the user row.
func (s *UserStore) UpdateTrustScore(ctx context.Context, userID string, score float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET trust_score = $1, updated_at = NOW() WHERE id = $2`,
		score, userID,
	)
	if err != nil {
		return commonerrors.NewQueryExecutionFailedError("update_trust_score", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return commonerrors.NewUserNotFoundError(userID)
	}
	return nil
}
