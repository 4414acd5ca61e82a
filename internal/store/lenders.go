package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	commonerrors "trustlend-workers/internal/common/errors"
	"trustlend-workers/internal/models"
)

// LenderStore reads lender profiles. When the lenders table is empty the
// built-in sample set is served so matching works on a fresh install.
type LenderStore struct {
	db *sql.DB
}

func NewLenderStore(db *sql.DB) *LenderStore {
	return &LenderStore{db: db}
}

// ListActive returns all active lenders, falling back to the sample set
// when the table has none.
func (s *LenderStore) ListActive(ctx context.Context) ([]models.LenderProfile, error) {
	query := `
		SELECT id, name, min_trust_score, max_loan_amount,
		       interest_rate_min, interest_rate_max, loan_types, requirements
		FROM lenders
		WHERE active = true
		ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, commonerrors.NewQueryTimeoutError("list_lenders")
		}
		return nil, commonerrors.NewQueryExecutionFailedError("list_lenders", err)
	}
	defer rows.Close()

	var lenders []models.LenderProfile
	for rows.Next() {
		lender, err := scanLender(rows)
		if err != nil {
			return nil, err
		}
		lenders = append(lenders, *lender)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("list_lenders", err)
	}

	if len(lenders) == 0 {
		return models.SampleLenders(), nil
	}
	return lenders, nil
}

// GetByID fetches one lender, checking the sample set before reporting
// LENDER_NOT_FOUND.
func (s *LenderStore) GetByID(ctx context.Context, lenderID string) (*models.LenderProfile, error) {
	query := `
		SELECT id, name, min_trust_score, max_loan_amount,
		       interest_rate_min, interest_rate_max, loan_types, requirements
		FROM lenders
		WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, lenderID)
	lender, err := scanLender(row)
	if err == sql.ErrNoRows {
		for _, sample := range models.SampleLenders() {
			if sample.ID == lenderID {
				return &sample, nil
			}
		}
		return nil, commonerrors.NewLenderNotFoundError(lenderID)
	}
	if err != nil {
		return nil, err
	}
	return lender, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLender(row rowScanner) (*models.LenderProfile, error) {
	var (
		lender       models.LenderProfile
		loanTypes    pq.StringArray
		requirements []byte
	)

	err := row.Scan(
		&lender.ID, &lender.Name, &lender.MinTrustScore, &lender.MaxLoanAmount,
		&lender.InterestRange.Min, &lender.InterestRange.Max,
		&loanTypes, &requirements,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("scan_lender", err)
	}

	lender.LoanTypes = []string(loanTypes)
	if len(requirements) > 0 {
		if err := json.Unmarshal(requirements, &lender.Requirements); err != nil {
			return nil, commonerrors.NewQueryExecutionFailedError("scan_lender", err)
		}
	}
	return &lender, nil
}
