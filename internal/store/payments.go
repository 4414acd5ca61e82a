package store

import (
	"context"
	"database/sql"

	commonerrors "trustlend-workers/internal/common/errors"
	"trustlend-workers/internal/models"
)

// PaymentStore reads the payment ledger.
type PaymentStore struct {
	db *sql.DB
}

func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

// ListByUser returns the user's payments in creation order. A user with no
// payments gets an empty slice, not an error.
func (s *PaymentStore) ListByUser(ctx context.Context, userID string) ([]models.PaymentRecord, error) {
	query := `
		SELECT id, user_id, amount, status, due_date, payment_date, loan_type, created_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, commonerrors.NewQueryTimeoutError("list_payments")
		}
		return nil, commonerrors.NewQueryExecutionFailedError("list_payments", err)
	}
	defer rows.Close()

	payments := []models.PaymentRecord{}
	for rows.Next() {
		var (
			p           models.PaymentRecord
			paymentDate sql.NullTime
			loanType    sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Status,
			&p.DueDate, &paymentDate, &loanType, &p.CreatedAt); err != nil {
			return nil, commonerrors.NewQueryExecutionFailedError("list_payments", err)
		}
		if paymentDate.Valid {
			d := paymentDate.Time
			p.PaymentDate = &d
		}
		p.LoanType = loanType.String
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("list_payments", err)
	}

	return payments, nil
}

// CountAll returns the ledger size across all users, used to judge whether
// enough real data exists to retrain on.
func (s *PaymentStore) CountAll(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`).Scan(&n)
	if err != nil {
		return 0, commonerrors.NewQueryExecutionFailedError("count_payments", err)
	}
	return n, nil
}
