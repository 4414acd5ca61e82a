// internal/models/payment.go
package models

import (
	"fmt"
	"time"
)

// Payment statuses as recorded in the ledger.
const (
	PaymentOnTime  = "on_time"
	PaymentLate    = "late"
	PaymentMissed  = "missed"
	PaymentPartial = "partial"
)

// PaymentRecord is a single immutable entry in a borrower's payment ledger.
type PaymentRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Amount      float64    `json:"amount"`
	Status      string     `json:"status"`
	DueDate     time.Time  `json:"dueDate"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"`
	LoanType    string     `json:"loanType,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Validate checks the fields set by callers before a record enters the
// scoring pipeline.
func (p *PaymentRecord) Validate() error {
	if p.Amount <= 0 {
		return fmt.Errorf("payment amount must be positive, got %v", p.Amount)
	}
	switch p.Status {
	case PaymentOnTime, PaymentLate, PaymentMissed, PaymentPartial:
	default:
		return fmt.Errorf("unknown payment status %q", p.Status)
	}
	return nil
}
