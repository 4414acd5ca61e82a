// internal/models/user.go
package models

import (
	"fmt"
	"time"
)

// UserProfile is the borrower profile as read from the users table.
// CreditScore is a pointer because the score may simply not be on file;
// the feature extractor substitutes a default in that case.
type UserProfile struct {
	ID               string     `json:"id"`
	Email            string     `json:"email,omitempty"`
	FullName         string     `json:"fullName,omitempty"`
	Income           float64    `json:"income"`
	CreditScore      *int       `json:"creditScore,omitempty"`
	DateOfBirth      *time.Time `json:"dateOfBirth,omitempty"`
	EmploymentStatus string     `json:"employmentStatus,omitempty"`
	TrustScore       *float64   `json:"trustScore,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Validate rejects profiles that would poison feature extraction.
func (u *UserProfile) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if u.Income < 0 {
		return fmt.Errorf("income must not be negative, got %v", u.Income)
	}
	if u.CreditScore != nil && (*u.CreditScore < 300 || *u.CreditScore > 850) {
		return fmt.Errorf("credit score must be in [300,850], got %d", *u.CreditScore)
	}
	return nil
}
