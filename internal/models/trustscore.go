// internal/models/trustscore.go
package models

import "time"

// Trust levels, ordered from best to worst.
const (
	TrustExcellent = "excellent"
	TrustGood      = "good"
	TrustFair      = "fair"
	TrustPoor      = "poor"
	TrustVeryPoor  = "very_poor"
)

// LevelForScore maps a trust score on the 0-1000 scale to its level band.
func LevelForScore(score float64) string {
	switch {
	case score >= 800:
		return TrustExcellent
	case score >= 650:
		return TrustGood
	case score >= 500:
		return TrustFair
	case score >= 300:
		return TrustPoor
	default:
		return TrustVeryPoor
	}
}

// TrustScoreResult is one immutable scoring event. Rows are append-only;
// the latest row per user is the current score.
type TrustScoreResult struct {
	ID           string             `json:"id"`
	UserID       string             `json:"userId"`
	Score        float64            `json:"score"`
	Level        string             `json:"level"`
	Confidence   float64            `json:"confidence"`
	Factors      map[string]float64 `json:"factors"`
	ModelVersion string             `json:"modelVersion"`
	CalculatedAt time.Time          `json:"calculatedAt"`
}

// PaymentStats is the behavior-analysis summary derived from a user's
// payment ledger.
type PaymentStats struct {
	UserID               string  `json:"userId"`
	TotalPayments        int     `json:"totalPayments"`
	OnTimePayments       int     `json:"onTimePayments"`
	LatePayments         int     `json:"latePayments"`
	MissedPayments       int     `json:"missedPayments"`
	AveragePaymentAmount float64 `json:"averagePaymentAmount"`
	PaymentFrequency     float64 `json:"paymentFrequency"`
	CreditUtilization    float64 `json:"creditUtilization"`
	DebtToIncomeRatio    float64 `json:"debtToIncomeRatio"`
	IncomeStabilityScore float64 `json:"incomeStabilityScore"`
}
