package trust

import (
	"math"

	"trustlend-workers/internal/models"
)

// Analyzer summarizes a user's payment ledger into the behavior stats
// reported by the analyze-payment-behavior task.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze computes ledger counts, the observed monthly payment rate over
// the span between first and last payment, and the derived debt figures.
// An empty ledger yields the all-zero shape; the stability placeholder is
// only reported when payments exist.
func (a *Analyzer) Analyze(user *models.UserProfile, payments []models.PaymentRecord) *models.PaymentStats {
	stats := &models.PaymentStats{UserID: user.ID}
	if len(payments) == 0 {
		return stats
	}
	stats.IncomeStabilityScore = incomeStabilityScore

	first := payments[0].CreatedAt
	last := payments[0].CreatedAt
	var amountSum float64
	for _, p := range payments {
		switch p.Status {
		case models.PaymentOnTime:
			stats.OnTimePayments++
		case models.PaymentLate:
			stats.LatePayments++
		case models.PaymentMissed:
			stats.MissedPayments++
		}
		amountSum += p.Amount
		if p.CreatedAt.Before(first) {
			first = p.CreatedAt
		}
		if p.CreatedAt.After(last) {
			last = p.CreatedAt
		}
	}

	stats.TotalPayments = len(payments)
	stats.AveragePaymentAmount = round2(amountSum / float64(len(payments)))

	months := last.Sub(first).Hours() / 24 / 30
	stats.PaymentFrequency = round2(float64(len(payments)) / math.Max(months, 1))

	debt := totalDebt(payments)
	stats.CreditUtilization = round3(creditUtilization(user.Income, debt))
	stats.DebtToIncomeRatio = round3(debtToIncomeRatio(user.Income, debt))

	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
