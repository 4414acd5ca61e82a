// Package trust implements the trust scoring pipeline: feature extraction
// from payment behavior, a trainable scaler+regressor model, artifact
// persistence and the model registry.
package trust

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"trustlend-workers/internal/models"
)

// FeatureCount is the width of every feature vector the model accepts.
const FeatureCount = 12

// FeatureNames are the canonical feature names, index-aligned with the
// vectors produced by ExtractFeatures. Importance maps are keyed by these.
var FeatureNames = [FeatureCount]string{
	"payment_history_score",
	"credit_utilization",
	"debt_to_income_ratio",
	"income_stability",
	"employment_duration",
	"payment_frequency",
	"late_payment_ratio",
	"missed_payment_ratio",
	"average_payment_amount",
	"credit_score_normalized",
	"age",
	"income_log",
}

const (
	defaultCreditScore = 650
	creditScoreFloor   = 300
	creditScoreCeil    = 850

	// Fixed placeholders until employment history lands in the profile.
	incomeStabilityScore  = 0.8
	employmentDurationVal = 0.7
)

// Extractor turns a profile and payment ledger into a model feature vector.
// The clock is injected so age and trailing-window features are testable.
type Extractor struct {
	now func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// NewExtractorAt pins the extractor clock, for tests and replays.
func NewExtractorAt(now func() time.Time) *Extractor {
	return &Extractor{now: now}
}

// ExtractFeatures computes the 12-feature vector for one user. Payments may
// be empty; the vector is still fully defined.
func (e *Extractor) ExtractFeatures(user *models.UserProfile, payments []models.PaymentRecord) []float64 {
	now := e.now()

	features := make([]float64, FeatureCount)
	features[0] = paymentHistoryScore(payments)
	features[1] = creditUtilization(user.Income, totalDebt(payments))
	features[2] = debtToIncomeRatio(user.Income, totalDebt(payments))
	features[3] = incomeStabilityScore
	features[4] = employmentDurationVal
	features[5] = trailingPaymentFrequency(payments, now)
	features[6] = statusRatio(payments, models.PaymentLate)
	features[7] = statusRatio(payments, models.PaymentMissed)
	features[8] = averageAmount(payments)
	features[9] = normalizedCreditScore(user.CreditScore)
	features[10] = ageYears(user.DateOfBirth, now)
	features[11] = incomeLog(user.Income)
	return features
}

// paymentHistoryScore weighs on-time payments fully, late and partial ones
// at half, missed ones not at all, with a small bonus for a long history.
func paymentHistoryScore(payments []models.PaymentRecord) float64 {
	if len(payments) == 0 {
		return 0.0
	}

	var weighted float64
	for _, p := range payments {
		switch p.Status {
		case models.PaymentOnTime:
			weighted += 1.0
		case models.PaymentLate, models.PaymentPartial:
			weighted += 0.5
		}
	}

	score := weighted / float64(len(payments))
	if len(payments) >= 12 {
		score += 0.1
	}
	return math.Min(score, 1.0)
}

// totalDebt sums the amounts of payments that went bad. Partial payments
// count at half, the unpaid remainder is unknown.
func totalDebt(payments []models.PaymentRecord) float64 {
	var debt float64
	for _, p := range payments {
		switch p.Status {
		case models.PaymentLate, models.PaymentMissed:
			debt += p.Amount
		case models.PaymentPartial:
			debt += p.Amount / 2
		}
	}
	return debt
}

func creditUtilization(income, debt float64) float64 {
	creditLimit := income * 0.3
	if creditLimit == 0 {
		return 1.0
	}
	return math.Min(debt/creditLimit, 1.0)
}

func debtToIncomeRatio(income, debt float64) float64 {
	if income == 0 {
		return 1.0
	}
	return math.Min(debt/income, 1.0)
}

// trailingPaymentFrequency counts payments created within the trailing 12
// months, normalized to a monthly rate.
func trailingPaymentFrequency(payments []models.PaymentRecord, now time.Time) float64 {
	cutoff := now.Add(-12 * 30 * 24 * time.Hour)
	var recent int
	for _, p := range payments {
		if p.CreatedAt.After(cutoff) {
			recent++
		}
	}
	return float64(recent) / 12.0
}

func statusRatio(payments []models.PaymentRecord, status string) float64 {
	if len(payments) == 0 {
		return 0.0
	}
	var n int
	for _, p := range payments {
		if p.Status == status {
			n++
		}
	}
	return float64(n) / float64(len(payments))
}

func averageAmount(payments []models.PaymentRecord) float64 {
	if len(payments) == 0 {
		return 0.0
	}
	amounts := make([]float64, len(payments))
	for i, p := range payments {
		amounts[i] = p.Amount
	}
	return stat.Mean(amounts, nil)
}

func normalizedCreditScore(creditScore *int) float64 {
	cs := defaultCreditScore
	if creditScore != nil {
		cs = *creditScore
	}
	return float64(cs-creditScoreFloor) / float64(creditScoreCeil-creditScoreFloor)
}

func ageYears(dob *time.Time, now time.Time) float64 {
	if dob == nil {
		return 0.0
	}
	return now.Sub(*dob).Hours() / 24 / 365.25
}

func incomeLog(income float64) float64 {
	if income <= 0 {
		return 0.0
	}
	return math.Log(income + 1)
}

// Confidence estimates how much the inputs support the prediction: a base
// of 0.5 plus bonuses for history depth and known profile fields, capped
// at 1.0.
func Confidence(user *models.UserProfile, payments []models.PaymentRecord) float64 {
	confidence := 0.5

	if len(payments) >= 12 {
		confidence += 0.2
	} else if len(payments) >= 6 {
		confidence += 0.1
	}
	if user.CreditScore != nil {
		confidence += 0.1
	}
	if user.Income > 0 {
		confidence += 0.1
	}
	if user.EmploymentStatus != "" {
		confidence += 0.1
	}

	return math.Min(confidence, 1.0)
}
