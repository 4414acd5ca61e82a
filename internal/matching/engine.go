// Package matching ranks candidate lenders against a borrower's trust
// score and loan request.
package matching

import (
	"fmt"
	"math"
	"sort"

	"trustlend-workers/internal/models"
)

// Component weights of the match score.
const (
	weightTrust  = 0.40
	weightAmount = 0.25
	weightType   = 0.20
	weightTerm   = 0.15
)

// Engine scores, gates and prices lenders. It is stateless; all inputs
// arrive per call.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Match scores every lender against the request and returns the ranked
// list. Lenders with a zero match score are excluded. Ties keep the input
// order.
func (e *Engine) Match(trustScore float64, req *models.LoanRequest, lenders []models.LenderProfile) []models.LenderMatch {
	matches := make([]models.LenderMatch, 0, len(lenders))

	for i := range lenders {
		lender := &lenders[i]

		score := e.MatchScore(trustScore, req, lender)
		if score <= 0 {
			continue
		}

		rate := e.InterestRate(trustScore, req, lender)
		matches = append(matches, models.LenderMatch{
			LenderID:        lender.ID,
			LenderName:      lender.Name,
			MatchScore:      score,
			InterestRate:    rate,
			MaxAmount:       lender.MaxLoanAmount,
			RequirementsMet: e.RequirementsMet(trustScore, req, lender),
			Reasons:         e.MatchReasons(trustScore, req, lender, score),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	return matches
}

// MatchScore is the weighted blend of the four factor scores, rounded to
// three decimals. A zero trust or amount factor zeroes nothing else; the
// caller excludes lenders only when the blend itself is zero.
func (e *Engine) MatchScore(trustScore float64, req *models.LoanRequest, lender *models.LenderProfile) float64 {
	score := trustFactor(trustScore, lender)*weightTrust +
		amountFactor(req.Amount, lender)*weightAmount +
		typeFactor(req.LoanType, lender)*weightType +
		termFactor(req.TermMonths)*weightTerm
	return round3(score)
}

// trustFactor is zero below the lender's floor, then steps with the trust
// level bands.
func trustFactor(trustScore float64, lender *models.LenderProfile) float64 {
	if trustScore < lender.MinTrustScore {
		return 0.0
	}
	switch {
	case trustScore >= 800:
		return 1.0
	case trustScore >= 650:
		return 0.9
	case trustScore >= 500:
		return 0.7
	case trustScore >= 300:
		return 0.5
	default:
		return 0.3
	}
}

// amountFactor rewards requests that leave headroom under the lender's cap.
func amountFactor(amount float64, lender *models.LenderProfile) float64 {
	if amount > lender.MaxLoanAmount {
		return 0.0
	}
	utilization := amount / lender.MaxLoanAmount
	switch {
	case utilization <= 0.5:
		return 1.0
	case utilization <= 0.8:
		return 0.8
	default:
		return 0.6
	}
}

func typeFactor(loanType string, lender *models.LenderProfile) float64 {
	if lender.SupportsLoanType(loanType) {
		return 1.0
	}
	return 0.0
}

// termFactor prefers the mainstream 12-60 month band.
func termFactor(termMonths int) float64 {
	switch {
	case termMonths >= 12 && termMonths <= 60:
		return 1.0
	case termMonths >= 6 && termMonths <= 84:
		return 0.8
	default:
		return 0.5
	}
}

// InterestRate prices the loan from the midpoint of the lender's band,
// shaded by trust, amount and term multipliers, clipped back into the
// band and rounded to two decimals.
func (e *Engine) InterestRate(trustScore float64, req *models.LoanRequest, lender *models.LenderProfile) float64 {
	base := (lender.InterestRange.Min + lender.InterestRange.Max) / 2

	var trustMult float64
	switch {
	case trustScore >= 800:
		trustMult = 0.8
	case trustScore >= 650:
		trustMult = 0.9
	case trustScore >= 500:
		trustMult = 1.0
	case trustScore >= 300:
		trustMult = 1.1
	default:
		trustMult = 1.2
	}

	var amountMult float64
	switch {
	case req.Amount >= 50000:
		amountMult = 0.95
	case req.Amount >= 25000:
		amountMult = 0.98
	default:
		amountMult = 1.0
	}

	var termMult float64
	switch {
	case req.TermMonths <= 12:
		termMult = 0.95
	case req.TermMonths <= 36:
		termMult = 1.0
	default:
		termMult = 1.05
	}

	rate := base * trustMult * amountMult * termMult
	rate = math.Max(lender.InterestRange.Min, math.Min(lender.InterestRange.Max, rate))
	return round2(rate)
}

// RequirementsMet evaluates the lender's declared gate. Only the trust
// floor and loan type are checked; min income and employment are declared
// by lenders but not evaluated against borrower data.
func (e *Engine) RequirementsMet(trustScore float64, req *models.LoanRequest, lender *models.LenderProfile) bool {
	if trustScore < lender.Requirements.MinTrustScore {
		return false
	}
	if len(lender.Requirements.SupportedLoanTypes) > 0 {
		supported := false
		for _, t := range lender.Requirements.SupportedLoanTypes {
			if t == req.LoanType {
				supported = true
				break
			}
		}
		if !supported {
			return false
		}
	}
	return true
}

// MatchReasons builds the human-readable explanation list in a fixed
// order: credit profile, amount headroom, specialization, pricing, then
// the overall verdict.
func (e *Engine) MatchReasons(trustScore float64, req *models.LoanRequest, lender *models.LenderProfile, matchScore float64) []string {
	var reasons []string

	switch {
	case trustScore >= 800:
		reasons = append(reasons, "Excellent credit profile")
	case trustScore >= 650:
		reasons = append(reasons, "Good credit profile")
	case trustScore >= 500:
		reasons = append(reasons, "Fair credit profile")
	}

	if req.Amount <= lender.MaxLoanAmount*0.5 {
		reasons = append(reasons, "Loan amount well within limits")
	} else if req.Amount <= lender.MaxLoanAmount*0.8 {
		reasons = append(reasons, "Loan amount within limits")
	}

	if lender.SupportsLoanType(req.LoanType) {
		reasons = append(reasons, fmt.Sprintf("Specializes in %s loans", req.LoanType))
	}

	if lender.InterestRange.Min <= 8 {
		reasons = append(reasons, "Competitive interest rates")
	}

	switch {
	case matchScore >= 0.8:
		reasons = append(reasons, "Excellent match")
	case matchScore >= 0.6:
		reasons = append(reasons, "Good match")
	default:
		reasons = append(reasons, "Acceptable match")
	}

	return reasons
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
