// internal/models/lender.go
package models

import "fmt"

// Loan types accepted on loan requests and declared by lenders.
const (
	LoanTypePersonal = "personal"
	LoanTypeBusiness = "business"
	LoanTypeAuto     = "auto"
	LoanTypeMortgage = "mortgage"
	LoanTypeStudent  = "student"
)

// InterestRateRange is a lender's declared annual rate band in percent.
type InterestRateRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LenderRequirements are the gate criteria a lender declares. MinIncome and
// EmploymentRequired are carried but not evaluated against borrower data;
// the matching gate checks trust score and loan type only.
type LenderRequirements struct {
	MinTrustScore      float64  `json:"minTrustScore"`
	MinIncome          float64  `json:"minIncome"`
	EmploymentRequired bool     `json:"employmentRequired"`
	SupportedLoanTypes []string `json:"supportedLoanTypes"`
}

// LenderProfile describes a candidate lender. Read-only to the matching
// engine.
type LenderProfile struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	MinTrustScore float64            `json:"minTrustScore"`
	MaxLoanAmount float64            `json:"maxLoanAmount"`
	InterestRange InterestRateRange  `json:"interestRateRange"`
	LoanTypes     []string           `json:"loanTypes"`
	Requirements  LenderRequirements `json:"requirements"`
}

// SupportsLoanType reports whether the lender offers the given loan type.
func (l *LenderProfile) SupportsLoanType(loanType string) bool {
	for _, t := range l.LoanTypes {
		if t == loanType {
			return true
		}
	}
	return false
}

// LoanRequest is the borrower's ask, validated at the worker boundary.
type LoanRequest struct {
	UserID     string  `json:"userId"`
	Amount     float64 `json:"amount"`
	LoanType   string  `json:"loanType"`
	TermMonths int     `json:"termMonths"`
}

func (r *LoanRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("userId is required")
	}
	if r.Amount <= 0 {
		return fmt.Errorf("loan amount must be positive, got %v", r.Amount)
	}
	if r.TermMonths <= 0 {
		return fmt.Errorf("term months must be positive, got %d", r.TermMonths)
	}
	switch r.LoanType {
	case LoanTypePersonal, LoanTypeBusiness, LoanTypeAuto, LoanTypeMortgage, LoanTypeStudent:
	default:
		return fmt.Errorf("unknown loan type %q", r.LoanType)
	}
	return nil
}

// LenderMatch is one ranked entry of the matching engine output.
type LenderMatch struct {
	LenderID        string   `json:"lenderId"`
	LenderName      string   `json:"lenderName"`
	MatchScore      float64  `json:"matchScore"`
	InterestRate    float64  `json:"interestRate"`
	MaxAmount       float64  `json:"maxAmount"`
	RequirementsMet bool     `json:"requirementsMet"`
	Reasons         []string `json:"reasons"`
}

// LenderPerformance is the static performance block reported alongside
// lender details.
type LenderPerformance struct {
	LenderID                  string  `json:"lenderId"`
	TotalLoansProcessed       int     `json:"totalLoansProcessed"`
	AverageApprovalRate       float64 `json:"averageApprovalRate"`
	AverageProcessingTimeDays float64 `json:"averageProcessingTimeDays"`
	CustomerSatisfaction      float64 `json:"customerSatisfactionScore"`
	LastUpdated               string  `json:"lastUpdated"`
}

// SampleLenders returns the built-in lender set used to seed an empty
// lenders table and as test fixtures.
func SampleLenders() []LenderProfile {
	return []LenderProfile{
		{
			ID:            "lender-prime",
			Name:          "Prime Lending Co.",
			MinTrustScore: 700,
			MaxLoanAmount: 100000,
			InterestRange: InterestRateRange{Min: 4.5, Max: 12.0},
			LoanTypes:     []string{LoanTypePersonal, LoanTypeBusiness, LoanTypeAuto},
			Requirements: LenderRequirements{
				MinTrustScore:      700,
				MinIncome:          50000,
				EmploymentRequired: true,
				SupportedLoanTypes: []string{LoanTypePersonal, LoanTypeBusiness, LoanTypeAuto},
			},
		},
		{
			ID:            "lender-quickcash",
			Name:          "Quick Cash Solutions",
			MinTrustScore: 500,
			MaxLoanAmount: 25000,
			InterestRange: InterestRateRange{Min: 8.0, Max: 18.0},
			LoanTypes:     []string{LoanTypePersonal, LoanTypeAuto},
			Requirements: LenderRequirements{
				MinTrustScore:      500,
				MinIncome:          25000,
				EmploymentRequired: true,
				SupportedLoanTypes: []string{LoanTypePersonal, LoanTypeAuto},
			},
		},
		{
			ID:            "lender-flexible",
			Name:          "Flexible Finance",
			MinTrustScore: 300,
			MaxLoanAmount: 15000,
			InterestRange: InterestRateRange{Min: 12.0, Max: 25.0},
			LoanTypes:     []string{LoanTypePersonal},
			Requirements: LenderRequirements{
				MinTrustScore:      300,
				MinIncome:          15000,
				SupportedLoanTypes: []string{LoanTypePersonal},
			},
		},
		{
			ID:            "lender-premium-mortgage",
			Name:          "Premium Mortgage Bank",
			MinTrustScore: 750,
			MaxLoanAmount: 500000,
			InterestRange: InterestRateRange{Min: 3.5, Max: 8.0},
			LoanTypes:     []string{LoanTypeMortgage},
			Requirements: LenderRequirements{
				MinTrustScore:      750,
				MinIncome:          80000,
				EmploymentRequired: true,
				SupportedLoanTypes: []string{LoanTypeMortgage},
			},
		},
		{
			ID:            "lender-student-pro",
			Name:          "Student Loan Pro",
			MinTrustScore: 600,
			MaxLoanAmount: 75000,
			InterestRange: InterestRateRange{Min: 5.0, Max: 15.0},
			LoanTypes:     []string{LoanTypeStudent},
			Requirements: LenderRequirements{
				MinTrustScore:      600,
				MinIncome:          30000,
				SupportedLoanTypes: []string{LoanTypeStudent},
			},
		},
	}
}
