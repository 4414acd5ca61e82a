// internal/workers/matching/match-lenders/models.go
package matchlenders

import "trustlend-workers/internal/models"

type Input struct {
	UserID      string             `json:"userId"`
	LoanRequest models.LoanRequest `json:"loanRequest"`
}

type Output struct {
	UserID       string               `json:"userId"`
	TrustScore   float64              `json:"trustScore"`
	TotalMatches int                  `json:"totalMatches"`
	Matches      []models.LenderMatch `json:"matches"`
}
