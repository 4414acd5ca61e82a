// internal/workers/matching/get-lender-details/models.go
package getlenderdetails

import "trustlend-workers/internal/models"

type Input struct {
	LenderID string `json:"lenderId"`
}

type Output struct {
	Lender      *models.LenderProfile     `json:"lender"`
	Performance *models.LenderPerformance `json:"performance"`
}
