// internal/workers/scoring/analyze-payment-behavior/models.go
package analyzepaymentbehavior

import "trustlend-workers/internal/models"

type Input struct {
	UserID string `json:"userId"`
}

type Output struct {
	Behavior *models.PaymentStats `json:"paymentBehavior"`
}
