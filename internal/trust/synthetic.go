package trust

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"trustlend-workers/internal/models"
)

// SyntheticGenerator produces the bootstrap training set used when too few
// real scoring events exist. The random source is injected through the
// seed so runs are reproducible.
type SyntheticGenerator struct {
	seed uint64
	now  func() time.Time
}

func NewSyntheticGenerator(seed uint64) *SyntheticGenerator {
	return &SyntheticGenerator{seed: seed, now: time.Now}
}

// Dataset is a labeled training set ready for the model.
type Dataset struct {
	Features [][]float64
	Targets  []float64
}

// Generate draws n synthetic borrowers. Each gets a lognormal income, a
// clipped normal credit score, a poisson-sized ledger with a 70/20/10
// on-time/late/missed status mix and lognormal amounts. The target score
// blends payment behavior, credit score and income with gaussian noise,
// clipped to the 0-1000 scale.
func (g *SyntheticGenerator) Generate(n int) (*Dataset, error) {
	if n <= 0 {
		return nil, fmt.Errorf("synthetic row count must be positive, got %d", n)
	}

	src := rand.NewSource(g.seed)
	incomeDist := distuv.LogNormal{Mu: 10, Sigma: 0.5, Src: src}
	creditDist := distuv.Normal{Mu: 650, Sigma: 100, Src: src}
	countDist := distuv.Poisson{Lambda: 24, Src: src}
	amountDist := distuv.LogNormal{Mu: 5, Sigma: 0.5, Src: src}
	noiseDist := distuv.Normal{Mu: 0, Sigma: 50, Src: src}
	statusRng := rand.New(src)

	extractor := NewExtractorAt(g.now)
	now := g.now()

	ds := &Dataset{
		Features: make([][]float64, 0, n),
		Targets:  make([]float64, 0, n),
	}

	for i := 0; i < n; i++ {
		income := incomeDist.Rand()
		credit := int(math.Round(creditDist.Rand()))
		if credit < creditScoreFloor {
			credit = creditScoreFloor
		}
		if credit > creditScoreCeil {
			credit = creditScoreCeil
		}

		numPayments := int(countDist.Rand())
		payments := make([]models.PaymentRecord, 0, numPayments)
		for k := 0; k < numPayments; k++ {
			payments = append(payments, models.PaymentRecord{
				Amount:    amountDist.Rand(),
				Status:    drawStatus(statusRng),
				CreatedAt: now.AddDate(0, 0, -statusRng.Intn(360)),
			})
		}

		user := &models.UserProfile{
			ID:          fmt.Sprintf("synthetic-%d", i),
			Income:      income,
			CreditScore: &credit,
		}

		target := paymentHistoryScore(payments)*400 +
			normalizedCreditScore(&credit)*300 +
			(math.Log(income)/15)*200 +
			noiseDist.Rand()
		target = math.Max(0, math.Min(1000, target))

		ds.Features = append(ds.Features, extractor.ExtractFeatures(user, payments))
		ds.Targets = append(ds.Targets, target)
	}

	return ds, nil
}

// drawStatus picks a payment status with a 70/20/10 split.
func drawStatus(rng *rand.Rand) string {
	switch v := rng.Float64(); {
	case v < 0.7:
		return models.PaymentOnTime
	case v < 0.9:
		return models.PaymentLate
	default:
		return models.PaymentMissed
	}
}
