// Package e2e exercises the workers against real infrastructure. The
// tests are gated behind RUN_E2E_TESTS=true and expect a running
// Postgres, Redis and (optionally) Zeebe as configured through the
// usual environment variables.
package e2e

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustlend-workers/internal/common/config"
	"trustlend-workers/internal/common/database"
	"trustlend-workers/internal/common/logger"
	"trustlend-workers/internal/common/observability"
	"trustlend-workers/internal/common/validation"
	"trustlend-workers/internal/models"
	"trustlend-workers/internal/trust"

	apb "trustlend-workers/internal/workers/scoring/analyze-payment-behavior"
	cts "trustlend-workers/internal/workers/scoring/calculate-trust-score"
	rtm "trustlend-workers/internal/workers/scoring/retrain-trust-model"

	gld "trustlend-workers/internal/workers/matching/get-lender-details"
	ml "trustlend-workers/internal/workers/matching/match-lenders"
)

type testEnv struct {
	cfg       *config.Config
	pg        *database.PostgresClient
	redis     *database.RedisClient
	validator *validation.Validator
	registry  *trust.Registry
	log       logger.Logger
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	if os.Getenv("RUN_E2E_TESTS") != "true" {
		t.Skip("set RUN_E2E_TESTS=true to run end-to-end tests")
	}

	cfg, err := config.Load()
	require.NoError(t, err, "config load failed")

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "postgres connection failed")
	t.Cleanup(func() { pg.Close() })
	require.NoError(t, pg.Ping(context.Background()))

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "redis connection failed")
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()))

	validator, err := validation.NewValidator()
	require.NoError(t, err)

	registry := trust.NewRegistry(trust.RegistryConfig{
		ArtifactPath:  filepath.Join(t.TempDir(), "trust_model.json"),
		SyntheticRows: cfg.Model.SyntheticRows,
		SyntheticSeed: cfg.Model.SyntheticSeed,
		RidgeAlpha:    cfg.Model.RidgeAlpha,
	}, logger.NewTestLogger(t))

	return &testEnv{
		cfg:       cfg,
		pg:        pg,
		redis:     rdb,
		validator: validator,
		registry:  registry,
		log:       logger.NewTestLogger(t),
	}
}

// seedUser inserts a borrower with a short ledger and cleans it up after
// the test.
func seedUser(t *testing.T, db *sql.DB) string {
	t.Helper()

	userID := "e2e-user-" + time.Now().UTC().Format("20060102150405")

	_, err := db.Exec(`
		INSERT INTO users (id, email, full_name, income, credit_score, employment_status, created_at)
		VALUES ($1, $2, 'E2E Test User', 60000, 720, 'employed', NOW())`,
		userID, userID+"@example.com")
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err := db.Exec(`
			INSERT INTO payments (id, user_id, amount, status, due_date, payment_date, loan_type, created_at)
			VALUES ($1, $2, 150, $3, NOW(), NOW(), 'personal', NOW() - make_interval(months => $4))`,
			userID+"-pay-"+string(rune('a'+i)), userID, models.PaymentOnTime, i)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		db.Exec(`DELETE FROM trust_scores WHERE user_id = $1`, userID)
		db.Exec(`DELETE FROM payments WHERE user_id = $1`, userID)
		db.Exec(`DELETE FROM users WHERE id = $1`, userID)
	})

	return userID
}

func TestE2E_ZeebeConnectivity(t *testing.T) {
	env := setupEnv(t)

	if os.Getenv("ZEEBE_ADDRESS") == "" && env.cfg.Camunda.BrokerAddress == "" {
		t.Skip("no Zeebe broker configured")
	}

	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         env.cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
	})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	topology, err := client.NewTopologyCommand().Send(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, topology.Brokers)
}

func TestE2E_ScoringPipeline(t *testing.T) {
	env := setupEnv(t)
	userID := seedUser(t, env.pg.DB)
	ctx := context.Background()

	analyze := apb.NewHandler(
		&apb.Config{Timeout: 10 * time.Second},
		env.pg.DB, env.validator, env.log,
	)
	behavior, err := analyze.Execute(ctx, &apb.Input{UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, 6, behavior.Behavior.TotalPayments)
	assert.Equal(t, 6, behavior.Behavior.OnTimePayments)

	score := cts.NewHandler(
		&cts.Config{Timeout: 15 * time.Second, CacheTTL: time.Minute},
		env.pg.DB, env.redis.Client, env.registry, observability.Noop(), env.validator, env.log,
	)
	scored, err := score.Execute(ctx, &cts.Input{UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, userID, scored.UserID)
	assert.GreaterOrEqual(t, scored.TrustScore, 0.0)
	assert.LessOrEqual(t, scored.TrustScore, 1000.0)
	assert.Equal(t, models.LevelForScore(scored.TrustScore), scored.TrustLevel)

	match := ml.NewHandler(
		&ml.Config{Timeout: 10 * time.Second, CacheTTL: time.Minute, MaxResults: 20},
		env.pg.DB, env.redis.Client, env.validator, env.log,
	)
	matched, err := match.Execute(ctx, &ml.Input{
		UserID: userID,
		LoanRequest: models.LoanRequest{
			Amount:     10000,
			LoanType:   models.LoanTypePersonal,
			TermMonths: 24,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, scored.TrustScore, matched.TrustScore)
	assert.NotEmpty(t, matched.Matches)

	details := gld.NewHandler(
		&gld.Config{Timeout: 10 * time.Second, CacheTTL: time.Minute},
		env.pg.DB, env.redis.Client, env.validator, env.log,
	)
	lender, err := details.Execute(ctx, &gld.Input{LenderID: matched.Matches[0].LenderID})
	require.NoError(t, err)
	assert.Equal(t, matched.Matches[0].LenderName, lender.Lender.Name)
	assert.NotNil(t, lender.Performance)
}

func TestE2E_RetrainWithSyntheticFallback(t *testing.T) {
	env := setupEnv(t)

	retrain := rtm.NewHandler(
		&rtm.Config{
			Timeout:         120 * time.Second,
			ArtifactPath:    filepath.Join(t.TempDir(), "trust_model.json"),
			MinTrainingRows: 1 << 30, // force the synthetic path regardless of stored rows
			SyntheticRows:   env.cfg.Model.SyntheticRows,
			SyntheticSeed:   env.cfg.Model.SyntheticSeed,
			RidgeAlpha:      env.cfg.Model.RidgeAlpha,
		},
		env.pg.DB, env.registry, env.validator, env.log,
	)

	output, err := retrain.Execute(context.Background(), &rtm.Input{AllowSynthetic: true})
	require.NoError(t, err)
	assert.Equal(t, "synthetic", output.DataSource)
	assert.Contains(t, output.ModelVersion, "ridge-")

	current, err := env.registry.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, output.ModelVersion, current.Version)
}
