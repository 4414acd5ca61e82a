// internal/workers/scoring/calculate-trust-score/handler.go
package calculatetrustscore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	commonerrors "trustlend-workers/internal/common/errors"
	"trustlend-workers/internal/common/logger"
	"trustlend-workers/internal/common/metrics"
	"trustlend-workers/internal/common/observability"
	"trustlend-workers/internal/common/validation"
	"trustlend-workers/internal/models"
	"trustlend-workers/internal/store"
	"trustlend-workers/internal/trust"
)

const (
	TaskType = "calculate-trust-score"
)

// Handler orchestrates one scoring pass: profile, ledger, features,
// prediction, then the three writes (immutable event row, users column,
// redis cache).
type Handler struct {
	config    *Config
	users     *store.UserStore
	payments  *store.PaymentStore
	scores    *store.TrustScoreStore
	cache     *store.Cache
	registry  *trust.Registry
	extractor *trust.Extractor
	obs       *observability.Observability
	validator *validation.Validator
	errors    *commonerrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, registry *trust.Registry, obs *observability.Observability, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		users:     store.NewUserStore(db),
		payments:  store.NewPaymentStore(db),
		scores:    store.NewTrustScoreStore(db),
		cache:     store.NewCache(rdb),
		registry:  registry,
		extractor: trust.NewExtractor(),
		obs:       obs,
		validator: validator,
		errors:    commonerrors.NewErrorHandler(scoped),
		logger:    scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := h.validator.ValidateJSON(validation.SchemaScoreRequest, job.Variables); err != nil {
		h.failJob(ctx, client, job, commonerrors.NewInvalidInputError(err.Error()))
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, commonerrors.NewInvalidInputError(err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	user, err := h.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	payments, err := h.payments.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	model, err := h.registry.Current(ctx)
	if err != nil {
		return nil, commonerrors.NewModelUnavailableError(err)
	}

	features := h.extractor.ExtractFeatures(user, payments)
	score, err := model.Predict(features)
	if err != nil {
		return nil, commonerrors.NewScoreComputationFailedError(err)
	}

	level := models.LevelForScore(score)
	confidence := trust.Confidence(user, payments)
	factors := trust.PredictionFactors(features, user)
	now := time.Now().UTC()

	result := &models.TrustScoreResult{
		UserID:       user.ID,
		Score:        score,
		Level:        level,
		Confidence:   confidence,
		Factors:      factors,
		ModelVersion: model.Version,
		CalculatedAt: now,
	}
	if err := h.scores.Insert(ctx, result); err != nil {
		return nil, err
	}

	if err := h.users.UpdateTrustScore(ctx, user.ID, score); err != nil {
		return nil, err
	}

	if err := h.cache.SetTrustScore(ctx, user.ID, score, h.config.CacheTTL); err != nil {
		// The row is durable; a stale cache heals on TTL expiry.
		h.logger.WithError(err).Warn("failed to refresh score cache", map[string]interface{}{
			"userId": user.ID,
		})
	}

	metrics.TrustScorePredicted.Observe(score)
	h.obs.RecordScoreCalculated(ctx, level)

	h.logger.Info("trust score calculated", map[string]interface{}{
		"userId":     user.ID,
		"score":      score,
		"level":      level,
		"confidence": confidence,
		"model":      model.Version,
	})

	return &Output{
		UserID:            user.ID,
		TrustScore:        score,
		TrustLevel:        level,
		Confidence:        confidence,
		Factors:           factors,
		FeatureImportance: model.Importance,
		ModelVersion:      model.Version,
		CalculatedAt:      now.Format(time.RFC3339),
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := "INTERNAL_ERROR"
	if stdErr, ok := err.(*commonerrors.StandardError); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
