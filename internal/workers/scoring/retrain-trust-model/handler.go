// internal/workers/scoring/retrain-trust-model/handler.go
package retraintrustmodel

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "trustlend-workers/internal/common/errors"
	"trustlend-workers/internal/common/logger"
	"trustlend-workers/internal/common/metrics"
	"trustlend-workers/internal/common/validation"
	"trustlend-workers/internal/store"
	"trustlend-workers/internal/trust"
)

const (
	TaskType = "retrain-trust-model"
)

// Handler retrains the trust model on stored scoring events, falling back
// to the synthetic bootstrap set when the caller allows it. Runs go
// through the registry's training lock, so a second retrain or a cold
// start bootstrap waits for the first.
type Handler struct {
	config    *Config
	users     *store.UserStore
	payments  *store.PaymentStore
	scores    *store.TrustScoreStore
	registry  *trust.Registry
	extractor *trust.Extractor
	validator *validation.Validator
	errors    *commonerrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, registry *trust.Registry, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		users:     store.NewUserStore(db),
		payments:  store.NewPaymentStore(db),
		scores:    store.NewTrustScoreStore(db),
		registry:  registry,
		extractor: trust.NewExtractor(),
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

	if err := h.validator.ValidateJSON(validation.SchemaRetrain, job.Variables); err != nil {
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
	var source string
	model, err := h.registry.Retrain(ctx, func(ctx context.Context) (*trust.Model, error) {
		ds, src, err := h.buildDataset(ctx, input.AllowSynthetic)
		if err != nil {
			return nil, err
		}
		source = src

		m, err := trust.TrainModel(ctx, ds, h.config.RidgeAlpha)
		if err != nil {
			metrics.ModelTrainings.WithLabelValues("failed").Inc()
			if ctx.Err() == context.DeadlineExceeded {
				return nil, commonerrors.NewTrainingTimeoutError()
			}
			return nil, commonerrors.NewTrainingFailedError(err)
		}

		if err := trust.SaveArtifact(m, h.config.ArtifactPath); err != nil {
			metrics.ModelTrainings.WithLabelValues("failed").Inc()
			return nil, commonerrors.NewModelPersistenceFailedError(err)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ModelTrainings.WithLabelValues("succeeded").Inc()

	h.logger.Info("model retrained", map[string]interface{}{
		"version":    model.Version,
		"dataSource": source,
		"trainRows":  model.Metrics.TrainRows,
		"testRows":   model.Metrics.TestRows,
		"mse":        model.Metrics.MSE,
		"r2":         model.Metrics.R2,
	})

	return &Output{
		ModelVersion:      model.Version,
		TrainedAt:         model.TrainedAt.Format(time.RFC3339),
		DataSource:        source,
		Metrics:           model.Metrics,
		FeatureImportance: model.Importance,
	}, nil
}

// buildDataset labels each scored user's current features with their latest
// stored score. Below the configured minimum the synthetic set is used if
// allowed, otherwise the run fails.
func (h *Handler) buildDataset(ctx context.Context, allowSynthetic bool) (*trust.Dataset, string, error) {
	userIDs, err := h.scores.ListScoredUserIDs(ctx)
	if err != nil {
		return nil, "", err
	}

	ds := &trust.Dataset{}
	for _, userID := range userIDs {
		user, err := h.users.GetByID(ctx, userID)
		if err != nil {
			if stdErr, ok := err.(*commonerrors.StandardError); ok && stdErr.Code == commonerrors.ErrCodeUserNotFound {
				// Scored users can be deleted later; skip them.
				continue
			}
			return nil, "", err
		}
		payments, err := h.payments.ListByUser(ctx, userID)
		if err != nil {
			return nil, "", err
		}
		latest, err := h.scores.LatestByUser(ctx, userID)
		if err != nil {
			return nil, "", err
		}

		ds.Features = append(ds.Features, h.extractor.ExtractFeatures(user, payments))
		ds.Targets = append(ds.Targets, latest.Score)
	}

	if len(ds.Features) >= h.config.MinTrainingRows {
		return ds, "stored", nil
	}

	if !allowSynthetic {
		return nil, "", commonerrors.NewInsufficientTrainingDataError(len(ds.Features), h.config.MinTrainingRows)
	}

	gen := trust.NewSyntheticGenerator(h.config.SyntheticSeed)
	synth, err := gen.Generate(h.config.SyntheticRows)
	if err != nil {
		return nil, "", commonerrors.NewTrainingFailedError(err)
	}
	return synth, "synthetic", nil
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
