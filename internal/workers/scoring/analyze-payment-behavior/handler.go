// internal/workers/scoring/analyze-payment-behavior/handler.go
package analyzepaymentbehavior

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
	TaskType = "analyze-payment-behavior"
)

type Handler struct {
	config    *Config
	users     *store.UserStore
	payments  *store.PaymentStore
	analyzer  *trust.Analyzer
	validator *validation.Validator
	errors    *commonerrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		users:     store.NewUserStore(db),
		payments:  store.NewPaymentStore(db),
		analyzer:  trust.NewAnalyzer(),
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

	stats := h.analyzer.Analyze(user, payments)

	h.logger.Info("payment behavior analyzed", map[string]interface{}{
		"userId":        input.UserID,
		"totalPayments": stats.TotalPayments,
		"onTime":        stats.OnTimePayments,
	})

	return &Output{Behavior: stats}, nil
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
