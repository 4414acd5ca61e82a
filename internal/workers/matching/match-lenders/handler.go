// internal/workers/matching/match-lenders/handler.go
package matchlenders

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
	"trustlend-workers/internal/matching"
	"trustlend-workers/internal/store"
)

const (
	TaskType = "match-lenders"
)

// Handler resolves the borrower's current trust score and ranks candidate
// lenders against the loan request. A user who has never been scored is a
// typed not-found failure, never a default score.
type Handler struct {
	config    *Config
	users     *store.UserStore
	lenders   *store.LenderStore
	cache     *store.Cache
	engine    *matching.Engine
	validator *validation.Validator
	errors    *commonerrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		users:     store.NewUserStore(db),
		lenders:   store.NewLenderStore(db),
		cache:     store.NewCache(rdb),
		engine:    matching.NewEngine(),
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

	if err := h.validator.ValidateJSON(validation.SchemaLoanRequest, job.Variables); err != nil {
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
	input.LoanRequest.UserID = input.UserID
	if err := input.LoanRequest.Validate(); err != nil {
		return nil, commonerrors.NewInvalidInputError(err.Error())
	}

	trustScore, err := h.resolveTrustScore(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	lenders, err := h.lenders.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	matches := h.engine.Match(trustScore, &input.LoanRequest, lenders)
	if len(matches) > h.config.MaxResults {
		matches = matches[:h.config.MaxResults]
	}

	metrics.LenderMatchesReturned.Observe(float64(len(matches)))

	h.logger.Info("lenders matched", map[string]interface{}{
		"userId":     input.UserID,
		"trustScore": trustScore,
		"loanType":   input.LoanRequest.LoanType,
		"amount":     input.LoanRequest.Amount,
		"matches":    len(matches),
	})

	return &Output{
		UserID:       input.UserID,
		TrustScore:   trustScore,
		TotalMatches: len(matches),
		Matches:      matches,
	}, nil
}

// resolveTrustScore checks the redis cache first, then the users table.
func (h *Handler) resolveTrustScore(ctx context.Context, userID string) (float64, error) {
	if score, ok, err := h.cache.GetTrustScore(ctx, userID); err == nil && ok {
		return score, nil
	} else if err != nil {
		h.logger.WithError(err).Warn("score cache read failed", map[string]interface{}{
			"userId": userID,
		})
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.TrustScore == nil {
		return 0, commonerrors.NewUserTrustScoreNotFoundError(userID)
	}

	if err := h.cache.SetTrustScore(ctx, userID, *user.TrustScore, h.config.CacheTTL); err != nil {
		h.logger.WithError(err).Warn("score cache write failed", map[string]interface{}{
			"userId": userID,
		})
	}
	return *user.TrustScore, nil
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
