// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trustlend-workers/internal/common/config"
	"trustlend-workers/internal/common/database"
	"trustlend-workers/internal/common/logger"
	"trustlend-workers/internal/common/observability"
	"trustlend-workers/internal/common/validation"
	"trustlend-workers/internal/trust"
	activityregistry "trustlend-workers/pkg/registry"

	// Scoring Workers (3)
	apb "trustlend-workers/internal/workers/scoring/analyze-payment-behavior"
	cts "trustlend-workers/internal/workers/scoring/calculate-trust-score"
	rtm "trustlend-workers/internal/workers/scoring/retrain-trust-model"

	// Matching Workers (2)
	gld "trustlend-workers/internal/workers/matching/get-lender-details"
	ml "trustlend-workers/internal/workers/matching/match-lenders"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Shared domain components ---
	validator, err := validation.NewValidator()
	if err != nil {
		zapLog.Fatal("schema validator init failed", zap.Error(err))
	}

	catalog, err := activityregistry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err), zap.String("path", cfg.Registry.Path))
	}

	registry := trust.NewRegistry(trust.RegistryConfig{
		ArtifactPath:  cfg.Model.ArtifactPath,
		SyntheticRows: cfg.Model.SyntheticRows,
		SyntheticSeed: cfg.Model.SyntheticSeed,
		RidgeAlpha:    cfg.Model.RidgeAlpha,
	}, log)

	// --- Register Workers ---

	// Every enabled worker must be declared in the activity catalog so
	// process designers and the deployed binary agree on the task types.
	for _, taskType := range []string{apb.TaskType, cts.TaskType, rtm.TaskType, ml.TaskType, gld.TaskType} {
		if cfg.Workers[taskType].Enabled {
			if _, err := catalog.FindByTaskType(taskType); err != nil {
				zapLog.Fatal("worker not declared in activity registry", zap.Error(err), zap.String("taskType", taskType))
			}
		}
	}

	// --- 1. Scoring Workers (3) ---
	if cfg.Workers[apb.TaskType].Enabled {
		handler := apb.NewHandler(
			&apb.Config{
				Timeout: time.Duration(cfg.Workers[apb.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, validator, log,
		)
		startWorker(zeebeClient, apb.TaskType, cfg.Workers[apb.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[cts.TaskType].Enabled {
		handler := cts.NewHandler(
			&cts.Config{
				Timeout:  time.Duration(cfg.Workers[cts.TaskType].Timeout) * time.Millisecond,
				CacheTTL: time.Duration(cfg.Model.CacheTTL) * time.Second,
			},
			pg.DB, redis.Client, registry, obs, validator, log,
		)
		startWorker(zeebeClient, cts.TaskType, cfg.Workers[cts.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rtm.TaskType].Enabled {
		handler := rtm.NewHandler(
			&rtm.Config{
				Timeout:         time.Duration(cfg.Workers[rtm.TaskType].Timeout) * time.Millisecond,
				ArtifactPath:    cfg.Model.ArtifactPath,
				MinTrainingRows: cfg.Model.MinTrainingRows,
				SyntheticRows:   cfg.Model.SyntheticRows,
				SyntheticSeed:   cfg.Model.SyntheticSeed,
				RidgeAlpha:      cfg.Model.RidgeAlpha,
			},
			pg.DB, registry, validator, log,
		)
		startWorker(zeebeClient, rtm.TaskType, cfg.Workers[rtm.TaskType], handler.Handle, zapLog)
	}

	// --- 2. Matching Workers (2) ---
	if cfg.Workers[ml.TaskType].Enabled {
		handler := ml.NewHandler(
			&ml.Config{
				Timeout:    time.Duration(cfg.Workers[ml.TaskType].Timeout) * time.Millisecond,
				CacheTTL:   time.Duration(cfg.Matching.CacheTTL) * time.Second,
				MaxResults: cfg.Matching.MaxResults,
			},
			pg.DB, redis.Client, validator, log,
		)
		startWorker(zeebeClient, ml.TaskType, cfg.Workers[ml.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[gld.TaskType].Enabled {
		handler := gld.NewHandler(
			&gld.Config{
				Timeout:  time.Duration(cfg.Workers[gld.TaskType].Timeout) * time.Millisecond,
				CacheTTL: time.Duration(cfg.Matching.CacheTTL) * time.Second,
			},
			pg.DB, redis.Client, validator, log,
		)
		startWorker(zeebeClient, gld.TaskType, cfg.Workers[gld.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All 5 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
