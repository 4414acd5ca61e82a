package trust

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"trustlend-workers/internal/common/logger"
)

// RegistryConfig controls how the registry obtains its first model.
type RegistryConfig struct {
	ArtifactPath  string
	SyntheticRows int
	SyntheticSeed uint64
	RidgeAlpha    float64
}

// Registry owns the current trust model. Readers get the active model;
// the cold start loads the persisted artifact or bootstraps one from the
// synthetic set, deduplicated so concurrent first calls train only once.
type Registry struct {
	cfg RegistryConfig
	log logger.Logger

	mu      sync.RWMutex
	current *Model

	// trainMu serializes every training run, the cold-start bootstrap and
	// explicit retrains alike, so two trainings never race on the artifact.
	trainMu sync.Mutex

	bootstrap singleflight.Group
}

func NewRegistry(cfg RegistryConfig, log logger.Logger) *Registry {
	return &Registry{
		cfg: cfg,
		log: log.WithFields(map[string]interface{}{"component": "model-registry"}),
	}
}

// Current returns the active model, initializing on first use. Concurrent
// callers during a cold start share one load-or-bootstrap.
func (r *Registry) Current(ctx context.Context) (*Model, error) {
	r.mu.RLock()
	m := r.current
	r.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	v, err, _ := r.bootstrap.Do("init", func() (interface{}, error) {
		// Re-check under the flight in case a retrain swapped one in.
		r.mu.RLock()
		existing := r.current
		r.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		return r.loadOrBootstrap(ctx)
	})
	if err != nil {
		return nil, err
	}

	model := v.(*Model)
	r.mu.Lock()
	if r.current == nil {
		r.current = model
	}
	model = r.current
	r.mu.Unlock()
	return model, nil
}

// Swap installs a freshly trained model as the active one.
func (r *Registry) Swap(model *Model) {
	r.mu.Lock()
	r.current = model
	r.mu.Unlock()
	r.log.Info("Model swapped", map[string]interface{}{
		"version": model.Version,
		"r2":      model.Metrics.R2,
	})
}

// Retrain runs train under the training lock and installs the result as
// the active model. A cold-start bootstrap waiting on the same lock will
// pick up the retrained model instead of training its own.
func (r *Registry) Retrain(ctx context.Context, train func(context.Context) (*Model, error)) (*Model, error) {
	r.trainMu.Lock()
	defer r.trainMu.Unlock()

	model, err := train(ctx)
	if err != nil {
		return nil, err
	}
	r.Swap(model)
	return model, nil
}

func (r *Registry) loadOrBootstrap(ctx context.Context) (*Model, error) {
	model, err := LoadArtifact(r.cfg.ArtifactPath)
	if err == nil {
		r.log.Info("Loaded model artifact", map[string]interface{}{
			"path":    r.cfg.ArtifactPath,
			"version": model.Version,
		})
		return model, nil
	}
	if !os.IsNotExist(err) {
		r.log.WithError(err).Warn("Model artifact unreadable, bootstrapping", map[string]interface{}{
			"path": r.cfg.ArtifactPath,
		})
	}

	r.trainMu.Lock()
	defer r.trainMu.Unlock()

	// A retrain may have finished while we waited for the lock; its model
	// and artifact win over a synthetic bootstrap.
	r.mu.RLock()
	existing := r.current
	r.mu.RUnlock()
	if existing != nil {
		return existing, nil
	}

	gen := NewSyntheticGenerator(r.cfg.SyntheticSeed)
	ds, err := gen.Generate(r.cfg.SyntheticRows)
	if err != nil {
		return nil, err
	}

	model, err = TrainModel(ctx, ds, r.cfg.RidgeAlpha)
	if err != nil {
		return nil, err
	}

	if err := SaveArtifact(model, r.cfg.ArtifactPath); err != nil {
		// A bootstrap model is still usable in memory.
		r.log.WithError(err).Warn("Failed to persist bootstrap artifact", map[string]interface{}{
			"path": r.cfg.ArtifactPath,
		})
	}

	r.log.Info("Bootstrapped model from synthetic data", map[string]interface{}{
		"rows":    r.cfg.SyntheticRows,
		"version": model.Version,
	})
	return model, nil
}
