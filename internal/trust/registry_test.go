package trust

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trustlend-workers/internal/common/logger"
)

func testRegistryConfig(t *testing.T) RegistryConfig {
	t.Helper()
	return RegistryConfig{
		ArtifactPath:  filepath.Join(t.TempDir(), "trust_model.json"),
		SyntheticRows: 60,
		SyntheticSeed: 42,
		RidgeAlpha:    1.0,
	}
}

func TestRegistry_ColdStartBootstraps(t *testing.T) {
	cfg := testRegistryConfig(t)
	registry := NewRegistry(cfg, logger.NewNoOpLogger())

	model, err := registry.Current(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, model)
	assert.Len(t, model.Regressor.Weights, FeatureCount)

	// The bootstrap model is persisted for the next process.
	_, err = os.Stat(cfg.ArtifactPath)
	assert.NoError(t, err)

	again, err := registry.Current(context.Background())
	assert.NoError(t, err)
	assert.Same(t, model, again)
}

func TestRegistry_ColdStartLoadsExistingArtifact(t *testing.T) {
	cfg := testRegistryConfig(t)

	ds, err := NewSyntheticGenerator(7).Generate(60)
	assert.NoError(t, err)
	saved, err := TrainModel(context.Background(), ds, 1.0)
	assert.NoError(t, err)
	assert.NoError(t, SaveArtifact(saved, cfg.ArtifactPath))

	registry := NewRegistry(cfg, logger.NewNoOpLogger())
	model, err := registry.Current(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, saved.Version, model.Version)
	assert.Equal(t, saved.Regressor.Weights, model.Regressor.Weights)
}

func TestRegistry_ConcurrentColdStartSharesOneModel(t *testing.T) {
	registry := NewRegistry(testRegistryConfig(t), logger.NewNoOpLogger())

	const callers = 10
	results := make([]*Model, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := registry.Current(context.Background())
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestRegistry_SwapReplacesCurrent(t *testing.T) {
	registry := NewRegistry(testRegistryConfig(t), logger.NewNoOpLogger())

	first, err := registry.Current(context.Background())
	assert.NoError(t, err)

	replacement := flatModel(500)
	replacement.Version = "ridge-replacement"
	registry.Swap(replacement)

	current, err := registry.Current(context.Background())
	assert.NoError(t, err)
	assert.NotSame(t, first, current)
	assert.Equal(t, "ridge-replacement", current.Version)
}

func TestRegistry_RetrainSwapsOnSuccessOnly(t *testing.T) {
	registry := NewRegistry(testRegistryConfig(t), logger.NewNoOpLogger())

	first, err := registry.Current(context.Background())
	assert.NoError(t, err)

	_, err = registry.Retrain(context.Background(), func(context.Context) (*Model, error) {
		return nil, errors.New("no labeled rows")
	})
	assert.Error(t, err)

	current, err := registry.Current(context.Background())
	assert.NoError(t, err)
	assert.Same(t, first, current)

	replacement := flatModel(640)
	replacement.Version = "ridge-v2"
	trained, err := registry.Retrain(context.Background(), func(context.Context) (*Model, error) {
		return replacement, nil
	})
	assert.NoError(t, err)
	assert.Same(t, replacement, trained)

	current, err = registry.Current(context.Background())
	assert.NoError(t, err)
	assert.Same(t, replacement, current)
}

func TestRegistry_ColdStartYieldsToConcurrentRetrain(t *testing.T) {
	cfg := testRegistryConfig(t)
	registry := NewRegistry(cfg, logger.NewNoOpLogger())

	replacement := flatModel(512)
	replacement.Version = "ridge-retrained"

	trainStarted := make(chan struct{})
	finishTrain := make(chan struct{})
	retrainDone := make(chan struct{})

	go func() {
		defer close(retrainDone)
		_, err := registry.Retrain(context.Background(), func(context.Context) (*Model, error) {
			close(trainStarted)
			<-finishTrain
			return replacement, nil
		})
		assert.NoError(t, err)
	}()

	<-trainStarted

	currentDone := make(chan *Model, 1)
	go func() {
		m, err := registry.Current(context.Background())
		assert.NoError(t, err)
		currentDone <- m
	}()

	// Let the cold start reach the training lock before the retrain
	// finishes.
	time.Sleep(20 * time.Millisecond)
	close(finishTrain)
	<-retrainDone

	assert.Same(t, replacement, <-currentDone)

	// The cold start must not write a synthetic artifact over the one a
	// retrain just produced.
	_, err := os.Stat(cfg.ArtifactPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRegistry_UnreadableArtifactFallsBackToBootstrap(t *testing.T) {
	cfg := testRegistryConfig(t)
	assert.NoError(t, os.WriteFile(cfg.ArtifactPath, []byte("{corrupt"), 0o644))

	registry := NewRegistry(cfg, logger.NewNoOpLogger())
	model, err := registry.Current(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, model)
	assert.Len(t, model.Regressor.Weights, FeatureCount)
}
