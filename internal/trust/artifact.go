package trust

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveArtifact writes the model to path as JSON. The write goes to a
// temporary file in the same directory followed by a rename, so a crash
// mid-write never leaves a corrupt artifact behind.
func SaveArtifact(model *Model, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model artifact: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".trust-model-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp artifact: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a model back from disk and checks that it is usable.
func LoadArtifact(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}

	if len(model.Scaler.Mean) != FeatureCount || len(model.Regressor.Weights) != FeatureCount {
		return nil, fmt.Errorf("artifact %s has wrong feature width", path)
	}
	return &model, nil
}
