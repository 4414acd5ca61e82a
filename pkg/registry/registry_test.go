package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testRegistryJSON = `{
	"version": "1.0.0",
	"lastUpdated": "2026-08-01T00:00:00Z",
	"activities": [
		{
			"id": "calculate-trust-score",
			"displayName": "Calculate Trust Score",
			"category": "scoring",
			"taskType": "calculate-trust-score",
			"implementationStatus": "implemented",
			"errorCodes": ["USER_NOT_FOUND"],
			"timeout": "15s",
			"retries": 3
		},
		{
			"id": "match-lenders",
			"displayName": "Match Lenders",
			"category": "matching",
			"taskType": "match-lenders",
			"implementationStatus": "implemented",
			"timeout": "10s",
			"retries": 3
		}
	]
}`

func writeTestRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activities.json")
	if err := os.WriteFile(path, []byte(testRegistryJSON), 0o644); err != nil {
		t.Fatalf("failed to write registry fixture: %v", err)
	}
	return path
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(writeTestRegistry(t))

	assert.NoError(t, err)
	assert.Equal(t, "1.0.0", reg.Version)
	assert.Len(t, reg.Activities, 2)
	assert.Equal(t, "calculate-trust-score", reg.Activities[0].TaskType)
	assert.Equal(t, []string{"USER_NOT_FOUND"}, reg.Activities[0].ErrorCodes)
	assert.Equal(t, 3, reg.Activities[0].Retries)
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestActivityRegistry_FindByTaskType(t *testing.T) {
	reg, err := LoadRegistry(writeTestRegistry(t))
	assert.NoError(t, err)

	activity, err := reg.FindByTaskType("match-lenders")
	assert.NoError(t, err)
	assert.Equal(t, "matching", activity.Category)

	_, err = reg.FindByTaskType("no-such-task")
	assert.Error(t, err)
}
