package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	content := `
stages:
  - category: individual
    stage: intake_complete
    tasks:
      - title: Collect documents for {{client_name}}
        description: Request W-2s from {{client_name}}.
        category: document_collection
        priority: high
        estimated_duration_minutes: 30
        completion_triggers:
          - document_collection_setup
follow_ups:
  document_collection_setup:
    title: Set up checklist for {{client_name}}
    category: document_collection
    priority: medium
    estimated_duration_minutes: 15
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.NoError(t, catalog.Validate())

	require.Len(t, catalog.Stages, 1)
	st := catalog.Stages[0]
	assert.Equal(t, CategoryIndividual, st.Category)
	assert.Equal(t, StageIntakeComplete, st.Stage)
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, "Collect documents for {{client_name}}", st.Tasks[0].TitlePattern)
	assert.Equal(t, PriorityHigh, st.Tasks[0].Priority)
	assert.Equal(t, 30, st.Tasks[0].EstimatedDurationMinutes)
	assert.Equal(t, []string{"document_collection_setup"}, st.Tasks[0].CompletionTriggers)

	tmpl, ok := catalog.FollowUps["document_collection_setup"]
	require.True(t, ok)
	assert.Equal(t, PriorityMedium, tmpl.Priority)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadCatalogBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages: {nope"), 0o600))

	_, err := LoadCatalog(path)
	require.Error(t, err)
}
