package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCatalog() *Catalog {
	return &Catalog{
		Stages: []StageTemplates{
			{
				Category: CategoryIndividual,
				Stage:    StageIntakeComplete,
				Tasks: []TaskTemplate{
					{
						TitlePattern:       "Collect documents for {{client_name}}",
						Category:           WorkDocumentCollection,
						Priority:           PriorityHigh,
						CompletionTriggers: []string{"document_collection_setup"},
					},
					{
						TitlePattern: "Schedule consultation with {{client_name}}",
						Category:     WorkCommunication,
						Priority:     PriorityMedium,
					},
				},
			},
		},
		FollowUps: map[string]TaskTemplate{
			"document_collection_setup": {
				TitlePattern: "Set up checklist for {{client_name}}",
				Category:     WorkDocumentCollection,
				Priority:     PriorityMedium,
			},
		},
	}
}

func TestCatalogValidate(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		require.NoError(t, validCatalog().Validate())
	})

	t.Run("built-in catalog", func(t *testing.T) {
		require.NoError(t, DefaultCatalog().Validate())
	})

	t.Run("stage trigger without follow-up entry", func(t *testing.T) {
		catalog := validCatalog()
		catalog.Stages[0].Tasks[0].CompletionTriggers = []string{"no_such_trigger"}
		err := catalog.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no_such_trigger")
	})

	t.Run("follow-up trigger without entry", func(t *testing.T) {
		catalog := validCatalog()
		tmpl := catalog.FollowUps["document_collection_setup"]
		tmpl.CompletionTriggers = []string{"dangling"}
		catalog.FollowUps["document_collection_setup"] = tmpl
		err := catalog.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dangling")
	})

	t.Run("trigger cycle rejected", func(t *testing.T) {
		catalog := validCatalog()
		catalog.FollowUps["a"] = TaskTemplate{
			TitlePattern:       "A",
			Priority:           PriorityLow,
			CompletionTriggers: []string{"b"},
		}
		catalog.FollowUps["b"] = TaskTemplate{
			TitlePattern:       "B",
			Priority:           PriorityLow,
			CompletionTriggers: []string{"a"},
		}
		err := catalog.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("self-referencing trigger rejected", func(t *testing.T) {
		catalog := validCatalog()
		catalog.FollowUps["loop"] = TaskTemplate{
			TitlePattern:       "Loop",
			Priority:           PriorityLow,
			CompletionTriggers: []string{"loop"},
		}
		err := catalog.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("missing title rejected", func(t *testing.T) {
		catalog := validCatalog()
		catalog.Stages[0].Tasks[0].TitlePattern = ""
		require.Error(t, catalog.Validate())
	})

	t.Run("unknown priority rejected", func(t *testing.T) {
		catalog := validCatalog()
		catalog.Stages[0].Tasks[0].Priority = "someday"
		require.Error(t, catalog.Validate())
	})
}

func TestRegistryTemplatesFor(t *testing.T) {
	registry, err := NewRegistry(validCatalog())
	require.NoError(t, err)

	t.Run("registered pair returns ordered templates", func(t *testing.T) {
		templates := registry.TemplatesFor(CategoryIndividual, StageIntakeComplete)
		require.Len(t, templates, 2)
		assert.Equal(t, "Collect documents for {{client_name}}", templates[0].TitlePattern)
		assert.Equal(t, "Schedule consultation with {{client_name}}", templates[1].TitlePattern)
	})

	t.Run("unregistered pair returns empty list, not error", func(t *testing.T) {
		templates := registry.TemplatesFor(CategoryBusiness, StageFiled)
		assert.Empty(t, templates)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		templates := registry.TemplatesFor(CategoryIndividual, StageIntakeComplete)
		templates[0].TitlePattern = "mutated"
		again := registry.TemplatesFor(CategoryIndividual, StageIntakeComplete)
		assert.Equal(t, "Collect documents for {{client_name}}", again[0].TitlePattern)
	})
}

func TestRegistryFollowUpTemplateFor(t *testing.T) {
	registry, err := NewRegistry(validCatalog())
	require.NoError(t, err)

	tmpl, ok := registry.FollowUpTemplateFor("document_collection_setup")
	require.True(t, ok)
	assert.Equal(t, "Set up checklist for {{client_name}}", tmpl.TitlePattern)

	_, ok = registry.FollowUpTemplateFor("unknown_tag")
	assert.False(t, ok)
}

func TestNewRegistryRejectsInvalidCatalog(t *testing.T) {
	catalog := validCatalog()
	catalog.Stages[0].Tasks[0].CompletionTriggers = []string{"missing"}
	_, err := NewRegistry(catalog)
	require.Error(t, err)
}
