package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the full template configuration for the engine: stage
// templates keyed by (category, stage) plus the follow-up catalog keyed
// by trigger tag. Loaded once at startup and never mutated afterwards.
type Catalog struct {
	Stages    []StageTemplates        `yaml:"stages"`
	FollowUps map[string]TaskTemplate `yaml:"follow_ups"`
}

// StageTemplates registers the ordered task templates instantiated when a
// client of the given category enters the given stage.
type StageTemplates struct {
	Category ClientCategory `yaml:"category"`
	Stage    Stage          `yaml:"stage"`
	Tasks    []TaskTemplate `yaml:"tasks"`
}

// LoadCatalog loads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	return &catalog, nil
}

// Validate checks the catalog's internal consistency: every completion
// trigger referenced by a stage or follow-up template must resolve to a
// follow-up entry, and the trigger graph must be acyclic. Both conditions
// are configuration errors surfaced at load time rather than silently
// degraded behavior at runtime.
func (c *Catalog) Validate() error {
	for _, st := range c.Stages {
		if st.Category == "" {
			return &ValidationError{Field: "stages.category", Message: "category is required"}
		}
		if st.Stage == "" {
			return &ValidationError{Field: "stages.stage", Message: "stage is required"}
		}
		for i, tmpl := range st.Tasks {
			if err := validateTemplate(tmpl, fmt.Sprintf("stages[%s/%s].tasks[%d]", st.Category, st.Stage, i)); err != nil {
				return err
			}
			for _, trigger := range tmpl.CompletionTriggers {
				if _, ok := c.FollowUps[trigger]; !ok {
					return fmt.Errorf("stage template %q (%s/%s): completion trigger %q has no follow-up entry",
						tmpl.TitlePattern, st.Category, st.Stage, trigger)
				}
			}
		}
	}

	for tag, tmpl := range c.FollowUps {
		if err := validateTemplate(tmpl, "follow_ups."+tag); err != nil {
			return err
		}
		for _, trigger := range tmpl.CompletionTriggers {
			if _, ok := c.FollowUps[trigger]; !ok {
				return fmt.Errorf("follow-up %q: completion trigger %q has no follow-up entry", tag, trigger)
			}
		}
	}

	if cycle := c.findTriggerCycle(); cycle != "" {
		return fmt.Errorf("follow-up catalog contains a trigger cycle through %q", cycle)
	}

	return nil
}

func validateTemplate(tmpl TaskTemplate, where string) error {
	if tmpl.TitlePattern == "" {
		return &ValidationError{Field: where + ".title", Message: "title is required"}
	}
	switch tmpl.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
	default:
		return &ValidationError{Field: where + ".priority", Message: fmt.Sprintf("unknown priority %q", tmpl.Priority)}
	}
	return nil
}

// findTriggerCycle walks the follow-up trigger graph and returns a tag on
// a cycle, or "" when the graph is acyclic. A cycle would let repeated
// manual completions regenerate the same tag indefinitely.
func (c *Catalog) findTriggerCycle() string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(c.FollowUps))

	var visit func(tag string) string
	visit = func(tag string) string {
		switch state[tag] {
		case visiting:
			return tag
		case done:
			return ""
		}
		state[tag] = visiting
		tmpl, ok := c.FollowUps[tag]
		if ok {
			for _, next := range tmpl.CompletionTriggers {
				if found := visit(next); found != "" {
					return found
				}
			}
		}
		state[tag] = done
		return ""
	}

	for tag := range c.FollowUps {
		if found := visit(tag); found != "" {
			return found
		}
	}
	return ""
}

type registryKey struct {
	category ClientCategory
	stage    Stage
}

// Registry is the static template catalog consulted by the engine. It is
// immutable after construction and safe for concurrent use without
// locking.
type Registry struct {
	stages    map[registryKey][]TaskTemplate
	followUps map[string]TaskTemplate
}

// NewRegistry builds a registry from a catalog, validating it first.
func NewRegistry(catalog *Catalog) (*Registry, error) {
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	stages := make(map[registryKey][]TaskTemplate, len(catalog.Stages))
	for _, st := range catalog.Stages {
		key := registryKey{category: st.Category, stage: st.Stage}
		stages[key] = append(stages[key], st.Tasks...)
	}

	followUps := make(map[string]TaskTemplate, len(catalog.FollowUps))
	for tag, tmpl := range catalog.FollowUps {
		followUps[tag] = tmpl
	}

	return &Registry{stages: stages, followUps: followUps}, nil
}

// TemplatesFor returns the ordered task templates registered for a
// (category, stage) pair. An empty slice when none are registered: a
// stage with no automated tasks is valid.
func (r *Registry) TemplatesFor(category ClientCategory, stage Stage) []TaskTemplate {
	templates := r.stages[registryKey{category: category, stage: stage}]
	out := make([]TaskTemplate, len(templates))
	copy(out, templates)
	return out
}

// FollowUpTemplateFor resolves a completion trigger tag to its follow-up
// template. Callers treat absence as "skip silently, no task produced".
func (r *Registry) FollowUpTemplateFor(trigger string) (TaskTemplate, bool) {
	tmpl, ok := r.followUps[trigger]
	return tmpl, ok
}
