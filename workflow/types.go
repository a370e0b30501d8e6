// Package workflow provides the client workflow automation engine for
// driving clients through their processing lifecycle: stage transitions
// instantiate tasks from a preconfigured template catalog, task completion
// cascades follow-up work, and overall client progress is recomputed from
// the full task set.
package workflow

import (
	"fmt"
	"strings"
	"time"
)

// ClientCategory classifies a client for template selection.
type ClientCategory string

const (
	// CategoryIndividual is an individual tax client.
	CategoryIndividual ClientCategory = "individual"
	// CategoryBusiness is a business tax client.
	CategoryBusiness ClientCategory = "business"
)

// Stage is a named point in a client's processing lifecycle.
type Stage string

// Known lifecycle stages. The catalog may register templates for any
// subset of these; a stage with no templates is valid.
const (
	StageIntakeComplete   Stage = "intake_complete"
	StageDocumentsPending Stage = "documents_pending"
	StageFormsGenerated   Stage = "forms_generated"
	StageFiled            Stage = "filed"
)

// TaskStatus represents the status of a task. Tasks in this engine are
// binary: pending until completed.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// WorkCategory classifies the kind of work a task represents.
type WorkCategory string

const (
	WorkDocumentCollection WorkCategory = "document_collection"
	WorkReview             WorkCategory = "review"
	WorkPreparation        WorkCategory = "preparation"
	WorkFiling             WorkCategory = "filing"
	WorkCommunication      WorkCategory = "communication"
)

// Client represents a client record as seen by the engine. Identity and
// category are created externally at intake; stage and progress are owned
// by this engine once intake completes.
type Client struct {
	ID              string         `json:"id"`
	DisplayName     string         `json:"display_name"`
	Category        ClientCategory `json:"category"`
	Stage           Stage          `json:"stage"`
	ProgressPercent int            `json:"progress_percent"`
	LastActivityAt  time.Time      `json:"last_activity_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TaskTemplate is a reusable, parameterized description of a task, not yet
// bound to a specific client. Patterns may reference the client's display
// name via the {{client_name}} placeholder.
type TaskTemplate struct {
	TitlePattern             string       `json:"title_pattern" yaml:"title"`
	DescriptionPattern       string       `json:"description_pattern" yaml:"description"`
	Category                 WorkCategory `json:"category" yaml:"category"`
	Priority                 TaskPriority `json:"priority" yaml:"priority"`
	EstimatedDurationMinutes int          `json:"estimated_duration_minutes" yaml:"estimated_duration_minutes"`
	CompletionTriggers       []string     `json:"completion_triggers,omitempty" yaml:"completion_triggers"`
	// Dependencies are informational tags only; they are not enforced as
	// blocking by the engine.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies"`
}

// Task is a concrete, persisted unit of work instantiated from a template
// for one client. CompletionTriggers are fixed at creation; cascades read
// them but never mutate them.
type Task struct {
	ID                       string       `json:"id"`
	ClientID                 string       `json:"client_id"`
	Title                    string       `json:"title"`
	Description              string       `json:"description"`
	Category                 WorkCategory `json:"category"`
	Priority                 TaskPriority `json:"priority"`
	Status                   TaskStatus   `json:"status"`
	Progress                 int          `json:"progress"`
	EstimatedDurationMinutes int          `json:"estimated_duration_minutes"`
	CompletionTriggers       []string     `json:"completion_triggers,omitempty"`
	Provenance               Provenance   `json:"provenance"`
	AutoGenerated            bool         `json:"auto_generated"`
	CreatedAt                time.Time    `json:"created_at"`
	UpdatedAt                time.Time    `json:"updated_at"`
	CompletedAt              *time.Time   `json:"completed_at,omitempty"`
}

// Provenance records why a task was created: either a stage transition or
// the completion of a prior task.
// Format: "stage:<stageName>" or "completionOf:<taskID>".
type Provenance string

const (
	provenanceStagePrefix      = "stage:"
	provenanceCompletionPrefix = "completionOf:"
)

// StageProvenance returns the provenance tag for tasks generated by a
// transition into the given stage.
func StageProvenance(stage Stage) Provenance {
	return Provenance(provenanceStagePrefix + string(stage))
}

// CompletionProvenance returns the provenance tag for follow-up tasks
// generated by completing the given task.
func CompletionProvenance(taskID string) Provenance {
	return Provenance(provenanceCompletionPrefix + taskID)
}

// Stage returns the stage name when the provenance records a stage
// transition, or false otherwise.
func (p Provenance) Stage() (Stage, bool) {
	if !strings.HasPrefix(string(p), provenanceStagePrefix) {
		return "", false
	}
	return Stage(strings.TrimPrefix(string(p), provenanceStagePrefix)), true
}

// CompletedTaskID returns the originating task ID when the provenance
// records a cascade follow-up, or false otherwise.
func (p Provenance) CompletedTaskID() (string, bool) {
	if !strings.HasPrefix(string(p), provenanceCompletionPrefix) {
		return "", false
	}
	return strings.TrimPrefix(string(p), provenanceCompletionPrefix), true
}

// ParseProvenance parses a provenance string, rejecting unknown forms.
func ParseProvenance(s string) (Provenance, error) {
	p := Provenance(s)
	if _, ok := p.Stage(); ok {
		return p, nil
	}
	if _, ok := p.CompletedTaskID(); ok {
		return p, nil
	}
	return "", fmt.Errorf("invalid provenance: %q", s)
}

// ValidationError describes a payload field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
