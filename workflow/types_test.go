package workflow

import (
	"strings"
	"testing"
)

func TestProvenanceRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		provenance Provenance
		wantStage  Stage
		wantTaskID string
	}{
		{
			name:       "stage provenance",
			provenance: StageProvenance(StageIntakeComplete),
			wantStage:  StageIntakeComplete,
		},
		{
			name:       "completion provenance",
			provenance: CompletionProvenance("task-123"),
			wantTaskID: "task-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, isStage := tt.provenance.Stage()
			taskID, isCompletion := tt.provenance.CompletedTaskID()

			if tt.wantStage != "" {
				if !isStage || stage != tt.wantStage {
					t.Errorf("Stage() = %q, %v; want %q, true", stage, isStage, tt.wantStage)
				}
				if isCompletion {
					t.Errorf("CompletedTaskID() reported true for stage provenance")
				}
			}
			if tt.wantTaskID != "" {
				if !isCompletion || taskID != tt.wantTaskID {
					t.Errorf("CompletedTaskID() = %q, %v; want %q, true", taskID, isCompletion, tt.wantTaskID)
				}
				if isStage {
					t.Errorf("Stage() reported true for completion provenance")
				}
			}
		})
	}
}

func TestParseProvenance(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "stage form", input: "stage:documents_pending"},
		{name: "completion form", input: "completionOf:abc-123"},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown prefix", input: "manual:abc", wantErr: true},
		{name: "bare stage name", input: "documents_pending", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseProvenance(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %q", tt.input, parsed)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for %q: %v", tt.input, err)
			}
			if string(parsed) != tt.input {
				t.Errorf("parsed = %q, want %q", parsed, tt.input)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "client_id", Message: "client_id is required"}
	if !strings.Contains(err.Error(), "client_id") {
		t.Errorf("error message %q should contain the field name", err.Error())
	}
}
