// Typed NATS subject definitions for the engine's event surface. The
// client lifecycle handler publishes stage advancement requests and the
// task-completion handler publishes completion events; the engine's
// consumers decode these payloads and invoke the matching operation.

package workflow

// Subjects consumed and published by the engine.
const (
	// SubjectStageAdvance carries StageAdvanceRequest payloads.
	SubjectStageAdvance = "clientflow.clients.stage.advance"
	// SubjectTaskCompleted carries TaskCompletedEvent payloads.
	SubjectTaskCompleted = "clientflow.tasks.completed"

	// StreamName is the JetStream stream holding engine events.
	StreamName = "CLIENTFLOW_EVENTS"
	// SubjectEventsWildcard matches every engine event subject.
	SubjectEventsWildcard = "clientflow.>"

	// notificationPrefix roots the best-effort notification subjects.
	notificationPrefix = "clientflow.notifications."
)

// NotificationSubject returns the subject notifications of the given
// event kind are published to.
func NotificationSubject(kind EventKind) string {
	return notificationPrefix + string(kind)
}

// StageAdvanceRequest asks the engine to move a client to a stage.
type StageAdvanceRequest struct {
	ClientID string `json:"client_id"`
	Stage    Stage  `json:"stage"`
	// RequestID correlates retried deliveries in logs.
	RequestID string `json:"request_id,omitempty"`
}

// Validate validates the request.
func (r *StageAdvanceRequest) Validate() error {
	if r.ClientID == "" {
		return &ValidationError{Field: "client_id", Message: "client_id is required"}
	}
	if r.Stage == "" {
		return &ValidationError{Field: "stage", Message: "stage is required"}
	}
	return nil
}

// TaskCompletedEvent reports that a user or automated process marked a
// task done.
type TaskCompletedEvent struct {
	TaskID string `json:"task_id"`
	// CompletedBy identifies the actor for audit logs; optional.
	CompletedBy string `json:"completed_by,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// Validate validates the event.
func (e *TaskCompletedEvent) Validate() error {
	if e.TaskID == "" {
		return &ValidationError{Field: "task_id", Message: "task_id is required"}
	}
	return nil
}

// TaskCompletedNotice is the notification payload published after a task
// completes.
type TaskCompletedNotice struct {
	ClientID        string `json:"client_id"`
	TaskID          string `json:"task_id"`
	Title           string `json:"title"`
	FollowUpCount   int    `json:"follow_up_count"`
	ProgressPercent int    `json:"progress_percent"`
}
