package workflow

import "context"

// Gateway is the persistence interface the engine writes through. All
// write discipline (atomicity, uniqueness) is delegated to the
// implementation; the engine shapes its writes so those guarantees are
// achievable.
type Gateway interface {
	// GetClient loads a client by ID, returning ErrNotFound if absent.
	GetClient(ctx context.Context, clientID string) (*Client, error)

	// UpdateClient persists a client record.
	UpdateClient(ctx context.Context, client *Client) error

	// GetTask loads a task by ID, returning ErrNotFound if absent.
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// UpdateTask persists a task record.
	UpdateTask(ctx context.Context, task *Task) error

	// MarkTaskCompleted conditionally transitions a task to completed,
	// returning the updated task. Returns ErrNotFound if the task is
	// absent and ErrAlreadyProcessed if it was already completed. The
	// transition must be atomic: two concurrent calls for the same task
	// must not both succeed.
	MarkTaskCompleted(ctx context.Context, taskID string) (*Task, error)

	// InsertTasks persists a batch of new tasks. Inserts are
	// create-if-absent: a task ID already present is left untouched, so
	// replaying a batch cannot overwrite later task state.
	InsertTasks(ctx context.Context, tasks []*Task) error

	// ListTasksForClient returns all tasks owned by a client. An empty
	// slice, not an error, when the client has no tasks.
	ListTasksForClient(ctx context.Context, clientID string) ([]*Task, error)

	// WriteStageTransition persists a client update together with its
	// stage task batch, committing the pair at most once. Returns
	// ErrAlreadyProcessed when a transition for the same (client, stage)
	// pair was already committed; before reporting the duplicate the
	// implementation must replay the committed transition, so a retry
	// after a partial write repairs the client and completes the batch
	// rather than leaving them half-advanced.
	WriteStageTransition(ctx context.Context, client *Client, tasks []*Task) error
}

// EventKind names a notification event published after an engine
// operation.
type EventKind string

const (
	// EventTaskCompleted is published after a task completes, including
	// any cascade follow-ups and the recomputed progress.
	EventTaskCompleted EventKind = "task_completed"
)

// Notifier is the external notification collaborator. Calls are
// fire-and-forget: implementations log failures and never propagate them,
// since task completion is the authoritative state change and
// notification is best-effort.
type Notifier interface {
	Notify(ctx context.Context, clientID string, kind EventKind, payload any)
}

// NopNotifier is a Notifier that discards all events.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, string, EventKind, any) {}
