// Package testutil provides in-memory test doubles for the engine's
// external collaborators.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/taxdesk/clientflow/workflow"
)

// Gateway is an in-memory workflow.Gateway. It honors the same write
// semantics as the production store: stage transitions commit a record
// at most once per (client, stage) pair and then materialize task by
// task with the client written last, task inserts are create-if-absent,
// and task completion is an atomic check-and-set.
type Gateway struct {
	mu          sync.Mutex
	clients     map[string]workflow.Client
	tasks       map[string]workflow.Task
	taskOrder   []string
	transitions map[string]transitionRecord

	// FailWrites, when set, makes every write return the given error
	// before anything is persisted. Reads are unaffected. Used to
	// exercise persistence failure paths.
	FailWrites error

	// FailTransitionErr, when set, makes WriteStageTransition fail after
	// its transition record has committed and FailTransitionAfter tasks
	// of the batch have been persisted. The record and each task land in
	// separate writes in the production store; this reproduces a failure
	// between them.
	FailTransitionErr   error
	FailTransitionAfter int
}

// transitionRecord is the committed snapshot a stage transition
// materializes from, mirroring the production store's record.
type transitionRecord struct {
	client workflow.Client
	tasks  []workflow.Task
}

// NewGateway creates an empty in-memory gateway.
func NewGateway() *Gateway {
	return &Gateway{
		clients:     make(map[string]workflow.Client),
		tasks:       make(map[string]workflow.Task),
		transitions: make(map[string]transitionRecord),
	}
}

// SeedClient stores a client directly, bypassing write failure injection.
func (g *Gateway) SeedClient(client *workflow.Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[client.ID] = *client
}

// SeedTask stores a task directly, bypassing write failure injection.
func (g *Gateway) SeedTask(task *workflow.Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tasks[task.ID]; !ok {
		g.taskOrder = append(g.taskOrder, task.ID)
	}
	g.tasks[task.ID] = *task
}

// GetClient implements workflow.Gateway.
func (g *Gateway) GetClient(_ context.Context, clientID string) (*workflow.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	client, ok := g.clients[clientID]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	copied := client
	return &copied, nil
}

// UpdateClient implements workflow.Gateway.
func (g *Gateway) UpdateClient(_ context.Context, client *workflow.Client) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWrites != nil {
		return g.FailWrites
	}
	g.clients[client.ID] = *client
	return nil
}

// GetTask implements workflow.Gateway.
func (g *Gateway) GetTask(_ context.Context, taskID string) (*workflow.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	task, ok := g.tasks[taskID]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	copied := task
	return &copied, nil
}

// UpdateTask implements workflow.Gateway.
func (g *Gateway) UpdateTask(_ context.Context, task *workflow.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWrites != nil {
		return g.FailWrites
	}
	if _, ok := g.tasks[task.ID]; !ok {
		return workflow.ErrNotFound
	}
	g.tasks[task.ID] = *task
	return nil
}

// MarkTaskCompleted implements workflow.Gateway.
func (g *Gateway) MarkTaskCompleted(_ context.Context, taskID string) (*workflow.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWrites != nil {
		return nil, g.FailWrites
	}
	task, ok := g.tasks[taskID]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	if task.Status == workflow.TaskStatusCompleted {
		return nil, workflow.ErrAlreadyProcessed
	}
	now := time.Now()
	task.Status = workflow.TaskStatusCompleted
	task.Progress = 100
	task.UpdatedAt = now
	task.CompletedAt = &now
	g.tasks[taskID] = task
	copied := task
	return &copied, nil
}

// InsertTasks implements workflow.Gateway. Inserts are create-if-absent:
// a task ID already present is left untouched.
func (g *Gateway) InsertTasks(_ context.Context, tasks []*workflow.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWrites != nil {
		return g.FailWrites
	}
	for _, task := range tasks {
		g.insertLocked(task)
	}
	return nil
}

func (g *Gateway) insertLocked(task *workflow.Task) {
	if _, ok := g.tasks[task.ID]; ok {
		return
	}
	g.taskOrder = append(g.taskOrder, task.ID)
	g.tasks[task.ID] = *task
}

// ListTasksForClient implements workflow.Gateway. Tasks are returned in
// insertion order.
func (g *Gateway) ListTasksForClient(_ context.Context, clientID string) ([]*workflow.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tasks := make([]*workflow.Task, 0)
	for _, id := range g.taskOrder {
		task := g.tasks[id]
		if task.ClientID == clientID {
			copied := task
			tasks = append(tasks, &copied)
		}
	}
	return tasks, nil
}

// WriteStageTransition implements workflow.Gateway. The write order
// matches the production store: the transition record commits first,
// then each task, then the client. A failure mid-sequence leaves the
// record committed and a partial batch behind; the next call for the
// same (client, stage) pair replays the record and repairs it.
func (g *Gateway) WriteStageTransition(_ context.Context, client *workflow.Client, tasks []*workflow.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWrites != nil {
		return g.FailWrites
	}

	key := client.ID + "/" + string(client.Stage)
	record, committed := g.transitions[key]
	if !committed {
		record = transitionRecord{client: *client}
		for _, task := range tasks {
			record.tasks = append(record.tasks, *task)
		}
		g.transitions[key] = record
	}

	for i := range record.tasks {
		if g.FailTransitionErr != nil && i >= g.FailTransitionAfter {
			return g.FailTransitionErr
		}
		g.insertLocked(&record.tasks[i])
	}
	if g.FailTransitionErr != nil {
		return g.FailTransitionErr
	}

	// The client snapshot only lands while the stored client predates it;
	// a late replay must not roll back newer stage or progress writes.
	if current, ok := g.clients[record.client.ID]; !ok || current.UpdatedAt.Before(record.client.UpdatedAt) {
		g.clients[record.client.ID] = record.client
	}

	if committed {
		return workflow.ErrAlreadyProcessed
	}
	return nil
}

// Notifier records every notification it receives.
type Notifier struct {
	mu     sync.Mutex
	events []Notification
}

// Notification is one recorded Notify call.
type Notification struct {
	ClientID string
	Kind     workflow.EventKind
	Payload  any
}

// NewNotifier creates an empty recording notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Notify implements workflow.Notifier.
func (n *Notifier) Notify(_ context.Context, clientID string, kind workflow.EventKind, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Notification{ClientID: clientID, Kind: kind, Payload: payload})
}

// Events returns a copy of the recorded notifications.
func (n *Notifier) Events() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.events...)
}
