// Package storage provides the NATS KV-backed persistence gateway for
// the workflow engine.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/taxdesk/clientflow/workflow"
)

// Bucket names for each record type.
const (
	BucketClients = "CLIENTFLOW_CLIENTS"
	BucketTasks   = "CLIENTFLOW_TASKS"
	// BucketTransitions holds one record per committed (client, stage)
	// transition. Its create-if-absent semantics supply the uniqueness
	// constraint that makes stage advancement race-safe.
	BucketTransitions = "CLIENTFLOW_TRANSITIONS"
)

// completionAttempts bounds the compare-and-set retry loop when marking
// a task completed under concurrent writers.
const completionAttempts = 3

// Store implements workflow.Gateway on NATS JetStream KV.
type Store struct {
	clients     jetstream.KeyValue
	tasks       jetstream.KeyValue
	transitions jetstream.KeyValue
	logger      *slog.Logger
}

// NewStore creates a Store with the given JetStream context, creating
// the KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clients, err := getOrCreateBucket(ctx, js, BucketClients)
	if err != nil {
		return nil, fmt.Errorf("create clients bucket: %w", err)
	}

	tasks, err := getOrCreateBucket(ctx, js, BucketTasks)
	if err != nil {
		return nil, fmt.Errorf("create tasks bucket: %w", err)
	}

	transitions, err := getOrCreateBucket(ctx, js, BucketTransitions)
	if err != nil {
		return nil, fmt.Errorf("create transitions bucket: %w", err)
	}

	return &Store{
		clients:     clients,
		tasks:       tasks,
		transitions: transitions,
		logger:      logger,
	}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  name,
		History: 5, // Keep last 5 revisions
	})
}

// GetClient implements workflow.Gateway.
func (s *Store) GetClient(ctx context.Context, clientID string) (*workflow.Client, error) {
	entry, err := s.clients.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	var client workflow.Client
	if err := json.Unmarshal(entry.Value(), &client); err != nil {
		return nil, fmt.Errorf("unmarshal client: %w", err)
	}

	return &client, nil
}

// UpdateClient implements workflow.Gateway.
func (s *Store) UpdateClient(ctx context.Context, client *workflow.Client) error {
	data, err := json.Marshal(client)
	if err != nil {
		return fmt.Errorf("marshal client: %w", err)
	}

	if _, err := s.clients.Put(ctx, client.ID, data); err != nil {
		return fmt.Errorf("update client: %w", err)
	}

	return nil
}

// GetTask implements workflow.Gateway.
func (s *Store) GetTask(ctx context.Context, taskID string) (*workflow.Task, error) {
	task, _, err := s.getTaskEntry(ctx, taskID)
	return task, err
}

func (s *Store) getTaskEntry(ctx context.Context, taskID string) (*workflow.Task, uint64, error) {
	entry, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, workflow.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get task: %w", err)
	}

	var task workflow.Task
	if err := json.Unmarshal(entry.Value(), &task); err != nil {
		return nil, 0, fmt.Errorf("unmarshal task: %w", err)
	}

	return &task, entry.Revision(), nil
}

// UpdateTask implements workflow.Gateway.
func (s *Store) UpdateTask(ctx context.Context, task *workflow.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	if _, err := s.tasks.Put(ctx, task.ID, data); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

// MarkTaskCompleted implements workflow.Gateway. The status transition is
// a revision-checked update: two concurrent completions of the same task
// cannot both succeed, the loser observes ErrAlreadyProcessed.
func (s *Store) MarkTaskCompleted(ctx context.Context, taskID string) (*workflow.Task, error) {
	var lastErr error
	for attempt := 0; attempt < completionAttempts; attempt++ {
		task, revision, err := s.getTaskEntry(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status == workflow.TaskStatusCompleted {
			return nil, workflow.ErrAlreadyProcessed
		}

		now := time.Now()
		task.Status = workflow.TaskStatusCompleted
		task.Progress = 100
		task.UpdatedAt = now
		task.CompletedAt = &now

		data, err := json.Marshal(task)
		if err != nil {
			return nil, fmt.Errorf("marshal task: %w", err)
		}

		if _, err := s.tasks.Update(ctx, taskID, data, revision); err != nil {
			// Revision conflict: another writer touched the task. Reload
			// and retry; if it completed meanwhile the next pass returns
			// ErrAlreadyProcessed.
			lastErr = err
			continue
		}
		return task, nil
	}
	return nil, fmt.Errorf("mark task completed: %w", lastErr)
}

// InsertTasks implements workflow.Gateway.
func (s *Store) InsertTasks(ctx context.Context, tasks []*workflow.Task) error {
	for _, task := range tasks {
		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("marshal task: %w", err)
		}
		if _, err := s.tasks.Create(ctx, task.ID, data); err != nil {
			if errors.Is(err, jetstream.ErrKeyExists) {
				// Same task replayed from an earlier partial write.
				continue
			}
			return fmt.Errorf("store task: %w", err)
		}
	}
	return nil
}

// ListTasksForClient implements workflow.Gateway.
func (s *Store) ListTasksForClient(ctx context.Context, clientID string) ([]*workflow.Task, error) {
	keys, err := s.tasks.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list task keys: %w", err)
	}

	tasks := make([]*workflow.Task, 0)
	for _, key := range keys {
		entry, err := s.tasks.Get(ctx, key)
		if err != nil {
			s.logger.Warn("skipping unreadable task entry",
				slog.String("key", key),
				slog.String("error", err.Error()))
			continue
		}
		var task workflow.Task
		if err := json.Unmarshal(entry.Value(), &task); err != nil {
			s.logger.Warn("skipping malformed task entry",
				slog.String("key", key),
				slog.String("error", err.Error()))
			continue
		}
		if task.ClientID == clientID {
			tasks = append(tasks, &task)
		}
	}

	return tasks, nil
}

// transitionRecord is the intent record committed atomically for a stage
// transition. The updated client and full task batch are captured in one
// KV entry; client and task materialization replays from it, so a crash
// between commit and materialization is repaired on retry.
type transitionRecord struct {
	Client      *workflow.Client `json:"client"`
	Tasks       []*workflow.Task `json:"tasks"`
	CommittedAt time.Time        `json:"committed_at"`
}

// TransitionKey returns the transitions-bucket key for a (client, stage)
// pair.
func TransitionKey(clientID string, stage workflow.Stage) string {
	return clientID + "." + string(stage)
}

// WriteStageTransition implements workflow.Gateway. The transition record
// is created with create-if-absent semantics: the first writer for a
// (client, stage) pair wins and every later or concurrent attempt gets
// ErrAlreadyProcessed after the record has been re-materialized.
func (s *Store) WriteStageTransition(ctx context.Context, client *workflow.Client, tasks []*workflow.Task) error {
	record := transitionRecord{
		Client:      client,
		Tasks:       tasks,
		CommittedAt: time.Now(),
	}
	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}

	key := TransitionKey(client.ID, client.Stage)
	if _, err := s.transitions.Create(ctx, key, data); err != nil {
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("commit transition: %w", err)
		}
		// Already committed. Re-materialize from the stored record so a
		// retry after a partial write still converges, then report the
		// duplicate.
		entry, getErr := s.transitions.Get(ctx, key)
		if getErr != nil {
			return fmt.Errorf("load committed transition: %w", getErr)
		}
		var committed transitionRecord
		if err := json.Unmarshal(entry.Value(), &committed); err != nil {
			return fmt.Errorf("unmarshal committed transition: %w", err)
		}
		if err := s.materialize(ctx, &committed); err != nil {
			return err
		}
		return workflow.ErrAlreadyProcessed
	}

	return s.materialize(ctx, &record)
}

// materialize replays a transition record into the client and task
// buckets. Task writes use create-if-absent keyed by the IDs fixed in the
// record and the client write is guarded against newer revisions, so
// replaying is idempotent no matter how late the replay arrives.
func (s *Store) materialize(ctx context.Context, record *transitionRecord) error {
	if err := s.InsertTasks(ctx, record.Tasks); err != nil {
		return err
	}
	return s.replayClient(ctx, record.Client)
}

// clientReplayNeeded reports whether a replayed transition still has to
// write its client snapshot. Once the stored client carries the
// snapshot's update, or anything later such as a progress recompute or a
// further stage advance, writing the snapshot would roll those back.
func clientReplayNeeded(current, snapshot *workflow.Client) bool {
	return current.UpdatedAt.Before(snapshot.UpdatedAt)
}

// replayClient writes a transition's client snapshot with a revision
// check, skipping the write when the stored client already reflects the
// transition or has moved past it.
func (s *Store) replayClient(ctx context.Context, snapshot *workflow.Client) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal client: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < completionAttempts; attempt++ {
		entry, err := s.clients.Get(ctx, snapshot.ID)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			if _, err := s.clients.Create(ctx, snapshot.ID, data); err != nil {
				if errors.Is(err, jetstream.ErrKeyExists) {
					lastErr = err
					continue
				}
				return fmt.Errorf("replay client: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("replay client: %w", err)
		}

		var current workflow.Client
		if err := json.Unmarshal(entry.Value(), &current); err != nil {
			return fmt.Errorf("unmarshal client: %w", err)
		}
		if !clientReplayNeeded(&current, snapshot) {
			return nil
		}
		if _, err := s.clients.Update(ctx, snapshot.ID, data, entry.Revision()); err != nil {
			// Revision conflict: another writer touched the client. Reload
			// and re-evaluate against the newer revision.
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("replay client: %w", lastErr)
}
