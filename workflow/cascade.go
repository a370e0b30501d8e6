package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// CascadeProcessor marks tasks completed and instantiates the follow-up
// work their completion triggers declare. Each follow-up's own triggers
// fire only when that follow-up is later completed through a separate
// call, so a single invocation never recurses.
type CascadeProcessor struct {
	store    Gateway
	registry *Registry
	inst     *Instantiator
	progress *ProgressAggregator
	notifier Notifier
	logger   *slog.Logger
	metrics  *Metrics
}

// NewCascadeProcessor creates a completion cascade processor.
func NewCascadeProcessor(store Gateway, registry *Registry, inst *Instantiator, progress *ProgressAggregator, notifier Notifier, logger *slog.Logger, metrics *Metrics) *CascadeProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CascadeProcessor{
		store:    store,
		registry: registry,
		inst:     inst,
		progress: progress,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// CompletionResult reports the outcome of completing a task.
type CompletionResult struct {
	Task *Task
	// FollowUps holds the cascade tasks created by this completion.
	FollowUps []*Task
	// ProgressPercent is the client's recomputed completion percentage.
	ProgressPercent int
	// AlreadyCompleted is true when the task had already been completed
	// and the call was a successful no-op.
	AlreadyCompleted bool
}

// CompleteTask marks a task completed, instantiates a follow-up for each
// of its completion triggers, recomputes the client's progress, and
// notifies the external collaborator. Duplicate completion events (for
// example retried webhooks) are no-op successes.
func (p *CascadeProcessor) CompleteTask(ctx context.Context, taskID string) (*CompletionResult, error) {
	task, err := p.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("complete task: task %s: %w", taskID, ErrNotFound)
		}
		return nil, fmt.Errorf("complete task: load task %s: %w", taskID, err)
	}
	if task.Status == TaskStatusCompleted {
		p.logger.Info("task already completed", slog.String("task_id", taskID))
		return &CompletionResult{Task: task, AlreadyCompleted: true}, nil
	}

	client, err := p.store.GetClient(ctx, task.ClientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("complete task: client %s for task %s: %w", task.ClientID, taskID, ErrNotFound)
		}
		return nil, fmt.Errorf("complete task: load client %s: %w", task.ClientID, err)
	}

	task, err = p.store.MarkTaskCompleted(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			// Lost a race against a concurrent completion of the same task.
			p.logger.Info("task already completed", slog.String("task_id", taskID))
			current, getErr := p.store.GetTask(ctx, taskID)
			if getErr != nil {
				return nil, fmt.Errorf("complete task: reload task %s: %w", taskID, getErr)
			}
			return &CompletionResult{Task: current, AlreadyCompleted: true}, nil
		}
		return nil, fmt.Errorf("complete task: mark %s completed: %w", taskID, err)
	}
	p.metrics.completed()

	followUps := p.resolveFollowUps(client, task)
	if len(followUps) > 0 {
		if err := p.store.InsertTasks(ctx, followUps); err != nil {
			return nil, fmt.Errorf("complete task: insert follow-ups for %s: %w", taskID, err)
		}
		p.metrics.generated("cascade", len(followUps))
	}

	percent, err := p.progress.Recompute(ctx, task.ClientID)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}

	p.logger.Info("task completed",
		slog.String("task_id", taskID),
		slog.String("client_id", task.ClientID),
		slog.Int("follow_ups", len(followUps)),
		slog.Int("progress_percent", percent))

	// Fire-and-forget: notification failure never rolls back completion.
	p.notifier.Notify(ctx, task.ClientID, EventTaskCompleted, &TaskCompletedNotice{
		ClientID:        task.ClientID,
		TaskID:          task.ID,
		Title:           task.Title,
		FollowUpCount:   len(followUps),
		ProgressPercent: percent,
	})

	return &CompletionResult{Task: task, FollowUps: followUps, ProgressPercent: percent}, nil
}

// resolveFollowUps instantiates a follow-up task for each of the
// completed task's triggers. An unrecognized trigger tag is logged and
// skipped; it never aborts the remaining cascade.
func (p *CascadeProcessor) resolveFollowUps(client *Client, completed *Task) []*Task {
	provenance := CompletionProvenance(completed.ID)
	followUps := make([]*Task, 0, len(completed.CompletionTriggers))
	for _, trigger := range completed.CompletionTriggers {
		tmpl, ok := p.registry.FollowUpTemplateFor(trigger)
		if !ok {
			p.metrics.unknownTemplate()
			p.logger.Warn("no follow-up template for trigger",
				slog.String("task_id", completed.ID),
				slog.String("trigger", trigger))
			continue
		}
		followUps = append(followUps, p.inst.Instantiate(client, tmpl, provenance))
	}
	return followUps
}
