package workflow

import (
	"context"
	"fmt"
	"math"
	"time"
)

// ProgressAggregator recomputes a client's overall completion percentage
// from the full set of its tasks. Recomputation is pure, never
// incremental, so redundant or concurrent calls converge to the same
// value instead of drifting.
type ProgressAggregator struct {
	store Gateway
}

// NewProgressAggregator creates a progress aggregator.
func NewProgressAggregator(store Gateway) *ProgressAggregator {
	return &ProgressAggregator{store: store}
}

// Recompute recalculates and persists the client's progress percentage:
// round(100 * completed / total), or 0 when the client has no tasks.
func (a *ProgressAggregator) Recompute(ctx context.Context, clientID string) (int, error) {
	tasks, err := a.store.ListTasksForClient(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("recompute progress: list tasks for %s: %w", clientID, err)
	}

	percent := ProgressPercent(tasks)

	client, err := a.store.GetClient(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("recompute progress: load client %s: %w", clientID, err)
	}

	client.ProgressPercent = percent
	client.UpdatedAt = time.Now()
	if err := a.store.UpdateClient(ctx, client); err != nil {
		return 0, fmt.Errorf("recompute progress: update client %s: %w", clientID, err)
	}

	return percent, nil
}

// ProgressPercent computes the completion percentage over a task set.
func ProgressPercent(tasks []*Task) int {
	if len(tasks) == 0 {
		return 0
	}
	completed := 0
	for _, task := range tasks {
		if task.Status == TaskStatusCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(tasks))))
}
