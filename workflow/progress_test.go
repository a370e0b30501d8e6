package workflow_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxdesk/clientflow/workflow"
	"github.com/taxdesk/clientflow/workflow/testutil"
)

func TestProgressPercent(t *testing.T) {
	completed := func(id string) *workflow.Task {
		return &workflow.Task{ID: id, Status: workflow.TaskStatusCompleted}
	}
	pending := func(id string) *workflow.Task {
		return &workflow.Task{ID: id, Status: workflow.TaskStatusPending}
	}

	tests := []struct {
		name  string
		tasks []*workflow.Task
		want  int
	}{
		{name: "no tasks", tasks: nil, want: 0},
		{name: "none completed", tasks: []*workflow.Task{pending("a"), pending("b")}, want: 0},
		{name: "all completed", tasks: []*workflow.Task{completed("a"), completed("b")}, want: 100},
		{name: "one of three rounds to 33", tasks: []*workflow.Task{completed("a"), pending("b"), pending("c")}, want: 33},
		{name: "two of three rounds to 67", tasks: []*workflow.Task{completed("a"), completed("b"), pending("c")}, want: 67},
		{name: "one of two", tasks: []*workflow.Task{completed("a"), pending("b")}, want: 50},
		{name: "one of six rounds to 17", tasks: []*workflow.Task{completed("a"), pending("b"), pending("c"), pending("d"), pending("e"), pending("f")}, want: 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, workflow.ProgressPercent(tt.tasks))
		})
	}
}

func TestRecomputePersistsPercent(t *testing.T) {
	gateway := testutil.NewGateway()
	seedIndividual(gateway)
	for i := 0; i < 3; i++ {
		task := &workflow.Task{
			ID:       fmt.Sprintf("T%d", i),
			ClientID: "C1",
			Status:   workflow.TaskStatusPending,
		}
		if i == 0 {
			task.Status = workflow.TaskStatusCompleted
		}
		gateway.SeedTask(task)
	}

	aggregator := workflow.NewProgressAggregator(gateway)
	percent, err := aggregator.Recompute(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 33, percent)

	client, err := gateway.GetClient(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 33, client.ProgressPercent)
}

func TestRecomputeIsSafeToRepeat(t *testing.T) {
	gateway := testutil.NewGateway()
	seedIndividual(gateway)
	gateway.SeedTask(&workflow.Task{ID: "T1", ClientID: "C1", Status: workflow.TaskStatusCompleted})
	gateway.SeedTask(&workflow.Task{ID: "T2", ClientID: "C1", Status: workflow.TaskStatusPending})

	aggregator := workflow.NewProgressAggregator(gateway)
	for i := 0; i < 3; i++ {
		percent, err := aggregator.Recompute(context.Background(), "C1")
		require.NoError(t, err)
		assert.Equal(t, 50, percent, "pure recomputation never drifts")
	}
}

func TestRecomputeNoTasks(t *testing.T) {
	gateway := testutil.NewGateway()
	seedIndividual(gateway)

	aggregator := workflow.NewProgressAggregator(gateway)
	percent, err := aggregator.Recompute(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 0, percent, "a client with zero tasks is valid")
}

func TestRecomputeClientNotFound(t *testing.T) {
	gateway := testutil.NewGateway()

	aggregator := workflow.NewProgressAggregator(gateway)
	_, err := aggregator.Recompute(context.Background(), "missing")
	require.ErrorIs(t, err, workflow.ErrNotFound)
}
