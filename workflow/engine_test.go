package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxdesk/clientflow/workflow"
	"github.com/taxdesk/clientflow/workflow/testutil"
)

// TestEngineLifecycle walks a fresh individual client through intake,
// a completion cascade, and retried stage advancement.
func TestEngineLifecycle(t *testing.T) {
	ctx := context.Background()
	gateway := testutil.NewGateway()
	seedIndividual(gateway)
	notifier := testutil.NewNotifier()
	engine := newTestEngine(t, gateway, notifier)

	// Intake completes: two templates registered for the stage, so two
	// pending tasks and zero progress.
	advanced, err := engine.AdvanceStage(ctx, "C1", workflow.StageIntakeComplete)
	require.NoError(t, err)
	require.Len(t, advanced.Created, 2)

	client, err := gateway.GetClient(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIntakeComplete, client.Stage)
	assert.Equal(t, 0, client.ProgressPercent)

	// The collection task carries the document_collection_setup trigger.
	var collectTask *workflow.Task
	for _, task := range advanced.Created {
		if len(task.CompletionTriggers) > 0 {
			collectTask = task
		}
	}
	require.NotNil(t, collectTask)
	require.Equal(t, []string{"document_collection_setup"}, collectTask.CompletionTriggers)

	// Completing it yields one follow-up: three tasks total, one done.
	completion, err := engine.CompleteTask(ctx, collectTask.ID)
	require.NoError(t, err)
	require.Len(t, completion.FollowUps, 1)
	assert.Equal(t, workflow.CompletionProvenance(collectTask.ID), completion.FollowUps[0].Provenance)
	assert.Equal(t, 33, completion.ProgressPercent)

	client, err = gateway.GetClient(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 33, client.ProgressPercent)

	// Retried stage advancement changes nothing.
	replayed, err := engine.AdvanceStage(ctx, "C1", workflow.StageIntakeComplete)
	require.NoError(t, err)
	assert.True(t, replayed.AlreadyAdvanced)

	tasks, err := gateway.ListTasksForClient(ctx, "C1")
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	client, err = gateway.GetClient(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIntakeComplete, client.Stage)
	assert.Equal(t, 33, client.ProgressPercent)

	// Exactly one completion notification was published.
	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, workflow.EventTaskCompleted, events[0].Kind)
}

// TestEngineProgressConsistency checks that after an arbitrary operation
// sequence the persisted percentage always matches the task set.
func TestEngineProgressConsistency(t *testing.T) {
	ctx := context.Background()
	gateway := testutil.NewGateway()
	seedIndividual(gateway)
	engine := newTestEngine(t, gateway, nil)

	_, err := engine.AdvanceStage(ctx, "C1", workflow.StageIntakeComplete)
	require.NoError(t, err)

	for {
		tasks, err := gateway.ListTasksForClient(ctx, "C1")
		require.NoError(t, err)

		var next *workflow.Task
		for _, task := range tasks {
			if task.Status == workflow.TaskStatusPending {
				next = task
				break
			}
		}
		if next == nil {
			break
		}

		result, err := engine.CompleteTask(ctx, next.ID)
		require.NoError(t, err)

		tasks, err = gateway.ListTasksForClient(ctx, "C1")
		require.NoError(t, err)
		client, err := gateway.GetClient(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, workflow.ProgressPercent(tasks), client.ProgressPercent)
		assert.Equal(t, result.ProgressPercent, client.ProgressPercent)
	}

	client, err := gateway.GetClient(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 100, client.ProgressPercent)
}

func TestEngineRecomputeProgress(t *testing.T) {
	gateway := testutil.NewGateway()
	seedIndividual(gateway)
	engine := newTestEngine(t, gateway, nil)

	percent, err := engine.RecomputeProgress(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 0, percent)
}
