package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// StageController advances clients between lifecycle stages, generating
// the stage's task batch exactly once per (client, stage) pair.
type StageController struct {
	store    Gateway
	registry *Registry
	inst     *Instantiator
	logger   *slog.Logger
	metrics  *Metrics
}

// NewStageController creates a stage transition controller.
func NewStageController(store Gateway, registry *Registry, inst *Instantiator, logger *slog.Logger, metrics *Metrics) *StageController {
	if logger == nil {
		logger = slog.Default()
	}
	return &StageController{
		store:    store,
		registry: registry,
		inst:     inst,
		logger:   logger,
		metrics:  metrics,
	}
}

// StageResult reports the outcome of a stage advancement.
type StageResult struct {
	Client *Client
	// Created holds the task batch generated for the stage; empty when the
	// stage has no templates or the advancement was a no-op.
	Created []*Task
	// AlreadyAdvanced is true when the (client, stage) pair had already
	// generated its batch and the call was a successful no-op.
	AlreadyAdvanced bool
}

// AdvanceStage moves a client to the given stage and instantiates every
// template registered for (client.Category, stage). Idempotency lives
// entirely in the gateway: the transition write commits at most once per
// (client, stage) pair, and a duplicate call replays the committed
// record, so a retry after a partial write repairs the client and task
// batch instead of stranding them half-advanced.
func (c *StageController) AdvanceStage(ctx context.Context, clientID string, stage Stage) (*StageResult, error) {
	client, err := c.store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("advance stage: client %s: %w", clientID, ErrNotFound)
		}
		return nil, fmt.Errorf("advance stage: load client %s: %w", clientID, err)
	}

	provenance := StageProvenance(stage)
	now := time.Now()
	client.Stage = stage
	client.LastActivityAt = now
	client.UpdatedAt = now

	templates := c.registry.TemplatesFor(client.Category, stage)
	batch := make([]*Task, 0, len(templates))
	for _, tmpl := range templates {
		batch = append(batch, c.inst.Instantiate(client, tmpl, provenance))
	}

	if err := c.store.WriteStageTransition(ctx, client, batch); err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			// A concurrent or earlier advancement committed this pair and
			// the gateway has replayed its record. Report the stored state,
			// not the batch instantiated above, which was never persisted.
			if current, loadErr := c.store.GetClient(ctx, clientID); loadErr == nil {
				client = current
			}
			c.logger.Info("stage already advanced",
				slog.String("client_id", clientID),
				slog.String("stage", string(stage)))
			return &StageResult{Client: client, AlreadyAdvanced: true}, nil
		}
		return nil, fmt.Errorf("advance stage: commit transition for %s to %s: %w", clientID, stage, err)
	}

	c.metrics.stageTransition(stage)
	c.metrics.generated("stage", len(batch))
	c.logger.Info("stage advanced",
		slog.String("client_id", clientID),
		slog.String("stage", string(stage)),
		slog.Int("tasks_created", len(batch)))

	return &StageResult{Client: client, Created: batch}, nil
}
