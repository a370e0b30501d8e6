package workflow

import (
	"context"
	"log/slog"
)

// Engine bundles the automation components behind the two operations the
// surrounding application invokes: stage advancement from the client
// lifecycle handler and task completion from the task-completion handler.
type Engine struct {
	registry   *Registry
	stages     *StageController
	cascades   *CascadeProcessor
	aggregator *ProgressAggregator
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*engineOptions)

type engineOptions struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *Metrics
}

// WithNotifier sets the notification collaborator.
func WithNotifier(n Notifier) EngineOption {
	return func(o *engineOptions) { o.notifier = n }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(o *engineOptions) { o.logger = l }
}

// WithMetrics sets the engine metrics.
func WithMetrics(m *Metrics) EngineOption {
	return func(o *engineOptions) { o.metrics = m }
}

// NewEngine assembles an engine from an immutable registry and a
// persistence gateway.
func NewEngine(registry *Registry, store Gateway, opts ...EngineOption) *Engine {
	options := engineOptions{
		notifier: NopNotifier{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	inst := NewInstantiator()
	aggregator := NewProgressAggregator(store)

	return &Engine{
		registry:   registry,
		stages:     NewStageController(store, registry, inst, options.logger, options.metrics),
		cascades:   NewCascadeProcessor(store, registry, inst, aggregator, options.notifier, options.logger, options.metrics),
		aggregator: aggregator,
	}
}

// AdvanceStage moves a client to the given stage. See
// StageController.AdvanceStage.
func (e *Engine) AdvanceStage(ctx context.Context, clientID string, stage Stage) (*StageResult, error) {
	return e.stages.AdvanceStage(ctx, clientID, stage)
}

// CompleteTask marks a task completed and runs its cascade. See
// CascadeProcessor.CompleteTask.
func (e *Engine) CompleteTask(ctx context.Context, taskID string) (*CompletionResult, error) {
	return e.cascades.CompleteTask(ctx, taskID)
}

// RecomputeProgress recalculates a client's progress percentage. Safe to
// call redundantly.
func (e *Engine) RecomputeProgress(ctx context.Context, clientID string) (int, error) {
	return e.aggregator.Recompute(ctx, clientID)
}

// Registry returns the engine's template registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}
