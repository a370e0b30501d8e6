// Package service runs the engine's event handlers: JetStream consumers
// that decode lifecycle events and invoke the matching engine operation.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/taxdesk/clientflow/workflow"
)

// Automation is the engine surface the handlers invoke.
type Automation interface {
	AdvanceStage(ctx context.Context, clientID string, stage workflow.Stage) (*workflow.StageResult, error)
	CompleteTask(ctx context.Context, taskID string) (*workflow.CompletionResult, error)
}

// Config configures the event consumers.
type Config struct {
	StreamName        string        `yaml:"stream_name"`
	StageConsumerName string        `yaml:"stage_consumer_name"`
	TaskConsumerName  string        `yaml:"task_consumer_name"`
	AckWait           time.Duration `yaml:"ack_wait"`
	MaxDeliver        int           `yaml:"max_deliver"`
	OperationTimeout  time.Duration `yaml:"operation_timeout"`
	FetchBatch        int           `yaml:"fetch_batch"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
}

// DefaultConfig returns consumer defaults.
func DefaultConfig() Config {
	return Config{
		StreamName:        workflow.StreamName,
		StageConsumerName: "clientflow-stage-advance",
		TaskConsumerName:  "clientflow-task-completed",
		AckWait:           30 * time.Second,
		MaxDeliver:        5,
		OperationTimeout:  15 * time.Second,
		FetchBatch:        1,
		FetchTimeout:      5 * time.Second,
	}
}

// Service consumes engine events from JetStream.
type Service struct {
	engine Automation
	config Config
	logger *slog.Logger

	stageConsumer jetstream.Consumer
	taskConsumer  jetstream.Consumer
}

// New creates a Service.
func New(engine Automation, config Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, config: config, logger: logger}
}

// Run ensures the event stream and consumers exist and processes messages
// until the context is canceled.
func (s *Service) Run(ctx context.Context, js jetstream.JetStream) error {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     s.config.StreamName,
		Subjects: []string{workflow.SubjectEventsWildcard},
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", s.config.StreamName, err)
	}

	s.stageConsumer, err = stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       s.config.StageConsumerName,
		FilterSubject: workflow.SubjectStageAdvance,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.config.AckWait,
		MaxDeliver:    s.config.MaxDeliver,
	})
	if err != nil {
		return fmt.Errorf("create stage consumer: %w", err)
	}

	s.taskConsumer, err = stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       s.config.TaskConsumerName,
		FilterSubject: workflow.SubjectTaskCompleted,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.config.AckWait,
		MaxDeliver:    s.config.MaxDeliver,
	})
	if err != nil {
		return fmt.Errorf("create task consumer: %w", err)
	}

	s.logger.Info("event consumers started",
		slog.String("stream", s.config.StreamName),
		slog.String("stage_consumer", s.config.StageConsumerName),
		slog.String("task_consumer", s.config.TaskConsumerName))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.consumeLoop(ctx, s.stageConsumer, s.handleStageAdvance)
	}()
	go func() {
		defer wg.Done()
		s.consumeLoop(ctx, s.taskConsumer, s.handleTaskCompleted)
	}()
	wg.Wait()

	return ctx.Err()
}

func (s *Service) consumeLoop(ctx context.Context, consumer jetstream.Consumer, handle func(context.Context, jetstream.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := consumer.Fetch(s.config.FetchBatch, jetstream.FetchMaxWait(s.config.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Debug("fetch timeout or error", slog.String("error", err.Error()))
			continue
		}

		for msg := range msgs.Messages() {
			handle(ctx, msg)
		}

		if msgs.Error() != nil && !errors.Is(msgs.Error(), context.DeadlineExceeded) {
			s.logger.Warn("message fetch error", slog.String("error", msgs.Error().Error()))
		}
	}
}

// handleStageAdvance processes one StageAdvanceRequest. Malformed
// payloads and missing clients are terminal; persistence failures are
// NAKed for redelivery, which is safe because stage advancement is
// idempotent.
func (s *Service) handleStageAdvance(ctx context.Context, msg jetstream.Msg) {
	var req workflow.StageAdvanceRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		s.logger.Error("malformed stage advance request", slog.String("error", err.Error()))
		s.term(msg)
		return
	}
	if err := req.Validate(); err != nil {
		s.logger.Error("invalid stage advance request", slog.String("error", err.Error()))
		s.term(msg)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	result, err := s.engine.AdvanceStage(opCtx, req.ClientID, req.Stage)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			s.logger.Error("stage advance for unknown client",
				slog.String("client_id", req.ClientID),
				slog.String("request_id", req.RequestID))
			s.term(msg)
			return
		}
		s.logger.Warn("stage advance failed, will retry",
			slog.String("client_id", req.ClientID),
			slog.String("request_id", req.RequestID),
			slog.String("error", err.Error()))
		s.nak(msg)
		return
	}

	if result.AlreadyAdvanced {
		s.logger.Debug("stage advance replayed",
			slog.String("client_id", req.ClientID),
			slog.String("stage", string(req.Stage)))
	}
	s.ack(msg)
}

// handleTaskCompleted processes one TaskCompletedEvent with the same
// terminal/retryable split as handleStageAdvance.
func (s *Service) handleTaskCompleted(ctx context.Context, msg jetstream.Msg) {
	var event workflow.TaskCompletedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		s.logger.Error("malformed task completed event", slog.String("error", err.Error()))
		s.term(msg)
		return
	}
	if err := event.Validate(); err != nil {
		s.logger.Error("invalid task completed event", slog.String("error", err.Error()))
		s.term(msg)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	result, err := s.engine.CompleteTask(opCtx, event.TaskID)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			s.logger.Error("completion event for unknown task",
				slog.String("task_id", event.TaskID),
				slog.String("request_id", event.RequestID))
			s.term(msg)
			return
		}
		s.logger.Warn("task completion failed, will retry",
			slog.String("task_id", event.TaskID),
			slog.String("request_id", event.RequestID),
			slog.String("error", err.Error()))
		s.nak(msg)
		return
	}

	if result.AlreadyCompleted {
		s.logger.Debug("completion event replayed", slog.String("task_id", event.TaskID))
	}
	s.ack(msg)
}

func (s *Service) ack(msg jetstream.Msg) {
	if err := msg.Ack(); err != nil {
		s.logger.Warn("failed to ack message", slog.String("error", err.Error()))
	}
}

func (s *Service) nak(msg jetstream.Msg) {
	if err := msg.Nak(); err != nil {
		s.logger.Warn("failed to nak message", slog.String("error", err.Error()))
	}
}

func (s *Service) term(msg jetstream.Msg) {
	if err := msg.Term(); err != nil {
		s.logger.Warn("failed to terminate message", slog.String("error", err.Error()))
	}
}
