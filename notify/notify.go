// Package notify publishes workflow notifications to NATS. Publishing is
// best-effort: failures are logged and counted, never propagated, since
// the engine's state change is authoritative and the notification is a
// side channel.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/taxdesk/clientflow/workflow"
)

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier implements workflow.Notifier over a NATS publisher.
type Notifier struct {
	pub     Publisher
	logger  *slog.Logger
	metrics *workflow.Metrics
}

// New creates a Notifier.
func New(pub Publisher, logger *slog.Logger, metrics *workflow.Metrics) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, logger: logger, metrics: metrics}
}

// Notify implements workflow.Notifier.
func (n *Notifier) Notify(_ context.Context, clientID string, kind workflow.EventKind, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.metrics.NotificationFailure()
		n.logger.Warn("marshal notification failed",
			slog.String("client_id", clientID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return
	}

	if err := n.pub.Publish(workflow.NotificationSubject(kind), data); err != nil {
		n.metrics.NotificationFailure()
		n.logger.Warn("publish notification failed",
			slog.String("client_id", clientID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
	}
}
