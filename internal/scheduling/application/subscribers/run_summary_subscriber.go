package subscribers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/eventbus"
)

// RunSummary is the decoded payload of a RunCompleted event.
type RunSummary struct {
	RunID       string   `json:"run_id"`
	HorizonDays int      `json:"horizon_days"`
	Placed      int      `json:"placed"`
	Unscheduled []string `json:"unscheduled"`
	Ignored     []string `json:"ignored"`
	Deferred    []string `json:"deferred"`
}

// RunSummarySubscriber reports completed scheduling runs.
type RunSummarySubscriber struct {
	notify  func(ctx context.Context, summary RunSummary) error
	logger  *slog.Logger
	enabled bool
}

// NewRunSummarySubscriber creates a subscriber. notify may be nil, in which
// case summaries are only logged.
func NewRunSummarySubscriber(notify func(ctx context.Context, summary RunSummary) error, logger *slog.Logger) *RunSummarySubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunSummarySubscriber{notify: notify, logger: logger, enabled: true}
}

// SetEnabled enables or disables the subscriber.
func (s *RunSummarySubscriber) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// EventTypes returns the event types this subscriber handles.
func (s *RunSummarySubscriber) EventTypes() []string {
	return []string{domain.RoutingKeyRunCompleted}
}

// Register subscribes the handler on bus for every event type.
func (s *RunSummarySubscriber) Register(bus *eventbus.LocalBus) {
	for _, key := range s.EventTypes() {
		bus.Subscribe(key, s.Handle)
	}
}

// Handle processes an event.
func (s *RunSummarySubscriber) Handle(ctx context.Context, event *eventbus.Envelope) error {
	if !s.enabled {
		return nil
	}

	var summary RunSummary
	if err := json.Unmarshal(event.Payload, &summary); err != nil {
		return fmt.Errorf("decode %s: %w", event.RoutingKey, err)
	}

	s.logger.InfoContext(ctx, "scheduling run completed",
		"run_id", summary.RunID,
		"placed", summary.Placed,
		"unscheduled", len(summary.Unscheduled),
		"deferred", len(summary.Deferred),
		"correlation_id", event.CorrelationID,
	)

	if s.notify == nil {
		return nil
	}
	return s.notify(ctx, summary)
}
