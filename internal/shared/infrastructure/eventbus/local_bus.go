package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// HandlerFunc processes one delivered event.
type HandlerFunc func(ctx context.Context, event *Envelope) error

// LocalBus is an in-memory publisher for local mode (no RabbitMQ).
// Events are delivered synchronously to the handlers subscribed to their
// routing key.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	logger   *slog.Logger
}

// NewLocalBus creates an empty local bus.
func NewLocalBus(logger *slog.Logger) *LocalBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBus{handlers: make(map[string][]HandlerFunc), logger: logger}
}

// Subscribe registers fn for routingKey.
func (b *LocalBus) Subscribe(routingKey string, fn HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[routingKey] = append(b.handlers[routingKey], fn)
}

// Publish decodes the envelope and dispatches it. Handler failures are
// logged and never fail the publish.
func (b *LocalBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event := &Envelope{}
	if err := json.Unmarshal(payload, event); err != nil {
		b.logger.Error("failed to unmarshal event payload",
			"routing_key", routingKey,
			"error", err,
		)
		return nil
	}
	if event.RoutingKey == "" {
		event.RoutingKey = routingKey
	}

	b.mu.RLock()
	handlers := append([]HandlerFunc(nil), b.handlers[event.RoutingKey]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event", "routing_key", event.RoutingKey)
		return nil
	}
	for _, fn := range handlers {
		if err := fn(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				"routing_key", event.RoutingKey,
				"event_id", event.EventID,
				"error", err,
			)
		}
	}
	return nil
}

// Close is a no-op.
func (b *LocalBus) Close() error {
	return nil
}
