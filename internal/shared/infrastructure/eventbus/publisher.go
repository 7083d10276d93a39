package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/autoplan/internal/shared/domain"
	"github.com/google/uuid"
)

// Publisher delivers encoded events by routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// EnvelopeVersion is bumped when Envelope changes incompatibly.
const EnvelopeVersion = 1

// Envelope is the wire format of every published event.
type Envelope struct {
	Version       int             `json:"v"`
	EventID       uuid.UUID       `json:"event_id"`
	SubjectID     uuid.UUID       `json:"subject_id"`
	SubjectType   string          `json:"subject_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CausationID   string          `json:"causation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Encode serializes event inside an Envelope.
func Encode(event domain.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.RoutingKey(), err)
	}

	env := Envelope{
		Version:     EnvelopeVersion,
		EventID:     event.EventID(),
		SubjectID:   event.SubjectID(),
		SubjectType: event.SubjectType(),
		RoutingKey:  event.RoutingKey(),
		OccurredAt:  event.OccurredAt(),
		Payload:     payload,
	}
	meta := event.Metadata()
	if meta.CorrelationID != uuid.Nil {
		env.CorrelationID = meta.CorrelationID.String()
	}
	if meta.CausationID != uuid.Nil {
		env.CausationID = meta.CausationID.String()
	}
	return json.Marshal(env)
}

// PublishEvent encodes and publishes a domain event on its routing key.
func PublishEvent(ctx context.Context, p Publisher, event domain.Event) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	return p.Publish(ctx, event.RoutingKey(), data)
}
