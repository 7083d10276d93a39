package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a fact announced after stored state changed. Implementations
// embed EventHeader and carry their payload as exported JSON fields.
type Event interface {
	EventID() uuid.UUID
	SubjectID() uuid.UUID
	SubjectType() string
	RoutingKey() string
	OccurredAt() time.Time
	Metadata() EventMetadata
	SetMetadata(EventMetadata)
}

// EventMetadata ties an event to the invocation that raised it.
type EventMetadata struct {
	CorrelationID uuid.UUID
	CausationID   uuid.UUID
}

// EventHeader holds the routing fields shared by all events. None of them
// are serialized with the payload.
type EventHeader struct {
	id          uuid.UUID
	subjectID   uuid.UUID
	subjectType string
	routingKey  string
	at          time.Time
	metadata    EventMetadata
}

// NewEventHeader stamps a new event about subjectID. A zero at means now.
func NewEventHeader(subjectID uuid.UUID, subjectType, routingKey string, at time.Time) EventHeader {
	if at.IsZero() {
		at = time.Now()
	}
	return EventHeader{
		id:          uuid.New(),
		subjectID:   subjectID,
		subjectType: subjectType,
		routingKey:  routingKey,
		at:          at.UTC(),
	}
}

func (h EventHeader) EventID() uuid.UUID      { return h.id }
func (h EventHeader) SubjectID() uuid.UUID    { return h.subjectID }
func (h EventHeader) SubjectType() string     { return h.subjectType }
func (h EventHeader) RoutingKey() string      { return h.routingKey }
func (h EventHeader) OccurredAt() time.Time   { return h.at }
func (h EventHeader) Metadata() EventMetadata { return h.metadata }

func (h *EventHeader) SetMetadata(m EventMetadata) {
	h.metadata = m
}
