package application

import (
	"github.com/google/uuid"

	"github.com/felixgeelhaar/autoplan/internal/shared/domain"
)

// NewEventMetadata links events to the request that raised them. A missing
// or malformed correlation ID gets a fresh one so that every published event
// can be traced.
func NewEventMetadata(correlationID string, causationID uuid.UUID) domain.EventMetadata {
	corr, err := uuid.Parse(correlationID)
	if err != nil {
		corr = uuid.New()
	}
	return domain.EventMetadata{CorrelationID: corr, CausationID: causationID}
}

// ApplyEventMetadata stamps the same metadata on every event.
func ApplyEventMetadata(metadata domain.EventMetadata, events ...domain.Event) {
	for _, e := range events {
		e.SetMetadata(metadata)
	}
}
