package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autoplan/internal/shared/domain"
)

type noteAdded struct {
	domain.EventHeader
	Text string `json:"text"`
}

func TestNewEventHeader(t *testing.T) {
	subject := uuid.New()
	berlin := time.FixedZone("CEST", 2*3600)
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, berlin)

	h := domain.NewEventHeader(subject, "Note", "notes.added", at)

	assert.NotEqual(t, uuid.Nil, h.EventID())
	assert.Equal(t, subject, h.SubjectID())
	assert.Equal(t, "Note", h.SubjectType())
	assert.Equal(t, "notes.added", h.RoutingKey())
	assert.Equal(t, time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC), h.OccurredAt())
	assert.Equal(t, time.UTC, h.OccurredAt().Location())
}

func TestNewEventHeader_ZeroTimeIsNow(t *testing.T) {
	before := time.Now()
	h := domain.NewEventHeader(uuid.New(), "Note", "notes.added", time.Time{})
	assert.False(t, h.OccurredAt().Before(before.UTC().Truncate(time.Second)))
}

func TestEvent_MetadataAndPayload(t *testing.T) {
	ev := &noteAdded{EventHeader: domain.NewEventHeader(uuid.New(), "Note", "notes.added", time.Time{}), Text: "hi"}
	var _ domain.Event = ev

	meta := domain.EventMetadata{CorrelationID: uuid.New(), CausationID: uuid.New()}
	ev.SetMetadata(meta)
	assert.Equal(t, meta, ev.Metadata())

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(data))
}
