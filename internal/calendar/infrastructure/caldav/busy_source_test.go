package caldav

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autoplan/internal/calendar/domain"
)

func decode(t *testing.T, events ...string) *ical.Calendar {
	t.Helper()
	ics := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		strings.Join(events, "") +
		"END:VCALENDAR\r\n"
	cal, err := ical.NewDecoder(strings.NewReader(ics)).Decode()
	require.NoError(t, err)
	return cal
}

func vevent(lines ...string) string {
	return "BEGIN:VEVENT\r\nDTSTAMP:20261001T000000Z\r\n" + strings.Join(lines, "\r\n") + "\r\nEND:VEVENT\r\n"
}

func utc(d, hh, mm int) time.Time {
	return time.Date(2026, time.October, d, hh, mm, 0, 0, time.UTC)
}

func TestBusyFromCalendar(t *testing.T) {
	src := NewBusySource("work", "https://dav.example.com", "u", "p", nil).WithLocation(time.UTC)

	cal := decode(t,
		vevent("UID:meeting", "DTSTART:20261019T090000Z", "DTEND:20261019T100000Z"),
		vevent("UID:lunch", "DTSTART:20261019T120000Z", "DURATION:PT45M"),
		vevent("UID:free", "DTSTART:20261019T130000Z", "DTEND:20261019T140000Z", "TRANSP:TRANSPARENT"),
		vevent("UID:cancelled", "DTSTART:20261019T150000Z", "DTEND:20261019T160000Z", "STATUS:CANCELLED"),
		vevent("UID:birthday", "DTSTART;VALUE=DATE:20261020", "DTEND;VALUE=DATE:20261021"),
		vevent("UID:offsite", "DTSTART;VALUE=DATE:20261021", "DTEND;VALUE=DATE:20261022", "TRANSP:OPAQUE"),
		vevent("UID:standup", "DTSTART:20261012T083000Z", "DTEND:20261012T084500Z", "RRULE:FREQ=DAILY;COUNT=10"),
		vevent("UID:outside", "DTSTART:20261030T090000Z", "DTEND:20261030T100000Z"),
	)

	got := src.busyFromCalendar(cal, utc(19, 0, 0), utc(22, 0, 0))

	type span struct{ start, end time.Time }
	spans := make([]span, 0, len(got))
	for _, iv := range got {
		assert.Equal(t, "work", iv.SourceID)
		spans = append(spans, span{iv.Start.UTC(), iv.End.UTC()})
	}

	assert.ElementsMatch(t, []span{
		{utc(19, 9, 0), utc(19, 10, 0)},
		{utc(19, 12, 0), utc(19, 12, 45)},
		{utc(21, 0, 0), utc(22, 0, 0)},
		// COUNT=10 from Oct 12 ends on Oct 21.
		{utc(19, 8, 30), utc(19, 8, 45)},
		{utc(20, 8, 30), utc(20, 8, 45)},
		{utc(21, 8, 30), utc(21, 8, 45)},
	}, spans)
}

func TestNewBusySource_Provider(t *testing.T) {
	apple := NewBusySource("", AppleCalDAVURL, "u", "p", nil)
	assert.Equal(t, domain.ProviderApple, apple.Provider())
	assert.Equal(t, "apple", apple.Name())

	generic := NewBusySource("team", FastmailCalDAVURL, "u", "p", nil)
	assert.Equal(t, domain.ProviderCalDAV, generic.Provider())
	assert.Equal(t, "team", generic.Name())
}
