package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/felixgeelhaar/autoplan/internal/calendar/domain"
	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// Common CalDAV server URLs
const (
	AppleCalDAVURL    = "https://caldav.icloud.com"
	FastmailCalDAVURL = "https://caldav.fastmail.com"
)

// BusySource reads committed events from a CalDAV calendar (Apple Calendar,
// Fastmail, Nextcloud, etc.).
type BusySource struct {
	name         string
	provider     domain.ProviderType
	baseURL      string
	username     string
	password     string // App-specific password for Apple
	calendarPath string // Specific calendar path, or empty for default
	loc          *time.Location
	logger       *slog.Logger
}

// NewBusySource creates a CalDAV busy source.
func NewBusySource(name, baseURL, username, password string, logger *slog.Logger) *BusySource {
	if logger == nil {
		logger = slog.Default()
	}
	provider := domain.ProviderCalDAV
	if strings.HasPrefix(baseURL, AppleCalDAVURL) {
		provider = domain.ProviderApple
	}
	if name == "" {
		name = provider.String()
	}
	return &BusySource{
		name:     name,
		provider: provider,
		baseURL:  baseURL,
		username: username,
		password: password,
		loc:      time.Local,
		logger:   logger,
	}
}

// WithCalendarPath sets the specific calendar path to use.
func (s *BusySource) WithCalendarPath(path string) *BusySource {
	s.calendarPath = path
	return s
}

// WithLocation sets the zone used for floating and all-day times.
func (s *BusySource) WithLocation(loc *time.Location) *BusySource {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// Name returns the source name.
func (s *BusySource) Name() string { return s.name }

// Provider returns the calendar backend.
func (s *BusySource) Provider() domain.ProviderType { return s.provider }

// Busy returns opaque events overlapping [start, end), with recurring
// events expanded.
func (s *BusySource) Busy(ctx context.Context, start, end time.Time) ([]schedulingDomain.Interval, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}

	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar: %w", err)
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Props: []string{"VERSION"},
			Comps: []caldav.CalendarCompRequest{
				{
					Name: "VEVENT",
					Props: []string{
						ical.PropUID, ical.PropSummary, ical.PropDateTimeStart, ical.PropDateTimeEnd,
						ical.PropDuration, ical.PropStatus, ical.PropTransparency,
						ical.PropRecurrenceRule, ical.PropRecurrenceDates, ical.PropExceptionDates,
					},
				},
			},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: start,
					End:   end,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var intervals []schedulingDomain.Interval
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		intervals = append(intervals, s.busyFromCalendar(obj.Data, start, end)...)
	}
	return intervals, nil
}

func (s *BusySource) busyFromCalendar(cal *ical.Calendar, start, end time.Time) []schedulingDomain.Interval {
	var intervals []schedulingDomain.Interval
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		event := &ical.Event{Component: child}
		if !blocksTime(event) {
			continue
		}

		evStart, err := event.DateTimeStart(s.loc)
		if err != nil {
			s.logger.Debug("skipping event without start", "source", s.name, "error", err)
			continue
		}
		length := eventLength(event, evStart, s.loc)
		if length <= 0 {
			continue
		}

		starts := []time.Time{evStart}
		if set, err := event.RecurrenceSet(s.loc); err == nil && set != nil {
			starts = set.Between(start.Add(-length), end, true)
		}

		for _, occ := range starts {
			iv := schedulingDomain.Interval{SourceID: s.name, Start: occ, End: occ.Add(length)}
			if iv.End.After(start) && iv.Start.Before(end) {
				intervals = append(intervals, iv)
			}
		}
	}
	return intervals
}

// blocksTime reports whether the event occupies the calendar. Cancelled and
// transparent events never do; all-day events only when marked opaque.
func blocksTime(event *ical.Event) bool {
	if p := event.Props.Get(ical.PropStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return false
	}
	transp := event.Props.Get(ical.PropTransparency)
	if transp != nil && strings.EqualFold(transp.Value, "TRANSPARENT") {
		return false
	}
	if p := event.Props.Get(ical.PropDateTimeStart); p != nil && p.ValueType() == ical.ValueDate {
		return transp != nil && strings.EqualFold(transp.Value, "OPAQUE")
	}
	return true
}

func eventLength(event *ical.Event, start time.Time, loc *time.Location) time.Duration {
	if event.Props.Get(ical.PropDateTimeEnd) != nil {
		if end, err := event.DateTimeEnd(loc); err == nil {
			return end.Sub(start)
		}
	}
	if p := event.Props.Get(ical.PropDuration); p != nil {
		if d, err := p.Duration(); err == nil {
			return d
		}
	}
	if p := event.Props.Get(ical.PropDateTimeStart); p != nil && p.ValueType() == ical.ValueDate {
		return 24 * time.Hour
	}
	return 0
}

// Helper methods

func (s *BusySource) getClient() (*caldav.Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, s.username, s.password), s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return client, nil
}

func (s *BusySource) findCalendarPath(ctx context.Context, client *caldav.Client) (string, error) {
	if s.calendarPath != "" {
		return s.calendarPath, nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	if len(cals) == 0 {
		return "", fmt.Errorf("no calendars found")
	}

	// Use first calendar as default
	return cals[0].Path, nil
}
