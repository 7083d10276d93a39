package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/felixgeelhaar/autoplan/internal/calendar/domain"
	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/security"
)

var ErrMissingToken = errors.New("google token file not configured")

// FreeBusySource reads busy time for one or more Google calendars through
// the FreeBusy API.
type FreeBusySource struct {
	name        string
	service     *calendar.Service
	calendarIDs []string
	logger      *slog.Logger
}

// NewFreeBusySource creates a source over an existing calendar service.
// An empty calendar list queries the primary calendar.
func NewFreeBusySource(name string, service *calendar.Service, calendarIDs []string, logger *slog.Logger) *FreeBusySource {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = domain.ProviderGoogle.String()
	}
	if len(calendarIDs) == 0 {
		calendarIDs = []string{"primary"}
	}
	return &FreeBusySource{name: name, service: service, calendarIDs: calendarIDs, logger: logger}
}

// Name returns the source name.
func (s *FreeBusySource) Name() string { return s.name }

// Provider returns the calendar backend.
func (s *FreeBusySource) Provider() domain.ProviderType { return domain.ProviderGoogle }

// Busy queries FreeBusy for [start, end). Calendars reporting errors are
// logged and skipped; the call fails only when the request itself fails.
func (s *FreeBusySource) Busy(ctx context.Context, start, end time.Time) ([]schedulingDomain.Interval, error) {
	req := &calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
	}
	for _, id := range s.calendarIDs {
		req.Items = append(req.Items, &calendar.FreeBusyRequestItem{Id: id})
	}

	resp, err := s.service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	var intervals []schedulingDomain.Interval
	for _, id := range s.calendarIDs {
		cal, ok := resp.Calendars[id]
		if !ok {
			continue
		}
		for _, e := range cal.Errors {
			s.logger.Warn("freebusy calendar error", "source", s.name, "calendar_id", id, "reason", e.Reason)
		}
		for _, period := range cal.Busy {
			pStart, errStart := time.Parse(time.RFC3339, period.Start)
			pEnd, errEnd := time.Parse(time.RFC3339, period.End)
			if errStart != nil || errEnd != nil {
				s.logger.Warn("skipping unparsable busy period", "source", s.name, "calendar_id", id, "start", period.Start, "end", period.End)
				continue
			}
			intervals = append(intervals, schedulingDomain.Interval{SourceID: s.name, Start: pStart, End: pEnd})
		}
	}
	return intervals, nil
}

// Credentials configures OAuth access for NewService.
type Credentials struct {
	ClientID     string
	ClientSecret string
	// TokenFile holds a JSON oauth2.Token with a refresh token.
	TokenFile string
	// Endpoint overrides the API base URL.
	Endpoint string
}

// NewService builds a read-only calendar service from stored credentials.
// The token is refreshed automatically by the oauth2 token source.
func NewService(ctx context.Context, creds Credentials) (*calendar.Service, error) {
	if creds.TokenFile == "" {
		return nil, ErrMissingToken
	}
	token, err := tokenFromFile(creds.TokenFile)
	if err != nil {
		return nil, err
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     googleOAuth.Endpoint,
		Scopes:       []string{calendar.CalendarReadonlyScope},
	}
	client := config.Client(ctx, token)
	client.Timeout = 15 * time.Second

	return newService(ctx, client, creds.Endpoint)
}

func newService(ctx context.Context, client *http.Client, endpoint string) (*calendar.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return srv, nil
}

// tokenFromFile reads an oauth2.Token from a JSON file.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := security.SafeOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}
