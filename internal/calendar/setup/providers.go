package setup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/autoplan/internal/calendar/application"
	"github.com/felixgeelhaar/autoplan/internal/calendar/infrastructure/caldav"
	googleCal "github.com/felixgeelhaar/autoplan/internal/calendar/infrastructure/google"
	"github.com/felixgeelhaar/autoplan/internal/calendar/infrastructure/resilience"
)

// CalDAVConfig configures a CalDAV (or iCloud) busy source.
type CalDAVConfig struct {
	URL          string
	Username     string
	Password     string
	CalendarPath string
}

// GoogleConfig configures a Google FreeBusy source.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	CalendarIDs  []string
}

// ProviderConfig holds configuration for creating busy sources.
type ProviderConfig struct {
	CalDAV   *CalDAVConfig
	Google   *GoogleConfig
	Location *time.Location
	Breaker  resilience.BreakerConfig
	Logger   *slog.Logger
}

// BuildSources creates every configured busy source, each guarded by its own
// circuit breaker. No configured providers yields an empty list.
func BuildSources(ctx context.Context, config ProviderConfig) ([]application.BusySource, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sources []application.BusySource

	if c := config.CalDAV; c != nil && c.URL != "" {
		src := caldav.NewBusySource("", c.URL, c.Username, c.Password, logger)
		if c.CalendarPath != "" {
			src.WithCalendarPath(c.CalendarPath)
		}
		if config.Location != nil {
			src.WithLocation(config.Location)
		}
		sources = append(sources, resilience.WithBreaker(src, config.Breaker, logger))
		logger.Debug("registered busy source", "source", src.Name(), "provider", src.Provider().String())
	}

	if g := config.Google; g != nil && g.TokenFile != "" {
		srv, err := googleCal.NewService(ctx, googleCal.Credentials{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			TokenFile:    g.TokenFile,
		})
		if err != nil {
			return nil, fmt.Errorf("google busy source: %w", err)
		}
		src := googleCal.NewFreeBusySource("", srv, g.CalendarIDs, logger)
		sources = append(sources, resilience.WithBreaker(src, config.Breaker, logger))
		logger.Debug("registered busy source", "source", src.Name(), "provider", src.Provider().String())
	}

	return sources, nil
}

// NewAggregator builds the configured sources and wraps them in an aggregator.
func NewAggregator(ctx context.Context, config ProviderConfig) (*application.Aggregator, error) {
	sources, err := BuildSources(ctx, config)
	if err != nil {
		return nil, err
	}
	return application.NewAggregator(config.Logger, sources...), nil
}
