package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/autoplan/internal/calendar/domain"
	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// BusySource reports when the user is already committed.
type BusySource interface {
	// Name identifies the source in logs and on returned intervals.
	Name() string

	// Provider returns the calendar backend behind the source.
	Provider() domain.ProviderType

	// Busy returns committed intervals overlapping [start, end).
	Busy(ctx context.Context, start, end time.Time) ([]schedulingDomain.Interval, error)
}

// BusyResult is the merged output of all sources.
type BusyResult struct {
	Intervals []schedulingDomain.Interval
	// Failed lists sources that returned an error and were skipped.
	Failed []string
	// Dropped counts intervals discarded for having end <= start.
	Dropped int
}

// Aggregator fetches busy time from several sources concurrently.
type Aggregator struct {
	sources []BusySource
	strict  bool
	logger  *slog.Logger
}

// NewAggregator creates an aggregator over sources.
func NewAggregator(logger *slog.Logger, sources ...BusySource) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{sources: sources, logger: logger}
}

// WithStrict makes any source failure fail the whole fetch. By default a
// failing source is logged and skipped.
func (a *Aggregator) WithStrict(strict bool) *Aggregator {
	a.strict = strict
	return a
}

// Sources returns the configured sources.
func (a *Aggregator) Sources() []BusySource {
	return a.sources
}

// Busy fetches every source and merges the results sorted by start.
func (a *Aggregator) Busy(ctx context.Context, start, end time.Time) (*BusyResult, error) {
	result := &BusyResult{Intervals: []schedulingDomain.Interval{}, Failed: []string{}}
	if len(a.sources) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.sources {
		src := src
		g.Go(func() error {
			fetchStart := time.Now()
			intervals, err := src.Busy(gctx, start, end)
			if err != nil {
				if a.strict {
					return fmt.Errorf("busy source %s: %w", src.Name(), err)
				}
				a.logger.Warn(src.Provider().DisplayName()+" unavailable, continuing without it",
					"source", src.Name(),
					"provider", src.Provider().String(),
					"error", err,
				)
				mu.Lock()
				result.Failed = append(result.Failed, src.Name())
				mu.Unlock()
				return nil
			}

			a.logger.Debug("busy source fetched",
				"source", src.Name(),
				"intervals", len(intervals),
				"duration_ms", time.Since(fetchStart).Milliseconds(),
			)

			mu.Lock()
			defer mu.Unlock()
			for _, iv := range intervals {
				if !iv.End.After(iv.Start) {
					result.Dropped++
					continue
				}
				result.Intervals = append(result.Intervals, iv)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	schedulingDomain.SortIntervals(result.Intervals)
	sort.Strings(result.Failed)
	return result, nil
}
