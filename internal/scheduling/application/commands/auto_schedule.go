package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	calendarApp "github.com/felixgeelhaar/autoplan/internal/calendar/application"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/application/services"
	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	sharedApplication "github.com/felixgeelhaar/autoplan/internal/shared/application"
	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/autoplan/pkg/observability"
)

// ErrNoRepository is returned when a run asks to be saved without storage.
var ErrNoRepository = errors.New("saving a run requires a placement repository")

// AutoScheduleCommand contains the data needed to run the scheduler once.
type AutoScheduleCommand struct {
	Tasks    []domain.Task
	TimeMaps []domain.TimeMap
	// Busy is committed time known up front, added to calendar busy time.
	Busy []domain.Interval
	// Pinned placements are merged with the stored pinned placements.
	Pinned      []domain.Placement
	HorizonDays int
	// Now defaults to the current time.
	Now time.Time
	// Save stores the run and publishes a RunCompleted event.
	Save bool
}

// CommandName implements application.Command.
func (AutoScheduleCommand) CommandName() string { return "scheduling.auto_schedule" }

// AutoScheduleResult contains the result of a scheduling run.
type AutoScheduleResult struct {
	RunID         uuid.UUID
	Now           time.Time
	Schedule      *domain.ScheduleResult
	PinnedDropped []services.PinnedDrop
	BusyIntervals int
	FailedSources []string
	Saved         bool
	Duration      time.Duration
}

// BusyProvider supplies calendar busy time for a window.
type BusyProvider interface {
	Busy(ctx context.Context, start, end time.Time) (*calendarApp.BusyResult, error)
}

var _ sharedApplication.CommandHandler[AutoScheduleCommand, *AutoScheduleResult] = (*AutoScheduleHandler)(nil)

// AutoScheduleHandler handles the AutoScheduleCommand.
type AutoScheduleHandler struct {
	engine    *services.SchedulerEngine
	repo      domain.PlacementRepository
	uow       sharedApplication.UnitOfWork
	busy      BusyProvider
	lock      domain.RunLock
	publisher eventbus.Publisher
	metrics   observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewAutoScheduleHandler creates a new AutoScheduleHandler. repo, uow, busy,
// lock and publisher may be nil; a nil repo limits the handler to dry runs.
func NewAutoScheduleHandler(
	engine *services.SchedulerEngine,
	repo domain.PlacementRepository,
	uow sharedApplication.UnitOfWork,
	busy BusyProvider,
	lock domain.RunLock,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *AutoScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = services.NewSchedulerEngine(services.DefaultSchedulerConfig())
	}
	return &AutoScheduleHandler{
		engine:    engine,
		repo:      repo,
		uow:       uow,
		busy:      busy,
		lock:      lock,
		publisher: publisher,
		metrics:   observability.NoopMetrics{},
		logger:    logger,
		now:       time.Now,
	}
}

// WithMetrics records run counters on m.
func (h *AutoScheduleHandler) WithMetrics(m observability.Metrics) *AutoScheduleHandler {
	if m != nil {
		h.metrics = m
	}
	return h
}

// Handle executes the AutoScheduleCommand.
func (h *AutoScheduleHandler) Handle(ctx context.Context, cmd AutoScheduleCommand) (*AutoScheduleResult, error) {
	if cmd.HorizonDays < 0 {
		return nil, fmt.Errorf("%w: %d days", domain.ErrInvalidHorizon, cmd.HorizonDays)
	}
	if cmd.Save && h.repo == nil {
		return nil, ErrNoRepository
	}
	now := cmd.Now
	if now.IsZero() {
		now = h.now()
	}
	runID := uuid.New()
	ctx = observability.WithRunID(ctx, runID.String())

	mode := "dry"
	if cmd.Save {
		mode = "save"
	}
	timer := observability.StartTimer("scheduling.run").
		WithContext(ctx).
		WithLogger(h.logger).
		WithMetrics(h.metrics).
		WithTags(observability.T("mode", mode))

	if cmd.Save && h.lock != nil {
		release, err := h.lock.Acquire(ctx)
		if err != nil {
			timer.StopWithError(err)
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				h.logger.WarnContext(ctx, "failed to release run lock", "error", err)
			}
		}()
	}

	result, err := h.run(ctx, runID, cmd, now)
	result.Duration = timer.StopWithError(err)
	if err != nil {
		return nil, err
	}

	if result.Saved {
		h.publishCompleted(ctx, result, cmd.HorizonDays)
	}

	h.logger.InfoContext(ctx, "auto-schedule completed",
		"command", sharedApplication.Named(cmd),
		"placed", len(result.Schedule.Placements),
		"unscheduled", len(result.Schedule.Unscheduled),
		"ignored", len(result.Schedule.Ignored),
		"deferred", len(result.Schedule.Deferred),
		"pinned_dropped", len(result.PinnedDropped),
		"failed_sources", len(result.FailedSources),
		"saved", result.Saved,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (h *AutoScheduleHandler) run(ctx context.Context, runID uuid.UUID, cmd AutoScheduleCommand, now time.Time) (*AutoScheduleResult, error) {
	result := &AutoScheduleResult{RunID: runID, Now: now}

	pinned := cmd.Pinned
	if h.repo != nil {
		stored, err := h.repo.ListPinned(ctx)
		if err != nil {
			return result, fmt.Errorf("load pinned placements: %w", err)
		}
		pinned = mergePinned(cmd.Pinned, stored)
	}

	busy := append([]domain.Interval(nil), cmd.Busy...)
	if h.busy != nil {
		end := domain.HorizonEnd(now, cmd.HorizonDays)
		fetched, err := observability.TimeOperationResult(ctx, h.logger, h.metrics, "calendar.busy",
			func(ctx context.Context) (*calendarApp.BusyResult, error) {
				return h.busy.Busy(ctx, now, end)
			})
		if err != nil {
			return result, fmt.Errorf("fetch busy time: %w", err)
		}
		busy = append(busy, fetched.Intervals...)
		result.FailedSources = fetched.Failed
		if len(fetched.Failed) > 0 {
			h.metrics.Counter(observability.MetricBusySourceFailure, int64(len(fetched.Failed)))
		}
	}
	result.BusyIntervals = len(busy)

	kept, dropped := services.FilterPinned(pinned, cmd.Tasks, now)
	for _, d := range dropped {
		h.logger.DebugContext(ctx, "dropping pinned placement", "task_id", d.Placement.TaskID, "start", d.Placement.Start, "reason", d.Reason)
	}
	result.PinnedDropped = dropped

	schedule, err := h.engine.Schedule(services.ScheduleInput{
		Tasks:       cmd.Tasks,
		TimeMaps:    cmd.TimeMaps,
		Busy:        busy,
		HorizonDays: cmd.HorizonDays,
		Now:         now,
		Pinned:      kept,
	})
	if err != nil {
		return result, err
	}
	result.Schedule = schedule
	h.recordCounts(result)

	if !cmd.Save {
		return result, nil
	}

	run := domain.Run{
		ID:          result.RunID,
		Now:         now,
		HorizonDays: cmd.HorizonDays,
		Result:      *schedule,
		CreatedAt:   h.now().UTC(),
	}
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		return h.repo.SaveRun(txCtx, run)
	})
	if err != nil {
		return result, fmt.Errorf("save run: %w", err)
	}
	result.Saved = true
	return result, nil
}

func (h *AutoScheduleHandler) recordCounts(result *AutoScheduleResult) {
	s := result.Schedule
	h.metrics.Counter(observability.MetricRunPlaced, int64(len(s.Placements)))
	h.metrics.Counter(observability.MetricRunUnscheduled, int64(len(s.Unscheduled)))
	h.metrics.Counter(observability.MetricRunIgnored, int64(len(s.Ignored)))
	h.metrics.Counter(observability.MetricRunDeferred, int64(len(s.Deferred)))
	h.metrics.Counter(observability.MetricRunPinnedDrops, int64(len(result.PinnedDropped)))
	h.metrics.Gauge(observability.MetricBusyIntervals, float64(result.BusyIntervals))
}

// publishCompleted announces a stored run. The run is already committed, so
// a publish failure is logged and not returned.
func (h *AutoScheduleHandler) publishCompleted(ctx context.Context, result *AutoScheduleResult, horizonDays int) {
	if h.publisher == nil {
		return
	}
	event := domain.NewRunCompleted(result.RunID, result.Now, h.now(), horizonDays, result.Schedule)
	sharedApplication.ApplyEventMetadata(
		sharedApplication.NewEventMetadata(observability.CorrelationIDFromContext(ctx), result.RunID),
		&event,
	)
	if err := eventbus.PublishEvent(ctx, h.publisher, &event); err != nil {
		h.logger.WarnContext(ctx, "failed to publish run event", "error", err)
		return
	}
	h.metrics.Counter(observability.MetricEventsPublished, 1, observability.T("routing_key", event.RoutingKey()))
}

// mergePinned combines explicit and stored pins. An explicit pin replaces a
// stored one for the same occurrence and start.
func mergePinned(explicit, stored []domain.Placement) []domain.Placement {
	type key struct {
		occurrence string
		start      int64
	}
	seen := make(map[key]bool, len(explicit))
	out := make([]domain.Placement, 0, len(explicit)+len(stored))
	for _, p := range explicit {
		seen[key{p.Key(), p.Start.UnixNano()}] = true
		out = append(out, p)
	}
	for _, p := range stored {
		if seen[key{p.Key(), p.Start.UnixNano()}] {
			continue
		}
		out = append(out, p)
	}
	return out
}
