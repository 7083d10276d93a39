package services

import (
	"errors"
	"fmt"
	"time"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

var ErrMissingNow = errors.New("scheduling run needs a current instant")

// ScheduleInput is everything one engine run reads.
type ScheduleInput struct {
	Tasks       []schedulingDomain.Task
	TimeMaps    []schedulingDomain.TimeMap
	Busy        []schedulingDomain.Interval
	HorizonDays int
	Now         time.Time

	// Pinned placements are kept as they are and block their time.
	Pinned []schedulingDomain.Placement
	// PinnedIDs are task or occurrence IDs that must not be allocated.
	PinnedIDs []string
}

// SchedulerConfig contains configuration for the scheduler.
type SchedulerConfig struct {
	// MaxHorizonDays caps the horizon so every loop stays bounded.
	MaxHorizonDays int
}

// DefaultSchedulerConfig returns a default configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxHorizonDays: 366,
	}
}

// SchedulerEngine assigns task occurrences to free time. It keeps no state
// between calls and performs no I/O.
type SchedulerEngine struct {
	config SchedulerConfig
}

// NewSchedulerEngine creates a new scheduler engine.
func NewSchedulerEngine(config SchedulerConfig) *SchedulerEngine {
	if config.MaxHorizonDays <= 0 {
		config.MaxHorizonDays = DefaultSchedulerConfig().MaxHorizonDays
	}
	return &SchedulerEngine{
		config: config,
	}
}

// Schedule runs the full pipeline: candidate collection, availability,
// sequential ordering and greedy allocation.
func (e *SchedulerEngine) Schedule(in ScheduleInput) (*schedulingDomain.ScheduleResult, error) {
	if in.HorizonDays < 0 {
		return nil, fmt.Errorf("%w: %d days", schedulingDomain.ErrInvalidHorizon, in.HorizonDays)
	}
	if in.Now.IsZero() {
		return nil, ErrMissingNow
	}
	for _, p := range in.Pinned {
		if err := p.Interval().Validate(); err != nil {
			return nil, fmt.Errorf("pinned placement %s: %w", p.TaskID, err)
		}
	}

	horizon := in.HorizonDays
	if horizon > e.config.MaxHorizonDays {
		horizon = e.config.MaxHorizonDays
	}
	now := in.Now
	horizonEnd := schedulingDomain.HorizonEnd(now, horizon)

	blocked := make([]schedulingDomain.Interval, 0, len(in.Busy)+len(in.Pinned))
	blocked = append(blocked, in.Busy...)
	for _, p := range in.Pinned {
		blocked = append(blocked, p.Interval())
	}
	free, err := BuildAvailability(in.TimeMaps, blocked, now, horizonEnd)
	if err != nil {
		return nil, err
	}

	pinnedIDs := make(map[string]bool, len(in.PinnedIDs)+len(in.Pinned))
	for _, id := range in.PinnedIDs {
		pinnedIDs[id] = true
	}
	for _, p := range in.Pinned {
		pinnedIDs[p.Key()] = true
	}

	resolver := NewSequenceResolver(in.Tasks)
	collection := NewCandidateCollector(now, horizonEnd, pinnedIDs).Collect(in.Tasks, resolver)

	allocator := NewAllocator()
	allocator.SeedPinned(in.Pinned, resolver)
	allocation := allocator.Allocate(collection.Candidates, free)

	placements := make([]schedulingDomain.Placement, 0, len(in.Pinned)+len(allocation.Placements))
	for _, p := range in.Pinned {
		p.Pinned = true
		placements = append(placements, p)
	}
	placements = append(placements, allocation.Placements...)
	schedulingDomain.SortPlacements(placements)

	unscheduled := collection.Unscheduled
	for _, id := range allocation.Unscheduled.IDs() {
		unscheduled.Add(id)
	}

	return &schedulingDomain.ScheduleResult{
		Placements:        placements,
		Unscheduled:       unscheduled.IDs(),
		Ignored:           collection.Ignored.IDs(),
		Deferred:          allocation.Deferred.IDs(),
		FreeIntervalCount: len(free),
	}, nil
}
