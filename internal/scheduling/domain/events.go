package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/autoplan/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	SubjectRun = "SchedulingRun"

	RoutingKeyRunCompleted = "scheduling.run.completed"
)

// RunCompleted is emitted after a scheduling run has been stored.
type RunCompleted struct {
	sharedDomain.EventHeader
	RunID       uuid.UUID `json:"run_id"`
	Now         time.Time `json:"now"`
	HorizonDays int       `json:"horizon_days"`
	Placed      int       `json:"placed"`
	Unscheduled []string  `json:"unscheduled"`
	Ignored     []string  `json:"ignored"`
	Deferred    []string  `json:"deferred"`
}

// NewRunCompleted creates a RunCompleted event for the given result. The
// event is stamped with the run's creation time.
func NewRunCompleted(runID uuid.UUID, now, createdAt time.Time, horizonDays int, result *ScheduleResult) RunCompleted {
	return RunCompleted{
		EventHeader: sharedDomain.NewEventHeader(runID, SubjectRun, RoutingKeyRunCompleted, createdAt),
		RunID:       runID,
		Now:         now,
		HorizonDays: horizonDays,
		Placed:      len(result.Placements),
		Unscheduled: result.Unscheduled,
		Ignored:     result.Ignored,
		Deferred:    result.Deferred,
	}
}
