package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrRunNotFound = errors.New("scheduling run not found")

// Run is a stored scheduling run.
type Run struct {
	ID          uuid.UUID
	Now         time.Time
	HorizonDays int
	Result      ScheduleResult
	CreatedAt   time.Time
}

// PlacementRepository persists the output of scheduling runs.
type PlacementRepository interface {
	// SaveRun stores a run and replaces every non-pinned future placement
	// with the run's placements.
	SaveRun(ctx context.Context, run Run) error

	// LatestRun returns the most recent run, or ErrRunNotFound.
	LatestRun(ctx context.Context) (*Run, error)

	// ListPlacements returns stored placements overlapping [from, to).
	ListPlacements(ctx context.Context, from, to time.Time) ([]Placement, error)

	// ListPinned returns placements flagged as pinned.
	ListPinned(ctx context.Context) ([]Placement, error)
}

var ErrRunLocked = errors.New("another scheduling run is in progress")

// ReleaseFunc releases an acquired run lock.
type ReleaseFunc func(ctx context.Context) error

// RunLock serializes scheduling runs that write placements.
type RunLock interface {
	// Acquire takes the lock or returns ErrRunLocked.
	Acquire(ctx context.Context) (ReleaseFunc, error)
}
