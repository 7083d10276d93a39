package domain

import (
	"time"
)

// ScheduleMode controls how the subtasks of a parent are ordered.
type ScheduleMode string

const (
	ModeParallel         ScheduleMode = "parallel"
	ModeSequential       ScheduleMode = "sequential"
	ModeSequentialSingle ScheduleMode = "sequential-single"
)

// IsSequential reports whether children must run one after another.
func (m ScheduleMode) IsSequential() bool {
	return m == ModeSequential || m == ModeSequentialSingle
}

// Task is the caller-owned description of work to place on the calendar.
// The engine only reads it.
type Task struct {
	ID         string
	LegacyID   string
	Title      string
	Section    string
	Subsection string

	DurationMinutes int
	MinBlockMinutes int
	Priority        int
	TimeMapIDs      []string

	Deadline      *time.Time
	EarliestStart *time.Time
	Recurrence    Recurrence

	ParentID     string
	ScheduleMode ScheduleMode
	Order        *int

	CompletedOccurrences []string
	Completed            bool
}

// OccurrenceKey returns the identifier used as the prefix of occurrence IDs.
func (t Task) OccurrenceKey() string {
	if t.ID != "" {
		return t.ID
	}
	return t.LegacyID
}

// Repeats reports whether the task has a recurrence rule.
func (t Task) Repeats() bool {
	return t.Recurrence != nil
}

// EligibleFor reports whether the task may be placed in the given TimeMap.
// A task without explicit TimeMaps is eligible everywhere.
func (t Task) EligibleFor(timeMapID string) bool {
	if len(t.TimeMapIDs) == 0 {
		return true
	}
	for _, id := range t.TimeMapIDs {
		if id == timeMapID {
			return true
		}
	}
	return false
}

// Normalization defaults and limits.
const (
	DefaultDurationMinutes = 30
	MinDurationMinutes     = 15
	DurationStepMinutes    = 5
	DefaultMinBlockMinutes = 30
	MinBlockFloorMinutes   = 15
	DefaultPriority        = 3
	MinPriority            = 1
	MaxPriority            = 5
)

// NormalizedTask is a Task with every scheduling field resolved.
type NormalizedTask struct {
	Task
	Duration      time.Duration
	MinBlock      time.Duration
	Priority      int
	Deadline      time.Time
	EarliestStart time.Time
	HasDeadline   bool
}

// NormalizeTask fills in defaults and clamps values to valid ranges. Missing
// deadlines fall back to horizonEnd and missing start times to now.
func NormalizeTask(t Task, now, horizonEnd time.Time) NormalizedTask {
	duration := t.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}
	if duration < MinDurationMinutes {
		duration = MinDurationMinutes
	}
	if rem := duration % DurationStepMinutes; rem != 0 {
		duration += DurationStepMinutes - rem
	}

	minBlock := t.MinBlockMinutes
	if minBlock <= 0 {
		minBlock = DefaultMinBlockMinutes
	}
	if minBlock < MinBlockFloorMinutes {
		minBlock = MinBlockFloorMinutes
	}
	if minBlock > duration {
		minBlock = duration
	}

	priority := t.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	if priority < MinPriority {
		priority = MinPriority
	}
	if priority > MaxPriority {
		priority = MaxPriority
	}

	n := NormalizedTask{
		Task:          t,
		Duration:      time.Duration(duration) * time.Minute,
		MinBlock:      time.Duration(minBlock) * time.Minute,
		Priority:      priority,
		Deadline:      horizonEnd,
		EarliestStart: now,
	}
	if t.Deadline != nil && !t.Deadline.IsZero() {
		n.Deadline = *t.Deadline
		n.HasDeadline = true
	}
	if t.EarliestStart != nil && !t.EarliestStart.IsZero() {
		n.EarliestStart = *t.EarliestStart
	}
	return n
}
