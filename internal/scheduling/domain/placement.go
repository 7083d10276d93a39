package domain

import (
	"sort"
	"time"
)

// Placement is one scheduled block of a task occurrence.
type Placement struct {
	TaskID       string
	OccurrenceID string // empty for non-repeating tasks
	TimeMapID    string
	Start        time.Time
	End          time.Time
	Pinned       bool
}

// Duration returns the placement length.
func (p Placement) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Interval returns the time span the placement occupies.
func (p Placement) Interval() Interval {
	return Interval{SourceID: p.TimeMapID, Start: p.Start, End: p.End}
}

// Key identifies the task occurrence the placement belongs to.
func (p Placement) Key() string {
	if p.OccurrenceID != "" {
		return p.OccurrenceID
	}
	return p.TaskID
}

// SortPlacements orders placements by start, then time map, then task.
func SortPlacements(placements []Placement) {
	sort.SliceStable(placements, func(i, j int) bool {
		a, b := placements[i], placements[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.TimeMapID != b.TimeMapID {
			return a.TimeMapID < b.TimeMapID
		}
		return a.TaskID < b.TaskID
	})
}

// ScheduleResult is the output of one engine run.
type ScheduleResult struct {
	Placements        []Placement
	Unscheduled       []string
	Ignored           []string
	Deferred          []string
	FreeIntervalCount int
}

// ScheduledCount returns the number of distinct task occurrences placed.
func (r *ScheduleResult) ScheduledCount() int {
	seen := make(map[string]bool, len(r.Placements))
	for _, p := range r.Placements {
		seen[p.TaskID+"|"+p.Key()] = true
	}
	return len(seen)
}

// IDSet collects task IDs once each, in first-seen order.
type IDSet struct {
	seen map[string]bool
	ids  []string
}

// Add records id unless it is already present.
func (s *IDSet) Add(id string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[id] {
		return
	}
	s.seen[id] = true
	s.ids = append(s.ids, id)
}

// Has reports whether id was added.
func (s *IDSet) Has(id string) bool {
	return s.seen[id]
}

// IDs returns the collected IDs. The result is never nil.
func (s *IDSet) IDs() []string {
	if s.ids == nil {
		return []string{}
	}
	return s.ids
}
