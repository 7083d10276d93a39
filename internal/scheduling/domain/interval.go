package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrInvalidInterval = errors.New("interval end must be after start")
	ErrInvalidHorizon  = errors.New("horizon must not be negative")
)

// Interval is a half-open span [Start, End). Free intervals carry the ID of
// the TimeMap they came from; busy intervals leave SourceID empty.
type Interval struct {
	SourceID string
	Start    time.Time
	End      time.Time
}

// Duration returns the interval length.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether the two intervals share any time.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Contains checks if a time falls within the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Validate rejects empty and inverted intervals.
func (i Interval) Validate() error {
	if !i.End.After(i.Start) {
		return fmt.Errorf("%w: %s..%s", ErrInvalidInterval, i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
	}
	return nil
}

// Subtract returns the zero, one or two pieces of i left after removing busy.
// The source ID is kept on every piece.
func (i Interval) Subtract(busy Interval) []Interval {
	if !i.Overlaps(busy) {
		return []Interval{i}
	}
	pieces := make([]Interval, 0, 2)
	if busy.Start.After(i.Start) {
		pieces = append(pieces, Interval{SourceID: i.SourceID, Start: i.Start, End: busy.Start})
	}
	if busy.End.Before(i.End) {
		pieces = append(pieces, Interval{SourceID: i.SourceID, Start: busy.End, End: i.End})
	}
	return pieces
}

// SortIntervals orders intervals by start, then source ID, then end.
func SortIntervals(intervals []Interval) {
	sort.SliceStable(intervals, func(a, b int) bool {
		x, y := intervals[a], intervals[b]
		if !x.Start.Equal(y.Start) {
			return x.Start.Before(y.Start)
		}
		if x.SourceID != y.SourceID {
			return x.SourceID < y.SourceID
		}
		return x.End.Before(y.End)
	})
}

// SubtractAll removes every busy interval from free and returns a new sorted
// slice without degenerate pieces. Busy intervals apply to every source.
func SubtractAll(free []Interval, busy []Interval) []Interval {
	out := make([]Interval, 0, len(free))
	for _, f := range free {
		pieces := []Interval{f}
		for _, b := range busy {
			next := make([]Interval, 0, len(pieces)+1)
			for _, p := range pieces {
				next = append(next, p.Subtract(b)...)
			}
			pieces = next
			if len(pieces) == 0 {
				break
			}
		}
		for _, p := range pieces {
			if p.End.After(p.Start) {
				out = append(out, p)
			}
		}
	}
	SortIntervals(out)
	return out
}

// RemoveSpan returns a copy of free where the interval at index has the span
// [start, end) cut out of it. The input slice is not modified.
func RemoveSpan(free []Interval, index int, start, end time.Time) []Interval {
	if index < 0 || index >= len(free) {
		return free
	}
	target := free[index]
	pieces := target.Subtract(Interval{Start: start, End: end})

	out := make([]Interval, 0, len(free)+1)
	out = append(out, free[:index]...)
	for _, p := range pieces {
		if p.End.After(p.Start) {
			out = append(out, p)
		}
	}
	out = append(out, free[index+1:]...)
	return out
}

// TotalDuration sums the lengths of the intervals.
func TotalDuration(intervals []Interval) time.Duration {
	var total time.Duration
	for _, i := range intervals {
		total += i.Duration()
	}
	return total
}
