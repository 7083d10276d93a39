package domain

import (
	"time"
)

// CompletionStore indexes completed-occurrence markers. Markers are either
// full timestamps or YYYY-MM-DD day keys; both forms are matched symmetrically.
type CompletionStore struct {
	loc      *time.Location
	exact    map[int64]struct{}
	days     map[string]struct{}
	instants []time.Time // start of day for day keys, the instant otherwise
}

// NewCompletionStore normalizes raw markers. Unparsable markers are ignored.
func NewCompletionStore(markers []string, loc *time.Location) *CompletionStore {
	if loc == nil {
		loc = time.Local
	}
	s := &CompletionStore{
		loc:   loc,
		exact: make(map[int64]struct{}, len(markers)),
		days:  make(map[string]struct{}, len(markers)),
	}
	for _, marker := range markers {
		s.Add(marker)
	}
	return s
}

// Add records one marker.
func (s *CompletionStore) Add(marker string) {
	if IsDayKey(marker) {
		day, err := time.ParseInLocation(DayKeyLayout, marker, s.loc)
		if err != nil {
			return
		}
		s.days[marker] = struct{}{}
		s.instants = append(s.instants, day)
		return
	}

	t, ok := ParseInstant(marker, s.loc)
	if !ok {
		return
	}
	t = t.In(s.loc)
	s.exact[t.UnixMilli()] = struct{}{}
	s.days[DayKey(t)] = struct{}{}
	s.instants = append(s.instants, t)
}

// Len returns the number of recorded markers.
func (s *CompletionStore) Len() int {
	return len(s.instants)
}

// IsCompleted reports whether the occurrence at date already counts as done.
// For windowed recurrences any completion inside the occurrence's window counts.
func (s *CompletionStore) IsCompleted(date time.Time, rule Recurrence) bool {
	if s == nil || len(s.instants) == 0 {
		return false
	}
	date = date.In(s.loc)

	if _, ok := s.exact[date.UnixMilli()]; ok {
		return true
	}
	if _, ok := s.days[DayKey(date)]; ok {
		return true
	}

	start, end, ok := CompletionWindow(date, rule)
	if !ok {
		return false
	}
	for _, t := range s.instants {
		if !t.Before(start) && !t.After(end) {
			return true
		}
	}
	return false
}

// CompletionWindow returns the window containing date for windowed
// recurrences: the Sunday–Saturday week for weekly any-day rules, the day
// range of the month for monthly ranges and the month-day range for yearly
// ranges. ok is false for rules without a window.
func CompletionWindow(date time.Time, rule Recurrence) (start, end time.Time, ok bool) {
	loc := date.Location()

	switch r := rule.(type) {
	case WeeklyRecurrence:
		if !r.AnyDayInWeek {
			return time.Time{}, time.Time{}, false
		}
		start = StartOfWeek(date)
		return start, EndOfDay(AddDays(start, 6)), true

	case MonthlyRecurrence:
		if r.Mode != MonthlyByRange {
			return time.Time{}, time.Time{}, false
		}
		y, m, _ := date.Date()
		start = DateIn(y, m, r.RangeStart, loc)
		end = EndOfDay(DateIn(y, m, r.RangeEnd, loc))
		if end.Before(start) {
			end = EndOfDay(start)
		}
		return start, end, true

	case YearlyRecurrence:
		if !r.Range {
			return time.Time{}, time.Time{}, false
		}
		y := date.Year()
		if !r.Wraps() {
			return r.RangeStart.In(y, loc), EndOfDay(r.RangeEnd.In(y, loc)), true
		}
		// A wrapping window ends in the year of its end month-day. A date
		// after the end month-day belongs to the window that ends next year.
		endYear := y
		if r.RangeEnd.Before(MonthDay{Month: date.Month(), Day: date.Day()}) {
			endYear = y + 1
		}
		return r.RangeStart.In(endYear-1, loc), EndOfDay(r.RangeEnd.In(endYear, loc)), true
	}

	return time.Time{}, time.Time{}, false
}
