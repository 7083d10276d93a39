package domain

import (
	"sort"
	"strings"
	"time"
)

// Unit names the repeat unit of a recurrence.
type Unit string

const (
	UnitNone  Unit = "none"
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// EndKind describes when a recurrence stops producing occurrences.
type EndKind string

const (
	EndNever EndKind = "never"
	EndOn    EndKind = "on"
	EndAfter EndKind = "after"
)

// RecurrenceEnd is the end condition of a recurrence.
type RecurrenceEnd struct {
	Kind  EndKind
	On    time.Time // used when Kind is EndOn
	Count int       // used when Kind is EndAfter
}

// Recurrence is a repeat rule. The set of implementations is closed: daily,
// weekly, monthly, yearly and UnknownRecurrence. A nil Recurrence means the
// task does not repeat.
type Recurrence interface {
	Unit() Unit
	Interval() int
	Ends() RecurrenceEnd
	isRecurrence()
}

// RecurrenceBase carries the fields shared by every repeat unit.
type RecurrenceBase struct {
	Every int
	End   RecurrenceEnd
}

// Interval returns the step between occurrences, never below 1.
func (b RecurrenceBase) Interval() int {
	if b.Every < 1 {
		return 1
	}
	return b.Every
}

// Ends returns the end condition.
func (b RecurrenceBase) Ends() RecurrenceEnd { return b.End }

func (RecurrenceBase) isRecurrence() {}

// DailyRecurrence repeats every Interval days.
type DailyRecurrence struct {
	RecurrenceBase
}

func (DailyRecurrence) Unit() Unit { return UnitDay }

// WeeklyRecurrence repeats on a set of weekdays every Interval weeks. With
// AnyDayInWeek the whole week is one occurrence that can be satisfied on any day.
type WeeklyRecurrence struct {
	RecurrenceBase
	Weekdays     []time.Weekday
	AnyDayInWeek bool
}

func (WeeklyRecurrence) Unit() Unit { return UnitWeek }

// MonthlyMode selects how a monthly recurrence picks its day.
type MonthlyMode string

const (
	MonthlyByDay        MonthlyMode = "day"
	MonthlyByNthWeekday MonthlyMode = "nth-weekday"
	MonthlyByRange      MonthlyMode = "range"
)

// MonthlyRecurrence repeats every Interval months.
type MonthlyRecurrence struct {
	RecurrenceBase
	Mode       MonthlyMode
	Day        int // MonthlyByDay, clamped to the month length; negative counts from the end
	Nth        int // MonthlyByNthWeekday: 1..5 or -1 for last
	Weekday    time.Weekday
	RangeStart int // MonthlyByRange: first day of the window
	RangeEnd   int // MonthlyByRange: last day of the window
}

func (MonthlyRecurrence) Unit() Unit { return UnitMonth }

// MonthDay is a month and day without a year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// Before reports whether md comes earlier in the year than other.
func (md MonthDay) Before(other MonthDay) bool {
	if md.Month != other.Month {
		return md.Month < other.Month
	}
	return md.Day < other.Day
}

// In returns the start of the day md in the given year.
func (md MonthDay) In(year int, loc *time.Location) time.Time {
	return DateIn(year, md.Month, md.Day, loc)
}

// YearlyRecurrence repeats every Interval years on a fixed month and day, or
// across a month-day range when Range is set. A range whose end precedes its
// start wraps across the year boundary.
type YearlyRecurrence struct {
	RecurrenceBase
	Month      time.Month
	Day        int
	Range      bool
	RangeStart MonthDay
	RangeEnd   MonthDay
}

func (YearlyRecurrence) Unit() Unit { return UnitYear }

// Wraps reports whether the yearly range crosses the year boundary.
func (r YearlyRecurrence) Wraps() bool {
	return r.Range && r.RangeEnd.Before(r.RangeStart)
}

// UnknownRecurrence holds a repeat unit this engine does not support. It is a
// deliberate fallback: generating occurrences for it yields nothing.
type UnknownRecurrence struct {
	RecurrenceBase
	Name string
}

func (r UnknownRecurrence) Unit() Unit { return Unit(r.Name) }

// IsWindowed reports whether any day inside the occurrence's window satisfies it.
func IsWindowed(r Recurrence) bool {
	switch rule := r.(type) {
	case WeeklyRecurrence:
		return rule.AnyDayInWeek
	case MonthlyRecurrence:
		return rule.Mode == MonthlyByRange
	case YearlyRecurrence:
		return rule.Range
	default:
		return false
	}
}

// RecurrenceSpec is the flat, serializable form of a recurrence.
type RecurrenceSpec struct {
	Unit         string   `yaml:"unit" json:"unit"`
	Interval     int      `yaml:"interval,omitempty" json:"interval,omitempty"`
	Weekdays     []string `yaml:"weekdays,omitempty" json:"weekdays,omitempty"`
	AnyDayInWeek bool     `yaml:"any_day_in_week,omitempty" json:"any_day_in_week,omitempty"`
	MonthDay     int      `yaml:"month_day,omitempty" json:"month_day,omitempty"`
	Nth          int      `yaml:"nth,omitempty" json:"nth,omitempty"`
	Weekday      string   `yaml:"weekday,omitempty" json:"weekday,omitempty"`
	RangeStart   int      `yaml:"range_start,omitempty" json:"range_start,omitempty"`
	RangeEnd     int      `yaml:"range_end,omitempty" json:"range_end,omitempty"`
	Month        int      `yaml:"month,omitempty" json:"month,omitempty"`
	StartMonth   int      `yaml:"start_month,omitempty" json:"start_month,omitempty"`
	StartDay     int      `yaml:"start_day,omitempty" json:"start_day,omitempty"`
	EndMonth     int      `yaml:"end_month,omitempty" json:"end_month,omitempty"`
	EndDay       int      `yaml:"end_day,omitempty" json:"end_day,omitempty"`
	EndType      string   `yaml:"end_type,omitempty" json:"end_type,omitempty"`
	EndDate      string   `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	EndCount     int      `yaml:"end_count,omitempty" json:"end_count,omitempty"`
}

// Build converts s into a Recurrence. It returns nil for "none" or an
// empty unit; unsupported units become UnknownRecurrence.
func (s RecurrenceSpec) Build(loc *time.Location) Recurrence {
	base := RecurrenceBase{Every: s.Interval, End: s.buildEnd(loc)}

	switch Unit(strings.ToLower(strings.TrimSpace(s.Unit))) {
	case "", UnitNone:
		return nil
	case UnitDay:
		return DailyRecurrence{RecurrenceBase: base}
	case UnitWeek:
		days := make([]time.Weekday, 0, len(s.Weekdays))
		for _, name := range s.Weekdays {
			if wd, ok := ParseWeekday(name); ok {
				days = append(days, wd)
			}
		}
		return WeeklyRecurrence{RecurrenceBase: base, Weekdays: NormalizeWeekdays(days), AnyDayInWeek: s.AnyDayInWeek}
	case UnitMonth:
		rule := MonthlyRecurrence{RecurrenceBase: base, Mode: MonthlyByDay, Day: s.MonthDay}
		switch {
		case s.RangeStart != 0 && s.RangeEnd != 0:
			rule.Mode = MonthlyByRange
			rule.RangeStart, rule.RangeEnd = s.RangeStart, s.RangeEnd
		case s.Nth != 0:
			if wd, ok := ParseWeekday(s.Weekday); ok {
				rule.Mode = MonthlyByNthWeekday
				rule.Nth, rule.Weekday = s.Nth, wd
			}
		}
		return rule
	case UnitYear:
		rule := YearlyRecurrence{RecurrenceBase: base, Month: time.Month(s.Month), Day: s.MonthDay}
		if s.StartMonth > 0 && s.EndMonth > 0 {
			rule.Range = true
			rule.RangeStart = MonthDay{Month: time.Month(s.StartMonth), Day: s.StartDay}
			rule.RangeEnd = MonthDay{Month: time.Month(s.EndMonth), Day: s.EndDay}
		}
		return rule
	default:
		return UnknownRecurrence{RecurrenceBase: base, Name: s.Unit}
	}
}

func (s RecurrenceSpec) buildEnd(loc *time.Location) RecurrenceEnd {
	switch EndKind(strings.ToLower(s.EndType)) {
	case EndOn:
		if on, ok := ParseInstant(s.EndDate, loc); ok {
			return RecurrenceEnd{Kind: EndOn, On: on}
		}
	case EndAfter:
		if s.EndCount > 0 {
			return RecurrenceEnd{Kind: EndAfter, Count: s.EndCount}
		}
	}
	return RecurrenceEnd{Kind: EndNever}
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday, "su": time.Sunday,
	"mon": time.Monday, "monday": time.Monday, "mo": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "tu": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "we": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "th": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "fr": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "sa": time.Saturday,
}

// ParseWeekday parses an English weekday name or abbreviation.
func ParseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

// NormalizeWeekdays sorts and de-duplicates a weekday set.
func NormalizeWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
