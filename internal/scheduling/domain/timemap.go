package domain

import (
	"fmt"
	"time"
)

// AvailabilityRule is one weekly availability window. Start and End are
// minutes since midnight; End may be MinutesPerDay.
type AvailabilityRule struct {
	Weekday time.Weekday
	Start   int
	End     int
}

// Valid reports whether the rule describes a non-empty window inside one day.
func (r AvailabilityRule) Valid() bool {
	return r.Weekday >= time.Sunday && r.Weekday <= time.Saturday &&
		r.Start >= 0 && r.End <= MinutesPerDay && r.End > r.Start
}

// On returns the concrete interval of the rule on the given day.
func (r AvailabilityRule) On(day time.Time, sourceID string) Interval {
	day = StartOfDay(day)
	return Interval{
		SourceID: sourceID,
		Start:    AtMinute(day, r.Start),
		End:      AtMinute(day, r.End),
	}
}

// TimeMap is a named set of weekly availability rules.
type TimeMap struct {
	ID    string
	Name  string
	Rules []AvailabilityRule
}

// RulesFor returns the valid rules that apply on the given weekday.
func (tm TimeMap) RulesFor(wd time.Weekday) []AvailabilityRule {
	var rules []AvailabilityRule
	for _, r := range tm.Rules {
		if r.Weekday == wd && r.Valid() {
			rules = append(rules, r)
		}
	}
	return rules
}

// LegacyTimeMap is the older single-window form: a list of days sharing one
// start and end time.
type LegacyTimeMap struct {
	ID    string
	Name  string
	Days  []time.Weekday
	Start string
	End   string
}

// ToTimeMap converts the legacy form into per-day rules.
func (l LegacyTimeMap) ToTimeMap() (TimeMap, error) {
	start, err := ParseTimeOfDay(l.Start)
	if err != nil {
		return TimeMap{}, fmt.Errorf("timemap %s start: %w", l.ID, err)
	}
	end, err := ParseTimeOfDay(l.End)
	if err != nil {
		return TimeMap{}, fmt.Errorf("timemap %s end: %w", l.ID, err)
	}

	tm := TimeMap{ID: l.ID, Name: l.Name}
	for _, d := range NormalizeWeekdays(l.Days) {
		tm.Rules = append(tm.Rules, AvailabilityRule{Weekday: d, Start: start, End: end})
	}
	return tm, nil
}
