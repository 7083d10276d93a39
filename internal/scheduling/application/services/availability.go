package services

import (
	"fmt"
	"time"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// BuildAvailability expands the weekly rules of every TimeMap into concrete
// intervals between now and horizonEnd and subtracts the busy intervals.
// The result is sorted by start time.
func BuildAvailability(
	timeMaps []schedulingDomain.TimeMap,
	busy []schedulingDomain.Interval,
	now, horizonEnd time.Time,
) ([]schedulingDomain.Interval, error) {
	for _, b := range busy {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("busy interval: %w", err)
		}
	}

	free := ExpandTimeMaps(timeMaps, now, horizonEnd)
	return schedulingDomain.SubtractAll(free, busy), nil
}

// ExpandTimeMaps turns weekly rules into dated intervals clipped to
// [now, horizonEnd]. Empty and past intervals are dropped.
func ExpandTimeMaps(timeMaps []schedulingDomain.TimeMap, now, horizonEnd time.Time) []schedulingDomain.Interval {
	var out []schedulingDomain.Interval
	if horizonEnd.Before(now) {
		return out
	}

	for _, tm := range timeMaps {
		for day := schedulingDomain.StartOfDay(now); !day.After(horizonEnd); day = schedulingDomain.AddDays(day, 1) {
			for _, rule := range tm.RulesFor(day.Weekday()) {
				iv := rule.On(day, tm.ID)
				iv.Start = schedulingDomain.MaxTime(iv.Start, now)
				iv.End = schedulingDomain.MinTime(iv.End, horizonEnd)
				if !iv.End.After(iv.Start) {
					continue
				}
				out = append(out, iv)
			}
		}
	}

	schedulingDomain.SortIntervals(out)
	return out
}
