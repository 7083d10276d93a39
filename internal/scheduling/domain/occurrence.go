package domain

import (
	"fmt"
	"time"
)

// maxOccurrenceSteps bounds every generator loop independently of the
// horizon. Daily and weekly loops jump over whole periods before now first.
const maxOccurrenceSteps = 10000

// Occurrence is one concrete deadline of a task.
type Occurrence struct {
	ID          string
	TaskID      string
	Index       int
	Deadline    time.Time
	WindowStart *time.Time
}

// OccurrenceID builds the identifier of the index-th occurrence of a task.
func OccurrenceID(taskKey string, index int) string {
	return fmt.Sprintf("%s-occ-%d", taskKey, index)
}

// occurrenceContext is the state shared by the per-unit generators.
type occurrenceContext struct {
	task     NormalizedTask
	now      time.Time
	anchor   time.Time
	limit    time.Time
	interval int
	maxCount int // 0 means unbounded

	ordinal int
	out     []Occurrence
}

// accept counts a candidate from the anchor and emits it when it lies in
// [now, limit]. It returns false once the count limit is reached.
func (c *occurrenceContext) accept(deadline time.Time, windowStart *time.Time) bool {
	if c.maxCount > 0 && c.ordinal >= c.maxCount {
		return false
	}
	index := c.ordinal
	c.ordinal++

	if deadline.Before(c.now) || deadline.After(c.limit) {
		return true
	}
	c.out = append(c.out, Occurrence{
		ID:          OccurrenceID(c.task.OccurrenceKey(), index),
		TaskID:      c.task.ID,
		Index:       index,
		Deadline:    deadline,
		WindowStart: windowStart,
	})
	return true
}

// skip counts n candidates that all end before now. It returns false when
// the count limit is used up by them.
func (c *occurrenceContext) skip(n int) bool {
	if c.maxCount > 0 && c.ordinal+n >= c.maxCount {
		c.ordinal = c.maxCount
		return false
	}
	c.ordinal += n
	return true
}

// periodsBefore is how many whole periods of periodDays*interval days fit
// between the anchor period starting at from and the one containing now.
func (c *occurrenceContext) periodsBefore(from time.Time, periodDays int) int {
	days := DaysBetween(from, StartOfDay(c.now))
	if days <= 0 {
		return 0
	}
	return days / (periodDays * c.interval)
}

func (c *occurrenceContext) done() bool {
	return c.maxCount > 0 && c.ordinal >= c.maxCount
}

// GenerateOccurrences expands a task's recurrence into the ordered deadlines
// that fall within [now, horizonEnd].
func GenerateOccurrences(task NormalizedTask, now, horizonEnd time.Time) []Occurrence {
	if task.Recurrence == nil {
		return singleOccurrence(task, now, horizonEnd)
	}

	anchorSource := now
	switch {
	case task.Task.EarliestStart != nil && !task.Task.EarliestStart.IsZero():
		anchorSource = *task.Task.EarliestStart
	case task.Task.Deadline != nil && !task.Task.Deadline.IsZero():
		anchorSource = *task.Task.Deadline
	}

	ctx := &occurrenceContext{
		task:     task,
		now:      now,
		anchor:   StartOfDay(anchorSource.In(now.Location())),
		limit:    horizonEnd,
		interval: task.Recurrence.Interval(),
	}

	end := task.Recurrence.Ends()
	switch end.Kind {
	case EndOn:
		if !end.On.IsZero() {
			ctx.limit = MinTime(horizonEnd, EndOfDay(end.On.In(now.Location())))
		}
	case EndAfter:
		if end.Count > 0 {
			ctx.maxCount = end.Count
		}
	}
	if ctx.limit.Before(ctx.anchor) {
		return nil
	}

	switch rule := task.Recurrence.(type) {
	case DailyRecurrence:
		generateDaily(ctx)
	case WeeklyRecurrence:
		generateWeekly(ctx, rule)
	case MonthlyRecurrence:
		generateMonthly(ctx, rule)
	case YearlyRecurrence:
		generateYearly(ctx, rule)
	default:
		// UnknownRecurrence and anything else outside the closed set
		// intentionally produce no occurrences.
		return nil
	}
	return ctx.out
}

func singleOccurrence(task NormalizedTask, now, horizonEnd time.Time) []Occurrence {
	deadline := horizonEnd
	if task.HasDeadline {
		deadline = task.Deadline
	}
	if deadline.Before(now) || deadline.After(horizonEnd) {
		return nil
	}
	return []Occurrence{{
		TaskID:   task.ID,
		Deadline: deadline,
	}}
}

func generateDaily(ctx *occurrenceContext) {
	day := ctx.anchor
	if n := ctx.periodsBefore(day, 1); n > 0 {
		if !ctx.skip(n) {
			return
		}
		day = AddDays(day, n*ctx.interval)
	}
	for step := 0; step < maxOccurrenceSteps && !day.After(ctx.limit); step++ {
		if !ctx.accept(EndOfDay(day), nil) {
			return
		}
		day = AddDays(day, ctx.interval)
	}
}

func generateWeekly(ctx *occurrenceContext, rule WeeklyRecurrence) {
	week := StartOfWeek(ctx.anchor)
	skipped := ctx.periodsBefore(week, 7)

	if rule.AnyDayInWeek {
		if skipped > 0 {
			if !ctx.skip(skipped) {
				return
			}
			week = AddDays(week, 7*skipped*ctx.interval)
		}
		for step := 0; step < maxOccurrenceSteps && !week.After(ctx.limit); step++ {
			windowStart := MaxTime(week, ctx.anchor)
			deadline := MinTime(EndOfDay(AddDays(week, 6)), ctx.limit)
			if !deadline.Before(windowStart) {
				ws := windowStart
				if !ctx.accept(deadline, &ws) {
					return
				}
			}
			week = AddDays(week, 7*ctx.interval)
		}
		return
	}

	days := NormalizeWeekdays(rule.Weekdays)
	if len(days) == 0 {
		days = []time.Weekday{ctx.anchor.Weekday()}
	}

	if skipped > 0 {
		// The anchor week only counts the days from the anchor on.
		first := 0
		for _, wd := range days {
			if wd >= ctx.anchor.Weekday() {
				first++
			}
		}
		if !ctx.skip(first + (skipped-1)*len(days)) {
			return
		}
		week = AddDays(week, 7*skipped*ctx.interval)
	}

	for step := 0; step < maxOccurrenceSteps && !week.After(ctx.limit); step++ {
		for _, wd := range days {
			day := AddDays(week, int(wd))
			if day.Before(ctx.anchor) {
				continue
			}
			if day.After(ctx.limit) {
				return
			}
			if !ctx.accept(EndOfDay(day), nil) {
				return
			}
		}
		week = AddDays(week, 7*ctx.interval)
	}
}

func generateMonthly(ctx *occurrenceContext, rule MonthlyRecurrence) {
	loc := ctx.anchor.Location()
	year, month := ctx.anchor.Year(), ctx.anchor.Month()

	for step := 0; step < maxOccurrenceSteps && !ctx.done(); step++ {
		monthStart := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		if monthStart.After(ctx.limit) {
			return
		}

		var (
			day         time.Time
			windowStart *time.Time
			ok          = true
		)
		switch rule.Mode {
		case MonthlyByNthWeekday:
			day, ok = NthWeekdayOfMonth(year, month, rule.Weekday, rule.Nth, loc)
		case MonthlyByRange:
			start := DateIn(year, month, rule.RangeStart, loc)
			day = DateIn(year, month, rule.RangeEnd, loc)
			if day.Before(start) {
				day = start
			}
			ws := MaxTime(start, ctx.anchor)
			windowStart = &ws
		default:
			dom := rule.Day
			if dom == 0 {
				dom = ctx.anchor.Day()
			}
			day = DateIn(year, month, dom, loc)
		}

		if ok && !day.Before(ctx.anchor) {
			if day.After(ctx.limit) {
				return
			}
			if !ctx.accept(EndOfDay(day), windowStart) {
				return
			}
		}

		month += time.Month(ctx.interval)
		for month > 12 {
			month -= 12
			year++
		}
	}
}

func generateYearly(ctx *occurrenceContext, rule YearlyRecurrence) {
	loc := ctx.anchor.Location()
	year := ctx.anchor.Year()

	target := MonthDay{Month: rule.Month, Day: rule.Day}
	if rule.Range {
		target = rule.RangeEnd
	}
	if target.Month < time.January || target.Month > time.December {
		target.Month = ctx.anchor.Month()
	}
	if target.Day == 0 {
		target.Day = ctx.anchor.Day()
	}

	for step := 0; step < maxOccurrenceSteps && !ctx.done(); step++ {
		if time.Date(year, time.January, 1, 0, 0, 0, 0, loc).After(ctx.limit) {
			return
		}

		day := target.In(year, loc)
		var windowStart *time.Time
		if rule.Range {
			startYear := year
			if rule.Wraps() {
				startYear--
			}
			ws := MaxTime(rule.RangeStart.In(startYear, loc), ctx.anchor)
			windowStart = &ws
		}

		if !day.Before(ctx.anchor) {
			if day.After(ctx.limit) {
				return
			}
			if !ctx.accept(EndOfDay(day), windowStart) {
				return
			}
		}
		year += ctx.interval
	}
}
