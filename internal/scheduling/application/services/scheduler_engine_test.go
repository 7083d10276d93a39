package services

import (
	"fmt"
	"testing"
	"time"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2026-10-19.
func clock(d, hh, mm int) time.Time {
	return time.Date(2026, time.October, d, hh, mm, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrInt(i int) *int { return &i }

func window(id string, start, end string, days ...time.Weekday) schedulingDomain.TimeMap {
	tm, err := schedulingDomain.LegacyTimeMap{ID: id, Days: days, Start: start, End: end}.ToTimeMap()
	if err != nil {
		panic(err)
	}
	return tm
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func placementsFor(result *schedulingDomain.ScheduleResult, taskID string) []schedulingDomain.Placement {
	var out []schedulingDomain.Placement
	for _, p := range result.Placements {
		if p.TaskID == taskID {
			out = append(out, p)
		}
	}
	return out
}

func TestSchedulerEngine_SplitsAroundBusyBlock(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())

	result, err := engine.Schedule(ScheduleInput{
		Tasks:       []schedulingDomain.Task{{ID: "write", Title: "Write report", DurationMinutes: 60, MinBlockMinutes: 30}},
		TimeMaps:    []schedulingDomain.TimeMap{window("work", "09:00", "12:00", time.Monday)},
		Busy:        []schedulingDomain.Interval{{Start: clock(19, 9, 30), End: clock(19, 10, 0)}},
		HorizonDays: 0,
		Now:         clock(19, 8, 0),
	})
	require.NoError(t, err)

	require.Len(t, result.Placements, 2)
	assert.Equal(t, clock(19, 9, 0), result.Placements[0].Start)
	assert.Equal(t, clock(19, 9, 30), result.Placements[0].End)
	assert.Equal(t, clock(19, 10, 0), result.Placements[1].Start)
	assert.Equal(t, clock(19, 10, 30), result.Placements[1].End)
	assert.Equal(t, "work", result.Placements[0].TimeMapID)
	assert.Empty(t, result.Unscheduled)
	assert.Equal(t, 2, result.FreeIntervalCount)
}

func TestSchedulerEngine_PriorityWinsTheOnlySlot(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())
	deadline := clock(19, 12, 0)

	result, err := engine.Schedule(ScheduleInput{
		Tasks: []schedulingDomain.Task{
			{ID: "low", Title: "Low", DurationMinutes: 60, Priority: 1, Deadline: &deadline},
			{ID: "high", Title: "High", DurationMinutes: 60, Priority: 5, Deadline: &deadline},
		},
		TimeMaps: []schedulingDomain.TimeMap{window("work", "09:00", "10:00", time.Monday)},
		Now:      clock(19, 8, 0),
	})
	require.NoError(t, err)

	require.Len(t, result.Placements, 1)
	assert.Equal(t, "high", result.Placements[0].TaskID)
	assert.Equal(t, []string{"low"}, result.Unscheduled)
}

func TestSchedulerEngine_SequentialChildrenRunInOrder(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())

	result, err := engine.Schedule(ScheduleInput{
		Tasks: []schedulingDomain.Task{
			{ID: "parent", Title: "Launch", ScheduleMode: schedulingDomain.ModeSequential},
			// The second step outranks the first one but must still wait for it.
			{ID: "second", Title: "Alpha", ParentID: "parent", Order: ptrInt(2), DurationMinutes: 60, Priority: 5},
			{ID: "first", Title: "Zulu", ParentID: "parent", Order: ptrInt(1), DurationMinutes: 60},
		},
		TimeMaps: []schedulingDomain.TimeMap{window("work", "09:00", "12:00", time.Monday)},
		Now:      clock(19, 8, 0),
	})
	require.NoError(t, err)

	first := placementsFor(result, "first")
	second := placementsFor(result, "second")
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, clock(19, 9, 0), first[0].Start)
	assert.Equal(t, clock(19, 10, 0), first[0].End)
	assert.Equal(t, clock(19, 10, 0), second[0].Start)
	assert.Equal(t, clock(19, 11, 0), second[0].End)
	assert.Empty(t, placementsFor(result, "parent"))
	assert.NotContains(t, result.Ignored, "parent")
	assert.NotContains(t, result.Unscheduled, "parent")
}

func TestSchedulerEngine_SequentialFailureDefersLaterSiblings(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())

	result, err := engine.Schedule(ScheduleInput{
		Tasks: []schedulingDomain.Task{
			{ID: "parent", ScheduleMode: schedulingDomain.ModeSequential},
			{ID: "big", Title: "A", ParentID: "parent", Order: ptrInt(1), DurationMinutes: 240},
			{ID: "small", Title: "B", ParentID: "parent", Order: ptrInt(2), DurationMinutes: 30},
		},
		TimeMaps: []schedulingDomain.TimeMap{window("work", "09:00", "12:00", time.Monday)},
		Now:      clock(19, 8, 0),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Placements)
	assert.Equal(t, []string{"big"}, result.Unscheduled)
	assert.Equal(t, []string{"small"}, result.Deferred)
}

func TestSchedulerEngine_SequentialSinglePlacesOneChild(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())

	result, err := engine.Schedule(ScheduleInput{
		Tasks: []schedulingDomain.Task{
			{ID: "parent", ScheduleMode: schedulingDomain.ModeSequentialSingle},
			{ID: "a", Title: "a", ParentID: "parent", DurationMinutes: 90, MinBlockMinutes: 15},
			{ID: "b", Title: "b", ParentID: "parent", DurationMinutes: 30},
			{ID: "c", Title: "c", ParentID: "parent", DurationMinutes: 30},
		},
		TimeMaps: []schedulingDomain.TimeMap{window("work", "09:00", "12:00", time.Monday)},
		Busy:     []schedulingDomain.Interval{{Start: clock(19, 10, 0), End: clock(19, 10, 15)}},
		Now:      clock(19, 8, 0),
	})
	require.NoError(t, err)

	// a cannot split under sequential-single, so it takes the first
	// interval long enough for the whole block.
	require.Len(t, result.Placements, 1)
	assert.Equal(t, "a", result.Placements[0].TaskID)
	assert.Equal(t, clock(19, 10, 15), result.Placements[0].Start)
	assert.Equal(t, clock(19, 11, 45), result.Placements[0].End)
	assert.Equal(t, []string{"b", "c"}, result.Deferred)
}

func TestSchedulerEngine_Classification(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())
	now := clock(19, 8, 0)

	result, err := engine.Schedule(ScheduleInput{
		Tasks: []schedulingDomain.Task{
			{ID: "overdue", DurationMinutes: 30, Deadline: ptrTime(clock(18, 17, 0))},
			{ID: "later", DurationMinutes: 30, Deadline: ptrTime(clock(30, 17, 0))},
			{ID: "done", DurationMinutes: 30, Completed: true},
			{ID: "ended", DurationMinutes: 30, Recurrence: schedulingDomain.DailyRecurrence{
				RecurrenceBase: schedulingDomain.RecurrenceBase{
					End: schedulingDomain.RecurrenceEnd{Kind: schedulingDomain.EndOn, On: clock(10, 0, 0)},
				},
			}},
			{ID: "unknown-rule", Recurrence: schedulingDomain.UnknownRecurrence{Name: "lunar"}},
			{ID: "elsewhere", DurationMinutes: 30, TimeMapIDs: []string{"home"}},
		},
		TimeMaps:    []schedulingDomain.TimeMap{window("work", "09:00", "12:00", weekdays...)},
		HorizonDays: 3,
		Now:         now,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"overdue", "elsewhere"}, result.Unscheduled)
	assert.Equal(t, []string{"later", "ended", "unknown-rule"}, result.Ignored)
	assert.Empty(t, result.Placements)
	assert.Empty(t, result.Deferred)
}

func TestSchedulerEngine_RecurringOccurrencesStayOnTheirDay(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())

	result, err := engine.Schedule(ScheduleInput{
		Tasks: []schedulingDomain.Task{{
			ID:                   "standup",
			DurationMinutes:      30,
			Recurrence:           schedulingDomain.DailyRecurrence{},
			CompletedOccurrences: []string{"2026-10-20"},
		}},
		TimeMaps:    []schedulingDomain.TimeMap{window("work", "09:00", "12:00", weekdays...)},
		HorizonDays: 2,
		Now:         clock(19, 8, 0),
	})
	require.NoError(t, err)

	require.Len(t, result.Placements, 2)
	assert.Equal(t, "standup-occ-0", result.Placements[0].OccurrenceID)
	assert.Equal(t, clock(19, 9, 0), result.Placements[0].Start)
	assert.Equal(t, "standup-occ-2", result.Placements[1].OccurrenceID)
	assert.Equal(t, clock(21, 9, 0), result.Placements[1].Start)
}

func TestSchedulerEngine_WindowedOccurrenceRespectsWindowStart(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())

	result, err := engine.Schedule(ScheduleInput{
		Tasks: []schedulingDomain.Task{{
			ID:              "review",
			DurationMinutes: 30,
			Recurrence: schedulingDomain.MonthlyRecurrence{
				Mode:       schedulingDomain.MonthlyByRange,
				RangeStart: 22,
				RangeEnd:   23,
			},
		}},
		TimeMaps:    []schedulingDomain.TimeMap{window("work", "09:00", "12:00", weekdays...)},
		HorizonDays: 6,
		Now:         clock(19, 8, 0),
	})
	require.NoError(t, err)

	require.Len(t, result.Placements, 1)
	assert.Equal(t, clock(22, 9, 0), result.Placements[0].Start)
}

func TestSchedulerEngine_PinnedPlacementsAreKept(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())
	pinned := schedulingDomain.Placement{TaskID: "fixed", TimeMapID: "work", Start: clock(19, 9, 0), End: clock(19, 10, 0)}

	result, err := engine.Schedule(ScheduleInput{
		Tasks: []schedulingDomain.Task{
			{ID: "fixed", DurationMinutes: 60},
			{ID: "other", DurationMinutes: 60},
			{ID: "manual", DurationMinutes: 30},
		},
		TimeMaps:  []schedulingDomain.TimeMap{window("work", "09:00", "12:00", time.Monday)},
		Now:       clock(19, 8, 0),
		Pinned:    []schedulingDomain.Placement{pinned},
		PinnedIDs: []string{"manual"},
	})
	require.NoError(t, err)

	require.Len(t, result.Placements, 2)
	assert.True(t, result.Placements[0].Pinned)
	assert.Equal(t, "fixed", result.Placements[0].TaskID)
	assert.Equal(t, "other", result.Placements[1].TaskID)
	assert.Equal(t, clock(19, 10, 0), result.Placements[1].Start)
	assert.Empty(t, placementsFor(result, "manual"))
}

func TestSchedulerEngine_SplitChunksNeverOverlapAcrossSources(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())

	result, err := engine.Schedule(ScheduleInput{
		Tasks: []schedulingDomain.Task{{ID: "deep", DurationMinutes: 90, MinBlockMinutes: 30}},
		TimeMaps: []schedulingDomain.TimeMap{
			window("a", "09:00", "10:00", time.Monday),
			window("b", "09:30", "11:00", time.Monday),
		},
		Now: clock(19, 8, 0),
	})
	require.NoError(t, err)

	require.Len(t, result.Placements, 2)
	assert.Equal(t, "a", result.Placements[0].TimeMapID)
	assert.Equal(t, clock(19, 10, 0), result.Placements[0].End)
	assert.Equal(t, "b", result.Placements[1].TimeMapID)
	assert.Equal(t, clock(19, 10, 0), result.Placements[1].Start)
	assert.Equal(t, clock(19, 10, 30), result.Placements[1].End)
}

func TestSchedulerEngine_InputErrors(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())

	_, err := engine.Schedule(ScheduleInput{HorizonDays: -1, Now: clock(19, 8, 0)})
	assert.ErrorIs(t, err, schedulingDomain.ErrInvalidHorizon)

	_, err = engine.Schedule(ScheduleInput{
		Now:  clock(19, 8, 0),
		Busy: []schedulingDomain.Interval{{Start: clock(19, 10, 0), End: clock(19, 10, 0)}},
	})
	assert.ErrorIs(t, err, schedulingDomain.ErrInvalidInterval)

	_, err = engine.Schedule(ScheduleInput{})
	assert.ErrorIs(t, err, ErrMissingNow)
}

func TestSchedulerEngine_IsDeterministic(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())
	in := propertyInput()

	first, err := engine.Schedule(in)
	require.NoError(t, err)
	second, err := engine.Schedule(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSchedulerEngine_PlacementInvariants(t *testing.T) {
	engine := NewSchedulerEngine(DefaultSchedulerConfig())
	in := propertyInput()

	result, err := engine.Schedule(in)
	require.NoError(t, err)
	require.NotEmpty(t, result.Placements)

	tasks := make(map[string]schedulingDomain.Task)
	for _, task := range in.Tasks {
		tasks[task.ID] = task
	}
	horizonEnd := schedulingDomain.HorizonEnd(in.Now, in.HorizonDays)

	for i, p := range result.Placements {
		assert.True(t, p.End.After(p.Start))
		assert.False(t, p.Start.Before(in.Now))

		task := tasks[p.TaskID]
		if task.EarliestStart != nil {
			assert.False(t, p.Start.Before(*task.EarliestStart), "%s starts before its earliest start", p.TaskID)
		}
		if task.Deadline != nil {
			assert.False(t, p.End.After(*task.Deadline), "%s ends after its deadline", p.TaskID)
		}
		assert.False(t, p.End.After(horizonEnd))
		assert.True(t, task.EligibleFor(p.TimeMapID))
		for _, b := range in.Busy {
			assert.False(t, p.Interval().Overlaps(b), "%s overlaps busy time", p.TaskID)
		}

		for _, q := range result.Placements[i+1:] {
			if p.TimeMapID == q.TimeMapID {
				assert.False(t, p.Interval().Overlaps(q.Interval()), "%s overlaps %s", p.TaskID, q.TaskID)
			}
		}
	}

	// Sequential children never start before the previous sibling ends.
	var lastEnd time.Time
	for _, id := range []string{"seq-1", "seq-2", "seq-3"} {
		ps := placementsFor(result, id)
		if len(ps) == 0 {
			break
		}
		for _, p := range ps {
			assert.False(t, p.Start.Before(lastEnd), "%s starts before its predecessor ends", id)
		}
		for _, p := range ps {
			lastEnd = schedulingDomain.MaxTime(lastEnd, p.End)
		}
	}

	// A sequential-single parent places at most one child.
	single := 0
	for _, id := range []string{"one-1", "one-2"} {
		single += len(placementsFor(result, id))
	}
	assert.LessOrEqual(t, single, 1)
}

func propertyInput() ScheduleInput {
	now := clock(19, 8, 10)
	tasks := []schedulingDomain.Task{
		{ID: "seq", Title: "Sequence", ScheduleMode: schedulingDomain.ModeSequential},
		{ID: "seq-1", Title: "c", ParentID: "seq", Order: ptrInt(1), DurationMinutes: 75, MinBlockMinutes: 30},
		{ID: "seq-2", Title: "b", ParentID: "seq", Order: ptrInt(2), DurationMinutes: 45, Priority: 5},
		{ID: "seq-3", Title: "a", ParentID: "seq", Order: ptrInt(3), DurationMinutes: 30},
		{ID: "one", Title: "Single", ScheduleMode: schedulingDomain.ModeSequentialSingle},
		{ID: "one-1", Title: "x", ParentID: "one", DurationMinutes: 30},
		{ID: "one-2", Title: "y", ParentID: "one", DurationMinutes: 30},
		{ID: "daily", DurationMinutes: 20, Recurrence: schedulingDomain.DailyRecurrence{}},
		{ID: "weekly", DurationMinutes: 60, Recurrence: schedulingDomain.WeeklyRecurrence{AnyDayInWeek: true}},
	}
	for i := 0; i < 12; i++ {
		task := schedulingDomain.Task{
			ID:              fmt.Sprintf("task-%02d", i),
			Title:           fmt.Sprintf("Task %d", i),
			DurationMinutes: 25 + (i%5)*20,
			MinBlockMinutes: 15 + (i%3)*15,
			Priority:        1 + i%5,
		}
		if i%3 == 0 {
			task.Deadline = ptrTime(clock(20+i%4, 11+i%5, 0))
		}
		if i%4 == 1 {
			task.EarliestStart = ptrTime(clock(19+i%3, 10, 30))
		}
		if i%5 == 2 {
			task.TimeMapIDs = []string{"evening"}
		}
		tasks = append(tasks, task)
	}

	return ScheduleInput{
		Tasks: tasks,
		TimeMaps: []schedulingDomain.TimeMap{
			window("work", "09:00", "12:00", weekdays...),
			window("afternoon", "13:00", "17:00", weekdays...),
			window("evening", "18:00", "20:00", time.Monday, time.Wednesday),
		},
		Busy: []schedulingDomain.Interval{
			{Start: clock(19, 9, 30), End: clock(19, 10, 15)},
			{Start: clock(20, 14, 0), End: clock(20, 15, 30)},
			{Start: clock(21, 18, 30), End: clock(21, 19, 0)},
		},
		HorizonDays: 4,
		Now:         now,
	}
}
