package services

import (
	"testing"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMisses(t *testing.T) {
	now := clock(21, 12, 0)
	tasks := []schedulingDomain.Task{
		{ID: "report"},
		{ID: "finished", Completed: true},
		{ID: "gym", Recurrence: schedulingDomain.DailyRecurrence{}, CompletedOccurrences: []string{"2026-10-19"}},
	}
	placements := []schedulingDomain.Placement{
		// Two chunks of one occurrence count once.
		{TaskID: "report", Start: clock(20, 9, 0), End: clock(20, 9, 30)},
		{TaskID: "report", Start: clock(20, 10, 0), End: clock(20, 10, 30)},
		{TaskID: "finished", Start: clock(20, 11, 0), End: clock(20, 12, 0)},
		{TaskID: "gym", OccurrenceID: "gym-occ-0", Start: clock(19, 18, 0), End: clock(19, 19, 0)},
		{TaskID: "gym", OccurrenceID: "gym-occ-1", Start: clock(20, 18, 0), End: clock(20, 19, 0)},
		{TaskID: "gym", OccurrenceID: "gym-occ-3", Start: clock(22, 18, 0), End: clock(22, 19, 0)},
		{TaskID: "unknown", Start: clock(20, 8, 0), End: clock(20, 9, 0)},
	}

	report := ClassifyMisses(tasks, placements, now)

	require.Equal(t, 2, report.Total())
	assert.Equal(t, "report", report.Misses[0].TaskID)
	assert.Equal(t, clock(20, 10, 30), report.Misses[0].EndedAt)
	assert.Equal(t, "gym", report.Misses[1].TaskID)
	assert.Equal(t, "gym-occ-1", report.Misses[1].OccurrenceID)
	assert.Equal(t, map[string]int{"report": 1, "gym": 1}, report.ByTask)
}

func TestClassifyMisses_NothingPast(t *testing.T) {
	report := ClassifyMisses(
		[]schedulingDomain.Task{{ID: "a"}},
		[]schedulingDomain.Placement{{TaskID: "a", Start: clock(19, 9, 0), End: clock(19, 10, 0)}},
		clock(19, 9, 30),
	)
	assert.Equal(t, 0, report.Total())
	assert.Equal(t, 0, report.Checked)
}
