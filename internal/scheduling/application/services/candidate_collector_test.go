package services

import (
	"testing"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareCandidates(t *testing.T) {
	base := func() SchedulingCandidate {
		return SchedulingCandidate{
			Task: schedulingDomain.NormalizedTask{
				Task:     schedulingDomain.Task{ID: "x", Title: "m", Section: "b", Subsection: "b"},
				Priority: 3,
			},
			Deadline: clock(20, 12, 0),
			Earliest: clock(19, 9, 0),
		}
	}

	tests := []struct {
		name   string
		modify func(c *SchedulingCandidate)
	}{
		{"earlier deadline", func(c *SchedulingCandidate) { c.Deadline = clock(20, 11, 0) }},
		{"higher priority", func(c *SchedulingCandidate) { c.Task.Priority = 4 }},
		{"earlier start", func(c *SchedulingCandidate) { c.Earliest = clock(19, 8, 0) }},
		{"section", func(c *SchedulingCandidate) { c.Task.Section = "a" }},
		{"subsection", func(c *SchedulingCandidate) { c.Task.Subsection = "a" }},
		{"explicit order before missing", func(c *SchedulingCandidate) { c.Task.Order = ptrInt(7) }},
		{"title", func(c *SchedulingCandidate) { c.Task.Title = "a" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, other := base(), base()
			tt.modify(&winner)
			assert.Negative(t, CompareCandidates(winner, other))
			assert.Positive(t, CompareCandidates(other, winner))
		})
	}
}

func TestCandidateCollector_SkipsParentsAndPinned(t *testing.T) {
	now := clock(19, 8, 0)
	horizonEnd := schedulingDomain.HorizonEnd(now, 2)
	tasks := []schedulingDomain.Task{
		{ID: "parent"},
		{ID: "child", ParentID: "parent"},
		{ID: "pinned"},
		{ID: "daily", Recurrence: schedulingDomain.DailyRecurrence{}},
	}

	collector := NewCandidateCollector(now, horizonEnd, map[string]bool{"pinned": true, "daily-occ-1": true})
	col := collector.Collect(tasks, NewSequenceResolver(tasks))

	keys := make([]string, 0, len(col.Candidates))
	for _, c := range col.Candidates {
		keys = append(keys, c.Key())
	}
	assert.Equal(t, []string{"daily-occ-0", "child", "daily-occ-2"}, keys)
	assert.Empty(t, col.Unscheduled.IDs())
	assert.Empty(t, col.Ignored.IDs())
}

func TestCandidateCollector_AllOccurrencesCompleted(t *testing.T) {
	now := clock(19, 8, 0)
	horizonEnd := schedulingDomain.HorizonEnd(now, 1)
	tasks := []schedulingDomain.Task{{
		ID:                   "daily",
		Recurrence:           schedulingDomain.DailyRecurrence{},
		CompletedOccurrences: []string{"2026-10-19", "2026-10-20T07:00:00Z"},
	}}

	col := NewCandidateCollector(now, horizonEnd, nil).Collect(tasks, NewSequenceResolver(tasks))

	require.Empty(t, col.Candidates)
	assert.Empty(t, col.Ignored.IDs())
	assert.Empty(t, col.Unscheduled.IDs())
}
