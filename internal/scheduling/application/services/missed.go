package services

import (
	"sort"
	"time"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// Miss is one task occurrence whose placement passed without completion.
type Miss struct {
	TaskID       string
	OccurrenceID string
	EndedAt      time.Time
}

// MissReport summarizes missed occurrences.
type MissReport struct {
	Misses  []Miss
	ByTask  map[string]int
	Checked int
}

// Total returns the number of missed occurrences.
func (r MissReport) Total() int {
	return len(r.Misses)
}

// ClassifyMisses counts placements that ended before now for tasks that are
// not completed and whose occurrence carries no completion marker. Split
// placements of one occurrence count once.
func ClassifyMisses(
	tasks []schedulingDomain.Task,
	placements []schedulingDomain.Placement,
	now time.Time,
) MissReport {
	byKey := make(map[string]schedulingDomain.Task, len(tasks))
	for _, t := range tasks {
		if key := t.OccurrenceKey(); key != "" {
			byKey[key] = t
		}
	}

	report := MissReport{ByTask: make(map[string]int)}
	latest := make(map[string]int)
	stores := make(map[string]*schedulingDomain.CompletionStore)

	for _, p := range placements {
		if !p.End.Before(now) {
			continue
		}
		task, ok := byKey[p.TaskID]
		if !ok || task.Completed {
			continue
		}
		report.Checked++

		store, ok := stores[p.TaskID]
		if !ok {
			store = schedulingDomain.NewCompletionStore(task.CompletedOccurrences, now.Location())
			stores[p.TaskID] = store
		}
		if task.Repeats() && store.IsCompleted(p.Start, task.Recurrence) {
			continue
		}

		key := p.TaskID + "|" + p.Key()
		if i, seen := latest[key]; seen {
			if p.End.After(report.Misses[i].EndedAt) {
				report.Misses[i].EndedAt = p.End
			}
			continue
		}
		latest[key] = len(report.Misses)
		report.Misses = append(report.Misses, Miss{TaskID: p.TaskID, OccurrenceID: p.OccurrenceID, EndedAt: p.End})
		report.ByTask[p.TaskID]++
	}

	sort.SliceStable(report.Misses, func(i, j int) bool {
		return report.Misses[i].EndedAt.Before(report.Misses[j].EndedAt)
	})
	return report
}
