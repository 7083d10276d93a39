package services

import (
	"time"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// UpcomingOccurrences lists a task's occurrences within the horizon that are
// not yet completed.
func UpcomingOccurrences(task schedulingDomain.Task, now time.Time, horizonDays int) ([]schedulingDomain.Occurrence, error) {
	if horizonDays < 0 {
		return nil, schedulingDomain.ErrInvalidHorizon
	}
	if task.Completed {
		return []schedulingDomain.Occurrence{}, nil
	}

	horizonEnd := schedulingDomain.HorizonEnd(now, horizonDays)
	normalized := schedulingDomain.NormalizeTask(task, now, horizonEnd)
	all := schedulingDomain.GenerateOccurrences(normalized, now, horizonEnd)
	if !task.Repeats() {
		return all, nil
	}

	store := schedulingDomain.NewCompletionStore(task.CompletedOccurrences, now.Location())
	out := make([]schedulingDomain.Occurrence, 0, len(all))
	for _, occ := range all {
		if store.IsCompleted(occ.Deadline, task.Recurrence) {
			continue
		}
		out = append(out, occ)
	}
	return out, nil
}
