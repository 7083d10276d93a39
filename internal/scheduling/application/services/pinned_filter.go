package services

import (
	"time"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// PinnedDrop explains why a pinned placement was discarded.
type PinnedDrop struct {
	Placement schedulingDomain.Placement
	Reason    string
}

const (
	DropUnknownTask    = "unknown task"
	DropCompletedTask  = "task completed"
	DropActiveSubtasks = "task has active subtasks"
	DropInvalidRange   = "end not after start"
	DropEnded          = "placement already ended"
	DropIneligible     = "time map no longer eligible"
	DropOverlap        = "overlaps another pinned placement"
)

// FilterPinned keeps the pinned placements that still make sense for the
// current task state. Placements are examined in start order and a
// placement overlapping an already kept one on the same source is dropped.
func FilterPinned(
	pinned []schedulingDomain.Placement,
	tasks []schedulingDomain.Task,
	now time.Time,
) ([]schedulingDomain.Placement, []PinnedDrop) {
	resolver := NewSequenceResolver(tasks)
	byKey := make(map[string]schedulingDomain.Task, len(tasks))
	for _, t := range tasks {
		if key := t.OccurrenceKey(); key != "" {
			if _, dup := byKey[key]; !dup {
				byKey[key] = t
			}
		}
	}

	ordered := make([]schedulingDomain.Placement, len(pinned))
	copy(ordered, pinned)
	schedulingDomain.SortPlacements(ordered)

	var (
		kept    []schedulingDomain.Placement
		dropped []PinnedDrop
	)
	drop := func(p schedulingDomain.Placement, reason string) {
		dropped = append(dropped, PinnedDrop{Placement: p, Reason: reason})
	}

	for _, p := range ordered {
		task, ok := byKey[p.TaskID]
		switch {
		case !ok:
			drop(p, DropUnknownTask)
		case task.Completed:
			drop(p, DropCompletedTask)
		case resolver.HasActiveSubtasks(p.TaskID):
			drop(p, DropActiveSubtasks)
		case !p.End.After(p.Start):
			drop(p, DropInvalidRange)
		case p.End.Before(now):
			drop(p, DropEnded)
		case p.TimeMapID != "" && !task.EligibleFor(p.TimeMapID):
			drop(p, DropIneligible)
		case overlapsKept(kept, p):
			drop(p, DropOverlap)
		default:
			p.Pinned = true
			kept = append(kept, p)
		}
	}
	return kept, dropped
}

func overlapsKept(kept []schedulingDomain.Placement, p schedulingDomain.Placement) bool {
	for _, k := range kept {
		if k.TimeMapID == p.TimeMapID && k.Interval().Overlaps(p.Interval()) {
			return true
		}
	}
	return false
}
