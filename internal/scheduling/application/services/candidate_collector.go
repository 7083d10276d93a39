package services

import (
	"sort"
	"time"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// SchedulingCandidate is one task occurrence waiting for a slot.
type SchedulingCandidate struct {
	Task       schedulingDomain.NormalizedTask
	Occurrence schedulingDomain.Occurrence
	Earliest   time.Time
	Deadline   time.Time
	Sequence   SequenceInfo
}

// Key identifies the occurrence for pinning purposes.
func (c SchedulingCandidate) Key() string {
	if c.Occurrence.ID != "" {
		return c.Occurrence.ID
	}
	return c.Task.OccurrenceKey()
}

// Collection is the outcome of candidate collection.
type Collection struct {
	Candidates  []SchedulingCandidate
	Unscheduled schedulingDomain.IDSet
	Ignored     schedulingDomain.IDSet
}

// CandidateCollector turns tasks into ordered scheduling candidates.
type CandidateCollector struct {
	now        time.Time
	horizonEnd time.Time
	pinned     map[string]bool
}

// NewCandidateCollector creates a collector for one run.
func NewCandidateCollector(now, horizonEnd time.Time, pinnedIDs map[string]bool) *CandidateCollector {
	if pinnedIDs == nil {
		pinnedIDs = map[string]bool{}
	}
	return &CandidateCollector{now: now, horizonEnd: horizonEnd, pinned: pinnedIDs}
}

// Collect normalizes tasks, expands occurrences, drops completed ones and
// classifies tasks that cannot produce candidates. The returned candidates
// are in allocation order.
func (c *CandidateCollector) Collect(tasks []schedulingDomain.Task, resolver *SequenceResolver) Collection {
	var col Collection

	for _, task := range tasks {
		key := task.OccurrenceKey()
		if task.Completed || c.pinned[key] {
			continue
		}
		if resolver.HasActiveSubtasks(key) {
			continue
		}

		normalized := schedulingDomain.NormalizeTask(task, c.now, c.horizonEnd)
		occurrences := schedulingDomain.GenerateOccurrences(normalized, c.now, c.horizonEnd)
		if len(occurrences) == 0 {
			if !task.Repeats() && normalized.HasDeadline && normalized.Deadline.Before(c.now) {
				col.Unscheduled.Add(key)
			} else {
				col.Ignored.Add(key)
			}
			continue
		}

		seq := resolver.Resolve(key)
		store := schedulingDomain.NewCompletionStore(task.CompletedOccurrences, c.now.Location())
		for _, occ := range occurrences {
			if task.Repeats() && store.IsCompleted(occ.Deadline, task.Recurrence) {
				continue
			}
			cand := SchedulingCandidate{
				Task:       normalized,
				Occurrence: occ,
				Earliest:   c.earliestFor(normalized, occ),
				Deadline:   occ.Deadline,
				Sequence:   seq,
			}
			if c.pinned[cand.Key()] {
				continue
			}
			col.Candidates = append(col.Candidates, cand)
		}
	}

	OrderCandidates(col.Candidates)
	return col
}

// earliestFor bounds the first placement time of an occurrence. Windowed
// occurrences start at their window; other repeating occurrences start on
// their own day.
func (c *CandidateCollector) earliestFor(task schedulingDomain.NormalizedTask, occ schedulingDomain.Occurrence) time.Time {
	earliest := schedulingDomain.MaxTime(c.now, task.EarliestStart)
	switch {
	case occ.WindowStart != nil:
		earliest = schedulingDomain.MaxTime(earliest, *occ.WindowStart)
	case task.Repeats():
		earliest = schedulingDomain.MaxTime(earliest, schedulingDomain.StartOfDay(occ.Deadline))
	}
	return earliest
}

// CompareCandidates is the allocation order: deadline ascending, priority
// descending, earliest start ascending, then section, subsection, sibling
// order (missing last) and title.
func CompareCandidates(a, b SchedulingCandidate) int {
	if !a.Deadline.Equal(b.Deadline) {
		if a.Deadline.Before(b.Deadline) {
			return -1
		}
		return 1
	}
	if a.Task.Priority != b.Task.Priority {
		if a.Task.Priority > b.Task.Priority {
			return -1
		}
		return 1
	}
	if !a.Earliest.Equal(b.Earliest) {
		if a.Earliest.Before(b.Earliest) {
			return -1
		}
		return 1
	}
	if c := compareStrings(a.Task.Section, b.Task.Section); c != 0 {
		return c
	}
	if c := compareStrings(a.Task.Subsection, b.Task.Subsection); c != 0 {
		return c
	}
	if c := compareOrder(a.Task.Order, b.Task.Order); c != 0 {
		return c
	}
	if c := compareStrings(a.Task.Title, b.Task.Title); c != 0 {
		return c
	}
	if c := compareStrings(a.Task.OccurrenceKey(), b.Task.OccurrenceKey()); c != 0 {
		return c
	}
	return a.Occurrence.Index - b.Occurrence.Index
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// OrderCandidates sorts candidates with CompareCandidates and then reorders
// the members of each sequential chain within the slots they already hold,
// so an earlier sibling is always attempted before a later one.
func OrderCandidates(candidates []SchedulingCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return CompareCandidates(candidates[i], candidates[j]) < 0
	})

	slots := make(map[string][]int)
	var chains []string
	for i, c := range candidates {
		key := c.Sequence.ChainKey
		if key == "" {
			continue
		}
		if _, ok := slots[key]; !ok {
			chains = append(chains, key)
		}
		slots[key] = append(slots[key], i)
	}

	for _, key := range chains {
		idx := slots[key]
		members := make([]SchedulingCandidate, len(idx))
		for i, pos := range idx {
			members[i] = candidates[pos]
		}
		sort.SliceStable(members, func(i, j int) bool {
			a, b := members[i], members[j]
			if a.Sequence.Position != b.Sequence.Position {
				return a.Sequence.Position < b.Sequence.Position
			}
			if !a.Deadline.Equal(b.Deadline) {
				return a.Deadline.Before(b.Deadline)
			}
			return a.Occurrence.Index < b.Occurrence.Index
		})
		for i, pos := range idx {
			candidates[pos] = members[i]
		}
	}
}
