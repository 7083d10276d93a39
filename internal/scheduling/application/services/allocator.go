package services

import (
	"time"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// chainState tracks one sequential ancestor during allocation.
type chainState struct {
	lastEnd   time.Time
	failed    bool
	placedOne bool
}

// Allocation is the allocator's output.
type Allocation struct {
	Placements  []schedulingDomain.Placement
	Unscheduled schedulingDomain.IDSet
	Deferred    schedulingDomain.IDSet
	Free        []schedulingDomain.Interval
}

// Allocator greedily assigns ordered candidates to free intervals.
type Allocator struct {
	chains map[string]*chainState
}

// NewAllocator creates an allocator for one run.
func NewAllocator() *Allocator {
	return &Allocator{chains: make(map[string]*chainState)}
}

// SeedPinned records pinned placements of chain members so that later
// siblings start after them and sequential-single chains count them.
func (a *Allocator) SeedPinned(placements []schedulingDomain.Placement, resolver *SequenceResolver) {
	for _, p := range placements {
		for _, ancestor := range resolver.Resolve(p.TaskID).Ancestors {
			st := a.state(ancestor)
			st.placedOne = true
			st.lastEnd = schedulingDomain.MaxTime(st.lastEnd, p.End)
		}
	}
}

func (a *Allocator) state(ancestor string) *chainState {
	st, ok := a.chains[ancestor]
	if !ok {
		st = &chainState{}
		a.chains[ancestor] = st
	}
	return st
}

// Allocate places candidates in order. The free list passed in is never
// modified; the remaining free time is returned in the Allocation.
func (a *Allocator) Allocate(candidates []SchedulingCandidate, free []schedulingDomain.Interval) Allocation {
	out := Allocation{Free: free}

	for _, cand := range candidates {
		taskKey := cand.Task.OccurrenceKey()
		earliest := cand.Earliest

		blocked := false
		for _, ancestor := range cand.Sequence.Ancestors {
			st := a.state(ancestor)
			if st.failed || (cand.Sequence.SingleAncestors[ancestor] && st.placedOne) {
				blocked = true
				break
			}
			earliest = schedulingDomain.MaxTime(earliest, st.lastEnd)
		}
		if blocked {
			out.Deferred.Add(taskKey)
			continue
		}

		var (
			placements []schedulingDomain.Placement
			next       []schedulingDomain.Interval
			ok         bool
		)
		if cand.Sequence.SingleBlock {
			placements, next, ok = PlaceSingleBlock(cand, earliest, out.Free)
		} else {
			placements, next, ok = PlaceSplit(cand, earliest, out.Free)
		}

		if !ok {
			out.Unscheduled.Add(taskKey)
			for _, ancestor := range cand.Sequence.Ancestors {
				a.state(ancestor).failed = true
			}
			continue
		}

		out.Free = next
		out.Placements = append(out.Placements, placements...)
		var end time.Time
		for _, p := range placements {
			end = schedulingDomain.MaxTime(end, p.End)
		}
		for _, ancestor := range cand.Sequence.Ancestors {
			st := a.state(ancestor)
			st.lastEnd = schedulingDomain.MaxTime(st.lastEnd, end)
			st.placedOne = true
		}
	}

	return out
}

// clamp returns the usable span of iv for a candidate.
func clamp(iv schedulingDomain.Interval, earliest, deadline time.Time) (time.Time, time.Time) {
	start := schedulingDomain.MaxTime(iv.Start, earliest)
	end := schedulingDomain.MinTime(iv.End, deadline)
	return start, end
}

// PlaceSingleBlock puts the whole duration into the first eligible interval
// that can hold it.
func PlaceSingleBlock(
	cand SchedulingCandidate,
	earliest time.Time,
	free []schedulingDomain.Interval,
) ([]schedulingDomain.Placement, []schedulingDomain.Interval, bool) {
	for i, iv := range free {
		if !cand.Task.EligibleFor(iv.SourceID) {
			continue
		}
		start, end := clamp(iv, earliest, cand.Deadline)
		if end.Sub(start) < cand.Task.Duration {
			continue
		}
		p := newPlacement(cand, iv.SourceID, start, start.Add(cand.Task.Duration))
		return []schedulingDomain.Placement{p}, schedulingDomain.RemoveSpan(free, i, p.Start, p.End), true
	}
	return nil, free, false
}

// PlaceSplit accumulates the duration across successive eligible intervals.
// Each chunk must be at least the smaller of the minimum block and the
// remaining duration, and starts no earlier than the previous chunk's end.
// Nothing is kept unless the full duration fits.
func PlaceSplit(
	cand SchedulingCandidate,
	earliest time.Time,
	free []schedulingDomain.Interval,
) ([]schedulingDomain.Placement, []schedulingDomain.Interval, bool) {
	remaining := cand.Task.Duration
	cursor := earliest
	working := free
	var placements []schedulingDomain.Placement

	for i := 0; i < len(working) && remaining > 0; {
		iv := working[i]
		if !cand.Task.EligibleFor(iv.SourceID) {
			i++
			continue
		}
		start, end := clamp(iv, cursor, cand.Deadline)
		span := end.Sub(start)
		need := remaining
		if cand.Task.MinBlock < need {
			need = cand.Task.MinBlock
		}
		if span <= 0 || span < need {
			i++
			continue
		}

		chunk := remaining
		if span < chunk {
			chunk = span
		}
		p := newPlacement(cand, iv.SourceID, start, start.Add(chunk))
		placements = append(placements, p)
		working = schedulingDomain.RemoveSpan(working, i, p.Start, p.End)
		remaining -= chunk
		cursor = p.End
	}

	if remaining > 0 {
		return nil, free, false
	}
	return placements, working, true
}

func newPlacement(cand SchedulingCandidate, sourceID string, start, end time.Time) schedulingDomain.Placement {
	return schedulingDomain.Placement{
		TaskID:       cand.Task.OccurrenceKey(),
		OccurrenceID: cand.Occurrence.ID,
		TimeMapID:    sourceID,
		Start:        start,
		End:          end,
	}
}
