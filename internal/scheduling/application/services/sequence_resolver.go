package services

import (
	"sort"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

// SequenceInfo describes where a task sits in sequential subtask chains.
type SequenceInfo struct {
	// Ancestors lists the sequential ancestors, nearest first.
	Ancestors []string
	// ChainKey is the outermost sequential ancestor, empty when there is none.
	ChainKey string
	// Position is the task's preorder index within the ChainKey subtree.
	Position int
	// SingleBlock is set when any sequential ancestor is sequential-single.
	SingleBlock bool
	// SingleAncestors holds the sequential-single members of Ancestors.
	SingleAncestors map[string]bool
}

// SequenceResolver answers parent/child questions over one task set.
// Parent links are external data, so every walk carries a cycle guard.
type SequenceResolver struct {
	tasks     map[string]schedulingDomain.Task
	children  map[string][]string
	positions map[string]map[string]int
}

// NewSequenceResolver indexes tasks by ID and sorts every child list by
// explicit order (missing last) and then title.
func NewSequenceResolver(tasks []schedulingDomain.Task) *SequenceResolver {
	r := &SequenceResolver{
		tasks:     make(map[string]schedulingDomain.Task, len(tasks)),
		children:  make(map[string][]string),
		positions: make(map[string]map[string]int),
	}
	for _, t := range tasks {
		key := t.OccurrenceKey()
		if key == "" {
			continue
		}
		if _, dup := r.tasks[key]; dup {
			continue
		}
		r.tasks[key] = t
	}
	for key, t := range r.tasks {
		if t.ParentID == "" || t.ParentID == key {
			continue
		}
		if _, ok := r.tasks[t.ParentID]; !ok {
			continue
		}
		r.children[t.ParentID] = append(r.children[t.ParentID], key)
	}
	for parent, kids := range r.children {
		sort.SliceStable(kids, func(i, j int) bool {
			return siblingLess(r.tasks[kids[i]], r.tasks[kids[j]])
		})
		r.children[parent] = kids
	}
	return r
}

// siblingLess orders siblings by Order (missing last), then title, then ID.
func siblingLess(a, b schedulingDomain.Task) bool {
	if c := compareOrder(a.Order, b.Order); c != 0 {
		return c < 0
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.OccurrenceKey() < b.OccurrenceKey()
}

func compareOrder(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

// HasActiveSubtasks reports whether the task has at least one incomplete child.
func (r *SequenceResolver) HasActiveSubtasks(taskID string) bool {
	for _, child := range r.children[taskID] {
		if !r.tasks[child].Completed {
			return true
		}
	}
	return false
}

// Ancestors returns the parent chain of a task, nearest first. The walk stops
// at a missing parent or when a task is revisited.
func (r *SequenceResolver) Ancestors(taskID string) []string {
	visited := map[string]bool{taskID: true}
	var out []string

	current, ok := r.tasks[taskID]
	for ok && current.ParentID != "" {
		parentID := current.ParentID
		if visited[parentID] {
			break
		}
		visited[parentID] = true

		parent, found := r.tasks[parentID]
		if !found {
			break
		}
		out = append(out, parentID)
		current = parent
	}
	return out
}

// Depth returns the number of ancestors of a task.
func (r *SequenceResolver) Depth(taskID string) int {
	return len(r.Ancestors(taskID))
}

// Resolve computes the sequential chain information of a task.
func (r *SequenceResolver) Resolve(taskID string) SequenceInfo {
	var info SequenceInfo
	for _, id := range r.Ancestors(taskID) {
		mode := r.tasks[id].ScheduleMode
		if !mode.IsSequential() {
			continue
		}
		info.Ancestors = append(info.Ancestors, id)
		info.ChainKey = id
		if mode == schedulingDomain.ModeSequentialSingle {
			if info.SingleAncestors == nil {
				info.SingleAncestors = make(map[string]bool)
			}
			info.SingleAncestors[id] = true
			info.SingleBlock = true
		}
	}
	if info.ChainKey != "" {
		info.Position = r.positionIn(info.ChainKey, taskID)
	}
	return info
}

// positionIn returns the preorder index of taskID within root's subtree, or
// -1 when it is not a descendant.
func (r *SequenceResolver) positionIn(root, taskID string) int {
	order, ok := r.positions[root]
	if !ok {
		order = r.preorder(root)
		r.positions[root] = order
	}
	if pos, found := order[taskID]; found {
		return pos
	}
	return -1
}

// preorder walks root's subtree depth-first with an explicit stack.
func (r *SequenceResolver) preorder(root string) map[string]int {
	order := make(map[string]int)
	visited := map[string]bool{root: true}
	stack := append([]string(nil), reversed(r.children[root])...)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		order[id] = len(order)
		stack = append(stack, reversed(r.children[id])...)
	}
	return order
}

func reversed(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
