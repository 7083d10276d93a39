package services

import (
	"testing"

	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
	"github.com/stretchr/testify/assert"
)

func TestSequenceResolver_PreorderPositions(t *testing.T) {
	resolver := NewSequenceResolver([]schedulingDomain.Task{
		{ID: "root", ScheduleMode: schedulingDomain.ModeSequential},
		{ID: "b", Title: "B", ParentID: "root", Order: ptrInt(2)},
		{ID: "a", Title: "A", ParentID: "root", Order: ptrInt(1)},
		{ID: "a2", Title: "second", ParentID: "a"},
		{ID: "a1", Title: "first", ParentID: "a"},
		{ID: "c", Title: "C", ParentID: "root"},
	})

	positions := map[string]int{"a": 0, "a1": 1, "a2": 2, "b": 3, "c": 4}
	for id, want := range positions {
		info := resolver.Resolve(id)
		assert.Equal(t, "root", info.ChainKey, id)
		assert.Equal(t, want, info.Position, id)
	}
	assert.Equal(t, 2, resolver.Depth("a1"))
	assert.True(t, resolver.HasActiveSubtasks("a"))
	assert.False(t, resolver.HasActiveSubtasks("b"))
}

func TestSequenceResolver_NestedModes(t *testing.T) {
	resolver := NewSequenceResolver([]schedulingDomain.Task{
		{ID: "outer", ScheduleMode: schedulingDomain.ModeSequentialSingle},
		{ID: "middle", ParentID: "outer", ScheduleMode: schedulingDomain.ModeParallel},
		{ID: "inner", ParentID: "middle", ScheduleMode: schedulingDomain.ModeSequential},
		{ID: "leaf", ParentID: "inner"},
	})

	info := resolver.Resolve("leaf")
	assert.Equal(t, []string{"inner", "outer"}, info.Ancestors)
	assert.Equal(t, "outer", info.ChainKey)
	assert.True(t, info.SingleBlock)
	assert.True(t, info.SingleAncestors["outer"])
	assert.False(t, info.SingleAncestors["inner"])
}

func TestSequenceResolver_CycleGuard(t *testing.T) {
	resolver := NewSequenceResolver([]schedulingDomain.Task{
		{ID: "a", ParentID: "c", ScheduleMode: schedulingDomain.ModeSequential},
		{ID: "b", ParentID: "a", ScheduleMode: schedulingDomain.ModeSequential},
		{ID: "c", ParentID: "b", ScheduleMode: schedulingDomain.ModeSequential},
		{ID: "self", ParentID: "self"},
	})

	assert.Equal(t, []string{"c", "b"}, resolver.Ancestors("a"))
	info := resolver.Resolve("a")
	assert.Equal(t, "b", info.ChainKey)
	assert.Empty(t, resolver.Ancestors("self"))
	assert.Empty(t, resolver.Ancestors("missing"))
}

func TestSequenceResolver_CompletedChildrenReleaseParent(t *testing.T) {
	resolver := NewSequenceResolver([]schedulingDomain.Task{
		{ID: "parent"},
		{ID: "child", ParentID: "parent", Completed: true},
	})
	assert.False(t, resolver.HasActiveSubtasks("parent"))
}
