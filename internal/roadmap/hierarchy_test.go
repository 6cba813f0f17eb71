package roadmap

import (
	"testing"
)

func TestDeriveHierarchyBuckets(t *testing.T) {
	nodes := []Node{
		{ID: "goal-1", Type: NodeTypeGoal, Label: "Learn Go"},
		{ID: "ms-2", Type: NodeTypeMilestone, Label: "Second", Order: 1},
		{ID: "ms-1", Type: NodeTypeMilestone, Label: "First", Order: 0},
		{ID: "t-1", Type: NodeTypeTask, ParentID: "ms-1", Order: 1},
		{ID: "t-2", Type: NodeTypeTask, ParentID: "ms-1", Order: 0},
		{ID: "t-3", Type: NodeTypeTask, ParentID: "ms-2"},
	}
	edges := DeriveEdges(nodes)

	h := DeriveHierarchy(nodes, edges)

	if h.Goal == nil || h.Goal.ID != "goal-1" {
		t.Fatalf("expected goal-1, got %+v", h.Goal)
	}
	if len(h.Milestones) != 2 {
		t.Fatalf("expected 2 milestones, got %d", len(h.Milestones))
	}
	if h.Milestones[0].ID != "ms-1" || h.Milestones[1].ID != "ms-2" {
		t.Fatalf("milestones not sorted by order: %v, %v", h.Milestones[0].ID, h.Milestones[1].ID)
	}
	tasks := h.Tasks["ms-1"]
	if len(tasks) != 2 || tasks[0].ID != "t-2" || tasks[1].ID != "t-1" {
		t.Fatalf("ms-1 tasks wrong: %+v", tasks)
	}
	if len(h.Tasks["ms-2"]) != 1 {
		t.Fatalf("ms-2 tasks wrong: %+v", h.Tasks["ms-2"])
	}
	if len(h.Orphans) != 0 {
		t.Fatalf("unexpected orphans: %+v", h.Orphans)
	}
	if h.TaskCount() != 3 {
		t.Fatalf("TaskCount = %d, want 3", h.TaskCount())
	}
}

func TestDeriveHierarchyEdgeFallback(t *testing.T) {
	// No parentId anywhere; parents come from edges alone.
	nodes := []Node{
		{ID: "ms-1", Type: NodeTypeMilestone},
		{ID: "t-1", Type: NodeTypeTask},
	}
	edges := []Edge{NewEdge("ms-1", "t-1")}

	h := DeriveHierarchy(nodes, edges)

	if len(h.Tasks["ms-1"]) != 1 || h.Tasks["ms-1"][0].ID != "t-1" {
		t.Fatalf("edge fallback failed: %+v", h.Tasks)
	}
	if len(h.Orphans) != 0 {
		t.Fatalf("unexpected orphans: %+v", h.Orphans)
	}
}

func TestDeriveHierarchyExplicitParentWins(t *testing.T) {
	nodes := []Node{
		{ID: "ms-1", Type: NodeTypeMilestone},
		{ID: "ms-2", Type: NodeTypeMilestone},
		{ID: "t-1", Type: NodeTypeTask, ParentID: "ms-2"},
	}
	// Contradicting edge; the explicit parentId must win.
	edges := []Edge{NewEdge("ms-1", "t-1")}

	h := DeriveHierarchy(nodes, edges)

	if len(h.Tasks["ms-2"]) != 1 {
		t.Fatalf("explicit parent ignored: %+v", h.Tasks)
	}
	if len(h.Tasks["ms-1"]) != 0 {
		t.Fatalf("edge parent should lose: %+v", h.Tasks["ms-1"])
	}
}

func TestDeriveHierarchyOrphansKept(t *testing.T) {
	nodes := []Node{
		{ID: "goal-1", Type: NodeTypeGoal},
		{ID: "t-lost", Type: NodeTypeTask, Order: 1},
		{ID: "t-lost-2", Type: NodeTypeTask, Order: 0},
	}

	h := DeriveHierarchy(nodes, nil)

	if len(h.Orphans) != 2 {
		t.Fatalf("expected 2 orphans, got %d", len(h.Orphans))
	}
	if h.Orphans[0].ID != "t-lost-2" {
		t.Fatalf("orphans not sorted by order: %+v", h.Orphans)
	}
	if h.TaskCount() != 2 {
		t.Fatalf("TaskCount = %d, want 2", h.TaskCount())
	}
}

func TestDeriveHierarchyUnknownParentBucket(t *testing.T) {
	// A parent id that matches no milestone still gets its bucket; the
	// task is neither dropped nor reassigned.
	nodes := []Node{
		{ID: "ms-1", Type: NodeTypeMilestone},
		{ID: "t-1", Type: NodeTypeTask, ParentID: "ms-gone"},
	}

	h := DeriveHierarchy(nodes, nil)

	if len(h.Tasks["ms-gone"]) != 1 {
		t.Fatalf("unknown-parent bucket missing: %+v", h.Tasks)
	}
	if len(h.Orphans) != 0 {
		t.Fatalf("task with resolvable parent must not be an orphan: %+v", h.Orphans)
	}
}

func TestDeriveHierarchyStableOrderTies(t *testing.T) {
	nodes := []Node{
		{ID: "ms-1", Type: NodeTypeMilestone},
		{ID: "t-b", Type: NodeTypeTask, ParentID: "ms-1"},
		{ID: "t-a", Type: NodeTypeTask, ParentID: "ms-1"},
		{ID: "t-c", Type: NodeTypeTask, ParentID: "ms-1"},
	}

	h := DeriveHierarchy(nodes, nil)

	got := h.Tasks["ms-1"]
	want := []string{"t-b", "t-a", "t-c"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("tie order changed at %d: got %s want %s", i, got[i].ID, id)
		}
	}
}
