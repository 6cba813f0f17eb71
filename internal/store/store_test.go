package store

import (
	"testing"

	"github.com/questforge/roadmap-engine/internal/layout"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/roadmap"
)

func testRoadmap(id, title string) *roadmap.Roadmap {
	return &roadmap.Roadmap{
		ID:        id,
		Title:     title,
		CreatedAt: 1700000000000,
		Nodes: []roadmap.Node{
			{ID: "goal-1", Label: title, Type: roadmap.NodeTypeGoal},
			{ID: "ms-1", Label: "Milestone", Type: roadmap.NodeTypeMilestone, ParentID: "goal-1"},
			{ID: "t-1", Label: "Task", Type: roadmap.NodeTypeTask, ParentID: "ms-1", Progress: 40, Status: roadmap.NodeStatusInProgress},
		},
		Edges: []roadmap.Edge{
			roadmap.NewEdge("goal-1", "ms-1"),
			roadmap.NewEdge("ms-1", "t-1"),
		},
	}
}

func newTestStore() *Store {
	return New(logger.NewNop())
}

func TestSetRoadmapHistoryDedup(t *testing.T) {
	s := newTestStore()

	s.SetRoadmap(testRoadmap("rm-1", "First draft"))
	s.SetRoadmap(testRoadmap("rm-1", "Second draft"))

	hist := s.History()
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1", len(hist))
	}
	if hist[0].Title != "Second draft" {
		t.Fatalf("history entry not refreshed: %q", hist[0].Title)
	}
}

func TestSetRoadmapPrependsNewest(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Old"))
	s.SetRoadmap(testRoadmap("rm-2", "New"))

	hist := s.History()
	if len(hist) != 2 || hist[0].ID != "rm-2" || hist[1].ID != "rm-1" {
		t.Fatalf("unexpected history order: %+v", ids(hist))
	}
	if s.ActiveID() != "rm-2" {
		t.Fatalf("active = %q, want rm-2", s.ActiveID())
	}
}

func TestRenameRoadmap(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1756700000000", "Draft"))

	s.RenameRoadmap("rm-1756700000000", "rm-server-7")

	if s.ActiveID() != "rm-server-7" {
		t.Fatalf("active id = %q", s.ActiveID())
	}
	hist := s.History()
	if len(hist) != 1 || hist[0].ID != "rm-server-7" {
		t.Fatalf("history not renamed in place: %+v", ids(hist))
	}
	if s.HistoryEntry("rm-1756700000000") != nil {
		t.Fatalf("placeholder id still resolvable after rename")
	}
}

func TestApplyProgressUpdates(t *testing.T) {
	s := newTestStore()
	rm := testRoadmap("rm-1", "Quest")
	s.SetRoadmap(rm)
	s.SetPositioned([]layout.PositionedNode{
		{ID: "t-1", Data: rm.Nodes[2]},
	}, nil)

	changed := s.ApplyProgressUpdates([]ProgressUpdate{
		{NodeID: "t-1", Delta: 90},   // 40 + 90 clamps to 100
		{NodeID: "ghost", Delta: 10}, // unknown ids are ignored
	})
	if !changed {
		t.Fatalf("expected changed = true")
	}

	node := s.Active().FindNode("t-1")
	if node.Progress != 100 {
		t.Fatalf("progress = %d, want 100 (clamped)", node.Progress)
	}
	if node.Status != roadmap.NodeStatusCompleted {
		t.Fatalf("status = %q, want completed", node.Status)
	}

	positioned, _ := s.Positioned()
	if positioned[0].Data.Progress != 100 || positioned[0].Data.Status != roadmap.NodeStatusCompleted {
		t.Fatalf("positioned copy not mirrored: %+v", positioned[0].Data)
	}

	// The history clone carries the update too.
	if got := s.HistoryEntry("rm-1").FindNode("t-1").Progress; got != 100 {
		t.Fatalf("history entry stale: progress = %d", got)
	}
}

func TestApplyProgressUpdatesClampLow(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Quest"))

	s.ApplyProgressUpdates([]ProgressUpdate{{NodeID: "t-1", Delta: -90}})

	node := s.Active().FindNode("t-1")
	if node.Progress != 0 {
		t.Fatalf("progress = %d, want 0", node.Progress)
	}
}

func TestApplyProgressUpdatesNoActive(t *testing.T) {
	s := newTestStore()
	if s.ApplyProgressUpdates([]ProgressUpdate{{NodeID: "t-1", Delta: 10}}) {
		t.Fatalf("no active roadmap, nothing should change")
	}
}

func TestReplaceFromSnapshotWins(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Local edits"))
	s.ApplyProgressUpdates([]ProgressUpdate{{NodeID: "t-1", Delta: 50}})

	server := testRoadmap("rm-1", "Server truth")
	server.Nodes[2].Progress = 10
	s.ReplaceFromSnapshot(server)

	active := s.Active()
	if active.Title != "Server truth" {
		t.Fatalf("snapshot did not replace active: %q", active.Title)
	}
	if active.FindNode("t-1").Progress != 10 {
		t.Fatalf("local progress survived snapshot: %d", active.FindNode("t-1").Progress)
	}
}

func TestMarkSyncAttemptedOncePerActivation(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Quest"))

	if !s.MarkSyncAttempted("rm-1") {
		t.Fatalf("first attempt should be allowed")
	}
	if s.MarkSyncAttempted("rm-1") {
		t.Fatalf("second attempt should be suppressed")
	}
	if s.MarkSyncAttempted("rm-other") {
		t.Fatalf("non-active roadmap must never sync")
	}

	// Switching away and back re-arms the guard.
	s.SetRoadmap(testRoadmap("rm-2", "Other"))
	s.SetRoadmap(testRoadmap("rm-1", "Quest"))
	if !s.MarkSyncAttempted("rm-1") {
		t.Fatalf("re-activation should allow one more attempt")
	}
}

func TestMergeHistoryDedup(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Local"))

	s.MergeHistory([]*roadmap.Roadmap{
		testRoadmap("rm-1", "Remote copy of local"),
		testRoadmap("rm-2", "Remote only"),
		nil,
	})

	hist := s.History()
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	// Existing entries keep their data; merged ones append after.
	if hist[0].Title != "Local" || hist[1].ID != "rm-2" {
		t.Fatalf("unexpected merge result: %+v", ids(hist))
	}
}

func TestRemoveRoadmapClearsActive(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Quest"))
	s.SetPositioned([]layout.PositionedNode{{ID: "goal-1"}}, nil)
	s.SelectNode("t-1")

	s.RemoveRoadmap("rm-1")

	if s.Active() != nil {
		t.Fatalf("active roadmap survived removal")
	}
	if len(s.History()) != 0 {
		t.Fatalf("history entry survived removal")
	}
	nodes, _ := s.Positioned()
	if len(nodes) != 0 {
		t.Fatalf("positioned view survived removal")
	}
	if s.SelectedNodeID() != "" {
		t.Fatalf("selection survived removal")
	}
}

func TestRemoveRoadmapKeepsOthers(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Keep"))
	s.SetRoadmap(testRoadmap("rm-2", "Drop"))

	s.RemoveRoadmap("rm-1")

	if s.ActiveID() != "rm-2" {
		t.Fatalf("active roadmap should be untouched: %q", s.ActiveID())
	}
	if len(s.History()) != 1 {
		t.Fatalf("history = %+v", ids(s.History()))
	}
}

func TestSelectNodeValidation(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Quest"))

	s.SelectNode("ms-1")
	if s.SelectedNodeID() != "ms-1" {
		t.Fatalf("valid selection rejected")
	}

	s.SelectNode("nope")
	if s.SelectedNodeID() != "ms-1" {
		t.Fatalf("unknown node replaced selection")
	}

	s.SelectNode("")
	if s.SelectedNodeID() != "" {
		t.Fatalf("empty id should clear selection")
	}
}

func TestSetRoadmapClearsSelection(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Quest"))
	s.SelectNode("t-1")

	s.SetRoadmap(testRoadmap("rm-2", "Other"))
	if s.SelectedNodeID() != "" {
		t.Fatalf("selection leaked across roadmaps")
	}
}

func TestHistoryReturnsClones(t *testing.T) {
	s := newTestStore()
	s.SetRoadmap(testRoadmap("rm-1", "Quest"))

	s.History()[0].Title = "mutated"
	if s.History()[0].Title != "Quest" {
		t.Fatalf("history exposed internal state")
	}

	s.Active().Nodes[0].Label = "mutated"
	if s.Active().Nodes[0].Label == "mutated" {
		t.Fatalf("active exposed internal state")
	}
}

func ids(roadmaps []*roadmap.Roadmap) []string {
	out := make([]string, len(roadmaps))
	for i, rm := range roadmaps {
		out[i] = rm.ID
	}
	return out
}
