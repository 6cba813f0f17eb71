package roadmap

import (
	"testing"
)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		raw  string
		want NodeType
	}{
		{"goal", NodeTypeGoal},
		{"milestone", NodeTypeMilestone},
		{"task", NodeTypeTask},
		{"action", NodeTypeTask},
		{"step", NodeTypeTask},
		{"", NodeTypeTask},
		{"garbage", NodeTypeTask},
	}
	for _, tt := range tests {
		if got := NormalizeType(tt.raw); got != tt.want {
			t.Errorf("NormalizeType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNodeFromServer(t *testing.T) {
	sn := ServerNode{
		ID:        "ms-1",
		ParentID:  "goal-1",
		Type:      "action",
		Label:     "Do the thing",
		Details:   "some detail",
		Order:     3,
		IsAssumed: true,
		Status:    "in_progress",
		Progress:  120,
	}

	n := NodeFromServer(sn)

	if n.Type != NodeTypeTask {
		t.Fatalf("legacy type not normalized: %q", n.Type)
	}
	if n.ParentID != "goal-1" {
		t.Fatalf("parent id lost: %q", n.ParentID)
	}
	if n.Progress != 100 {
		t.Fatalf("progress not clamped: %d", n.Progress)
	}
	if n.Status != NodeStatusInProgress {
		t.Fatalf("status wrong: %q", n.Status)
	}
	if len(n.Details) != 1 || n.Details[0] != "some detail" {
		t.Fatalf("details wrong: %v", n.Details)
	}
}

func TestNodeFromServerUnknownStatus(t *testing.T) {
	n := NodeFromServer(ServerNode{ID: "t-1", Type: "task", Status: "weird"})
	if n.Status != NodeStatusPending {
		t.Fatalf("unknown status should default to pending, got %q", n.Status)
	}
}

func TestFromServerDerivesEdges(t *testing.T) {
	sr := ServerRoadmap{
		ID:    "rm-abc",
		Title: "Learn Go",
		Goal:  "Become a gopher",
		Nodes: []ServerNode{
			{ID: "goal-1", Type: "goal", Label: "Learn Go"},
			{ID: "ms-1", Type: "milestone", ParentID: "goal-1"},
			{ID: "t-1", Type: "task", ParentID: "ms-1"},
		},
		CreatedAt: "2025-06-01T12:00:00Z",
	}

	rm := FromServer(sr)

	if rm.ID != "rm-abc" || rm.Summary != "Become a gopher" {
		t.Fatalf("roadmap fields wrong: %+v", rm)
	}
	if rm.CreatedAt == 0 {
		t.Fatalf("created_at not parsed")
	}
	if len(rm.Edges) != 2 {
		t.Fatalf("expected 2 derived edges, got %d", len(rm.Edges))
	}
	if rm.Edges[0].ID != "e-goal-1-ms-1" {
		t.Fatalf("edge id shape wrong: %q", rm.Edges[0].ID)
	}
	if rm.Edges[1].Source != "ms-1" || rm.Edges[1].Target != "t-1" {
		t.Fatalf("edge direction wrong: %+v", rm.Edges[1])
	}
}

func TestCloneIsDeep(t *testing.T) {
	rm := &Roadmap{
		ID:    "rm-1",
		Nodes: []Node{{ID: "n-1", Details: []string{"a"}}},
		Edges: []Edge{NewEdge("a", "b")},
	}

	c := rm.Clone()
	c.Nodes[0].Details[0] = "b"
	c.Nodes[0].Progress = 50
	c.Edges[0].Target = "z"

	if rm.Nodes[0].Details[0] != "a" || rm.Nodes[0].Progress != 0 {
		t.Fatalf("clone shares node backing array")
	}
	if rm.Edges[0].Target != "b" {
		t.Fatalf("clone shares edge backing array")
	}
}

func TestOverallProgress(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		want  int
	}{
		{"empty", nil, 0},
		{"tasks", []Node{
			{Type: NodeTypeTask, Progress: 50},
			{Type: NodeTypeTask, Progress: 100},
			{Type: NodeTypeMilestone, Progress: 10},
		}, 75},
		{"milestone fallback", []Node{
			{Type: NodeTypeMilestone, Progress: 40},
			{Type: NodeTypeGoal, Progress: 90},
		}, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallProgress(tt.nodes); got != tt.want {
				t.Fatalf("OverallProgress = %d, want %d", got, tt.want)
			}
		})
	}
}
