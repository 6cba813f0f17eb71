package questforge

import "github.com/questforge/roadmap-engine/internal/roadmap"

type GenerateRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	Goal     string `json:"goal,omitempty"`
}

// NodeUpdate is a proposed or applied progress change for one node.
type NodeUpdate struct {
	NodeID        string `json:"node_id"`
	ProgressDelta int    `json:"progress_delta"`
	LogEntry      string `json:"log_entry,omitempty"`
}

type CheckInAnalysis struct {
	CheckInID       string       `json:"checkin_id"`
	Summary         string       `json:"summary,omitempty"`
	ProposedUpdates []NodeUpdate `json:"proposed_updates"`
}

type checkInAnalyzeRequest struct {
	RoadmapID string `json:"roadmap_id"`
	Message   string `json:"message"`
}

type checkInConfirmResponse struct {
	Applied []NodeUpdate `json:"applied_updates"`
}

type listRoadmapsResponse struct {
	Roadmaps []roadmap.ServerRoadmap `json:"roadmaps"`
}
