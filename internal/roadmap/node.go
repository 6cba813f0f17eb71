package roadmap

import (
	"fmt"
	"time"
)

type NodeType string

const (
	NodeTypeGoal      NodeType = "goal"
	NodeTypeMilestone NodeType = "milestone"
	NodeTypeTask      NodeType = "task"
)

type NodeStatus string

const (
	NodeStatusPending    NodeStatus = "pending"
	NodeStatusInProgress NodeStatus = "in_progress"
	NodeStatusCompleted  NodeStatus = "completed"
)

// NormalizeType maps legacy type tags onto the canonical set. Older API
// generations emitted "action" for what is now "task".
func NormalizeType(raw string) NodeType {
	switch raw {
	case "goal":
		return NodeTypeGoal
	case "milestone":
		return NodeTypeMilestone
	case "action", "step":
		return NodeTypeTask
	default:
		return NodeTypeTask
	}
}

// Node is the canonical in-memory roadmap node. Server payloads arrive in
// snake_case and are converted exactly once, at the ingestion boundary.
type Node struct {
	ID                 string     `json:"id"`
	Label              string     `json:"label"`
	Type               NodeType   `json:"type"`
	Details            []string   `json:"details,omitempty"`
	IsAssumed          bool       `json:"isAssumed"`
	Status             NodeStatus `json:"status,omitempty"`
	Order              int        `json:"order"`
	Progress           int        `json:"progress"`
	StartDate          string     `json:"startDate,omitempty"`
	EndDate            string     `json:"endDate,omitempty"`
	CompletionCriteria string     `json:"completionCriteria,omitempty"`
	ParentID           string     `json:"parentId,omitempty"`
}

// Edge is a directed parent→child connection.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// EdgeID builds the conventional display id for an edge. Callers must not
// rely on this shape for anything but display.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e-%s-%s", source, target)
}

func NewEdge(source, target string) Edge {
	return Edge{ID: EdgeID(source, target), Source: source, Target: target}
}

type Roadmap struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Score     int    `json:"score"`
	CreatedAt int64  `json:"createdAt"`
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
}

// NewPlaceholderID returns a client-synthesized roadmap id used while a
// generation stream is in flight. The server-issued id replaces it later
// via a rename, never a delete+insert.
func NewPlaceholderID(now time.Time) string {
	return fmt.Sprintf("rm-%d", now.UnixMilli())
}

// NewNodeID returns a client-synthesized id for user-added nodes that have
// not been persisted yet.
func NewNodeID(now time.Time) string {
	return fmt.Sprintf("new-%d", now.UnixMilli())
}

func (r *Roadmap) FindNode(id string) *Node {
	for i := range r.Nodes {
		if r.Nodes[i].ID == id {
			return &r.Nodes[i]
		}
	}
	return nil
}

func (r *Roadmap) HasNode(id string) bool {
	return r.FindNode(id) != nil
}

// Goal returns the single goal node, or nil when the roadmap has none.
func (r *Roadmap) Goal() *Node {
	for i := range r.Nodes {
		if r.Nodes[i].Type == NodeTypeGoal {
			return &r.Nodes[i]
		}
	}
	return nil
}

// Clone deep-copies the roadmap so a caller can hand out a snapshot without
// sharing the node/edge backing arrays.
func (r *Roadmap) Clone() *Roadmap {
	if r == nil {
		return nil
	}
	out := *r
	out.Nodes = make([]Node, len(r.Nodes))
	for i, n := range r.Nodes {
		out.Nodes[i] = n
		if n.Details != nil {
			out.Nodes[i].Details = append([]string(nil), n.Details...)
		}
	}
	out.Edges = append([]Edge(nil), r.Edges...)
	return &out
}

// OverallProgress is the mean progress across task nodes, falling back to
// milestones for roadmaps whose tasks have not been generated yet.
func OverallProgress(nodes []Node) int {
	sum, count := 0, 0
	for _, n := range nodes {
		if n.Type == NodeTypeTask {
			sum += n.Progress
			count++
		}
	}
	if count == 0 {
		for _, n := range nodes {
			if n.Type == NodeTypeMilestone {
				sum += n.Progress
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / count
}
