package roadmap

import (
	"time"
)

// ServerNode is the wire shape the upstream REST API uses for nodes. Field
// names are snake_case there; nothing outside this file should ever see
// them. The normalized camelCase Node is the only shape allowed past the
// ingestion boundary.
type ServerNode struct {
	ID                 string `json:"id"`
	ParentID           string `json:"parent_id,omitempty"`
	Type               string `json:"type"`
	Label              string `json:"label"`
	Details            string `json:"details,omitempty"`
	Order              int    `json:"order"`
	IsAssumed          bool   `json:"is_assumed"`
	Status             string `json:"status,omitempty"`
	Progress           int    `json:"progress"`
	CompletionCriteria string `json:"completion_criteria,omitempty"`
	StartDate          string `json:"start_date,omitempty"`
	EndDate            string `json:"end_date,omitempty"`
}

// ServerRoadmap is the wire shape of a full roadmap snapshot. The server
// persists the tree through parent_id only; edges are derived client-side.
type ServerRoadmap struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Goal      string       `json:"goal,omitempty"`
	Status    string       `json:"status,omitempty"`
	Nodes     []ServerNode `json:"nodes"`
	CreatedAt string       `json:"created_at,omitempty"`
	UpdatedAt string       `json:"updated_at,omitempty"`
}

// NodeFromServer converts one server node to the canonical shape.
func NodeFromServer(sn ServerNode) Node {
	n := Node{
		ID:                 sn.ID,
		Label:              sn.Label,
		Type:               NormalizeType(sn.Type),
		IsAssumed:          sn.IsAssumed,
		Order:              sn.Order,
		Progress:           clampProgress(sn.Progress),
		StartDate:          sn.StartDate,
		EndDate:            sn.EndDate,
		CompletionCriteria: sn.CompletionCriteria,
		ParentID:           sn.ParentID,
	}
	if sn.Details != "" {
		n.Details = []string{sn.Details}
	}
	switch sn.Status {
	case string(NodeStatusInProgress):
		n.Status = NodeStatusInProgress
	case string(NodeStatusCompleted):
		n.Status = NodeStatusCompleted
	default:
		n.Status = NodeStatusPending
	}
	return n
}

// FromServer converts a full snapshot, deriving parent→child edges from
// explicit parent references.
func FromServer(sr ServerRoadmap) *Roadmap {
	nodes := make([]Node, 0, len(sr.Nodes))
	for _, sn := range sr.Nodes {
		nodes = append(nodes, NodeFromServer(sn))
	}
	rm := &Roadmap{
		ID:        sr.ID,
		Title:     sr.Title,
		Summary:   sr.Goal,
		CreatedAt: parseServerTime(sr.CreatedAt),
		Nodes:     nodes,
		Edges:     DeriveEdges(nodes),
	}
	return rm
}

// DeriveEdges synthesizes edges from parent references for snapshots that
// carry none of their own.
func DeriveEdges(nodes []Node) []Edge {
	edges := make([]Edge, 0, len(nodes))
	for _, n := range nodes {
		if n.ParentID == "" {
			continue
		}
		edges = append(edges, NewEdge(n.ParentID, n.ID))
	}
	return edges
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func parseServerTime(raw string) int64 {
	if raw == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
