package layout

import (
	"github.com/questforge/roadmap-engine/internal/roadmap"
)

// EdgeStyle mirrors the stroke attributes the renderer applies verbatim.
type EdgeStyle struct {
	Stroke          string  `json:"stroke"`
	StrokeWidth     float64 `json:"strokeWidth"`
	StrokeDasharray string  `json:"strokeDasharray,omitempty"`
}

type StyledEdge struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	Type     string    `json:"type"`
	Animated bool      `json:"animated"`
	Style    EdgeStyle `json:"style"`
}

const edgeRenderType = "smoothstep"

// ClassifyEdge picks the visual weight for an edge purely from the types of
// its endpoints. Goal→milestone is the trunk, milestone→task the branch,
// goal→task the dashed cross-cutting accent; everything else renders thin
// and neutral.
func ClassifyEdge(sourceType, targetType roadmap.NodeType) EdgeStyle {
	switch {
	case sourceType == roadmap.NodeTypeGoal && targetType == roadmap.NodeTypeMilestone:
		return EdgeStyle{Stroke: "#3d84f5", StrokeWidth: 2.5}
	case sourceType == roadmap.NodeTypeMilestone && targetType == roadmap.NodeTypeTask:
		return EdgeStyle{Stroke: "#10b981", StrokeWidth: 2}
	case sourceType == roadmap.NodeTypeGoal && targetType == roadmap.NodeTypeTask:
		return EdgeStyle{Stroke: "#f59e0b", StrokeWidth: 2, StrokeDasharray: "6 3"}
	default:
		return EdgeStyle{Stroke: "#475569", StrokeWidth: 1.5}
	}
}

// StyleEdge wraps an edge with its classification for the renderer.
func StyleEdge(e roadmap.Edge, sourceType, targetType roadmap.NodeType) StyledEdge {
	return StyledEdge{
		ID:       e.ID,
		Source:   e.Source,
		Target:   e.Target,
		Type:     edgeRenderType,
		Animated: false,
		Style:    ClassifyEdge(sourceType, targetType),
	}
}
