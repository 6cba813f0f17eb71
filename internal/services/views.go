package services

import (
	"encoding/json"

	"github.com/questforge/roadmap-engine/internal/layout"
	"github.com/questforge/roadmap-engine/internal/roadmap"
	"github.com/questforge/roadmap-engine/internal/types"
)

// Layout engine names accepted in configuration.
const (
	LayoutEngineRanked = "ranked"
	LayoutEngineTiered = "tiered"
)

// layoutViews derives the positioned nodes and styled edges for a
// roadmap with the configured engine. The ranked engine is the default;
// tiered reproduces the fixed three-band arrangement.
func layoutViews(rm *roadmap.Roadmap, engine string, opts layout.Options) ([]layout.PositionedNode, []layout.StyledEdge) {
	if rm == nil {
		return nil, nil
	}
	if engine == LayoutEngineTiered {
		return layout.ComputeTiered(rm.Nodes, rm.Edges)
	}
	return layout.Compute(rm.Nodes, rm.Edges, opts)
}

func recordFromRoadmap(rm *roadmap.Roadmap, positioned []layout.PositionedNode) *types.RoadmapRecord {
	if rm == nil {
		return nil
	}
	nodesRaw, _ := json.Marshal(rm.Nodes)
	edgesRaw, _ := json.Marshal(rm.Edges)
	var positionedRaw []byte
	if len(positioned) > 0 {
		positionedRaw, _ = json.Marshal(positioned)
	}
	return &types.RoadmapRecord{
		ID:            rm.ID,
		Title:         rm.Title,
		Summary:       rm.Summary,
		Score:         rm.Score,
		Nodes:         nodesRaw,
		Edges:         edgesRaw,
		Positioned:    positionedRaw,
		SchemaVersion: types.RoadmapSchemaVersion,
		GeneratedAt:   rm.CreatedAt,
	}
}

func roadmapFromRecord(row *types.RoadmapRecord) (*roadmap.Roadmap, error) {
	if row == nil {
		return nil, nil
	}
	rm := &roadmap.Roadmap{
		ID:        row.ID,
		Title:     row.Title,
		Summary:   row.Summary,
		Score:     row.Score,
		CreatedAt: row.GeneratedAt,
	}
	if rm.CreatedAt == 0 {
		rm.CreatedAt = row.CreatedAt.UnixMilli()
	}
	if len(row.Nodes) > 0 {
		if err := json.Unmarshal(row.Nodes, &rm.Nodes); err != nil {
			return nil, err
		}
	}
	if len(row.Edges) > 0 {
		if err := json.Unmarshal(row.Edges, &rm.Edges); err != nil {
			return nil, err
		}
	}
	if len(rm.Edges) == 0 && len(rm.Nodes) > 0 {
		rm.Edges = roadmap.DeriveEdges(rm.Nodes)
	}
	return rm, nil
}
