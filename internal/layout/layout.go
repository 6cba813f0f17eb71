package layout

import (
	"sort"

	"github.com/questforge/roadmap-engine/internal/roadmap"
)

// CardType is the renderer-side component tag attached to every positioned
// node. Persisted snapshots from before the rename carry "roadmapNode" and
// are migrated on rehydration.
const CardType = "roadmapCard"

// LegacyCardType is the pre-rename tag still found in old persisted state.
const LegacyCardType = "roadmapNode"

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var nodeSizes = map[roadmap.NodeType]Size{
	roadmap.NodeTypeGoal:      {Width: 280, Height: 140},
	roadmap.NodeTypeMilestone: {Width: 260, Height: 120},
	roadmap.NodeTypeTask:      {Width: 240, Height: 100},
}

// SizeFor returns the fixed render size for a node type. Unknown types get
// the task size.
func SizeFor(t roadmap.NodeType) Size {
	if s, ok := nodeSizes[t]; ok {
		return s
	}
	return nodeSizes[roadmap.NodeTypeTask]
}

// PositionedNode is a roadmap node with its computed top-left anchor.
type PositionedNode struct {
	ID     string       `json:"id"`
	Type   string       `json:"type"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Data   roadmap.Node `json:"data"`
}

// Compute assigns deterministic coordinates to every node and classifies
// every drawable edge. It is a pure function: same input, same output, and
// it recomputes the full graph on every call.
func Compute(nodes []roadmap.Node, edges []roadmap.Edge, opts Options) ([]PositionedNode, []StyledEdge) {
	opts = opts.withDefaults()

	known := make(map[string]int, len(nodes))
	for i, n := range nodes {
		known[n.ID] = i
	}

	// Only edges with both endpoints present participate in ranking or
	// styling; dangling references stay in the model but are not drawable.
	drawable := make([]roadmap.Edge, 0, len(edges))
	for _, e := range edges {
		if _, ok := known[e.Source]; !ok {
			continue
		}
		if _, ok := known[e.Target]; !ok {
			continue
		}
		drawable = append(drawable, e)
	}

	ranks := assignRanks(nodes, drawable, known)
	positions := placeNodes(nodes, drawable, ranks, known, opts)

	positioned := make([]PositionedNode, 0, len(nodes))
	for _, n := range nodes {
		size := SizeFor(n.Type)
		center := positions[n.ID]
		positioned = append(positioned, PositionedNode{
			ID:     n.ID,
			Type:   CardType,
			X:      center.x - float64(size.Width)/2,
			Y:      center.y - float64(size.Height)/2,
			Width:  size.Width,
			Height: size.Height,
			Data:   n,
		})
	}

	styled := make([]StyledEdge, 0, len(drawable))
	for _, e := range drawable {
		styled = append(styled, StyleEdge(e, nodes[known[e.Source]].Type, nodes[known[e.Target]].Type))
	}
	return positioned, styled
}

type point struct{ x, y float64 }

// assignRanks gives every connected node rank = longest path from a root.
// Relaxation is capped at the node count, which also terminates defensively
// on cyclic input. Nodes with no edges at all get rank -1 and are placed in
// the fallback row by placeNodes.
func assignRanks(nodes []roadmap.Node, edges []roadmap.Edge, known map[string]int) map[string]int {
	connected := make(map[string]bool, len(nodes))
	for _, e := range edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}

	ranks := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if connected[n.ID] {
			ranks[n.ID] = 0
		} else {
			ranks[n.ID] = -1
		}
	}

	for i := 0; i < len(nodes); i++ {
		changed := false
		for _, e := range edges {
			if r := ranks[e.Source] + 1; r > ranks[e.Target] {
				ranks[e.Target] = r
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return ranks
}

// placeNodes turns ranks into center coordinates. Within a rank, nodes are
// ordered by the barycenter of their parents' slots in the rank above, which
// keeps sibling groups under their parent and limits crossings. Each rank is
// centered on the widest rank.
func placeNodes(nodes []roadmap.Node, edges []roadmap.Edge, ranks map[string]int, known map[string]int, opts Options) map[string]point {
	parents := make(map[string][]string, len(nodes))
	for _, e := range edges {
		parents[e.Target] = append(parents[e.Target], e.Source)
	}

	maxRank := 0
	byRank := make(map[int][]string)
	for _, n := range nodes {
		r := ranks[n.ID]
		if r < 0 {
			continue
		}
		byRank[r] = append(byRank[r], n.ID)
		if r > maxRank {
			maxRank = r
		}
	}

	// slot[id] = position index within its rank, filled rank by rank so the
	// next rank's barycenters can reference it.
	slot := make(map[string]float64, len(nodes))
	for r := 0; r <= maxRank; r++ {
		ids := byRank[r]
		sort.SliceStable(ids, func(i, j int) bool {
			bi, bj := barycenter(ids[i], parents, slot, nodes, known), barycenter(ids[j], parents, slot, nodes, known)
			if bi != bj {
				return bi < bj
			}
			return known[ids[i]] < known[ids[j]]
		})
		for i, id := range ids {
			slot[id] = float64(i)
		}
	}

	// Span along the stacking axis per rank, for centering.
	span := func(ids []string) float64 {
		total := 0.0
		for i, id := range ids {
			if i > 0 {
				total += float64(opts.NodeSep)
			}
			total += stackExtent(nodes[known[id]].Type, opts)
		}
		return total
	}
	widest := 0.0
	for r := 0; r <= maxRank; r++ {
		if w := span(byRank[r]); w > widest {
			widest = w
		}
	}

	positions := make(map[string]point, len(nodes))
	rankOffset := 0.0
	for r := 0; r <= maxRank; r++ {
		ids := byRank[r]
		depth := 0.0
		for _, id := range ids {
			if d := rankExtent(nodes[known[id]].Type, opts); d > depth {
				depth = d
			}
		}
		cursor := (widest - span(ids)) / 2
		for _, id := range ids {
			extent := stackExtent(nodes[known[id]].Type, opts)
			positions[id] = makePoint(cursor+extent/2, rankOffset+depth/2, opts)
			cursor += extent + float64(opts.NodeSep)
		}
		rankOffset += depth + float64(opts.RankSep)
	}

	// Fallback row: disconnected nodes are laid out after the deepest rank,
	// in input order, so a bad edge set never sinks the whole layout.
	cursor := 0.0
	for _, n := range nodes {
		if ranks[n.ID] >= 0 {
			continue
		}
		extent := stackExtent(n.Type, opts)
		positions[n.ID] = makePoint(cursor+extent/2, rankOffset+rankExtent(n.Type, opts)/2, opts)
		cursor += extent + float64(opts.NodeSep)
	}

	for id, p := range positions {
		positions[id] = point{x: p.x + float64(opts.MarginX), y: p.y + float64(opts.MarginY)}
	}
	return positions
}

// barycenter averages the slots of a node's parents; parentless nodes sort
// by their own declared order.
func barycenter(id string, parents map[string][]string, slot map[string]float64, nodes []roadmap.Node, known map[string]int) float64 {
	ps := parents[id]
	if len(ps) == 0 {
		return float64(nodes[known[id]].Order)
	}
	sum := 0.0
	for _, p := range ps {
		sum += slot[p]
	}
	return sum / float64(len(ps))
}

// stackExtent is a node's size along the axis siblings stack on; rankExtent
// is its size along the axis ranks advance on.
func stackExtent(t roadmap.NodeType, opts Options) float64 {
	s := SizeFor(t)
	if opts.RankDir == RankDirLR {
		return float64(s.Height)
	}
	return float64(s.Width)
}

func rankExtent(t roadmap.NodeType, opts Options) float64 {
	s := SizeFor(t)
	if opts.RankDir == RankDirLR {
		return float64(s.Width)
	}
	return float64(s.Height)
}

func makePoint(stack, rank float64, opts Options) point {
	if opts.RankDir == RankDirLR {
		return point{x: rank, y: stack}
	}
	return point{x: stack, y: rank}
}
