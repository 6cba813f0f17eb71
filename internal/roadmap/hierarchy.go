package roadmap

import (
	"sort"
)

// Hierarchy is the goal → milestone → task view derived from the flat graph.
// Tasks whose parent cannot be resolved land in Orphans; they are still
// rendered, never dropped. Buckets keyed by an id that matches no milestone
// are kept as-is; downstream views simply never look them up, which is the
// intended degradation for stale parent references.
type Hierarchy struct {
	Goal       *Node
	Milestones []Node
	Tasks      map[string][]Node
	Orphans    []Node
}

// DeriveHierarchy reconstructs the display tree from a flat node/edge set.
// Parent resolution prefers the explicit parentId and falls back to the
// incoming edge's source.
func DeriveHierarchy(nodes []Node, edges []Edge) Hierarchy {
	parentByTarget := make(map[string]string, len(edges))
	for _, e := range edges {
		if _, ok := parentByTarget[e.Target]; !ok {
			parentByTarget[e.Target] = e.Source
		}
	}

	h := Hierarchy{Tasks: make(map[string][]Node)}

	for i := range nodes {
		if nodes[i].Type == NodeTypeGoal {
			h.Goal = &nodes[i]
			break
		}
	}

	for _, n := range nodes {
		switch n.Type {
		case NodeTypeMilestone:
			h.Milestones = append(h.Milestones, n)
		case NodeTypeTask:
			parent := n.ParentID
			if parent == "" {
				parent = parentByTarget[n.ID]
			}
			if parent == "" {
				h.Orphans = append(h.Orphans, n)
				continue
			}
			// Bucket existence is deliberately not validated against the
			// milestone list; a bucket for an id nothing renders is fine.
			h.Tasks[parent] = append(h.Tasks[parent], n)
		}
	}

	sortByOrder(h.Milestones)
	for id := range h.Tasks {
		sortByOrder(h.Tasks[id])
	}
	sortByOrder(h.Orphans)
	return h
}

// TaskCount reports how many tasks the hierarchy holds across all buckets
// and the orphan set.
func (h Hierarchy) TaskCount() int {
	count := len(h.Orphans)
	for _, tasks := range h.Tasks {
		count += len(tasks)
	}
	return count
}

// sortByOrder sorts siblings by their order field, ties broken by original
// array position. The stable sort is load-bearing: nodes without an order
// default to 0 and must keep arrival order.
func sortByOrder(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Order < nodes[j].Order
	})
}
