package layout

import (
	"github.com/questforge/roadmap-engine/internal/roadmap"
)

// Tiered layout constants. These are fixed, not data-driven; they were
// chosen so sibling nodes never overlap at the expected fan-out.
const (
	tieredGoalY       = 0.0
	tieredMilestoneY  = 300.0
	tieredActionY     = 600.0
	tieredColumnWidth = 350.0
	tieredActionStepX = 150.0
	tieredActionStepY = 80.0
	tieredDirectStepY = 100.0
	tieredDirectPadX  = 100.0
)

// ComputeTiered is the legacy three-tier strategy: goal centered on top,
// milestones in one evenly spaced row, each milestone's tasks stacked under
// it, and the goal's direct tasks in a column right of the last milestone.
// Kept selectable for callers that need manual control over the milestone
// row; the rank layout is the canonical strategy.
func ComputeTiered(nodes []roadmap.Node, edges []roadmap.Edge) ([]PositionedNode, []StyledEdge) {
	byID := make(map[string]roadmap.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	children := make(map[string][]string, len(nodes))
	for _, e := range edges {
		children[e.Source] = append(children[e.Source], e.Target)
	}

	var goal *roadmap.Node
	var milestones []roadmap.Node
	for i := range nodes {
		switch nodes[i].Type {
		case roadmap.NodeTypeGoal:
			if goal == nil {
				goal = &nodes[i]
			}
		case roadmap.NodeTypeMilestone:
			milestones = append(milestones, nodes[i])
		}
	}

	positioned := make([]PositionedNode, 0, len(nodes))
	place := func(n roadmap.Node, x, y float64) {
		size := SizeFor(n.Type)
		positioned = append(positioned, PositionedNode{
			ID:     n.ID,
			Type:   CardType,
			X:      x,
			Y:      y,
			Width:  size.Width,
			Height: size.Height,
			Data:   n,
		})
	}

	if goal != nil {
		totalWidth := float64(len(milestones)-1) * tieredColumnWidth
		place(*goal, totalWidth/2, tieredGoalY)
	}

	placed := map[string]bool{}
	if goal != nil {
		placed[goal.ID] = true
	}

	for mIdx, m := range milestones {
		x := float64(mIdx) * tieredColumnWidth
		place(m, x, tieredMilestoneY)
		placed[m.ID] = true

		tasks := childTasks(children[m.ID], byID)
		for aIdx, task := range tasks {
			offsetX := (float64(aIdx) - float64(len(tasks)-1)/2) * tieredActionStepX
			place(task, x+offsetX, tieredActionY+float64(aIdx)*tieredActionStepY)
			placed[task.ID] = true
		}
	}

	if goal != nil {
		rightMostX := float64(len(milestones)) * tieredColumnWidth
		for aIdx, task := range childTasks(children[goal.ID], byID) {
			place(task, rightMostX+tieredDirectPadX, tieredMilestoneY+float64(aIdx)*tieredDirectStepY)
			placed[task.ID] = true
		}
	}

	// Anything the tiers could not reach still gets drawn, stacked under the
	// action tier so nothing silently disappears.
	overflow := 0
	for _, n := range nodes {
		if placed[n.ID] {
			continue
		}
		place(n, -tieredColumnWidth, tieredActionY+float64(overflow)*tieredDirectStepY)
		overflow++
	}

	styled := make([]StyledEdge, 0, len(edges))
	for _, e := range edges {
		src, okSrc := byID[e.Source]
		dst, okDst := byID[e.Target]
		if !okSrc || !okDst {
			continue
		}
		styled = append(styled, StyleEdge(e, src.Type, dst.Type))
	}
	return positioned, styled
}

func childTasks(ids []string, byID map[string]roadmap.Node) []roadmap.Node {
	tasks := make([]roadmap.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok && n.Type == roadmap.NodeTypeTask {
			tasks = append(tasks, n)
		}
	}
	return tasks
}
