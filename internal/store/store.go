package store

import (
	"sync"

	"github.com/questforge/roadmap-engine/internal/layout"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/roadmap"
	"github.com/questforge/roadmap-engine/internal/stream"
)

// ProgressUpdate is one confirmed delta against a node.
type ProgressUpdate struct {
	NodeID string `json:"nodeId"`
	Delta  int    `json:"delta"`
}

// StreamingState mirrors the live generation feed for the view.
type StreamingState struct {
	Active     bool                     `json:"active"`
	SessionID  string                   `json:"sessionId,omitempty"`
	Step       int                      `json:"step"`
	Status     string                   `json:"status,omitempty"`
	Milestones []stream.MilestoneStatus `json:"milestones,omitempty"`
	Actions    []stream.StreamingAction `json:"actions,omitempty"`
}

// Store holds the active roadmap, its derived views, and the history
// list. History is newest first and deduplicated by id. Everything is
// guarded by one mutex; snapshots returned to callers are copies.
type Store struct {
	mu sync.RWMutex

	log *logger.Logger

	active     *roadmap.Roadmap
	positioned []layout.PositionedNode
	styled     []layout.StyledEdge

	history []*roadmap.Roadmap

	selectedNodeID string
	streaming      StreamingState

	// syncDone flips once per activation of the active roadmap; Load and
	// SetRoadmap with a new id reset it.
	syncDone bool
}

func New(log *logger.Logger) *Store {
	return &Store{log: log.With("component", "RoadmapStore")}
}

// SetRoadmap makes rm the active roadmap and records it in history.
// A second call with the same id updates the existing history entry in
// place instead of adding another.
func (s *Store) SetRoadmap(rm *roadmap.Roadmap) {
	if rm == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.ID != rm.ID {
		s.syncDone = false
	}
	s.active = rm.Clone()
	s.selectedNodeID = ""

	for i, h := range s.history {
		if h.ID == rm.ID {
			s.history[i] = rm.Clone()
			return
		}
	}
	s.history = append([]*roadmap.Roadmap{rm.Clone()}, s.history...)
}

// RenameRoadmap moves the placeholder id onto the server-issued one.
// The history entry keeps its position; nothing is added or removed.
func (s *Store) RenameRoadmap(oldID, newID string) {
	if oldID == "" || newID == "" || oldID == newID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.active.ID == oldID {
		s.active.ID = newID
	}
	for _, h := range s.history {
		if h.ID == oldID {
			h.ID = newID
		}
	}
}

// ReplaceFromSnapshot overwrites local state for rm.ID with the server
// snapshot. Server data wins over any unconfirmed local changes.
func (s *Store) ReplaceFromSnapshot(rm *roadmap.Roadmap) {
	if rm == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.active.ID == rm.ID {
		s.active = rm.Clone()
	}
	for i, h := range s.history {
		if h.ID == rm.ID {
			s.history[i] = rm.Clone()
			return
		}
	}
	s.history = append([]*roadmap.Roadmap{rm.Clone()}, s.history...)
}

// MarkSyncAttempted reports whether a sync may run for the active
// roadmap. It returns true exactly once per activation.
func (s *Store) MarkSyncAttempted(roadmapID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.ID != roadmapID {
		return false
	}
	if s.syncDone {
		return false
	}
	s.syncDone = true
	return true
}

func (s *Store) SetPositioned(nodes []layout.PositionedNode, edges []layout.StyledEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positioned = append([]layout.PositionedNode(nil), nodes...)
	s.styled = append([]layout.StyledEdge(nil), edges...)
}

func (s *Store) Positioned() ([]layout.PositionedNode, []layout.StyledEdge) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]layout.PositionedNode(nil), s.positioned...),
		append([]layout.StyledEdge(nil), s.styled...)
}

func (s *Store) Active() *roadmap.Roadmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil
	}
	return s.active.Clone()
}

func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return ""
	}
	return s.active.ID
}

// History returns the list newest first.
func (s *Store) History() []*roadmap.Roadmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*roadmap.Roadmap, len(s.history))
	for i, h := range s.history {
		out[i] = h.Clone()
	}
	return out
}

func (s *Store) HistoryEntry(id string) *roadmap.Roadmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.history {
		if h.ID == id {
			return h.Clone()
		}
	}
	return nil
}

// MergeHistory folds server-side roadmaps into the local list without
// disturbing entries already present. New entries are appended in their
// incoming order after existing ones keep their positions.
func (s *Store) MergeHistory(roadmaps []*roadmap.Roadmap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.history))
	for _, h := range s.history {
		seen[h.ID] = true
	}
	for _, rm := range roadmaps {
		if rm == nil || seen[rm.ID] {
			continue
		}
		seen[rm.ID] = true
		s.history = append(s.history, rm.Clone())
	}
}

// RemoveRoadmap drops id from history and clears the active roadmap if
// it was the one removed.
func (s *Store) RemoveRoadmap(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.history[:0]
	for _, h := range s.history {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	s.history = kept

	if s.active != nil && s.active.ID == id {
		s.active = nil
		s.positioned = nil
		s.styled = nil
		s.selectedNodeID = ""
		s.syncDone = false
	}
}

// ApplyProgressUpdates applies confirmed deltas to the active roadmap
// and to the positioned copies in lockstep, clamping to [0, 100].
// Unknown node ids are ignored. It reports whether anything changed.
func (s *Store) ApplyProgressUpdates(updates []ProgressUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || len(updates) == 0 {
		return false
	}

	changed := false
	for _, u := range updates {
		node := findNode(s.active.Nodes, u.NodeID)
		if node == nil {
			s.log.Debug("Progress update for unknown node, ignoring", "node_id", u.NodeID)
			continue
		}
		next := clamp(node.Progress + u.Delta)
		node.Progress = next
		if next >= 100 {
			node.Status = roadmap.NodeStatusCompleted
		} else if next > 0 {
			node.Status = roadmap.NodeStatusInProgress
		}
		changed = true

		for i := range s.positioned {
			if s.positioned[i].ID == u.NodeID {
				s.positioned[i].Data.Progress = next
				s.positioned[i].Data.Status = node.Status
			}
		}
	}

	if changed {
		for i, h := range s.history {
			if h.ID == s.active.ID {
				s.history[i] = s.active.Clone()
			}
		}
	}
	return changed
}

func (s *Store) SelectNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || (s.active != nil && s.active.HasNode(id)) {
		s.selectedNodeID = id
	}
}

func (s *Store) SelectedNodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedNodeID
}

func (s *Store) SetStreaming(state StreamingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = state
}

func (s *Store) Streaming() StreamingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.streaming
	out.Milestones = append([]stream.MilestoneStatus(nil), s.streaming.Milestones...)
	out.Actions = append([]stream.StreamingAction(nil), s.streaming.Actions...)
	return out
}

func findNode(nodes []roadmap.Node, id string) *roadmap.Node {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
	}
	return nil
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
