package stream

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/roadmap"
)

// Session is the accumulator for one generation stream. It owns the
// in-progress roadmap plus the transient stepper state and applies events
// strictly in arrival order. A superseded session keeps reducing, but its
// owner stops reading from it, so stale events can never touch a newer
// accumulator.
type Session struct {
	ID uuid.UUID

	mu            sync.Mutex
	log           *logger.Logger
	rm            *roadmap.Roadmap
	placeholderID string
	serverID      string
	goalID        string
	goalLabel     string
	status        string
	step          int
	milestones    []MilestoneStatus
	actions       []StreamingAction
	expanded      map[string]bool
	skeletonSeen  bool
	directSeen    bool
	terminal      bool
	failed        bool
	lastErr       error
}

func NewSession(log *logger.Logger, title string, now time.Time) *Session {
	if title == "" {
		title = "New Roadmap"
	}
	id := uuid.New()
	placeholder := roadmap.NewPlaceholderID(now)
	return &Session{
		ID:            id,
		log:           log.With("stream_session", id.String()),
		placeholderID: placeholder,
		goalLabel:     title,
		status:        "Analyzing your goal...",
		step:          StepGoalAnalysis,
		expanded:      make(map[string]bool),
		rm: &roadmap.Roadmap{
			ID:        placeholder,
			Title:     title,
			Summary:   "Generating...",
			CreatedAt: now.UnixMilli(),
		},
	}
}

// Apply reduces one event into the accumulator and reports whether the
// caller should refresh the derived views. Intermediate events never ask
// for a refresh; only the terminal direct-actions event (or the server's
// completion notice) does.
func (s *Session) Apply(event, data string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event {
	case EventRoadmapSkeleton, EventRoadmapMilestones:
		return s.applySkeleton(event, data)
	case EventRoadmapActions, EventRoadmapTasks:
		return s.applyActions(event, data)
	case EventRoadmapDirectActions:
		return s.applyDirectActions(data)
	case EventRoadmapComplete:
		return s.applyComplete(data)
	case EventError:
		var payload errorPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			payload.Message = data
		}
		s.lastErr = fmt.Errorf("roadmap stream error (code=%q): %s", payload.Code, payload.Message)
		s.log.Error("Roadmap stream reported an error", "code", payload.Code, "message", payload.Message)
		return false
	default:
		s.log.Debug("Ignoring unknown stream event", "event", event)
		return false
	}
}

func (s *Session) applySkeleton(event, data string) bool {
	if s.skeletonSeen {
		s.log.Warn("Duplicate skeleton event, ignoring", "event", event)
		return false
	}
	var payload skeletonPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		// The skeleton is the frame everything else hangs off; a broken one
		// fails the whole session.
		s.failed = true
		s.lastErr = fmt.Errorf("malformed skeleton frame: %w", err)
		s.log.Error("Malformed skeleton frame, failing session", "error", err)
		return false
	}

	goal := payload.Goal
	milestones := goal.Milestones
	if len(milestones) == 0 {
		// Previous API generation: milestone list at the top level.
		milestones = payload.Milestones
	}
	if goal.ID == "" {
		goal.ID = fmt.Sprintf("goal-%d", s.rm.CreatedAt)
		goal.Label = s.goalLabel
	}

	s.skeletonSeen = true
	s.goalID = goal.ID
	s.goalLabel = goal.Label
	if goal.Details != "" {
		s.rm.Summary = goal.Details
	} else {
		s.rm.Summary = "Quest roadmap"
	}

	s.appendNode(roadmap.Node{
		ID:      goal.ID,
		Label:   goal.Label,
		Type:    roadmap.NodeTypeGoal,
		Details: wrapDetails(goal.Details),
		Status:  roadmap.NodeStatusPending,
	})

	s.milestones = make([]MilestoneStatus, 0, len(milestones))
	for i, m := range milestones {
		order := m.Order
		if order == 0 {
			order = i
		}
		if s.appendNode(roadmap.Node{
			ID:        m.ID,
			Label:     m.Label,
			Type:      roadmap.NodeTypeMilestone,
			Details:   wrapDetails(m.Details),
			IsAssumed: m.IsAssumed,
			Status:    roadmap.NodeStatusPending,
			Order:     order,
			ParentID:  goal.ID,
		}) {
			s.rm.Edges = append(s.rm.Edges, roadmap.NewEdge(goal.ID, m.ID))
		}
		s.milestones = append(s.milestones, MilestoneStatus{ID: m.ID, Label: m.Label, Status: MilestoneStatusPending})
	}
	if len(s.milestones) > 0 {
		s.milestones[0].Status = MilestoneStatusGenerating
	}

	s.advanceStep(StepMilestoneDesign)
	s.status = "Designing milestones..."
	return false
}

func (s *Session) applyActions(event, data string) bool {
	var payload actionsPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		s.log.Warn("Malformed actions frame, dropping", "event", event, "error", err)
		return false
	}
	milestoneID := payload.MilestoneID
	if !s.skeletonSeen || milestoneID == "" || !s.knowsMilestone(milestoneID) {
		s.log.Warn("Actions for unknown milestone, skipping", "milestone_id", milestoneID)
		return false
	}
	if s.expanded[milestoneID] {
		s.log.Debug("Milestone already expanded, ignoring replay", "milestone_id", milestoneID)
		return false
	}
	s.expanded[milestoneID] = true

	for i, a := range payload.items() {
		order := a.Order
		if order == 0 {
			order = i
		}
		if s.appendNode(roadmap.Node{
			ID:        a.ID,
			Label:     a.Label,
			Type:      roadmap.NodeTypeTask,
			Details:   wrapDetails(a.Details),
			IsAssumed: a.IsAssumed,
			Status:    roadmap.NodeStatusPending,
			Order:     order,
			StartDate: a.StartDate,
			EndDate:   a.EndDate,
			ParentID:  milestoneID,
		}) {
			s.rm.Edges = append(s.rm.Edges, roadmap.NewEdge(milestoneID, a.ID))
			s.actions = append(s.actions, StreamingAction{MilestoneID: milestoneID, ID: a.ID, Label: a.Label})
		}
	}

	for i := range s.milestones {
		if s.milestones[i].ID == milestoneID {
			s.milestones[i].Status = MilestoneStatusDone
		}
	}
	// The stepper highlights the next milestone awaiting its actions.
	for i := range s.milestones {
		if s.milestones[i].Status != MilestoneStatusDone {
			s.milestones[i].Status = MilestoneStatusGenerating
			break
		}
	}

	// Step 3 is entered once and never left while more action batches come in.
	s.advanceStep(StepActionPlanning)
	s.status = "Planning actions for milestone..."
	return false
}

func (s *Session) applyDirectActions(data string) bool {
	var payload actionsPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		s.log.Warn("Malformed direct actions frame, dropping", "error", err)
		return false
	}
	if s.directSeen {
		s.log.Debug("Direct actions already applied, ignoring replay")
		return s.markTerminal()
	}
	if s.goalID == "" {
		s.log.Warn("Direct actions before skeleton, skipping")
		return false
	}
	s.directSeen = true

	for _, a := range payload.items() {
		parent := a.ParentID
		if parent == "" {
			parent = s.goalID
		}
		if s.appendNode(roadmap.Node{
			ID:        a.ID,
			Label:     a.Label,
			Type:      roadmap.NodeTypeTask,
			Details:   wrapDetails(a.Details),
			Status:    roadmap.NodeStatusPending,
			Order:     a.Order,
			StartDate: a.StartDate,
			EndDate:   a.EndDate,
			ParentID:  parent,
		}) {
			s.rm.Edges = append(s.rm.Edges, roadmap.NewEdge(s.goalID, a.ID))
		}
	}
	return s.markTerminal()
}

func (s *Session) applyComplete(data string) bool {
	var payload completePayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil || payload.RoadmapID == "" {
		s.log.Warn("Malformed completion frame, dropping", "error", err)
		return false
	}
	// The server-issued id replaces the client placeholder. Downstream this
	// is a rename of the same entity, never a new one.
	s.serverID = payload.RoadmapID
	s.rm.ID = payload.RoadmapID
	return s.markTerminal()
}

func (s *Session) markTerminal() bool {
	s.advanceStep(StepFinalizing)
	s.status = "Finalizing roadmap..."
	s.terminal = true
	return true
}

func (s *Session) advanceStep(step int) {
	if step > s.step {
		s.step = step
	}
}

func (s *Session) appendNode(n roadmap.Node) bool {
	if s.rm.HasNode(n.ID) {
		s.log.Debug("Node already present, skipping duplicate", "node_id", n.ID)
		return false
	}
	s.rm.Nodes = append(s.rm.Nodes, n)
	return true
}

func (s *Session) knowsMilestone(id string) bool {
	for _, m := range s.milestones {
		if m.ID == id {
			return true
		}
	}
	return false
}

func wrapDetails(d string) []string {
	if d == "" {
		return nil
	}
	return []string{d}
}

// Roadmap returns a snapshot of the accumulator.
func (s *Session) Roadmap() *roadmap.Roadmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rm.Clone()
}

func (s *Session) PlaceholderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeholderID
}

func (s *Session) ServerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverID
}

func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) GoalLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goalLabel
}

func (s *Session) Milestones() []MilestoneStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MilestoneStatus(nil), s.milestones...)
}

func (s *Session) Actions() []StreamingAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StreamingAction(nil), s.actions...)
}

// Terminal reports whether the stream reached its view-refresh trigger.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Failed reports an unrecoverable session (broken skeleton frame).
func (s *Session) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Err returns the last surfaced stream error, if any. An error does not
// stop the reducer; later events are still applied defensively.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// NodeCount is used by the completion fallback: a stream that ends without
// a direct-actions event still refreshes the view when it produced nodes.
func (s *Session) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rm.Nodes)
}
