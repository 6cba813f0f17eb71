package stream

// Event types emitted by the upstream generation stream. The milestones and
// tasks types belong to the previous API generation and decode into the
// same payloads as skeleton and actions.
const (
	EventRoadmapSkeleton      = "roadmap_skeleton"
	EventRoadmapActions       = "roadmap_actions"
	EventRoadmapDirectActions = "roadmap_direct_actions"
	EventRoadmapComplete      = "roadmap_complete"
	EventRoadmapMilestones    = "roadmap_milestones"
	EventRoadmapTasks         = "roadmap_tasks"
	EventError                = "error"
)

// Wire payloads. snake_case stays confined to this file; the reducer emits
// only canonical nodes.

type skeletonMilestone struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Details   string `json:"details,omitempty"`
	IsAssumed bool   `json:"is_assumed"`
	Order     int    `json:"order"`
}

type skeletonGoal struct {
	ID         string              `json:"id"`
	Label      string              `json:"label"`
	Details    string              `json:"details,omitempty"`
	Milestones []skeletonMilestone `json:"milestones"`
}

type skeletonPayload struct {
	Goal skeletonGoal `json:"goal"`
	// The older roadmap_milestones generation carried the milestone list at
	// the top level instead of nested under goal.
	Milestones []skeletonMilestone `json:"milestones,omitempty"`
	ThreadID   string              `json:"thread_id,omitempty"`
}

type actionPayloadItem struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Details   string `json:"details,omitempty"`
	IsAssumed bool   `json:"is_assumed"`
	Order     int    `json:"order"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	ParentID  string `json:"parent_id,omitempty"`
}

type actionsPayload struct {
	MilestoneID string              `json:"milestone_id"`
	Actions     []actionPayloadItem `json:"actions"`
	// roadmap_tasks used "tasks" as the array key.
	Tasks []actionPayloadItem `json:"tasks,omitempty"`
}

func (p actionsPayload) items() []actionPayloadItem {
	if len(p.Actions) > 0 {
		return p.Actions
	}
	return p.Tasks
}

type completePayload struct {
	RoadmapID string `json:"roadmap_id"`
}

type errorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Milestone generation status as shown by the in-progress transition view.
const (
	MilestoneStatusPending    = "pending"
	MilestoneStatusGenerating = "generating"
	MilestoneStatusDone       = "done"
)

// MilestoneStatus is the transient per-milestone stepper entry. It is
// UI-facing only and never persisted.
type MilestoneStatus struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// StreamingAction is a transient stepper entry for a generated action.
type StreamingAction struct {
	MilestoneID string `json:"milestoneId"`
	ID          string `json:"id"`
	Label       string `json:"label"`
}

// Streaming steps, advanced monotonically across the generation session.
const (
	StepGoalAnalysis    = 1
	StepMilestoneDesign = 2
	StepActionPlanning  = 3
	StepFinalizing      = 4
)
