package services

import (
	"context"

	"github.com/questforge/roadmap-engine/internal/sse"
	"github.com/questforge/roadmap-engine/internal/store"
	"github.com/questforge/roadmap-engine/internal/stream"
)

// RoadmapNotifier pushes roadmap lifecycle events to connected viewers.
// All methods are fire-and-forget.
type RoadmapNotifier interface {
	StreamStep(sessionID string, step int, status string)
	StreamMilestones(sessionID string, milestones []stream.MilestoneStatus)
	StreamAction(sessionID string, action stream.StreamingAction)
	StreamError(sessionID string, message string)

	RoadmapUpdated(roadmapID string)
	RoadmapCompleted(roadmapID string)
	RoadmapRenamed(oldID, newID string)
	RoadmapDeleted(roadmapID string)
	RoadmapSynced(roadmapID string)
	HistoryUpdated(count int)
	ProgressApplied(roadmapID string, updates []store.ProgressUpdate)
}

type roadmapNotifier struct {
	emit SSEEmitter
}

func NewRoadmapNotifier(emit SSEEmitter) RoadmapNotifier {
	return &roadmapNotifier{emit: emit}
}

func (n *roadmapNotifier) StreamStep(sessionID string, step int, status string) {
	if n == nil || n.emit == nil || sessionID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.StreamChannel(sessionID),
		Event:   sse.SSEEventStreamStep,
		Data: map[string]any{
			"step":   step,
			"status": status,
		},
	})
}

func (n *roadmapNotifier) StreamMilestones(sessionID string, milestones []stream.MilestoneStatus) {
	if n == nil || n.emit == nil || sessionID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.StreamChannel(sessionID),
		Event:   sse.SSEEventStreamMilestones,
		Data:    map[string]any{"milestones": milestones},
	})
}

func (n *roadmapNotifier) StreamAction(sessionID string, action stream.StreamingAction) {
	if n == nil || n.emit == nil || sessionID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.StreamChannel(sessionID),
		Event:   sse.SSEEventStreamAction,
		Data:    map[string]any{"action": action},
	})
}

func (n *roadmapNotifier) StreamError(sessionID string, message string) {
	if n == nil || n.emit == nil || sessionID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.StreamChannel(sessionID),
		Event:   sse.SSEEventStreamError,
		Data:    map[string]any{"message": message},
	})
}

func (n *roadmapNotifier) RoadmapUpdated(roadmapID string) {
	if n == nil || n.emit == nil || roadmapID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.RoadmapChannel(roadmapID),
		Event:   sse.SSEEventRoadmapUpdated,
		Data:    map[string]any{"roadmap_id": roadmapID},
	})
}

func (n *roadmapNotifier) RoadmapCompleted(roadmapID string) {
	if n == nil || n.emit == nil || roadmapID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.RoadmapChannel(roadmapID),
		Event:   sse.SSEEventRoadmapCompleted,
		Data:    map[string]any{"roadmap_id": roadmapID},
	})
}

func (n *roadmapNotifier) RoadmapRenamed(oldID, newID string) {
	if n == nil || n.emit == nil || oldID == "" || newID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.RoadmapChannel(oldID),
		Event:   sse.SSEEventRoadmapRenamed,
		Data: map[string]any{
			"old_id": oldID,
			"new_id": newID,
		},
	})
}

func (n *roadmapNotifier) RoadmapDeleted(roadmapID string) {
	if n == nil || n.emit == nil || roadmapID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.HistoryChannel,
		Event:   sse.SSEEventRoadmapDeleted,
		Data:    map[string]any{"roadmap_id": roadmapID},
	})
}

func (n *roadmapNotifier) RoadmapSynced(roadmapID string) {
	if n == nil || n.emit == nil || roadmapID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.RoadmapChannel(roadmapID),
		Event:   sse.SSEEventRoadmapSynced,
		Data:    map[string]any{"roadmap_id": roadmapID},
	})
}

func (n *roadmapNotifier) HistoryUpdated(count int) {
	if n == nil || n.emit == nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.HistoryChannel,
		Event:   sse.SSEEventHistoryUpdated,
		Data:    map[string]any{"count": count},
	})
}

func (n *roadmapNotifier) ProgressApplied(roadmapID string, updates []store.ProgressUpdate) {
	if n == nil || n.emit == nil || roadmapID == "" {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.RoadmapChannel(roadmapID),
		Event:   sse.SSEEventProgressApplied,
		Data: map[string]any{
			"roadmap_id": roadmapID,
			"updates":    updates,
		},
	})
}
