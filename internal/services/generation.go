package services

import (
	"context"
	"sync"
	"time"

	"github.com/questforge/roadmap-engine/internal/clients/questforge"
	"github.com/questforge/roadmap-engine/internal/layout"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/repos"
	"github.com/questforge/roadmap-engine/internal/store"
	"github.com/questforge/roadmap-engine/internal/stream"
)

// GenerationService drives one roadmap generation stream at a time.
// Starting a new generation supersedes the previous session: the old
// stream keeps draining but its results are discarded.
type GenerationService interface {
	Start(ctx context.Context, goal string, threadID string) (string, error)
	ActiveSessionID() string
}

type generationService struct {
	log        *logger.Logger
	client     *questforge.Client
	store      *store.Store
	repo       repos.RoadmapRepo
	notifier   RoadmapNotifier
	engine     string
	layoutOpts layout.Options

	mu          sync.Mutex
	current     *stream.Session
	sentActions int
}

func NewGenerationService(
	client *questforge.Client,
	st *store.Store,
	repo repos.RoadmapRepo,
	notifier RoadmapNotifier,
	engine string,
	layoutOpts layout.Options,
	baseLog *logger.Logger,
) GenerationService {
	return &generationService{
		log:        baseLog.With("service", "GenerationService"),
		client:     client,
		store:      st,
		repo:       repo,
		notifier:   notifier,
		engine:     engine,
		layoutOpts: layoutOpts,
	}
}

func (g *generationService) Start(ctx context.Context, goal string, threadID string) (string, error) {
	sess := stream.NewSession(g.log, goal, time.Now())

	g.mu.Lock()
	g.current = sess
	g.sentActions = 0
	g.mu.Unlock()

	g.store.SetStreaming(store.StreamingState{
		Active:    true,
		SessionID: sess.ID.String(),
		Step:      sess.Step(),
		Status:    sess.Status(),
	})

	req := questforge.GenerateRequest{Goal: goal, ThreadID: threadID}

	// The stream outlives the originating request.
	go g.run(context.Background(), sess, req)

	g.log.Info("Roadmap generation started", "session_id", sess.ID, "goal", goal)
	return sess.ID.String(), nil
}

func (g *generationService) ActiveSessionID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return ""
	}
	return g.current.ID.String()
}

func (g *generationService) isCurrent(sess *stream.Session) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current == sess
}

func (g *generationService) run(ctx context.Context, sess *stream.Session, req questforge.GenerateRequest) {
	var notifiedErr error

	err := g.client.StreamRoadmap(ctx, req, func(event, data string) error {
		refresh := sess.Apply(event, data)
		if !g.isCurrent(sess) {
			// Superseded: keep draining so the connection closes cleanly,
			// but publish nothing.
			return nil
		}

		g.pushStreamState(sess)
		if streamErr := sess.Err(); streamErr != nil && streamErr != notifiedErr {
			notifiedErr = streamErr
			g.notifier.StreamError(sess.ID.String(), streamErr.Error())
		}
		if refresh {
			g.publish(ctx, sess)
		}
		return nil
	})

	if !g.isCurrent(sess) {
		return
	}

	if err != nil {
		g.log.Error("Roadmap stream transport failed", "session_id", sess.ID, "error", err)
		g.notifier.StreamError(sess.ID.String(), err.Error())
	}

	// A stream that ended without the terminal event still counts when it
	// produced nodes; partial progress is kept.
	if err == nil && !sess.Terminal() && !sess.Failed() && sess.NodeCount() > 0 {
		g.log.Warn("Stream ended without terminal event, keeping partial roadmap", "session_id", sess.ID)
		g.publish(ctx, sess)
	}

	state := store.StreamingState{
		Active:     false,
		SessionID:  sess.ID.String(),
		Step:       sess.Step(),
		Status:     sess.Status(),
		Milestones: sess.Milestones(),
		Actions:    sess.Actions(),
	}
	g.store.SetStreaming(state)
	g.notifier.StreamStep(sess.ID.String(), state.Step, state.Status)
}

func (g *generationService) pushStreamState(sess *stream.Session) {
	state := store.StreamingState{
		Active:     true,
		SessionID:  sess.ID.String(),
		Step:       sess.Step(),
		Status:     sess.Status(),
		Milestones: sess.Milestones(),
		Actions:    sess.Actions(),
	}
	g.store.SetStreaming(state)
	g.notifier.StreamStep(sess.ID.String(), state.Step, state.Status)
	g.notifier.StreamMilestones(sess.ID.String(), state.Milestones)

	g.mu.Lock()
	sent := g.sentActions
	if len(state.Actions) > sent {
		g.sentActions = len(state.Actions)
	}
	g.mu.Unlock()
	for _, action := range state.Actions[sent:] {
		g.notifier.StreamAction(sess.ID.String(), action)
	}
}

// publish snapshots the session into the store, recomputes the layout,
// and persists the row. Called on the terminal event and on the
// end-of-stream fallback.
func (g *generationService) publish(ctx context.Context, sess *stream.Session) {
	if serverID := sess.ServerID(); serverID != "" && serverID != sess.PlaceholderID() {
		g.store.RenameRoadmap(sess.PlaceholderID(), serverID)
		if err := g.repo.Rename(ctx, nil, sess.PlaceholderID(), serverID); err != nil {
			g.log.Warn("Could not rename persisted roadmap", "old_id", sess.PlaceholderID(), "new_id", serverID, "error", err)
		}
		g.notifier.RoadmapRenamed(sess.PlaceholderID(), serverID)
	}

	rm := sess.Roadmap()
	positioned, styled := layoutViews(rm, g.engine, g.layoutOpts)

	g.store.SetRoadmap(rm)
	g.store.SetPositioned(positioned, styled)

	if err := g.repo.Upsert(ctx, nil, recordFromRoadmap(rm, positioned)); err != nil {
		g.log.Warn("Could not persist roadmap snapshot", "roadmap_id", rm.ID, "error", err)
	}

	g.notifier.RoadmapUpdated(rm.ID)
	if sess.Terminal() {
		g.notifier.RoadmapCompleted(rm.ID)
		g.notifier.HistoryUpdated(len(g.store.History()))
	}
}
