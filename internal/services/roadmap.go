package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/questforge/roadmap-engine/internal/clients/questforge"
	"github.com/questforge/roadmap-engine/internal/layout"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/repos"
	"github.com/questforge/roadmap-engine/internal/roadmap"
	"github.com/questforge/roadmap-engine/internal/store"
)

var ErrRoadmapNotFound = errors.New("roadmap not found")

// RoadmapView is the render-ready shape: canonical roadmap plus the
// positioned cards and styled connectors.
type RoadmapView struct {
	Roadmap   *roadmap.Roadmap       `json:"roadmap"`
	Nodes     []layout.PositionedNode `json:"nodes"`
	Edges     []layout.StyledEdge     `json:"edges"`
	Streaming store.StreamingState    `json:"streaming"`
}

type RoadmapService interface {
	ActiveView(ctx context.Context) (*RoadmapView, error)
	View(ctx context.Context, id string) (*RoadmapView, error)
	Load(ctx context.Context, id string) (*RoadmapView, error)
	GetHierarchy(ctx context.Context, id string) (*roadmap.Hierarchy, error)
	History(ctx context.Context) []*roadmap.Roadmap
	RefreshHistory(ctx context.Context) error
	Sync(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	SelectNode(id string) error
}

type roadmapService struct {
	log        *logger.Logger
	client     *questforge.Client
	store      *store.Store
	repo       repos.RoadmapRepo
	notifier   RoadmapNotifier
	engine     string
	layoutOpts layout.Options
}

func NewRoadmapService(
	client *questforge.Client,
	st *store.Store,
	repo repos.RoadmapRepo,
	notifier RoadmapNotifier,
	engine string,
	layoutOpts layout.Options,
	baseLog *logger.Logger,
) RoadmapService {
	return &roadmapService{
		log:        baseLog.With("service", "RoadmapService"),
		client:     client,
		store:      st,
		repo:       repo,
		notifier:   notifier,
		engine:     engine,
		layoutOpts: layoutOpts,
	}
}

func (s *roadmapService) ActiveView(ctx context.Context) (*RoadmapView, error) {
	rm := s.store.Active()
	if rm == nil {
		return nil, ErrRoadmapNotFound
	}
	nodes, edges := s.store.Positioned()
	if len(nodes) == 0 && len(rm.Nodes) > 0 {
		nodes, edges = layoutViews(rm, s.engine, s.layoutOpts)
		s.store.SetPositioned(nodes, edges)
	}
	return &RoadmapView{
		Roadmap:   rm,
		Nodes:     nodes,
		Edges:     edges,
		Streaming: s.store.Streaming(),
	}, nil
}

// View renders a roadmap by id without activating it. The active
// roadmap reuses cached positions; anything else is laid out fresh.
func (s *roadmapService) View(ctx context.Context, id string) (*RoadmapView, error) {
	if s.store.ActiveID() == id {
		return s.ActiveView(ctx)
	}

	rm, _, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	nodes, edges := layoutViews(rm, s.engine, s.layoutOpts)
	return &RoadmapView{
		Roadmap:   rm,
		Nodes:     nodes,
		Edges:     edges,
		Streaming: s.store.Streaming(),
	}, nil
}

// Load activates a roadmap: local history first, then the persisted
// store, then the upstream API.
func (s *roadmapService) Load(ctx context.Context, id string) (*RoadmapView, error) {
	rm, fetched, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	nodes, edges := layoutViews(rm, s.engine, s.layoutOpts)
	s.store.SetRoadmap(rm)
	s.store.SetPositioned(nodes, edges)

	if fetched {
		if err := s.repo.Upsert(ctx, nil, recordFromRoadmap(rm, nodes)); err != nil {
			s.log.Warn("Could not persist loaded roadmap", "roadmap_id", rm.ID, "error", err)
		}
	}

	return &RoadmapView{
		Roadmap:   rm,
		Nodes:     nodes,
		Edges:     edges,
		Streaming: s.store.Streaming(),
	}, nil
}

func (s *roadmapService) GetHierarchy(ctx context.Context, id string) (*roadmap.Hierarchy, error) {
	rm, _, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	h := roadmap.DeriveHierarchy(rm.Nodes, rm.Edges)
	return &h, nil
}

func (s *roadmapService) History(ctx context.Context) []*roadmap.Roadmap {
	return s.store.History()
}

// RefreshHistory folds the persisted rows and the upstream list into
// the in-memory history. The two sources are fetched concurrently.
func (s *roadmapService) RefreshHistory(ctx context.Context) error {
	var local []*roadmap.Roadmap
	var remote []*roadmap.Roadmap

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.repo.List(gctx, nil)
		if err != nil {
			return fmt.Errorf("list persisted roadmaps: %w", err)
		}
		for _, row := range rows {
			rm, convErr := roadmapFromRecord(row)
			if convErr != nil {
				s.log.Warn("Skipping unreadable persisted roadmap", "roadmap_id", row.ID, "error", convErr)
				continue
			}
			local = append(local, rm)
		}
		return nil
	})
	g.Go(func() error {
		list, err := s.client.ListRoadmaps(gctx)
		if err != nil {
			return fmt.Errorf("list upstream roadmaps: %w", err)
		}
		remote = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.store.MergeHistory(local)
	s.store.MergeHistory(remote)
	s.notifier.HistoryUpdated(len(s.store.History()))
	return nil
}

// Sync replaces local state with the server snapshot. It runs at most
// once per activation of a roadmap; later calls are no-ops until the
// roadmap is activated again.
func (s *roadmapService) Sync(ctx context.Context, id string) (bool, error) {
	if !s.store.MarkSyncAttempted(id) {
		return false, nil
	}

	rm, err := s.client.GetRoadmap(ctx, id)
	if err != nil {
		if questforge.IsNotFound(err) {
			return false, ErrRoadmapNotFound
		}
		return false, err
	}

	s.store.ReplaceFromSnapshot(rm)
	if s.store.ActiveID() == rm.ID {
		nodes, edges := layoutViews(rm, s.engine, s.layoutOpts)
		s.store.SetPositioned(nodes, edges)
		if err := s.repo.Upsert(ctx, nil, recordFromRoadmap(rm, nodes)); err != nil {
			s.log.Warn("Could not persist synced roadmap", "roadmap_id", rm.ID, "error", err)
		}
	}

	s.notifier.RoadmapSynced(rm.ID)
	s.log.Info("Roadmap synced from server", "roadmap_id", rm.ID)
	return true, nil
}

func (s *roadmapService) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteRoadmap(ctx, id); err != nil && !questforge.IsNotFound(err) {
		return err
	}
	if err := s.repo.SoftDeleteByID(ctx, nil, id); err != nil {
		s.log.Warn("Could not delete persisted roadmap", "roadmap_id", id, "error", err)
	}
	s.store.RemoveRoadmap(id)
	s.notifier.RoadmapDeleted(id)
	s.notifier.HistoryUpdated(len(s.store.History()))
	return nil
}

func (s *roadmapService) SelectNode(id string) error {
	rm := s.store.Active()
	if rm == nil {
		return ErrRoadmapNotFound
	}
	if id != "" && !rm.HasNode(id) {
		return fmt.Errorf("unknown node %q", id)
	}
	s.store.SelectNode(id)
	return nil
}

// resolve finds a roadmap by id without activating it. The bool result
// reports whether it came from the upstream API.
func (s *roadmapService) resolve(ctx context.Context, id string) (*roadmap.Roadmap, bool, error) {
	if rm := s.store.HistoryEntry(id); rm != nil {
		return rm, false, nil
	}

	row, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		s.log.Warn("Persisted roadmap lookup failed", "roadmap_id", id, "error", err)
	} else if row != nil {
		rm, convErr := roadmapFromRecord(row)
		if convErr == nil && rm != nil {
			return rm, false, nil
		}
		s.log.Warn("Persisted roadmap unreadable, falling back to upstream", "roadmap_id", id, "error", convErr)
	}

	rm, err := s.client.GetRoadmap(ctx, id)
	if err != nil {
		if questforge.IsNotFound(err) {
			return nil, false, ErrRoadmapNotFound
		}
		return nil, false, err
	}
	return rm, true, nil
}
