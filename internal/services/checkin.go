package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/questforge/roadmap-engine/internal/clients/questforge"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/repos"
	"github.com/questforge/roadmap-engine/internal/store"
	"github.com/questforge/roadmap-engine/internal/types"
)

var ErrCheckInNotFound = fmt.Errorf("check-in not found")

// CheckInService runs the analyze / confirm / reject loop. Proposed
// updates never touch the roadmap; only a confirm applies them, and the
// applied deltas land on the canonical nodes and the positioned copies
// together.
type CheckInService interface {
	Analyze(ctx context.Context, roadmapID string, message string) (*questforge.CheckInAnalysis, error)
	Confirm(ctx context.Context, checkInID string) ([]store.ProgressUpdate, error)
	Reject(ctx context.Context, checkInID string) error
}

type checkInService struct {
	log      *logger.Logger
	client   *questforge.Client
	store    *store.Store
	repo     repos.CheckInRepo
	roadmaps repos.RoadmapRepo
	notifier RoadmapNotifier
}

func NewCheckInService(
	client *questforge.Client,
	st *store.Store,
	repo repos.CheckInRepo,
	roadmaps repos.RoadmapRepo,
	notifier RoadmapNotifier,
	baseLog *logger.Logger,
) CheckInService {
	return &checkInService{
		log:      baseLog.With("service", "CheckInService"),
		client:   client,
		store:    st,
		repo:     repo,
		roadmaps: roadmaps,
		notifier: notifier,
	}
}

func (s *checkInService) Analyze(ctx context.Context, roadmapID string, message string) (*questforge.CheckInAnalysis, error) {
	analysis, err := s.client.AnalyzeCheckIn(ctx, roadmapID, message)
	if err != nil {
		return nil, err
	}

	proposedRaw, _ := json.Marshal(analysis.ProposedUpdates)
	row := &types.CheckInRecord{
		ID:        uuid.New(),
		RoadmapID: roadmapID,
		Message:   message,
		Summary:   analysis.Summary,
		Proposed:  proposedRaw,
		Status:    types.CheckInStatusProposed,
	}
	if analysis.CheckInID != "" {
		if parsed, parseErr := uuid.Parse(analysis.CheckInID); parseErr == nil {
			row.ID = parsed
		}
	}
	if _, err := s.repo.Create(ctx, nil, row); err != nil {
		s.log.Warn("Could not persist check-in", "roadmap_id", roadmapID, "error", err)
	}

	analysis.CheckInID = row.ID.String()
	return analysis, nil
}

func (s *checkInService) Confirm(ctx context.Context, checkInID string) ([]store.ProgressUpdate, error) {
	id, row, err := s.lookup(ctx, checkInID)
	if err != nil {
		return nil, err
	}

	applied, err := s.client.ConfirmCheckIn(ctx, checkInID)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		// The upstream may not echo the applied set; fall back to what was
		// proposed at analyze time.
		if unmarshalErr := json.Unmarshal(row.Proposed, &applied); unmarshalErr != nil {
			return nil, fmt.Errorf("decode proposed updates: %w", unmarshalErr)
		}
	}

	updates := make([]store.ProgressUpdate, 0, len(applied))
	for _, u := range applied {
		updates = append(updates, store.ProgressUpdate{NodeID: u.NodeID, Delta: u.ProgressDelta})
	}

	if s.store.ApplyProgressUpdates(updates) {
		s.persistActive(ctx)
		s.notifier.ProgressApplied(row.RoadmapID, updates)
	}

	if err := s.repo.UpdateStatus(ctx, nil, id, types.CheckInStatusConfirmed); err != nil {
		s.log.Warn("Could not update check-in status", "checkin_id", checkInID, "error", err)
	}
	return updates, nil
}

func (s *checkInService) Reject(ctx context.Context, checkInID string) error {
	id, _, err := s.lookup(ctx, checkInID)
	if err != nil {
		return err
	}
	if err := s.client.RejectCheckIn(ctx, checkInID); err != nil && !questforge.IsNotFound(err) {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, nil, id, types.CheckInStatusRejected); err != nil {
		s.log.Warn("Could not update check-in status", "checkin_id", checkInID, "error", err)
	}
	return nil
}

func (s *checkInService) lookup(ctx context.Context, checkInID string) (uuid.UUID, *types.CheckInRecord, error) {
	id, err := uuid.Parse(checkInID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid check-in id %q", checkInID)
	}
	row, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if row == nil {
		return uuid.Nil, nil, ErrCheckInNotFound
	}
	return id, row, nil
}

func (s *checkInService) persistActive(ctx context.Context) {
	rm := s.store.Active()
	if rm == nil {
		return
	}
	positioned, _ := s.store.Positioned()
	if err := s.roadmaps.Upsert(ctx, nil, recordFromRoadmap(rm, positioned)); err != nil {
		s.log.Warn("Could not persist roadmap after check-in", "roadmap_id", rm.ID, "error", err)
	}
}
