package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/types"
)

func TestCheckInRepoLifecycle(t *testing.T) {
	db := testDB(t)
	repo := NewCheckInRepo(db, logger.NewNop())
	ctx := context.Background()

	row := &types.CheckInRecord{
		ID:        uuid.New(),
		RoadmapID: "rm-1",
		Message:   "Finished the Go tour today",
		Status:    types.CheckInStatusProposed,
	}
	created, err := repo.Create(ctx, nil, row)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, created.ID)
	if err != nil || got == nil {
		t.Fatalf("get: (%v, %v)", got, err)
	}
	if got.Message != row.Message || got.Status != types.CheckInStatusProposed {
		t.Fatalf("unexpected row: %+v", got)
	}

	if err := repo.UpdateStatus(ctx, nil, created.ID, types.CheckInStatusConfirmed); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ = repo.GetByID(ctx, nil, created.ID)
	if got.Status != types.CheckInStatusConfirmed {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestCheckInRepoGetByRoadmapID(t *testing.T) {
	db := testDB(t)
	repo := NewCheckInRepo(db, logger.NewNop())
	ctx := context.Background()

	for _, rmID := range []string{"rm-1", "rm-1", "rm-2"} {
		if _, err := repo.Create(ctx, nil, &types.CheckInRecord{
			ID:        uuid.New(),
			RoadmapID: rmID,
			Message:   "check-in",
			Status:    types.CheckInStatusProposed,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	rows, err := repo.GetByRoadmapID(ctx, nil, "rm-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}
