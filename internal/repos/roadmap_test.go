package repos

import (
	"context"
	"encoding/json"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/questforge/roadmap-engine/internal/layout"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/roadmap"
	"github.com/questforge/roadmap-engine/internal/types"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.RoadmapRecord{}, &types.CheckInRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM roadmap")
		db.Exec("DELETE FROM checkin")
	})
	return db
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestRoadmapRepoUpsert(t *testing.T) {
	db := testDB(t)
	repo := NewRoadmapRepo(db, logger.NewNop())
	ctx := context.Background()

	row := &types.RoadmapRecord{ID: "rm-1", Title: "Quest", GeneratedAt: 100}
	if err := repo.Upsert(ctx, nil, row); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if row.SchemaVersion != types.RoadmapSchemaVersion {
		t.Fatalf("schema version not stamped: %d", row.SchemaVersion)
	}

	row.Title = "Quest v2"
	if err := repo.Upsert(ctx, nil, row); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, "rm-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Quest v2" {
		t.Fatalf("upsert did not update: %q", got.Title)
	}

	var count int64
	db.Model(&types.RoadmapRecord{}).Count(&count)
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}
}

func TestRoadmapRepoGetByIDMissing(t *testing.T) {
	repo := NewRoadmapRepo(testDB(t), logger.NewNop())
	got, err := repo.GetByID(context.Background(), nil, "nope")
	if err != nil || got != nil {
		t.Fatalf("missing row should be (nil, nil), got (%v, %v)", got, err)
	}
}

func TestRoadmapRepoListNewestFirst(t *testing.T) {
	db := testDB(t)
	repo := NewRoadmapRepo(db, logger.NewNop())
	ctx := context.Background()

	repo.Upsert(ctx, nil, &types.RoadmapRecord{ID: "rm-old", Title: "Old", GeneratedAt: 100})
	repo.Upsert(ctx, nil, &types.RoadmapRecord{ID: "rm-new", Title: "New", GeneratedAt: 200})

	rows, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "rm-new" || rows[1].ID != "rm-old" {
		t.Fatalf("unexpected order: %+v", rows)
	}
}

func TestRoadmapRepoRename(t *testing.T) {
	db := testDB(t)
	repo := NewRoadmapRepo(db, logger.NewNop())
	ctx := context.Background()

	repo.Upsert(ctx, nil, &types.RoadmapRecord{ID: "rm-1756700000000", Title: "Draft"})
	if err := repo.Rename(ctx, nil, "rm-1756700000000", "rm-server-1"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, "rm-server-1")
	if err != nil || got == nil {
		t.Fatalf("renamed row missing: (%v, %v)", got, err)
	}
	if got.Title != "Draft" {
		t.Fatalf("content lost on rename: %q", got.Title)
	}
	old, _ := repo.GetByID(ctx, nil, "rm-1756700000000")
	if old != nil {
		t.Fatalf("old id still resolves")
	}
}

func TestRoadmapRepoSoftDelete(t *testing.T) {
	db := testDB(t)
	repo := NewRoadmapRepo(db, logger.NewNop())
	ctx := context.Background()

	repo.Upsert(ctx, nil, &types.RoadmapRecord{ID: "rm-1", Title: "Quest"})
	if err := repo.SoftDeleteByID(ctx, nil, "rm-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, "rm-1")
	if err != nil || got != nil {
		t.Fatalf("soft-deleted row still visible: (%v, %v)", got, err)
	}

	// The row itself survives with deleted_at set.
	var count int64
	db.Unscoped().Model(&types.RoadmapRecord{}).Where("id = ?", "rm-1").Count(&count)
	if count != 1 {
		t.Fatalf("soft delete removed the row")
	}
}

func TestRoadmapRepoMigratesV1Rows(t *testing.T) {
	db := testDB(t)
	repo := NewRoadmapRepo(db, logger.NewNop())
	ctx := context.Background()

	nodes := mustJSON(t, []roadmap.Node{
		{ID: "goal-1", Type: "goal"},
		{ID: "t-1", Type: "action"},
	})
	positioned := mustJSON(t, []layout.PositionedNode{
		{ID: "t-1", Type: layout.LegacyCardType},
	})
	// Seed a version 1 row directly, bypassing Upsert's version stamp.
	if err := db.Create(&types.RoadmapRecord{
		ID:            "rm-v1",
		Title:         "Old schema",
		Nodes:         nodes,
		Positioned:    positioned,
		SchemaVersion: 1,
	}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, "rm-v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SchemaVersion != types.RoadmapSchemaVersion {
		t.Fatalf("schema version = %d", got.SchemaVersion)
	}

	var migrated []roadmap.Node
	if err := json.Unmarshal(got.Nodes, &migrated); err != nil {
		t.Fatalf("decode nodes: %v", err)
	}
	if migrated[1].Type != roadmap.NodeTypeTask {
		t.Fatalf("legacy node type survived: %q", migrated[1].Type)
	}

	var cards []layout.PositionedNode
	if err := json.Unmarshal(got.Positioned, &cards); err != nil {
		t.Fatalf("decode positioned: %v", err)
	}
	if cards[0].Type != layout.CardType {
		t.Fatalf("legacy card tag survived: %q", cards[0].Type)
	}

	// The upgrade is written back; a raw read sees version 2.
	var raw types.RoadmapRecord
	if err := db.Where("id = ?", "rm-v1").First(&raw).Error; err != nil {
		t.Fatalf("reread: %v", err)
	}
	if raw.SchemaVersion != types.RoadmapSchemaVersion {
		t.Fatalf("write-back skipped: version = %d", raw.SchemaVersion)
	}
}
