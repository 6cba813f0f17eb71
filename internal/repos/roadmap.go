package repos

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	"github.com/questforge/roadmap-engine/internal/layout"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/roadmap"
	"github.com/questforge/roadmap-engine/internal/types"
)

type RoadmapRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, row *types.RoadmapRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.RoadmapRecord, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.RoadmapRecord, error)
	Rename(ctx context.Context, tx *gorm.DB, oldID, newID string) error
	SoftDeleteByID(ctx context.Context, tx *gorm.DB, id string) error
}

type roadmapRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoadmapRepo(db *gorm.DB, baseLog *logger.Logger) RoadmapRepo {
	repoLog := baseLog.With("repo", "RoadmapRepo")
	return &roadmapRepo{db: db, log: repoLog}
}

func (r *roadmapRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.RoadmapRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil || strings.TrimSpace(row.ID) == "" {
		return nil
	}
	row.SchemaVersion = types.RoadmapSchemaVersion

	if err := transaction.WithContext(ctx).
		Where("id = ?", row.ID).
		Assign(row).
		FirstOrCreate(row).Error; err != nil {
		return err
	}
	return nil
}

func (r *roadmapRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.RoadmapRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if strings.TrimSpace(id) == "" {
		return nil, nil
	}

	var row types.RoadmapRecord
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	r.migrate(ctx, transaction, &row)
	return &row, nil
}

func (r *roadmapRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.RoadmapRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []*types.RoadmapRecord
	if err := transaction.WithContext(ctx).
		Order("generated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		r.migrate(ctx, transaction, row)
	}
	return rows, nil
}

// Rename moves a placeholder row onto its server-issued id. The row keeps
// its content; only the key changes.
func (r *roadmapRepo) Rename(ctx context.Context, tx *gorm.DB, oldID, newID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if strings.TrimSpace(oldID) == "" || strings.TrimSpace(newID) == "" || oldID == newID {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.RoadmapRecord{}).
		Where("id = ?", oldID).
		Update("id", newID).Error; err != nil {
		return err
	}
	return nil
}

func (r *roadmapRepo) SoftDeleteByID(ctx context.Context, tx *gorm.DB, id string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if strings.TrimSpace(id) == "" {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.RoadmapRecord{}).Error; err != nil {
		return err
	}
	return nil
}

// migrate upgrades version 1 rows in place: legacy "action" node types
// become "task" and positioned cards tagged "roadmapNode" become
// "roadmapCard". The write-back is best effort; the returned row is
// always upgraded.
func (r *roadmapRepo) migrate(ctx context.Context, transaction *gorm.DB, row *types.RoadmapRecord) {
	if row == nil || row.SchemaVersion >= types.RoadmapSchemaVersion {
		return
	}

	if len(row.Nodes) > 0 {
		var nodes []roadmap.Node
		if err := json.Unmarshal(row.Nodes, &nodes); err == nil {
			for i := range nodes {
				normalized := roadmap.NormalizeType(string(nodes[i].Type))
				nodes[i].Type = normalized
			}
			if raw, err := json.Marshal(nodes); err == nil {
				row.Nodes = raw
			}
		} else {
			r.log.Warn("Could not decode persisted nodes for migration", "roadmap_id", row.ID, "error", err)
		}
	}

	if len(row.Positioned) > 0 {
		var positioned []layout.PositionedNode
		if err := json.Unmarshal(row.Positioned, &positioned); err == nil {
			for i := range positioned {
				if positioned[i].Type == layout.LegacyCardType {
					positioned[i].Type = layout.CardType
				}
			}
			if raw, err := json.Marshal(positioned); err == nil {
				row.Positioned = raw
			}
		} else {
			r.log.Warn("Could not decode persisted positions for migration", "roadmap_id", row.ID, "error", err)
		}
	}

	row.SchemaVersion = types.RoadmapSchemaVersion
	if err := transaction.WithContext(ctx).Save(row).Error; err != nil {
		r.log.Warn("Could not persist migrated roadmap row", "roadmap_id", row.ID, "error", err)
	}
}
