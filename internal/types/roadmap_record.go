package types

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoadmapSchemaVersion is the current persisted layout of the JSON
// columns. Version 1 rows may still carry "action" node types and the
// old "roadmapNode" card tag; they are remapped on read.
const RoadmapSchemaVersion = 2

// RoadmapRecord persists one roadmap snapshot. The id is the server-issued
// id once known, or the client placeholder ("rm-<ms>") while generation is
// still in flight.
type RoadmapRecord struct {
	ID            string         `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	Summary       string         `gorm:"column:summary" json:"summary"`
	Score         int            `gorm:"column:score;not null;default:0" json:"score"`
	Nodes         datatypes.JSON `gorm:"column:nodes;type:jsonb" json:"nodes"`
	Edges         datatypes.JSON `gorm:"column:edges;type:jsonb" json:"edges"`
	Positioned    datatypes.JSON `gorm:"column:positioned;type:jsonb" json:"positioned,omitempty"`
	SchemaVersion int            `gorm:"column:schema_version;not null;default:1" json:"schema_version"`
	GeneratedAt   int64          `gorm:"column:generated_at;not null;default:0" json:"generated_at"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (RoadmapRecord) TableName() string { return "roadmap" }
