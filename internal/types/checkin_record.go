package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CheckInStatusProposed  = "proposed"
	CheckInStatusConfirmed = "confirmed"
	CheckInStatusRejected  = "rejected"
)

// CheckInRecord stores one analyzed check-in and its proposed node
// updates, pending the user's confirm or reject.
type CheckInRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RoadmapID string         `gorm:"column:roadmap_id;not null;index" json:"roadmap_id"`
	Message   string         `gorm:"column:message;not null" json:"message"`
	Summary   string         `gorm:"column:summary" json:"summary"`
	Proposed  datatypes.JSON `gorm:"column:proposed;type:jsonb" json:"proposed"`
	Status    string         `gorm:"column:status;not null;default:proposed" json:"status"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CheckInRecord) TableName() string { return "checkin" }
