package model

import (
	"time"

	"gorm.io/datatypes"
)

// Cascade actions recorded in cascade_logs
const (
	CascadeActionSoftDelete  = "soft_delete"
	CascadeActionRestore     = "restore"
	CascadeActionShiftLevels = "shift_levels"
	CascadeActionPurge       = "purge"
)

// CascadeLog records one cascading mutation and how many rows it touched per table
type CascadeLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BatchID     string         `gorm:"type:varchar(36);not null;index" json:"batch_id"`
	Action      string         `gorm:"type:varchar(20);not null;index" json:"action"`
	TargetTable string         `gorm:"type:varchar(50)" json:"target_table"`
	TargetID    uint           `json:"target_id"`
	Affected    datatypes.JSON `json:"affected"` // {"members": 3, "homes": 1}
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for CascadeLog
func (CascadeLog) TableName() string {
	return "cascade_logs"
}
