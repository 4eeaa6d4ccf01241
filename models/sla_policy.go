package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskSlaPolicy holds the deadline rule for one (task type, priority) pair.
// At most one policy exists per pair.
type TaskSlaPolicy struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	TaskTypeID         uint           `gorm:"index:idx_policy,unique,priority:1" json:"task_type_id"`
	Priority           string         `gorm:"index:idx_policy,unique,priority:2" json:"priority"`
	ResponseWithinMins *int           `json:"response_within_mins"`
	ResolveWithinMins  *int           `json:"resolve_within_mins"`
	RestartStatuses    datatypes.JSON `json:"restart_statuses"`
	Calendar           datatypes.JSON `json:"calendar"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
