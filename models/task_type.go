package models

import (
	"time"

	"gorm.io/datatypes"
)

type TaskType struct {
	ID                      uint           `gorm:"primaryKey" json:"id"`
	TenantID                uint           `gorm:"index" json:"tenant_id"`
	Name                    string         `json:"name"`
	Schema                  datatypes.JSON `json:"schema"`
	Statuses                datatypes.JSON `json:"statuses"`
	StatusFlow              datatypes.JSON `json:"status_flow"`
	RequireSubtasksComplete bool           `gorm:"default:false" json:"require_subtasks_complete"`
	CurrentVersionID        *uint          `json:"current_version_id"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`

	CurrentVersion *TaskTypeVersion `gorm:"foreignKey:CurrentVersionID" json:"current_version,omitempty"`
}

// TaskTypeVersion is an immutable snapshot of a task type's contract. Tasks
// record the version they were validated against, so later schema edits never
// change an existing task's validation rules.
type TaskTypeVersion struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TaskTypeID   uint           `gorm:"index" json:"task_type_id"`
	Semver       string         `json:"semver"`
	Schema       datatypes.JSON `json:"schema"`
	Statuses     datatypes.JSON `json:"statuses"`
	StatusFlow   datatypes.JSON `json:"status_flow"`
	PublishedAt  *time.Time     `json:"published_at"`
	DeprecatedAt *time.Time     `json:"deprecated_at"`
	CreatedAt    time.Time      `json:"created_at"`
}
