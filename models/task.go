package models

import (
	"time"

	"gorm.io/datatypes"
)

type Task struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Reference          string         `gorm:"size:36;uniqueIndex" json:"reference"`
	TenantID           uint           `gorm:"index:idx_board,priority:1" json:"tenant_id"`
	TaskTypeID         uint           `gorm:"index" json:"task_type_id"`
	TaskTypeVersionID  uint           `gorm:"index" json:"task_type_version_id"`
	Title              string         `json:"title"`
	Status             string         `json:"status"`
	StatusSlug         string         `gorm:"index:idx_board,priority:2" json:"status_slug"`
	PreviousStatusSlug string         `json:"previous_status_slug"`
	BoardPosition      int            `json:"board_position"`
	Priority           string         `json:"priority"`
	FormData           datatypes.JSON `json:"form_data"`
	AssigneeType       string         `json:"assignee_type"`
	AssigneeID         *uint          `json:"assignee_id"`
	ReviewerType       string         `json:"reviewer_type"`
	ReviewerID         *uint          `json:"reviewer_id"`
	AssignedUserID     *uint          `json:"assigned_user_id"`
	SlaStartAt         *time.Time     `json:"sla_start_at"`
	SlaEndAt           *time.Time     `json:"sla_end_at"`
	StartedAt          *time.Time     `json:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at"`
	CreatedByID        uint           `json:"created_by_id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Subtasks           []TaskSubtask  `json:"subtasks,omitempty"`
	AuditTrail         []TaskAudit    `json:"audit_trail,omitempty"`
}

type TaskSubtask struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	TaskID      uint   `gorm:"index" json:"task_id"`
	Title       string `json:"title"`
	IsRequired  bool   `gorm:"default:false" json:"is_required"`
	IsCompleted bool   `gorm:"default:false" json:"is_completed"`
	Position    int    `gorm:"default:0" json:"position"`
}
