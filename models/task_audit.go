package models

import "time"

// TaskAudit records one status transition.
type TaskAudit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"index" json:"task_id"`
	ActorID   uint      `json:"actor_id"`
	FromSlug  string    `json:"from_slug"`
	ToSlug    string    `json:"to_slug"`
	Comments  string    `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}
