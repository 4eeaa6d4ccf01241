package models

// TaskStatus is a board column definition. A nil TenantID means the column is
// shared by every tenant; tenant-owned columns carry a "t{id}__" slug prefix.
type TaskStatus struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Slug     string `gorm:"uniqueIndex" json:"slug"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Position int    `gorm:"default:0" json:"position"`
	TenantID *uint  `gorm:"index" json:"tenant_id"`
}
