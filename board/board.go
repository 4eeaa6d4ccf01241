// Package board assigns the sparse integer ordering of tasks inside a status
// column. Insertion bisects the gap between neighbors; when the headroom is
// exhausted the column is resequenced and the insertion retried.
package board

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mankostas/asbuild-sub000/models"
	"github.com/mankostas/asbuild-sub000/statusflow"
)

// DefaultGap is the spacing between consecutive positions after a resequence
// and the step used at column head and tail.
const DefaultGap = 1000

type Service struct {
	Gap int
}

func NewService(gap int) *Service {
	if gap <= 0 {
		gap = DefaultGap
	}
	return &Service{Gap: gap}
}

// Locked adds SELECT ... FOR UPDATE row locking. SQLite has no row locks
// (writes lock the whole database), so the clause is skipped there.
func Locked(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// columnPositions loads the ordered positions of a column, locking the rows
// for the enclosing transaction. Concurrent moves into the same column
// serialize on this lock, so position assignment is linear.
func (s *Service) columnPositions(tx *gorm.DB, tenantID uint, statusSlug string, excludeID uint) ([]int, error) {
	var rows []models.Task
	q := Locked(tx).
		Select("id", "board_position").
		Where("tenant_id = ? AND status_slug = ?", tenantID, statusSlug).
		Order("board_position asc")
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	positions := make([]int, len(rows))
	for i, r := range rows {
		positions[i] = r.BoardPosition
	}
	return positions, nil
}

// Insert computes the board position for a task entering the column at the
// given index, resequencing once if the midpoint between neighbors has
// collapsed. excludeID removes the moving task from its own neighbor
// computation on same-column reorders.
func (s *Service) Insert(tx *gorm.DB, tenantID uint, statusSlug string, index int, excludeID uint) (int, error) {
	positions, err := s.columnPositions(tx, tenantID, statusSlug, excludeID)
	if err != nil {
		return 0, err
	}
	pos, ok := positionAt(positions, index, s.Gap)
	if ok {
		return pos, nil
	}
	if err := s.Resequence(tx, tenantID, statusSlug, excludeID); err != nil {
		return 0, err
	}
	positions, err = s.columnPositions(tx, tenantID, statusSlug, excludeID)
	if err != nil {
		return 0, err
	}
	pos, ok = positionAt(positions, index, s.Gap)
	if !ok {
		return 0, fmt.Errorf("board: no headroom after resequence in column %q", statusSlug)
	}
	return pos, nil
}

// positionAt computes the position at index within sorted positions. ok is
// false when the midpoint equals a neighbor, meaning the column needs a
// resequence first.
func positionAt(positions []int, index, gap int) (int, bool) {
	n := len(positions)
	switch {
	case n == 0:
		return gap, true
	case index <= 0:
		return positions[0] - gap, true
	case index >= n:
		return positions[n-1] + gap, true
	default:
		prev, next := positions[index-1], positions[index]
		mid := midpoint(prev, next)
		if mid == prev || mid == next {
			return 0, false
		}
		return mid, true
	}
}

// midpoint floors toward negative infinity so ordering stays stable for
// negative head positions.
func midpoint(a, b int) int {
	sum := a + b
	if sum < 0 && sum%2 != 0 {
		return sum/2 - 1
	}
	return sum / 2
}

// Resequence rewrites every position in the column to gap, 2*gap, 3*gap, …
// preserving the existing relative order.
func (s *Service) Resequence(tx *gorm.DB, tenantID uint, statusSlug string, excludeID uint) error {
	var rows []models.Task
	q := Locked(tx).
		Select("id", "board_position").
		Where("tenant_id = ? AND status_slug = ?", tenantID, statusSlug).
		Order("board_position asc")
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return err
	}
	for i, r := range rows {
		want := (i + 1) * s.Gap
		if r.BoardPosition == want {
			continue
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", r.ID).
			Update("board_position", want).Error; err != nil {
			return err
		}
	}
	return nil
}

// Move places the task into a column at the given index, recording the prior
// slug for the one-step-back rule. Callers supply the transaction so the
// transition check, the move and any SLA recomputation commit atomically.
func (s *Service) Move(tx *gorm.DB, task *models.Task, newStatusSlug string, index int) error {
	pos, err := s.Insert(tx, task.TenantID, newStatusSlug, index, task.ID)
	if err != nil {
		return err
	}
	task.PreviousStatusSlug = task.StatusSlug
	task.StatusSlug = newStatusSlug
	task.Status = statusflow.BaseSlug(newStatusSlug)
	task.BoardPosition = pos
	return tx.Save(task).Error
}
