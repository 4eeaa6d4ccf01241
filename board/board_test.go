package board

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mankostas/asbuild-sub000/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Task{}))
	return db
}

func seedTask(t *testing.T, db *gorm.DB, tenantID uint, slug string, pos int) *models.Task {
	t.Helper()
	task := &models.Task{
		Reference:     fmt.Sprintf("%s-%d-%d", slug, tenantID, pos),
		TenantID:      tenantID,
		Status:        slug,
		StatusSlug:    slug,
		BoardPosition: pos,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func columnOrder(t *testing.T, db *gorm.DB, tenantID uint, slug string) []uint {
	t.Helper()
	var tasks []models.Task
	require.NoError(t, db.Where("tenant_id = ? AND status_slug = ?", tenantID, slug).
		Order("board_position asc").Find(&tasks).Error)
	ids := make([]uint, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func TestInsertEmptyColumn(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)

	pos, err := svc.Insert(db, 1, "draft", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultGap, pos)
}

func TestInsertTailAndHead(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)
	seedTask(t, db, 1, "draft", 1000)
	seedTask(t, db, 1, "draft", 2000)

	tail, err := svc.Insert(db, 1, "draft", 99, 0)
	require.NoError(t, err)
	assert.Equal(t, 3000, tail)

	head, err := svc.Insert(db, 1, "draft", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, head)
}

func TestInsertMidpoint(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)
	seedTask(t, db, 1, "draft", 1000)
	seedTask(t, db, 1, "draft", 2000)
	seedTask(t, db, 1, "draft", 3000)

	pos, err := svc.Insert(db, 1, "draft", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1500, pos)
}

func TestInsertSequenceStrictlyIncreasing(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)

	var positions []int
	for i := 0; i < 10; i++ {
		pos, err := svc.Insert(db, 1, "draft", i, 0)
		require.NoError(t, err)
		seedTask(t, db, 1, "draft", pos)
		positions = append(positions, pos)
	}
	assert.True(t, sort.IntsAreSorted(positions))
	for i := 1; i < len(positions); i++ {
		assert.Greater(t, positions[i], positions[i-1])
	}
}

func TestInsertResequencesWhenHeadroomExhausted(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)
	first := seedTask(t, db, 1, "draft", 1)
	second := seedTask(t, db, 1, "draft", 2)

	// No integer fits between 1 and 2; the column resequences and the
	// insertion retries.
	pos, err := svc.Insert(db, 1, "draft", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1500, pos)

	assert.Equal(t, []uint{first.ID, second.ID}, columnOrder(t, db, 1, "draft"))
	var reloaded models.Task
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.Equal(t, 1000, reloaded.BoardPosition)
}

func TestResequencePreservesRelativeOrder(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)
	a := seedTask(t, db, 1, "draft", 3)
	b := seedTask(t, db, 1, "draft", 17)
	c := seedTask(t, db, 1, "draft", 18)

	require.NoError(t, svc.Resequence(db, 1, "draft", 0))

	assert.Equal(t, []uint{a.ID, b.ID, c.ID}, columnOrder(t, db, 1, "draft"))
	var tasks []models.Task
	require.NoError(t, db.Where("tenant_id = ? AND status_slug = ?", 1, "draft").
		Order("board_position asc").Find(&tasks).Error)
	assert.Equal(t, 1000, tasks[0].BoardPosition)
	assert.Equal(t, 2000, tasks[1].BoardPosition)
	assert.Equal(t, 3000, tasks[2].BoardPosition)
}

func TestMoveBetweenColumns(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)
	task := seedTask(t, db, 1, "draft", 1000)
	seedTask(t, db, 1, "assigned", 1000)

	require.NoError(t, svc.Move(db, task, "assigned", 99))

	assert.Equal(t, "assigned", task.StatusSlug)
	assert.Equal(t, "assigned", task.Status)
	assert.Equal(t, "draft", task.PreviousStatusSlug)
	assert.Equal(t, 2000, task.BoardPosition)
	assert.Empty(t, columnOrder(t, db, 1, "draft"))
}

func TestMoveScenarioMidColumn(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)
	seedTask(t, db, 1, "assigned", 1000)
	seedTask(t, db, 1, "assigned", 2000)
	seedTask(t, db, 1, "assigned", 3000)
	task := seedTask(t, db, 1, "draft", 1000)

	require.NoError(t, svc.Move(db, task, "assigned", 1))
	assert.Equal(t, 1500, task.BoardPosition)

	var positions []int
	var tasks []models.Task
	require.NoError(t, db.Where("status_slug = ?", "assigned").
		Order("board_position asc").Find(&tasks).Error)
	for _, task := range tasks {
		positions = append(positions, task.BoardPosition)
	}
	assert.Equal(t, []int{1000, 1500, 2000, 3000}, positions)
}

func TestMoveSameColumnExcludesSelf(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)
	a := seedTask(t, db, 1, "draft", 1000)
	b := seedTask(t, db, 1, "draft", 2000)
	c := seedTask(t, db, 1, "draft", 3000)

	// Move the tail task to the head; its own row must not count as a
	// neighbor.
	require.NoError(t, svc.Move(db, c, "draft", 0))
	assert.Equal(t, 0, c.BoardPosition)
	assert.Equal(t, []uint{c.ID, a.ID, b.ID}, columnOrder(t, db, 1, "draft"))
}

func TestColumnsArePerTenant(t *testing.T) {
	db := testDB(t)
	svc := NewService(0)
	seedTask(t, db, 1, "draft", 1000)

	// Another tenant's identical column is empty.
	pos, err := svc.Insert(db, 2, "draft", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultGap, pos)
}

func TestMidpointFlooring(t *testing.T) {
	assert.Equal(t, 1500, midpoint(1000, 2000))
	assert.Equal(t, 1, midpoint(1, 2))
	assert.Equal(t, -2, midpoint(-3, 0))
	assert.Equal(t, -2, midpoint(-2, -1))
}
