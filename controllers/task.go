package controllers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mankostas/asbuild-sub000/board"
	"github.com/mankostas/asbuild-sub000/constants"
	"github.com/mankostas/asbuild-sub000/models"
	"github.com/mankostas/asbuild-sub000/schema"
	"github.com/mankostas/asbuild-sub000/sla"
	"github.com/mankostas/asbuild-sub000/statusflow"
	"github.com/mankostas/asbuild-sub000/utils"
)

type TaskController struct {
	DB    *gorm.DB
	Board *board.Service
	Sla   *sla.Calculator
	Log   zerolog.Logger
}

type taskInput struct {
	TaskTypeID uint           `json:"task_type_id"`
	Title      string         `json:"title"`
	Priority   string         `json:"priority"`
	FormData   map[string]any `json:"form_data"`
	Subtasks   []subtaskInput `json:"subtasks"`
}

type subtaskInput struct {
	Title      string `json:"title"`
	IsRequired bool   `json:"is_required"`
	Position   int    `json:"position"`
}

// uniqueChecker answers "does this value already exist for the field key"
// against other tasks, scoped per the schema's unique rule. First writer
// wins.
func uniqueChecker(db *gorm.DB, tenantID, taskTypeID, excludeID uint) schema.UniqueChecker {
	return func(scope, fieldKey string, value any) (bool, error) {
		q := db.Model(&models.Task{}).Where("tenant_id = ?", tenantID)
		if scope == schema.UniqueTaskType {
			q = q.Where("task_type_id = ?", taskTypeID)
		}
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		var n int64
		err := q.Where(datatypes.JSONQuery("form_data").Equals(value, fieldKey)).
			Count(&n).Error
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

// currentVersion resolves the published version new tasks validate against:
// the type's current version when published, else the newest published
// version, else a fresh published snapshot of the live schema. Every task
// records the exact contract it was validated against.
func currentVersion(tx *gorm.DB, tt *models.TaskType) (*models.TaskTypeVersion, error) {
	if tt.CurrentVersionID != nil {
		var v models.TaskTypeVersion
		if err := tx.First(&v, *tt.CurrentVersionID).Error; err != nil {
			return nil, err
		}
		if v.PublishedAt != nil {
			return &v, nil
		}
	}
	var v models.TaskTypeVersion
	err := tx.Where("task_type_id = ? AND published_at IS NOT NULL", tt.ID).
		Order("id DESC").First(&v).Error
	if err == nil {
		return &v, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var count int64
	if err := tx.Model(&models.TaskTypeVersion{}).
		Where("task_type_id = ?", tt.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	snap := models.TaskTypeVersion{
		TaskTypeID:  tt.ID,
		Semver:      fmt.Sprintf("%d.0.0", count+1),
		Schema:      tt.Schema,
		Statuses:    tt.Statuses,
		StatusFlow:  tt.StatusFlow,
		PublishedAt: &now,
	}
	if err := tx.Create(&snap).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(tt).Update("current_version_id", snap.ID).Error; err != nil {
		return nil, err
	}
	return &snap, nil
}

func (tc *TaskController) CreateTask(c *gin.Context) {
	who := currentCaller(c)
	if !utils.Allowed(who.TenantID, who.Role, constants.AbilityTasksCreate, who.TenantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed"})
		return
	}

	var input taskInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.FormData == nil {
		input.FormData = map[string]any{}
	}

	var task models.Task
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		var tt models.TaskType
		if err := tx.Where("id = ? AND tenant_id = ?", input.TaskTypeID, who.TenantID).
			First(&tt).Error; err != nil {
			return err
		}
		version, err := currentVersion(tx, &tt)
		if err != nil {
			return err
		}
		sch, err := schema.Parse(version.Schema)
		if err != nil {
			return err
		}

		if err := schema.AssertCanEdit(sch, input.FormData, who.Role); err != nil {
			return err
		}
		assignee, err := schema.MapAssignee(sch, input.FormData)
		if err != nil {
			return err
		}
		reviewer, err := schema.MapReviewer(sch, input.FormData)
		if err != nil {
			return err
		}
		data, err := schema.ValidateData(sch, input.FormData, schema.Options{
			Unique:      uniqueChecker(tx, who.TenantID, tt.ID, 0),
			HasAssignee: assignee != nil,
			HasReviewer: reviewer != nil,
		})
		if err != nil {
			return err
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}

		slug := statusflow.InitialStatus(version.Statuses)
		pos, err := tc.Board.Insert(tx, who.TenantID, slug, math.MaxInt32, 0)
		if err != nil {
			return err
		}

		task = models.Task{
			Reference:         uuid.NewString(),
			TenantID:          who.TenantID,
			TaskTypeID:        tt.ID,
			TaskTypeVersionID: version.ID,
			Title:             input.Title,
			Status:            statusflow.BaseSlug(slug),
			StatusSlug:        slug,
			BoardPosition:     pos,
			Priority:          input.Priority,
			FormData:          raw,
			CreatedByID:       who.UserID,
		}
		if assignee != nil {
			task.AssigneeType = assignee.Type
			task.AssigneeID = &assignee.ID
			if assignee.Type == schema.RefUser {
				task.AssignedUserID = &assignee.ID
			}
		}
		if reviewer != nil {
			task.ReviewerType = reviewer.Type
			task.ReviewerID = &reviewer.ID
		}
		for _, st := range input.Subtasks {
			task.Subtasks = append(task.Subtasks, models.TaskSubtask{
				Title:      st.Title,
				IsRequired: st.IsRequired,
				Position:   st.Position,
			})
		}
		if err := tc.Sla.Apply(tx, &task); err != nil {
			return err
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task type not found"})
			return
		}
		renderEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) GetTasks(c *gin.Context) {
	who := currentCaller(c)

	var tasks []models.Task
	if err := tc.DB.Where("tenant_id = ?", who.TenantID).
		Order("status_slug asc, board_position asc").
		Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(tasks))
	for i := range tasks {
		view, err := tc.taskView(&tasks[i], who.Role)
		if err != nil {
			renderEngineError(c, err)
			return
		}
		out = append(out, view)
	}
	c.JSON(http.StatusOK, out)
}

func (tc *TaskController) GetTask(c *gin.Context) {
	who := currentCaller(c)

	var task models.Task
	if err := tc.DB.Preload("Subtasks").Preload("AuditTrail").
		Where("tenant_id = ?", who.TenantID).
		First(&task, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	view, err := tc.taskView(&task, who.Role)
	if err != nil {
		renderEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// taskView renders a task with its schema and data filtered for the role.
func (tc *TaskController) taskView(task *models.Task, role string) (gin.H, error) {
	var version models.TaskTypeVersion
	if err := tc.DB.First(&version, task.TaskTypeVersionID).Error; err != nil {
		return nil, err
	}
	sch, err := schema.Parse(version.Schema)
	if err != nil {
		return nil, err
	}
	data := map[string]any{}
	if len(task.FormData) > 0 {
		if err := json.Unmarshal(task.FormData, &data); err != nil {
			return nil, err
		}
	}
	visible := schema.FilterSchemaForLogic(schema.FilterSchemaForRoles(sch, role), data)
	return gin.H{
		"task":      task,
		"schema":    visible,
		"form_data": schema.FilterDataForRoles(sch, data, role),
	}, nil
}

func (tc *TaskController) UpdateTask(c *gin.Context) {
	who := currentCaller(c)
	if !utils.Allowed(who.TenantID, who.Role, constants.AbilityTasksUpdate, who.TenantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed"})
		return
	}

	var input struct {
		Title    *string        `json:"title"`
		Priority *string        `json:"priority"`
		FormData map[string]any `json:"form_data"`
	}
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var task models.Task
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := board.Locked(tx).
			Where("tenant_id = ?", who.TenantID).
			First(&task, "id = ?", c.Param("id")).Error; err != nil {
			return err
		}
		// Edits validate against the version the task was created under,
		// never the type's live schema.
		var version models.TaskTypeVersion
		if err := tx.First(&version, task.TaskTypeVersionID).Error; err != nil {
			return err
		}
		sch, err := schema.Parse(version.Schema)
		if err != nil {
			return err
		}

		if input.FormData != nil {
			if err := schema.AssertCanEdit(sch, input.FormData, who.Role); err != nil {
				return err
			}
			merged := map[string]any{}
			if len(task.FormData) > 0 {
				if err := json.Unmarshal(task.FormData, &merged); err != nil {
					return err
				}
			}
			for k, v := range input.FormData {
				merged[k] = v
			}
			assignee, err := schema.MapAssignee(sch, merged)
			if err != nil {
				return err
			}
			reviewer, err := schema.MapReviewer(sch, merged)
			if err != nil {
				return err
			}
			data, err := schema.ValidateData(sch, merged, schema.Options{
				Unique:      uniqueChecker(tx, who.TenantID, task.TaskTypeID, task.ID),
				HasAssignee: assignee != nil || task.AssigneeID != nil || task.AssignedUserID != nil,
				HasReviewer: reviewer != nil || task.ReviewerID != nil,
			})
			if err != nil {
				return err
			}
			raw, err := json.Marshal(data)
			if err != nil {
				return err
			}
			task.FormData = raw
			if assignee != nil {
				task.AssigneeType = assignee.Type
				task.AssigneeID = &assignee.ID
				if assignee.Type == schema.RefUser {
					task.AssignedUserID = &assignee.ID
				} else {
					task.AssignedUserID = nil
				}
			}
			if reviewer != nil {
				task.ReviewerType = reviewer.Type
				task.ReviewerID = &reviewer.ID
			}
		}
		if input.Title != nil {
			task.Title = *input.Title
		}
		if input.Priority != nil && *input.Priority != task.Priority {
			task.Priority = *input.Priority
			// Priority governs the policy key; the deadline is stale.
			task.SlaEndAt = nil
			if err := tc.Sla.Apply(tx, &task); err != nil {
				return err
			}
		}
		return tx.Save(&task).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		renderEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

type moveInput struct {
	StatusSlug string `json:"status_slug"`
	Index      int    `json:"index"`
}

// MoveTask is the single entry point for status transitions and board
// reorders. The legality check, completion constraints, position assignment
// and SLA recomputation commit as one transaction.
func (tc *TaskController) MoveTask(c *gin.Context) {
	who := currentCaller(c)
	if !utils.Allowed(who.TenantID, who.Role, constants.AbilityTasksUpdate, who.TenantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed"})
		return
	}

	var input moveInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var task models.Task
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := board.Locked(tx).
			Preload("Subtasks").
			Where("tenant_id = ?", who.TenantID).
			First(&task, "id = ?", c.Param("id")).Error; err != nil {
			return err
		}

		if task.StatusSlug == input.StatusSlug {
			// Same-column reorder: no transition, just a new position.
			return tc.Board.Move(tx, &task, input.StatusSlug, input.Index)
		}

		var tt models.TaskType
		if err := tx.First(&tt, task.TaskTypeID).Error; err != nil {
			return err
		}
		var version models.TaskTypeVersion
		if err := tx.First(&version, task.TaskTypeVersionID).Error; err != nil {
			return err
		}
		graph, err := statusflow.NewGraph(version.StatusFlow)
		if err != nil {
			return err
		}

		to := statusflow.BaseSlug(input.StatusSlug)
		if err := graph.CanMove(task.StatusSlug, task.PreviousStatusSlug,
			input.StatusSlug, utils.HasManageOverride(who.Role)); err != nil {
			return err
		}

		sch, err := schema.Parse(version.Schema)
		if err != nil {
			return err
		}
		data := map[string]any{}
		if len(task.FormData) > 0 {
			if err := json.Unmarshal(task.FormData, &data); err != nil {
				return err
			}
		}
		if err := statusflow.CheckConstraints(statusflow.ConstraintInput{
			Schema:                  sch,
			FormData:                data,
			Subtasks:                task.Subtasks,
			RequireSubtasksComplete: tt.RequireSubtasksComplete,
			HasAssignee:             task.AssigneeID != nil || task.AssignedUserID != nil,
			HasReviewer:             task.ReviewerID != nil,
		}, input.StatusSlug); err != nil {
			return err
		}

		fromSlug := task.StatusSlug
		if err := tc.Board.Move(tx, &task, input.StatusSlug, input.Index); err != nil {
			return err
		}
		stampLifecycle(&task, to)
		restart, err := tc.Sla.RestartsOn(tx, &task, to)
		if err != nil {
			return err
		}
		if restart {
			task.SlaStartAt = nil
			task.SlaEndAt = nil
		}
		if task.SlaEndAt == nil {
			if err := tc.Sla.Apply(tx, &task); err != nil {
				return err
			}
		}
		if err := tx.Save(&task).Error; err != nil {
			return err
		}
		return tx.Create(&models.TaskAudit{
			TaskID:   task.ID,
			ActorID:  who.UserID,
			FromSlug: fromSlug,
			ToSlug:   input.StatusSlug,
		}).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		renderEngineError(c, err)
		return
	}

	tc.Log.Info().Uint("task", task.ID).Str("to", task.StatusSlug).Msg("task moved")
	c.JSON(http.StatusOK, task)
}

// stampLifecycle records first entry into progress and entry/exit of
// completion-like statuses.
func stampLifecycle(task *models.Task, toBase string) {
	now := time.Now()
	if toBase == constants.TaskStatusInProgress && task.StartedAt == nil {
		task.StartedAt = &now
	}
	if constants.CompletionStatuses[toBase] {
		task.CompletedAt = &now
	} else if task.CompletedAt != nil {
		task.CompletedAt = nil
	}
}

func (tc *TaskController) CreateSubtask(c *gin.Context) {
	who := currentCaller(c)

	var task models.Task
	if err := tc.DB.Where("tenant_id = ?", who.TenantID).
		First(&task, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	var input subtaskInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := models.TaskSubtask{
		TaskID:     task.ID,
		Title:      input.Title,
		IsRequired: input.IsRequired,
		Position:   input.Position,
	}
	if err := tc.DB.Create(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ToggleSubtask flips completion. Subtask completeness is only ever
// inspected at status-transition time, so this write is unconditional.
func (tc *TaskController) ToggleSubtask(c *gin.Context) {
	who := currentCaller(c)

	var task models.Task
	if err := tc.DB.Where("tenant_id = ?", who.TenantID).
		First(&task, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	var sub models.TaskSubtask
	if err := tc.DB.Where("task_id = ?", task.ID).
		First(&sub, "id = ?", c.Param("subtaskId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subtask not found"})
		return
	}

	sub.IsCompleted = !sub.IsCompleted
	if err := tc.DB.Save(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub)
}

// GetBoard returns the columns visible to the tenant (shared plus
// tenant-owned, by position) with their tasks in board order.
func (tc *TaskController) GetBoard(c *gin.Context) {
	who := currentCaller(c)

	var columns []models.TaskStatus
	if err := tc.DB.Where("tenant_id IS NULL OR tenant_id = ?", who.TenantID).
		Order("position asc").Find(&columns).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var tasks []models.Task
	q := tc.DB.Where("tenant_id = ?", who.TenantID).
		Order("board_position asc")
	if typeID := c.Param("taskTypeId"); typeID != "" {
		q = q.Where("task_type_id = ?", typeID)
	}
	if err := q.Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	byColumn := map[string][]models.Task{}
	for _, t := range tasks {
		byColumn[t.StatusSlug] = append(byColumn[t.StatusSlug], t)
	}
	out := make([]gin.H, 0, len(columns))
	for _, col := range columns {
		out = append(out, gin.H{
			"column": col,
			"tasks":  byColumn[col.Slug],
		})
	}
	c.JSON(http.StatusOK, out)
}
