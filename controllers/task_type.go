package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mankostas/asbuild-sub000/models"
	"github.com/mankostas/asbuild-sub000/schema"
	"github.com/mankostas/asbuild-sub000/statusflow"
)

type TaskTypeController struct {
	DB *gorm.DB
}

type taskTypeInput struct {
	Name                    string          `json:"name"`
	Schema                  map[string]any  `json:"schema"`
	Statuses                json.RawMessage `json:"statuses"`
	StatusFlow              json.RawMessage `json:"status_flow"`
	RequireSubtasksComplete bool            `json:"require_subtasks_complete"`
}

// prepare normalizes and validates a submitted schema plus status flow. The
// schema is rejected before it is ever stored, so no task can be validated
// against a broken contract.
func (in *taskTypeInput) prepare() (datatypes.JSON, error) {
	if in.Schema == nil {
		in.Schema = map[string]any{}
	}
	normalized := schema.NormalizeSchema(in.Schema)
	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if _, err := schema.Parse(raw); err != nil {
		return nil, err
	}
	if _, err := statusflow.NewGraph(in.StatusFlow); err != nil {
		return nil, schema.SchemaErrors{{Path: "status_flow", Message: err.Error()}}
	}
	return raw, nil
}

func (tt *TaskTypeController) CreateTaskType(c *gin.Context) {
	who := currentCaller(c)

	var input taskTypeInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rawSchema, err := input.prepare()
	if err != nil {
		renderEngineError(c, err)
		return
	}

	taskType := models.TaskType{
		TenantID:                who.TenantID,
		Name:                    input.Name,
		Schema:                  rawSchema,
		Statuses:                datatypes.JSON(input.Statuses),
		StatusFlow:              datatypes.JSON(input.StatusFlow),
		RequireSubtasksComplete: input.RequireSubtasksComplete,
	}
	if err := tt.DB.Create(&taskType).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, taskType)
}

func (tt *TaskTypeController) GetTaskTypes(c *gin.Context) {
	who := currentCaller(c)

	var types []models.TaskType
	if err := tt.DB.Where("tenant_id = ?", who.TenantID).Find(&types).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, types)
}

func (tt *TaskTypeController) GetTaskType(c *gin.Context) {
	who := currentCaller(c)

	var taskType models.TaskType
	if err := tt.DB.Preload("CurrentVersion").
		Where("tenant_id = ?", who.TenantID).
		First(&taskType, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task type not found"})
		return
	}
	c.JSON(http.StatusOK, taskType)
}

// UpdateTaskType edits the live schema. Existing tasks keep validating
// against their recorded version; the edit only affects future snapshots.
func (tt *TaskTypeController) UpdateTaskType(c *gin.Context) {
	who := currentCaller(c)

	var taskType models.TaskType
	if err := tt.DB.Where("tenant_id = ?", who.TenantID).
		First(&taskType, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task type not found"})
		return
	}

	var input taskTypeInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rawSchema, err := input.prepare()
	if err != nil {
		renderEngineError(c, err)
		return
	}

	taskType.Name = input.Name
	taskType.Schema = rawSchema
	taskType.Statuses = datatypes.JSON(input.Statuses)
	taskType.StatusFlow = datatypes.JSON(input.StatusFlow)
	taskType.RequireSubtasksComplete = input.RequireSubtasksComplete
	if err := tt.DB.Save(&taskType).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, taskType)
}

// CreateVersion snapshots the live schema, statuses and flow into a new
// immutable version and makes it current.
func (tt *TaskTypeController) CreateVersion(c *gin.Context) {
	who := currentCaller(c)

	var version models.TaskTypeVersion
	err := tt.DB.Transaction(func(tx *gorm.DB) error {
		var taskType models.TaskType
		if err := tx.Where("tenant_id = ?", who.TenantID).
			First(&taskType, "id = ?", c.Param("id")).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.TaskTypeVersion{}).
			Where("task_type_id = ?", taskType.ID).Count(&count).Error; err != nil {
			return err
		}
		version = models.TaskTypeVersion{
			TaskTypeID: taskType.ID,
			Semver:     fmt.Sprintf("%d.0.0", count+1),
			Schema:     taskType.Schema,
			Statuses:   taskType.Statuses,
			StatusFlow: taskType.StatusFlow,
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}
		return tx.Model(&taskType).Update("current_version_id", version.ID).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task type not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, version)
}

// PublishVersion stamps publishedAt. Publishing an already-published version
// is a no-op: once set, the stamp only moves via an explicit unpublish.
func (tt *TaskTypeController) PublishVersion(c *gin.Context) {
	tt.setPublished(c, true)
}

func (tt *TaskTypeController) UnpublishVersion(c *gin.Context) {
	tt.setPublished(c, false)
}

func (tt *TaskTypeController) setPublished(c *gin.Context, published bool) {
	who := currentCaller(c)

	var version models.TaskTypeVersion
	err := tt.DB.
		Joins("JOIN task_types ON task_types.id = task_type_versions.task_type_id").
		Where("task_types.tenant_id = ?", who.TenantID).
		First(&version, "task_type_versions.id = ?", c.Param("versionId")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Version not found"})
		return
	}

	if published {
		if version.PublishedAt == nil {
			now := time.Now()
			version.PublishedAt = &now
		}
	} else {
		version.PublishedAt = nil
	}
	if err := tt.DB.Save(&version).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, version)
}
