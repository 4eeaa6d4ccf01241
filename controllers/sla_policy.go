package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mankostas/asbuild-sub000/models"
)

type SlaPolicyController struct {
	DB *gorm.DB
}

// UpsertPolicy creates or replaces the policy for one (task type, priority)
// pair. The calendar document is stored as submitted; malformed calendars
// degrade to default business hours at computation time.
func (sc *SlaPolicyController) UpsertPolicy(c *gin.Context) {
	who := currentCaller(c)

	var input models.TaskSlaPolicy
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var taskType models.TaskType
	if err := sc.DB.Where("tenant_id = ?", who.TenantID).
		First(&taskType, "id = ?", input.TaskTypeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task type not found"})
		return
	}

	err := sc.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "task_type_id"}, {Name: "priority"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"response_within_mins", "resolve_within_mins", "restart_statuses", "calendar",
		}),
	}).Create(&input).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, input)
}

func (sc *SlaPolicyController) GetPolicies(c *gin.Context) {
	who := currentCaller(c)

	var policies []models.TaskSlaPolicy
	err := sc.DB.
		Joins("JOIN task_types ON task_types.id = task_sla_policies.task_type_id").
		Where("task_types.tenant_id = ?", who.TenantID).
		Find(&policies).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, policies)
}
