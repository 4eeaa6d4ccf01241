package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mankostas/asbuild-sub000/board"
	"github.com/mankostas/asbuild-sub000/constants"
	"github.com/mankostas/asbuild-sub000/controllers"
	"github.com/mankostas/asbuild-sub000/middleware"
	"github.com/mankostas/asbuild-sub000/sla"
)

func SetupRouter(db *gorm.DB, gap int, log zerolog.Logger) *gin.Engine {
	r := gin.Default()

	authController := controllers.AuthController{DB: db}
	userController := controllers.UserController{DB: db}
	typeController := controllers.TaskTypeController{DB: db}
	policyController := controllers.SlaPolicyController{DB: db}
	taskController := controllers.TaskController{
		DB:    db,
		Board: board.NewService(gap),
		Sla:   sla.NewCalculator(log),
		Log:   log,
	}

	r.POST("/auth/register", authController.Register)
	r.POST("/auth/login", authController.Login)

	auth := r.Group("/", middleware.AuthMiddleware())

	auth.GET("/users", middleware.RoleMiddleware(constants.RoleAdmin, constants.RoleManager), userController.GetUsers)
	auth.PUT("/users/:id", middleware.RoleMiddleware(constants.RoleAdmin), userController.UpdateUser)

	types := auth.Group("/task-types", middleware.RoleMiddleware(constants.RoleAdmin, constants.RoleManager))
	types.POST("", typeController.CreateTaskType)
	types.GET("", typeController.GetTaskTypes)
	types.GET("/:id", typeController.GetTaskType)
	types.PUT("/:id", typeController.UpdateTaskType)
	types.POST("/:id/versions", typeController.CreateVersion)
	types.POST("/:id/versions/:versionId/publish", typeController.PublishVersion)
	types.POST("/:id/versions/:versionId/unpublish", typeController.UnpublishVersion)

	policies := auth.Group("/sla-policies", middleware.RoleMiddleware(constants.RoleAdmin, constants.RoleManager))
	policies.POST("", policyController.UpsertPolicy)
	policies.GET("", policyController.GetPolicies)

	auth.POST("/tasks", taskController.CreateTask)
	auth.GET("/tasks", taskController.GetTasks)
	auth.GET("/tasks/:id", taskController.GetTask)
	auth.PUT("/tasks/:id", taskController.UpdateTask)
	auth.POST("/tasks/:id/move", taskController.MoveTask)
	auth.POST("/tasks/:id/subtasks", taskController.CreateSubtask)
	auth.PATCH("/tasks/:id/subtasks/:subtaskId", taskController.ToggleSubtask)

	auth.GET("/boards", taskController.GetBoard)
	auth.GET("/boards/:taskTypeId", taskController.GetBoard)

	return r
}
