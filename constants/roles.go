package constants

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// Abilities consumed by the engine. Resolution happens outside; the engine
// only sees the yes/no answer.
const (
	AbilityTasksView   = "tasks.view"
	AbilityTasksCreate = "tasks.create"
	AbilityTasksUpdate = "tasks.update"
	AbilityTasksManage = "tasks.manage"
	AbilityTypesManage = "task_types.manage"
)
