package constants

const (
	TaskStatusDraft      = "draft"
	TaskStatusAssigned   = "assigned"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusRejected   = "rejected"
	TaskStatusRedo       = "redo"
)

// DefaultStatusFlow is the transition graph used when a task type does not
// declare its own. Edges are direct only; there is no transitive closure.
var DefaultStatusFlow = map[string][]string{
	TaskStatusDraft:      {TaskStatusAssigned},
	TaskStatusAssigned:   {TaskStatusInProgress},
	TaskStatusInProgress: {TaskStatusCompleted},
	TaskStatusCompleted:  {TaskStatusRejected, TaskStatusRedo},
	TaskStatusRejected:   {TaskStatusAssigned},
	TaskStatusRedo:       {TaskStatusAssigned},
}

// CompletionStatuses trigger constraint checks before a task may enter them.
var CompletionStatuses = map[string]bool{
	TaskStatusCompleted: true,
}

// RegressionStatuses are backward moves; entering one never re-validates
// forward-only requirements.
var RegressionStatuses = map[string]bool{
	TaskStatusRejected: true,
	TaskStatusRedo:     true,
}
