package statusflow

import (
	"regexp"
	"strconv"

	"github.com/mankostas/asbuild-sub000/constants"
	"github.com/mankostas/asbuild-sub000/models"
	"github.com/mankostas/asbuild-sub000/schema"
)

// Single reason codes for transition and constraint failures. These are
// deliberately a different shape from schema.FieldErrors so callers can
// render one targeted message.
const (
	ReasonNotAllowed         = "transition_not_allowed"
	ReasonStepBackExhausted  = "step_back_exhausted"
	ReasonMissingField       = "missing_field"
	ReasonMissingPhoto       = "missing_photo"
	ReasonSubtasksIncomplete = "subtasks_incomplete"
	ReasonAssigneeRequired   = "assignee_required"
)

// RuleError carries exactly one reason code.
type RuleError struct {
	Reason string
}

func (e *RuleError) Error() string { return e.Reason }

var tenantPrefixRe = regexp.MustCompile(`^t\d+__`)

// BaseSlug strips a tenant prefix ("t42__review" yields "review") so prefixed
// columns resolve against the graph.
func BaseSlug(slug string) string {
	return tenantPrefixRe.ReplaceAllString(slug, "")
}

// TenantSlug prefixes a slug for a tenant-owned column.
func TenantSlug(tenantID uint, slug string) string {
	return "t" + strconv.FormatUint(uint64(tenantID), 10) + "__" + slug
}

// ConstraintInput is the slice of task state the completion check inspects.
// Assignee and reviewer live in relational columns, not form data, so their
// presence arrives as flags.
type ConstraintInput struct {
	Schema                  *schema.Schema
	FormData                map[string]any
	Subtasks                []models.TaskSubtask
	RequireSubtasksComplete bool
	HasAssignee             bool
	HasReviewer             bool
}

// CheckConstraints validates that a task may enter next. It runs only when
// next is a completion-like status; regression targets are never
// re-validated. The first violated reason wins.
func CheckConstraints(in ConstraintInput, next string) error {
	base := BaseSlug(next)
	if constants.RegressionStatuses[base] || !constants.CompletionStatuses[base] {
		return nil
	}

	visible := schema.FilterSchemaForLogic(in.Schema, in.FormData)
	for _, f := range visible.Fields() {
		if !f.Required || f.Type == schema.TypeComputed {
			continue
		}
		switch f.Type {
		case schema.TypeAssignee:
			// The assignee check at the end covers this column.
			continue
		case schema.TypeReviewer:
			if !in.HasReviewer {
				return &RuleError{Reason: ReasonMissingField}
			}
			continue
		}
		if isEmpty(in.FormData[f.Key]) {
			return &RuleError{Reason: ReasonMissingField}
		}
	}
	for _, ph := range visible.Photos() {
		if !ph.Required {
			continue
		}
		if isEmpty(in.FormData[ph.Key]) {
			return &RuleError{Reason: ReasonMissingPhoto}
		}
	}
	if in.RequireSubtasksComplete {
		for _, st := range in.Subtasks {
			if st.IsRequired && !st.IsCompleted {
				return &RuleError{Reason: ReasonSubtasksIncomplete}
			}
		}
	}
	if !in.HasAssignee {
		return &RuleError{Reason: ReasonAssigneeRequired}
	}
	return nil
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
