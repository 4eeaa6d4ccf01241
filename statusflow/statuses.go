package statusflow

import (
	"encoding/json"

	"github.com/mankostas/asbuild-sub000/constants"
)

// ParseStatuses decodes a task type's ordered status declarations. Entries
// may be bare slug strings or {slug,...} objects; both normalize to slugs.
func ParseStatuses(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var doc []json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	var slugs []string
	for _, entry := range doc {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			slugs = append(slugs, s)
			continue
		}
		var obj struct {
			Slug string `json:"slug"`
		}
		if err := json.Unmarshal(entry, &obj); err == nil && obj.Slug != "" {
			slugs = append(slugs, obj.Slug)
		}
	}
	return slugs
}

// InitialStatus is the first declared status of a type, or the global
// default when the type declares none.
func InitialStatus(raw []byte) string {
	if slugs := ParseStatuses(raw); len(slugs) > 0 {
		return slugs[0]
	}
	return constants.TaskStatusDraft
}
