package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mankostas/asbuild-sub000/expr"
)

// Error codes attached to field paths.
const (
	CodeRequired = "required"
	CodeDate     = "date"
	CodeTime     = "time"
	CodeDatetime = "datetime"
	CodeDuration = "duration"
	CodeNumber   = "number"
	CodeBoolean  = "boolean"
	CodeRegex    = "regex"
	CodeOption   = "option"
	CodeUnique   = "unique"
	CodeMaxCount = "max_count"
	CodeMime     = "mime"
	CodeSize     = "size"
	CodeInvalid  = "invalid"
	CodeReadOnly = "read_only"
)

// FieldErrors aggregates every violation of one validation pass, keyed by
// field path. It is never raised field-by-field; callers always see the full
// set.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + strings.Join(e[k], ",")
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e FieldErrors) add(path, code string) {
	e[path] = append(e[path], code)
}

// UniqueChecker reports whether a value already exists for the field key
// within the configured scope. Implemented by the persistence layer.
type UniqueChecker func(scope, fieldKey string, value any) (bool, error)

// Options carries the collaborators ValidateData needs but does not own.
// HasAssignee and HasReviewer report reference targets already captured in
// relational columns; mapping removes their payload keys before validation.
type Options struct {
	Unique      UniqueChecker
	HasAssignee bool
	HasReviewer bool
}

// PhotoItem is one uploaded photo reference inside form data.
type PhotoItem struct {
	Name string
	Mime string
	Size int64
}

type fieldValidator func(f *Field, v any, errs FieldErrors)

// Per-type value checks. Requiredness, regex, enum membership, uniqueness and
// computed recomputation are handled outside the table because they cut
// across types.
var validators = map[string]fieldValidator{
	TypeDate: func(f *Field, v any, errs FieldErrors) {
		s, ok := v.(string)
		if !ok || !validDate(s) {
			errs.add(f.Key, CodeDate)
		}
	},
	TypeTime: func(f *Field, v any, errs FieldErrors) {
		s, ok := v.(string)
		if !ok || !validClock(s) {
			errs.add(f.Key, CodeTime)
		}
	},
	TypeDatetime: func(f *Field, v any, errs FieldErrors) {
		s, ok := v.(string)
		if !ok || !validDatetime(s) {
			errs.add(f.Key, CodeDatetime)
		}
	},
	TypeDuration: func(f *Field, v any, errs FieldErrors) {
		s, ok := v.(string)
		if !ok || !validDuration(s) {
			errs.add(f.Key, CodeDuration)
		}
	},
	TypeNumber: func(f *Field, v any, errs FieldErrors) {
		if !numeric(v) {
			errs.add(f.Key, CodeNumber)
		}
	},
	TypeBoolean: func(f *Field, v any, errs FieldErrors) {
		if _, ok := v.(bool); !ok {
			errs.add(f.Key, CodeBoolean)
		}
	},
	TypeSelect: func(f *Field, v any, errs FieldErrors) {
		s, ok := v.(string)
		if !ok || !contains(f.Enum, s) {
			errs.add(f.Key, CodeOption)
		}
	},
	TypeMultiselect: func(f *Field, v any, errs FieldErrors) {
		items, ok := v.([]any)
		if !ok {
			errs.add(f.Key, CodeOption)
			return
		}
		for _, it := range items {
			s, ok := it.(string)
			if !ok || !contains(f.Enum, s) {
				errs.add(f.Key, CodeOption)
				return
			}
		}
	},
}

// ValidateData checks data against the schema, applying every per-field rule
// to the whole document and aggregating all violations. The returned map is a
// transformed copy: computed fields are recomputed and rich text sanitized.
// A nil error means the data is valid.
func ValidateData(s *Schema, data map[string]any, opts Options) (map[string]any, error) {
	errs := FieldErrors{}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}

	required := requiredSet(s, out)
	hidden := logicHidden(s, out)

	for _, f := range s.Fields() {
		f := f
		v := out[f.Key]

		if hidden[f.Key] {
			continue
		}

		if f.Type == TypeAssignee || f.Type == TypeReviewer {
			set := opts.HasAssignee
			if f.Type == TypeReviewer {
				set = opts.HasReviewer
			}
			if required[f.Key] && !set && empty(v) {
				errs.add(f.Key, CodeRequired)
			}
			continue
		}

		if f.Type == TypeComputed {
			// Client-supplied computed values are never trusted.
			val, err := expr.Evaluate(f.Expr, out)
			if err != nil {
				errs.add(f.Key, CodeInvalid)
				continue
			}
			out[f.Key] = val
			continue
		}

		if empty(v) {
			if required[f.Key] {
				errs.add(f.Key, CodeRequired)
			}
			continue
		}

		if check, ok := validators[f.Type]; ok {
			before := len(errs[f.Key])
			check(&f, v, errs)
			if len(errs[f.Key]) > before {
				continue
			}
		}

		if f.Regex != "" {
			str, ok := v.(string)
			if !ok || !fullMatch(f.Regex, str) {
				errs.add(f.Key, CodeRegex)
				continue
			}
		}

		if f.Type == TypeRichtext {
			if s, ok := v.(string); ok {
				out[f.Key] = SanitizeRichText(s)
			}
		}

		if f.Unique != "" && opts.Unique != nil {
			taken, err := opts.Unique(f.Unique, f.Key, v)
			if err != nil {
				return nil, fmt.Errorf("unique check for %s: %w", f.Key, err)
			}
			if taken {
				errs.add(f.Key, CodeUnique)
			}
		}
	}

	for _, ph := range s.Photos() {
		if hidden[ph.Key] {
			continue
		}
		validatePhoto(&ph, out[ph.Key], required[ph.Key] || ph.Required, errs)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// requiredSet resolves base required flags plus conditional logic: rules run
// in declared order and a satisfied condition makes its listed fields
// required for this pass regardless of their base flag.
func requiredSet(s *Schema, data map[string]any) map[string]bool {
	req := map[string]bool{}
	for _, f := range s.Fields() {
		if f.Required {
			req[f.Key] = true
		}
	}
	for _, ph := range s.Photos() {
		if ph.Required {
			req[ph.Key] = true
		}
	}
	for _, rule := range s.Logic {
		if literalEqual(data[rule.If], rule.Equals) {
			for _, key := range rule.Require {
				req[key] = true
			}
		}
	}
	return req
}

// logicHidden resolves conditional visibility: a field named by any rule's
// show list is hidden unless at least one of those rules' conditions holds.
// Fields no rule targets are always visible.
func logicHidden(s *Schema, data map[string]any) map[string]bool {
	targeted := map[string]bool{}
	shown := map[string]bool{}
	for _, rule := range s.Logic {
		holds := literalEqual(data[rule.If], rule.Equals)
		for _, key := range rule.Show {
			targeted[key] = true
			if holds {
				shown[key] = true
			}
		}
	}
	hidden := map[string]bool{}
	for key := range targeted {
		if !shown[key] {
			hidden[key] = true
		}
	}
	return hidden
}

func validatePhoto(ph *Photo, v any, required bool, errs FieldErrors) {
	items := photoItems(v)
	if len(items) == 0 {
		if required {
			errs.add(ph.Key, CodeRequired)
		}
		return
	}
	if ph.Type == TypePhotoSingle && len(items) > 1 {
		errs.add(ph.Key, CodeMaxCount)
		return
	}
	if ph.Type == TypePhotoRepeater && ph.MaxCount > 0 && len(items) > ph.MaxCount {
		errs.add(ph.Key, CodeMaxCount)
		return
	}
	for i, it := range items {
		path := fmt.Sprintf("%s.%d", ph.Key, i)
		if len(ph.AllowedMimes) > 0 && !contains(ph.AllowedMimes, it.Mime) {
			errs.add(path, CodeMime)
		}
		if ph.MaxSize > 0 && it.Size > ph.MaxSize {
			errs.add(path, CodeSize)
		}
	}
}

// photoItems coerces the submitted value into a flat item list. A single
// object counts as one item.
func photoItems(v any) []PhotoItem {
	toItem := func(m map[string]any) PhotoItem {
		it := PhotoItem{}
		if s, ok := m["name"].(string); ok {
			it.Name = s
		}
		if s, ok := m["mime"].(string); ok {
			it.Mime = s
		}
		switch n := m["size"].(type) {
		case float64:
			it.Size = int64(n)
		case int64:
			it.Size = n
		case int:
			it.Size = int64(n)
		}
		return it
	}
	switch val := v.(type) {
	case []any:
		items := make([]PhotoItem, 0, len(val))
		for _, e := range val {
			if m, ok := e.(map[string]any); ok {
				items = append(items, toItem(m))
			}
		}
		return items
	case map[string]any:
		return []PhotoItem{toItem(val)}
	default:
		return nil
	}
}

func empty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	default:
		return false
	}
}

func contains(set []string, s string) bool {
	for _, e := range set {
		if e == s {
			return true
		}
	}
	return false
}

func numeric(v any) bool {
	switch val := v.(type) {
	case float64, float32, int, int64, uint:
		return true
	case string:
		_, err := strconv.ParseFloat(val, 64)
		return err == nil
	default:
		return false
	}
}

// literalEqual compares a submitted value with a rule literal, tolerating the
// float64/int mismatch JSON decoding introduces.
func literalEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func fullMatch(pattern, s string) bool {
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

var clockRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func validClock(s string) bool {
	return clockRe.MatchString(s)
}

func validDatetime(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

var durationRe = regexp.MustCompile(`^P(?:\d+Y)?(?:\d+M)?(?:\d+W)?(?:\d+D)?(?:T(?:\d+H)?(?:\d+M)?(?:\d+(?:\.\d+)?S)?)?$`)

// validDuration accepts non-negative ISO-8601 durations. The bare "P" and
// "PT" forms carry no components and are rejected.
func validDuration(s string) bool {
	if s == "" || s[0] == '-' || s == "P" || s == "PT" {
		return false
	}
	return durationRe.MatchString(s)
}
