// Package schema implements dynamic form validation for task types:
// structural checks on tenant-authored schema definitions, per-field data
// validation, role-based filtering, assignee/reviewer mapping, label
// normalization and rich-text sanitizing.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field types form a closed set; anything else is a schema error.
const (
	TypeText        = "text"
	TypeTextarea    = "textarea"
	TypeNumber      = "number"
	TypeDate        = "date"
	TypeTime        = "time"
	TypeDatetime    = "datetime"
	TypeDuration    = "duration"
	TypeBoolean     = "boolean"
	TypeSelect      = "select"
	TypeMultiselect = "multiselect"
	TypeAssignee    = "assignee"
	TypeReviewer    = "reviewer"
	TypeRichtext    = "richtext"
	TypeFile        = "file"
	TypeComputed    = "computed"

	TypePhotoSingle   = "photo_single"
	TypePhotoRepeater = "photo_repeater"
)

var fieldTypes = map[string]bool{
	TypeText: true, TypeTextarea: true, TypeNumber: true, TypeDate: true,
	TypeTime: true, TypeDatetime: true, TypeDuration: true, TypeBoolean: true,
	TypeSelect: true, TypeMultiselect: true, TypeAssignee: true,
	TypeReviewer: true, TypeRichtext: true, TypeFile: true, TypeComputed: true,
}

var photoTypes = map[string]bool{
	TypePhotoSingle: true, TypePhotoRepeater: true,
}

// Role access markers on fields and photos.
const (
	AccessHidden   = "hidden"
	AccessReadOnly = "read_only"
	AccessEdit     = "edit"
)

// Unique validation scopes.
const (
	UniqueTenant   = "tenant"
	UniqueTaskType = "task_type"
)

// Schema is the typed form of a task type's schema document. Untyped JSON is
// parsed into this tree once on load; everything downstream operates on it.
type Schema struct {
	Sections []Section   `json:"sections"`
	Logic    []LogicRule `json:"logic,omitempty"`
}

type Section struct {
	Key    string    `json:"key"`
	Label  Localized `json:"label"`
	Fields []Field   `json:"fields,omitempty"`
	Photos []Photo   `json:"photos,omitempty"`
}

type Field struct {
	Key         string            `json:"key"`
	Label       Localized         `json:"label"`
	Type        string            `json:"type"`
	Required    bool              `json:"required,omitempty"`
	Regex       string            `json:"regex,omitempty"`
	Unique      string            `json:"unique,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Expr        string            `json:"expr,omitempty"`
	Placeholder Localized         `json:"placeholder,omitempty"`
	Help        Localized         `json:"help,omitempty"`
	Roles       map[string]string `json:"roles,omitempty"`
	ReadOnly    bool              `json:"read_only,omitempty"`
}

type Photo struct {
	Key          string            `json:"key"`
	Label        Localized         `json:"label"`
	Type         string            `json:"type"`
	Required     bool              `json:"required,omitempty"`
	MaxCount     int               `json:"max_count,omitempty"`
	AllowedMimes []string          `json:"allowed_mimes,omitempty"`
	MaxSize      int64             `json:"max_size,omitempty"`
	Roles        map[string]string `json:"roles,omitempty"`
}

// LogicRule is one ordered conditional: when the named field equals the
// literal, the listed fields become required / shown for that pass.
type LogicRule struct {
	If      string   `json:"if"`
	Equals  any      `json:"equals"`
	Require []string `json:"require,omitempty"`
	Show    []string `json:"show,omitempty"`
}

// Localized maps locale codes to text. Plain strings in the source document are
// lifted into this shape during normalization.
type Localized map[string]string

// UnmarshalJSON accepts either a bare string or a locale map so schemas saved
// before normalization still parse.
func (l *Localized) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = Localized{}
		for _, loc := range Locales {
			(*l)[loc] = s
		}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*l = m
	return nil
}

// Locales are the locales every normalized label exposes.
var Locales = []string{"en", "el"}

// SchemaError is a path-qualified structural defect in a schema document.
type SchemaError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// SchemaErrors aggregates every structural defect found in one pass.
type SchemaErrors []SchemaError

func (e SchemaErrors) Error() string {
	msgs := make([]string, len(e))
	for i, se := range e {
		msgs[i] = se.Error()
	}
	return "invalid schema: " + strings.Join(msgs, "; ")
}

// Parse decodes raw JSON into the typed tree, rejecting structural errors.
func Parse(raw []byte) (*Schema, error) {
	if len(raw) == 0 {
		return &Schema{}, nil
	}
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, SchemaErrors{{Path: "schema", Message: err.Error()}}
	}
	if errs := Validate(&s); len(errs) > 0 {
		return nil, errs
	}
	return &s, nil
}

// Validate performs the structural check of a typed schema, collecting every
// violation with its path.
func Validate(s *Schema) SchemaErrors {
	var errs SchemaErrors
	add := func(path, msg string) {
		errs = append(errs, SchemaError{Path: path, Message: msg})
	}

	for i, sec := range s.Sections {
		base := fmt.Sprintf("sections.%d", i)
		if sec.Key == "" {
			add(base+".key", "section key is required")
		}
		if len(sec.Label) == 0 {
			add(base+".label", "section label is required")
		}
		for j, f := range sec.Fields {
			p := fmt.Sprintf("%s.fields.%d", base, j)
			if f.Key == "" {
				add(p+".key", "field key is required")
			}
			if len(f.Label) == 0 {
				add(p+".label", "field label is required")
			}
			if !fieldTypes[f.Type] {
				add(p+".type", fmt.Sprintf("unknown field type %q", f.Type))
			}
			if (f.Type == TypeSelect || f.Type == TypeMultiselect) && len(f.Enum) == 0 {
				add(p+".enum", "select fields need a non-empty enum")
			}
			if f.Type == TypeComputed && f.Expr == "" {
				add(p+".expr", "computed fields need an expression")
			}
			if f.Unique != "" && f.Unique != UniqueTenant && f.Unique != UniqueTaskType {
				add(p+".unique", fmt.Sprintf("unknown unique scope %q", f.Unique))
			}
		}
		for j, ph := range sec.Photos {
			p := fmt.Sprintf("%s.photos.%d", base, j)
			if ph.Key == "" {
				add(p+".key", "photo key is required")
			}
			if len(ph.Label) == 0 {
				add(p+".label", "photo label is required")
			}
			if !photoTypes[ph.Type] {
				add(p+".type", fmt.Sprintf("unknown photo type %q", ph.Type))
			}
		}
	}
	for i, r := range s.Logic {
		if r.If == "" {
			add(fmt.Sprintf("logic.%d.if", i), "condition field is required")
		}
	}
	return errs
}

// fieldByKey returns the field with the given key, searching every section.
func (s *Schema) fieldByKey(key string) *Field {
	for i := range s.Sections {
		for j := range s.Sections[i].Fields {
			if s.Sections[i].Fields[j].Key == key {
				return &s.Sections[i].Fields[j]
			}
		}
	}
	return nil
}

// Fields iterates every field in declaration order.
func (s *Schema) Fields() []Field {
	var out []Field
	for _, sec := range s.Sections {
		out = append(out, sec.Fields...)
	}
	return out
}

// Photos iterates every photo entry in declaration order.
func (s *Schema) Photos() []Photo {
	var out []Photo
	for _, sec := range s.Sections {
		out = append(out, sec.Photos...)
	}
	return out
}
