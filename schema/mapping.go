package schema

// Reference is a resolved assignee or reviewer target ready for the
// relational columns (assignee_type/assignee_id or reviewer_*).
type Reference struct {
	Type string
	ID   uint
}

// Target types stored in the relational columns.
const (
	RefUser = "user"
	RefTeam = "team"
)

// referenceKinds maps payload kinds to stored target types.
var referenceKinds = map[string]string{
	"employee": RefUser,
	"team":     RefTeam,
}

// MapAssignee locates the schema's assignee field, extracts {kind, id} from
// the payload under its key, resolves it to relational columns and removes
// the key from the payload. A nil Reference with nil error means the schema
// has no assignee field or the payload does not set it.
func MapAssignee(s *Schema, payload map[string]any) (*Reference, error) {
	return mapReference(s, payload, TypeAssignee)
}

// MapReviewer is MapAssignee for the reviewer field.
func MapReviewer(s *Schema, payload map[string]any) (*Reference, error) {
	return mapReference(s, payload, TypeReviewer)
}

func mapReference(s *Schema, payload map[string]any, fieldType string) (*Reference, error) {
	var key string
	for _, f := range s.Fields() {
		if f.Type == fieldType {
			key = f.Key
			break
		}
	}
	if key == "" {
		return nil, nil
	}
	raw, ok := payload[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, FieldErrors{key: {CodeInvalid}}
	}
	kind, _ := obj["kind"].(string)
	target, ok := referenceKinds[kind]
	if !ok {
		return nil, FieldErrors{key: {CodeInvalid}}
	}
	id, ok := toFloat(obj["id"])
	if !ok || id <= 0 {
		return nil, FieldErrors{key: {CodeInvalid}}
	}
	delete(payload, key)
	return &Reference{Type: target, ID: uint(id)}, nil
}
