package schema

// access resolves a role's access level for a field or photo. Absent an
// explicit entry the field is editable.
func access(roles map[string]string, role string) string {
	if roles == nil {
		return AccessEdit
	}
	if a, ok := roles[role]; ok {
		return a
	}
	return AccessEdit
}

// FilterSchemaForRoles returns a copy of the schema with fields and photos
// hidden from the role removed. Read-only fields stay, annotated so clients
// can render them disabled.
func FilterSchemaForRoles(s *Schema, role string) *Schema {
	out := &Schema{Logic: s.Logic}
	for _, sec := range s.Sections {
		filtered := Section{Key: sec.Key, Label: sec.Label}
		for _, f := range sec.Fields {
			switch access(f.Roles, role) {
			case AccessHidden:
				continue
			case AccessReadOnly:
				f.ReadOnly = true
			}
			filtered.Fields = append(filtered.Fields, f)
		}
		for _, ph := range sec.Photos {
			if access(ph.Roles, role) == AccessHidden {
				continue
			}
			filtered.Photos = append(filtered.Photos, ph)
		}
		out.Sections = append(out.Sections, filtered)
	}
	return out
}

// FilterSchemaForLogic returns a copy of the schema with fields and photos
// whose show conditions do not hold for the data removed. Composes with
// FilterSchemaForRoles for the full client view.
func FilterSchemaForLogic(s *Schema, data map[string]any) *Schema {
	hidden := logicHidden(s, data)
	out := &Schema{Logic: s.Logic}
	for _, sec := range s.Sections {
		filtered := Section{Key: sec.Key, Label: sec.Label}
		for _, f := range sec.Fields {
			if hidden[f.Key] {
				continue
			}
			filtered.Fields = append(filtered.Fields, f)
		}
		for _, ph := range sec.Photos {
			if hidden[ph.Key] {
				continue
			}
			filtered.Photos = append(filtered.Photos, ph)
		}
		out.Sections = append(out.Sections, filtered)
	}
	return out
}

// FilterDataForRoles strips values of fields hidden from the role out of the
// data view.
func FilterDataForRoles(s *Schema, data map[string]any, role string) map[string]any {
	hidden := map[string]bool{}
	for _, f := range s.Fields() {
		if access(f.Roles, role) == AccessHidden {
			hidden[f.Key] = true
		}
	}
	for _, ph := range s.Photos() {
		if access(ph.Roles, role) == AccessHidden {
			hidden[ph.Key] = true
		}
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if !hidden[k] {
			out[k] = v
		}
	}
	return out
}

// AssertCanEdit rejects a write that touches any field the role may not
// edit. Violations are reported per field path like data errors.
func AssertCanEdit(s *Schema, payload map[string]any, role string) error {
	errs := FieldErrors{}
	for _, f := range s.Fields() {
		if _, touched := payload[f.Key]; !touched {
			continue
		}
		switch access(f.Roles, role) {
		case AccessHidden, AccessReadOnly:
			errs.add(f.Key, CodeReadOnly)
		}
	}
	for _, ph := range s.Photos() {
		if _, touched := payload[ph.Key]; !touched {
			continue
		}
		switch access(ph.Roles, role) {
		case AccessHidden, AccessReadOnly:
			errs.add(ph.Key, CodeReadOnly)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
