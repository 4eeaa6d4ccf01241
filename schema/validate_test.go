package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDataConditionalRequire(t *testing.T) {
	s := testSchema()

	// High priority makes due_date required for this pass.
	_, err := ValidateData(s, map[string]any{"priority": "high"}, Options{})
	require.Error(t, err)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{CodeRequired}, fe["due_date"])

	// Low priority does not.
	_, err = ValidateData(s, map[string]any{"priority": "low"}, Options{})
	assert.NoError(t, err)
}

func TestValidateDataAggregatesAllViolations(t *testing.T) {
	s := testSchema()

	_, err := ValidateData(s, map[string]any{
		"priority": "high",
		"quantity": "not a number",
	}, Options{})
	require.Error(t, err)

	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Len(t, fe, 2)
	assert.Equal(t, []string{CodeRequired}, fe["due_date"])
	assert.Equal(t, []string{CodeNumber}, fe["quantity"])
}

func TestValidateDataRecomputesComputedFields(t *testing.T) {
	s := testSchema()

	out, err := ValidateData(s, map[string]any{
		"priority":   "low",
		"quantity":   float64(3),
		"unit_price": float64(4),
		"total":      float64(999), // client lies
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 12.0, out["total"])
}

func TestValidateDataIsDeterministic(t *testing.T) {
	s := testSchema()
	data := map[string]any{"priority": "high", "quantity": "x"}

	_, err1 := ValidateData(s, data, Options{})
	_, err2 := ValidateData(s, data, Options{})
	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, err1.Error(), err2.Error())
}

func TestValidateDataTemporalFormats(t *testing.T) {
	s := &Schema{Sections: []Section{{
		Key: "s", Label: Localized{"en": "S"},
		Fields: []Field{
			{Key: "d", Label: Localized{"en": "D"}, Type: TypeDate},
			{Key: "t", Label: Localized{"en": "T"}, Type: TypeTime},
			{Key: "dt", Label: Localized{"en": "DT"}, Type: TypeDatetime},
			{Key: "dur", Label: Localized{"en": "Dur"}, Type: TypeDuration},
		},
	}}}

	out, err := ValidateData(s, map[string]any{
		"d":   "2025-06-30",
		"t":   "23:59",
		"dt":  "2025-06-30T16:00:00Z",
		"dur": "PT2H30M",
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-30", out["d"])

	_, err = ValidateData(s, map[string]any{
		"d":   "30/06/2025",
		"t":   "24:00",
		"dt":  "yesterday",
		"dur": "-PT5M",
	}, Options{})
	require.Error(t, err)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{CodeDate}, fe["d"])
	assert.Equal(t, []string{CodeTime}, fe["t"])
	assert.Equal(t, []string{CodeDatetime}, fe["dt"])
	assert.Equal(t, []string{CodeDuration}, fe["dur"])
}

func TestValidateDataRegexFullMatch(t *testing.T) {
	s := &Schema{Sections: []Section{{
		Key: "s", Label: Localized{"en": "S"},
		Fields: []Field{
			{Key: "code", Label: Localized{"en": "Code"}, Type: TypeText, Regex: `[A-Z]{3}-\d+`},
		},
	}}}

	_, err := ValidateData(s, map[string]any{"code": "ABC-42"}, Options{})
	assert.NoError(t, err)

	// Substring matches are not enough.
	_, err = ValidateData(s, map[string]any{"code": "xABC-42x"}, Options{})
	require.Error(t, err)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{CodeRegex}, fe["code"])
}

func TestValidateDataUnique(t *testing.T) {
	s := &Schema{Sections: []Section{{
		Key: "s", Label: Localized{"en": "S"},
		Fields: []Field{
			{Key: "serial", Label: Localized{"en": "Serial"}, Type: TypeText, Unique: UniqueTenant},
		},
	}}}

	taken := func(scope, key string, value any) (bool, error) {
		return value == "dup", nil
	}

	_, err := ValidateData(s, map[string]any{"serial": "fresh"}, Options{Unique: taken})
	assert.NoError(t, err)

	_, err = ValidateData(s, map[string]any{"serial": "dup"}, Options{Unique: taken})
	require.Error(t, err)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{CodeUnique}, fe["serial"])
}

func TestValidateDataPhotoRules(t *testing.T) {
	s := testSchema()
	base := map[string]any{"priority": "low"}

	photos := func(items ...map[string]any) map[string]any {
		m := map[string]any{"priority": "low"}
		arr := make([]any, len(items))
		for i, it := range items {
			arr[i] = it
		}
		m["site_photos"] = arr
		return m
	}

	// Over the repeater limit.
	_, err := ValidateData(s, photos(
		map[string]any{"name": "a.jpg", "mime": "image/jpeg", "size": float64(10)},
		map[string]any{"name": "b.jpg", "mime": "image/jpeg", "size": float64(10)},
		map[string]any{"name": "c.jpg", "mime": "image/jpeg", "size": float64(10)},
	), Options{})
	require.Error(t, err)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{CodeMaxCount}, fe["site_photos"])

	// Bad mime and oversize are reported per item.
	_, err = ValidateData(s, photos(
		map[string]any{"name": "a.gif", "mime": "image/gif", "size": float64(10)},
		map[string]any{"name": "b.jpg", "mime": "image/jpeg", "size": float64(4096)},
	), Options{})
	require.Error(t, err)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{CodeMime}, fe["site_photos.0"])
	assert.Equal(t, []string{CodeSize}, fe["site_photos.1"])

	// Optional and absent is fine.
	_, err = ValidateData(s, base, Options{})
	assert.NoError(t, err)
}

func TestValidateDataRequiredPhoto(t *testing.T) {
	s := &Schema{Sections: []Section{{
		Key: "s", Label: Localized{"en": "S"},
		Photos: []Photo{
			{Key: "before", Label: Localized{"en": "Before"}, Type: TypePhotoSingle, Required: true},
		},
	}}}

	_, err := ValidateData(s, map[string]any{}, Options{})
	require.Error(t, err)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{CodeRequired}, fe["before"])
}

func TestValidateDataReferenceFields(t *testing.T) {
	s := &Schema{Sections: []Section{{
		Key: "s", Label: Localized{"en": "S"},
		Fields: []Field{
			{Key: "assignee", Label: Localized{"en": "Assignee"}, Type: TypeAssignee, Required: true},
			{Key: "reviewer", Label: Localized{"en": "Reviewer"}, Type: TypeReviewer},
		},
	}}}

	// Mapping runs first and moves the reference into relational columns,
	// removing the payload key; the flag satisfies requiredness.
	payload := map[string]any{"assignee": map[string]any{"kind": "employee", "id": float64(2)}}
	ref, err := MapAssignee(s, payload)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, RefUser, ref.Type)
	assert.NotContains(t, payload, "assignee")

	_, err = ValidateData(s, payload, Options{HasAssignee: true})
	assert.NoError(t, err)

	// Without a mapped reference the required assignee is reported.
	_, err = ValidateData(s, map[string]any{}, Options{})
	require.Error(t, err)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{CodeRequired}, fe["assignee"])
	assert.NotContains(t, fe, "reviewer")

	// A reference still present in the payload also counts as set.
	_, err = ValidateData(s, map[string]any{
		"assignee": map[string]any{"kind": "employee", "id": float64(2)},
	}, Options{})
	assert.NoError(t, err)
}

func TestValidateDataConditionalShow(t *testing.T) {
	s := &Schema{
		Sections: []Section{{
			Key: "s", Label: Localized{"en": "S"},
			Fields: []Field{
				{Key: "mode", Label: Localized{"en": "Mode"}, Type: TypeSelect, Enum: []string{"basic", "advanced"}},
				{Key: "tuning", Label: Localized{"en": "Tuning"}, Type: TypeNumber, Required: true},
			},
		}},
		Logic: []LogicRule{
			{If: "mode", Equals: "advanced", Show: []string{"tuning"}},
		},
	}

	// Hidden while the condition does not hold: neither required nor
	// type-checked.
	_, err := ValidateData(s, map[string]any{"mode": "basic"}, Options{})
	assert.NoError(t, err)
	_, err = ValidateData(s, map[string]any{"mode": "basic", "tuning": "junk"}, Options{})
	assert.NoError(t, err)

	// Shown once it holds, so the base required flag applies again.
	_, err = ValidateData(s, map[string]any{"mode": "advanced"}, Options{})
	require.Error(t, err)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{CodeRequired}, fe["tuning"])

	out, err := ValidateData(s, map[string]any{"mode": "advanced", "tuning": float64(7)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, float64(7), out["tuning"])
}

func TestValidateDataSanitizesRichText(t *testing.T) {
	s := &Schema{Sections: []Section{{
		Key: "s", Label: Localized{"en": "S"},
		Fields: []Field{
			{Key: "notes", Label: Localized{"en": "Notes"}, Type: TypeRichtext},
		},
	}}}

	out, err := ValidateData(s, map[string]any{
		"notes": `<p>ok</p><script>alert(1)</script>`,
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", out["notes"])
}
