package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePrecedence(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"1 + 2", 3},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 - 4 - 3", 3},
		{"20 / 2 / 5", 2},
		{"2 * 3 + 4 * 5", 26},
		{"1.5 * 2", 3},
	}
	for _, tc := range cases {
		got, err := Evaluate(tc.expr, nil)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.want, got, tc.expr)
	}
}

func TestEvaluateFieldPaths(t *testing.T) {
	data := map[string]any{
		"quantity": float64(4),
		"pricing": map[string]any{
			"unit": float64(2.5),
		},
		"flag": true,
		"text": "12",
	}

	got, err := Evaluate("quantity * pricing.unit", data)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)

	got, err = Evaluate("text + flag", data)
	require.NoError(t, err)
	assert.Equal(t, 13.0, got)
}

func TestEvaluateMissingPathIsZero(t *testing.T) {
	got, err := Evaluate("missing + 5", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)

	got, err = Evaluate("a.b.c", map[string]any{"a": map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestEvaluateDivisionByZero(t *testing.T) {
	got, err := Evaluate("10 / 0", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = Evaluate("10 / missing", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestEvaluateMalformed(t *testing.T) {
	for _, bad := range []string{"1 +", "(1 + 2", "1 2", "* 3", ")", "@"} {
		_, err := Evaluate(bad, nil)
		assert.Error(t, err, bad)
	}
}
