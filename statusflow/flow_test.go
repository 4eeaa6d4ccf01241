package statusflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphStringPairs(t *testing.T) {
	g, err := NewGraph([]byte(`[["draft","assigned"],["assigned","in_progress"]]`))
	require.NoError(t, err)

	assert.True(t, g.CanTransition("draft", "assigned"))
	assert.True(t, g.CanTransition("assigned", "in_progress"))
	assert.False(t, g.CanTransition("assigned", "draft"))
}

func TestNewGraphObjectPairs(t *testing.T) {
	g, err := NewGraph([]byte(`[[{"slug":"draft"},{"slug":"assigned"}],[{"slug":"assigned"},{"slug":"done"}]]`))
	require.NoError(t, err)

	assert.True(t, g.CanTransition("draft", "assigned"))
	assert.True(t, g.CanTransition("assigned", "done"))
	assert.Equal(t, []string{"assigned"}, g.AllowedTransitions("draft"))
}

func TestNewGraphMixedShapes(t *testing.T) {
	g, err := NewGraph([]byte(`[["draft",{"slug":"assigned"}]]`))
	require.NoError(t, err)
	assert.True(t, g.CanTransition("draft", "assigned"))
}

func TestNewGraphRejectsBadEdges(t *testing.T) {
	_, err := NewGraph([]byte(`[["only_one"]]`))
	assert.Error(t, err)

	_, err = NewGraph([]byte(`[[1,2]]`))
	assert.Error(t, err)

	_, err = NewGraph([]byte(`{"not":"a list"}`))
	assert.Error(t, err)
}

func TestNoTransitiveClosure(t *testing.T) {
	g, err := NewGraph([]byte(`[["draft","assigned"],["assigned","in_progress"]]`))
	require.NoError(t, err)

	// draft reaches in_progress only through assigned, never directly.
	assert.False(t, g.CanTransition("draft", "in_progress"))
}

func TestDefaultGraph(t *testing.T) {
	g := DefaultGraph()

	assert.True(t, g.CanTransition("draft", "assigned"))
	assert.True(t, g.CanTransition("completed", "rejected"))
	assert.True(t, g.CanTransition("completed", "redo"))
	assert.True(t, g.CanTransition("redo", "assigned"))
	assert.False(t, g.CanTransition("draft", "completed"))

	empty, err := NewGraph(nil)
	require.NoError(t, err)
	assert.Equal(t, g.Statuses(), empty.Statuses())
}

func TestCanMoveGraphEdge(t *testing.T) {
	g := DefaultGraph()

	assert.NoError(t, g.CanMove("draft", "", "assigned", false))

	err := g.CanMove("draft", "", "completed", false)
	require.Error(t, err)
	var re *RuleError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ReasonNotAllowed, re.Reason)
}

func TestCanMoveManageOverride(t *testing.T) {
	g := DefaultGraph()
	assert.NoError(t, g.CanMove("draft", "", "completed", true))
}

func TestCanMoveOneStepBack(t *testing.T) {
	g := DefaultGraph()

	// A task at in_progress that came from assigned may go back once.
	require.NoError(t, g.CanMove("in_progress", "assigned", "assigned", false))

	// After the move the previous slot points at in_progress, so the same
	// revert is no longer available.
	err := g.CanMove("assigned", "in_progress", "assigned", false)
	require.Error(t, err)
	var re *RuleError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ReasonNotAllowed, re.Reason)
}

func TestCanMoveStepBackExhausted(t *testing.T) {
	g := DefaultGraph()

	// Backward along a reversed edge without the step-back slot.
	err := g.CanMove("in_progress", "", "assigned", false)
	require.Error(t, err)
	var re *RuleError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ReasonStepBackExhausted, re.Reason)
}

func TestCanMoveTenantPrefixedSlugs(t *testing.T) {
	g := DefaultGraph()
	assert.NoError(t, g.CanMove("t42__draft", "", "t42__assigned", false))
}

func TestBaseSlug(t *testing.T) {
	assert.Equal(t, "review", BaseSlug("t42__review"))
	assert.Equal(t, "review", BaseSlug("review"))
	assert.Equal(t, "t42__review", TenantSlug(42, "review"))
}

func TestParseStatuses(t *testing.T) {
	assert.Equal(t, []string{"new", "doing", "done"},
		ParseStatuses([]byte(`["new","doing","done"]`)))
	assert.Equal(t, []string{"new", "done"},
		ParseStatuses([]byte(`[{"slug":"new","name":"New"},{"slug":"done"}]`)))
	assert.Nil(t, ParseStatuses(nil))

	assert.Equal(t, "new", InitialStatus([]byte(`["new","done"]`)))
	assert.Equal(t, "draft", InitialStatus(nil))
}
