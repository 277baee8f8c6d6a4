package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, seq uint64) *clipEntry {
	return &clipEntry{clip: newFakeClip(id, 0, 10, 0), seq: seq}
}

func TestRelinkDiff_InitialBuildRetargetsToTop(t *testing.T) {
	a := entry("A", 0)
	plan := relinkDiff(nil, []*clipEntry{a})

	require.True(t, plan.topChanged)
	assert.Same(t, a, plan.newTop)
	assert.Empty(t, plan.links)
	assert.Empty(t, plan.unlinks)
	assert.Empty(t, plan.deactivate)
}

func TestRelinkDiff_SameTopNoRetarget(t *testing.T) {
	a := entry("A", 0)
	op := entry("op", 1)
	old := []*clipEntry{op, a}
	newStack := []*clipEntry{op, a}

	plan := relinkDiff(old, newStack)

	assert.False(t, plan.topChanged)
	assert.Empty(t, plan.links)
	assert.Empty(t, plan.unlinks)
	assert.Empty(t, plan.deactivate)
}

func TestRelinkDiff_ReplacementDeactivatesOld(t *testing.T) {
	a := entry("A", 0)
	b := entry("B", 1)

	plan := relinkDiff([]*clipEntry{a}, []*clipEntry{b})

	require.True(t, plan.topChanged)
	assert.Same(t, b, plan.newTop)
	require.Len(t, plan.deactivate, 1)
	assert.Same(t, a, plan.deactivate["A"])
}

func TestRelinkDiff_GrowingStackLinksBeneathExistingTop(t *testing.T) {
	op := entry("op", 0)
	old := []*clipEntry{op}
	a := entry("A", 1)
	newStack := []*clipEntry{op, a}

	plan := relinkDiff(old, newStack)

	assert.False(t, plan.topChanged)
	require.Len(t, plan.links, 1)
	assert.Same(t, op, plan.links[0].from)
	assert.Same(t, a, plan.links[0].to)
	assert.Empty(t, plan.deactivate)
}

func TestRelinkDiff_ShrinkingStackUnlinksTail(t *testing.T) {
	op := entry("op", 0)
	a := entry("A", 1)
	old := []*clipEntry{op, a}
	newStack := []*clipEntry{op}

	plan := relinkDiff(old, newStack)

	assert.False(t, plan.topChanged)
	require.Len(t, plan.unlinks, 1)
	assert.Same(t, op, plan.unlinks[0].from)
	assert.Same(t, a, plan.unlinks[0].to)
	require.Len(t, plan.deactivate, 1)
	assert.Same(t, a, plan.deactivate["A"])
}

func TestRelinkDiff_EmptyingStackDetachesOutput(t *testing.T) {
	a := entry("A", 0)
	plan := relinkDiff([]*clipEntry{a}, nil)

	require.True(t, plan.topChanged)
	assert.Nil(t, plan.newTop)
	require.Len(t, plan.deactivate, 1)
}

// spec.md §4.3 step 3: a clip reordered but still present in both
// stacks must not be deactivated, even though the walk visits it at a
// mismatched index.
func TestRelinkDiff_ReorderedMembershipNotDeactivated(t *testing.T) {
	op := entry("op", 0)
	a := entry("A", 1)
	b := entry("B", 2)
	old := []*clipEntry{op, a, b}
	newStack := []*clipEntry{op, b, a}

	plan := relinkDiff(old, newStack)

	assert.Empty(t, plan.deactivate, "no clip present in both stacks should be deactivated")
}
