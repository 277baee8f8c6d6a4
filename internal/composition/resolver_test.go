package composition

import (
	"io"
	"testing"
	"time"

	"github.com/jmylchreest/nlecomp/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBareComposition(t *testing.T) *Composition {
	t.Helper()
	cfg := DefaultEngineConfig()
	cfg.DeferredPortSweepInterval = 0
	c := NewComposition(&fakePipeline{}, &fakeBus{}, cfg, NewLoggerWithWriter("error", io.Discard))
	t.Cleanup(c.Close)
	return c
}

func addRaw(t *testing.T, c *Composition, clip *fakeClip) {
	t.Helper()
	require.NoError(t, c.Add(clip))
}

// Determinism law (spec.md §8): resolve(t) is a pure function of t for a
// fixed registry.
func TestResolve_Deterministic(t *testing.T) {
	c := newBareComposition(t)
	addRaw(t, c, newFakeClip("A", 0, 20, 1))
	addRaw(t, c, newFakeClip("B", 5, 15, 0))

	c.mu.Lock()
	first := c.resolve(7)
	second := c.resolve(7)
	c.mu.Unlock()

	require.Len(t, first, len(second))
	for i := range first {
		assert.Same(t, first[i], second[i])
	}
}

func TestResolve_SkipsInactiveAndBelowFloor(t *testing.T) {
	c := newBareComposition(t)
	c.cfg.PriorityFloor = 1

	inactive := newFakeClip("inactive", 0, 10, 5)
	inactive.active = false
	belowFloor := newFakeClip("below-floor", 0, 10, 0)
	eligible := newFakeClip("eligible", 0, 10, 2)

	addRaw(t, c, inactive)
	addRaw(t, c, belowFloor)
	addRaw(t, c, eligible)

	c.mu.Lock()
	got := c.resolve(5)
	c.mu.Unlock()

	require.Len(t, got, 1)
	assert.Equal(t, "eligible", got[0].id())
}

func TestResolve_EqualPriorityTieBreaksBySequence(t *testing.T) {
	c := newBareComposition(t)
	first := newFakeClip("first", 0, 10, 0)
	second := newFakeClip("second", 0, 10, 0)
	addRaw(t, c, first)
	addRaw(t, c, second)

	c.mu.Lock()
	got := c.resolve(0)
	c.mu.Unlock()

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].id())
	assert.Equal(t, "second", got[1].id())
}

func TestGetCleanToplevel_OperationConsumesArity(t *testing.T) {
	c := newBareComposition(t)

	op := newFakeClip("op", 0, 10, 0)
	op.kind = graph.KindOperation
	op.arity = 2
	left := newFakeClip("left", 0, 10, 1)
	right := newFakeClip("right", 0, 10, 2)
	extra := newFakeClip("extra", 0, 10, 3)

	addRaw(t, c, op)
	addRaw(t, c, left)
	addRaw(t, c, right)
	addRaw(t, c, extra)

	c.mu.Lock()
	stack, boundary := c.getCleanToplevel(0)
	c.mu.Unlock()

	require.Len(t, stack, 3)
	assert.Equal(t, []string{"op", "left", "right"}, []string{stack[0].id(), stack[1].id(), stack[2].id()})
	assert.Equal(t, 10*time.Nanosecond, boundary)
}

func TestGetCleanToplevel_EmptyRegistryIsEmptyStack(t *testing.T) {
	c := newBareComposition(t)
	c.mu.Lock()
	stack, boundary := c.getCleanToplevel(0)
	c.mu.Unlock()
	assert.Empty(t, stack)
	assert.Zero(t, boundary)
}

func TestGetCleanToplevel_BoundaryConsidersUpcomingStart(t *testing.T) {
	c := newBareComposition(t)
	a := newFakeClip("A", 0, 20, 1)
	b := newFakeClip("B", 5, 15, 0)
	addRaw(t, c, a)
	addRaw(t, c, b)

	c.mu.Lock()
	stack, boundary := c.getCleanToplevel(0)
	c.mu.Unlock()

	require.Len(t, stack, 1)
	assert.Equal(t, "A", stack[0].id())
	assert.Equal(t, 5*time.Nanosecond, boundary)
}
