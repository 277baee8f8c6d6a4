package composition

import (
	"time"

	"github.com/jmylchreest/nlecomp/internal/graph"
)

// resolve is the pure stack resolver (spec.md §4.2, C2): given a time
// point it returns the active clips at or above the priority floor whose
// window covers t, in priority order (ties broken by registration
// sequence), walking by_start with the early stop described below.
// Callers must hold c.mu;
// resolve itself performs no locking so it stays a pure function of the
// registry's current state (spec.md §8, Determinism law).
func (c *Composition) resolve(t time.Duration) []*clipEntry {
	var candidates []*clipEntry

	for _, e := range c.byStart {
		if e.clip.Start() > t {
			break
		}
		if e.clip.Stop() > t && e.clip.Active() && e.clip.Priority() >= c.cfg.PriorityFloor {
			candidates = insertByPriority(candidates, e)
			continue
		}
		// Short-circuit (spec.md §4.2 step 3): once at least one
		// candidate has been found, the walk stops at the first clip
		// already expired at t. A later clip in by_start order that
		// still covers t is then not returned.
		if e.clip.Stop() <= t && len(candidates) > 0 {
			break
		}
	}
	return candidates
}

// insertByPriority inserts e into a list kept sorted by (priority asc,
// registration sequence asc).
func insertByPriority(list []*clipEntry, e *clipEntry) []*clipEntry {
	i := 0
	for ; i < len(list); i++ {
		if e.clip.Priority() < list[i].clip.Priority() {
			break
		}
		if e.clip.Priority() == list[i].clip.Priority() && e.seq < list[i].seq {
			break
		}
	}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = e
	return list
}

// getCleanToplevel computes the clean, arity-satisfied stack at t and
// the next segment boundary (spec.md §4.2, C2). Callers must hold c.mu.
func (c *Composition) getCleanToplevel(t time.Duration) (stack []*clipEntry, nextBoundary time.Duration) {
	candidates := c.resolve(t)
	need := 1

	for need > 0 && len(candidates) > 0 {
		e := candidates[0]
		candidates = candidates[1:]
		stack = append(stack, e)
		need--
		if e.clip.Kind() == graph.KindOperation {
			need += e.clip.Arity()
		}
	}

	var stopBoundary time.Duration
	haveStopBoundary := len(stack) > 0
	if haveStopBoundary {
		stopBoundary = stack[0].clip.Stop()
		for _, e := range stack[1:] {
			if s := e.clip.Stop(); s < stopBoundary {
				stopBoundary = s
			}
		}
	}

	// Supplemented (SPEC_FULL.md §12.5): a clip not yet started at t
	// forces an earlier rebuild at its start if that start comes before
	// the stack's minimum stop (or there is no stack yet), whether or
	// not it would out-rank anything currently in the stack.
	// spec.md §4.2's literal "min(stop)" definition alone cannot produce
	// spec.md §8 scenario 3's boundary at t=5, since neither A nor B has
	// stopped there; the earliest not-yet-active start is what forces
	// the recompute.
	if startBoundary, ok := c.earliestFutureStart(t); ok {
		if !haveStopBoundary || startBoundary < stopBoundary {
			return stack, startBoundary
		}
	}

	if !haveStopBoundary {
		return stack, 0
	}
	return stack, stopBoundary
}

// earliestFutureStart returns the smallest start time strictly after t
// among clips that could still become resolver candidates (active,
// priority at or above the floor). Callers must hold c.mu.
func (c *Composition) earliestFutureStart(t time.Duration) (time.Duration, bool) {
	for _, e := range c.byStart {
		if e.clip.Start() > t && e.clip.Active() && e.clip.Priority() >= c.cfg.PriorityFloor {
			return e.clip.Start(), true
		}
	}
	return 0, false
}
