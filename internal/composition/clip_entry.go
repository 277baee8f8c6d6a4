package composition

import "github.com/jmylchreest/nlecomp/internal/graph"

// clipEntry is the registry's per-clip bookkeeping: the clip itself, its
// registration sequence (the deterministic tie-break, spec.md §3/§4.2),
// the four property subscriptions the registry owns exclusively, and at
// most one outstanding deferred-port subscription (spec.md §4.7).
type clipEntry struct {
	clip graph.Clip
	seq  uint64

	subs     [4]graph.Subscription
	deferred *deferredSub

	// deactivated marks a clip currently locked and detached per
	// spec.md §4.3. Guarded by Composition.mu.
	deactivated bool
}

func (e *clipEntry) id() string { return e.clip.ID() }
