package composition

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmylchreest/nlecomp/internal/graph"
)

// deferredSub tracks a single outstanding "ports-finalised" subscription
// for a clip whose output pad was not yet available at relink time
// (spec.md §4.7, C7).
type deferredSub struct {
	token     uuid.UUID
	installed time.Time
	sub       graph.Subscription
}

// subscribeDeferredLocked installs a one-shot ports-finalised callback
// for entry. Any previously outstanding subscription for the same entry
// is cancelled first, per spec.md §4.7: "a clip may have at most one
// outstanding deferred-port subscription; adding a new one must first
// cancel the old." Callers must hold c.mu.
func (c *Composition) subscribeDeferredLocked(entry *clipEntry, seek graph.SeekEvent, becomesTop bool, predecessor *clipEntry) {
	c.cancelDeferredLocked(entry)

	token := uuid.New()
	d := &deferredSub{token: token, installed: time.Now()}
	entry.deferred = d

	d.sub = entry.clip.OnPortsFinalised(func() {
		c.onPortsFinalised(entry, token, seek, becomesTop, predecessor)
	})
}

// cancelDeferredLocked cancels and clears entry's outstanding deferred
// subscription, if any. Callers must hold c.mu.
func (c *Composition) cancelDeferredLocked(entry *clipEntry) {
	if entry.deferred == nil {
		return
	}
	entry.deferred.sub.Cancel()
	entry.deferred = nil
}

// onPortsFinalised fires when a clip's output pad becomes available. If
// the clip is no longer the subscription that installed this callback,
// or no longer present in current_stack, it simply unsubscribes
// (spec.md §4.7).
func (c *Composition) onPortsFinalised(entry *clipEntry, token uuid.UUID, seek graph.SeekEvent, becomesTop bool, predecessor *clipEntry) {
	c.mu.Lock()
	if entry.deferred == nil || entry.deferred.token != token {
		c.mu.Unlock()
		return
	}
	entry.deferred = nil

	present := false
	for _, e := range c.currentStack {
		if e == entry {
			present = true
			break
		}
	}
	if !present {
		c.mu.Unlock()
		return
	}

	pad, ok := entry.clip.OutputPort()
	pipeline := c.pipeline
	c.mu.Unlock()

	if !ok {
		// Ports-finalised fired but the pad still isn't reported; nothing
		// more we can do this round, the clip will need to notify again.
		c.logger.Warn("ports-finalised fired without an output port", "clip_id", entry.id(), "error", errMissingPort)
		return
	}

	if becomesTop {
		if err := pipeline.RetargetOutput(pad); err != nil {
			c.logger.Error("deferred retarget failed", "clip_id", entry.id(), "error", err)
			return
		}
		if err := pipeline.Seek(pad, seek); err != nil {
			c.logger.Error("deferred internal seek failed", "clip_id", entry.id(), "error", err)
		}
		return
	}

	if predecessor != nil {
		if err := pipeline.Link(pad, predecessor.clip); err != nil {
			c.logger.Error("deferred link failed", "clip_id", entry.id(), "predecessor_id", predecessor.id(), "error", err)
		}
	}
}
