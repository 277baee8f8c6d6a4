package composition

import (
	"sort"
	"time"

	"github.com/jmylchreest/nlecomp/internal/graph"
)

// Add registers clip. It subscribes to the clip's four observed
// properties, inserts it into both time orderings and the hash index,
// recomputes the composition's aggregates, and requests a re-sort-only
// pipeline update (spec.md §4.1).
//
// Add rejects objects that are already registered or whose ID collides
// with an existing entry; this is spec.md §6's "double-add is a
// rejection".
func (c *Composition) Add(clip graph.Clip) error {
	if clip == nil {
		return ErrRejected
	}

	c.mu.Lock()
	if _, exists := c.byID[clip.ID()]; exists {
		c.mu.Unlock()
		return ErrRejected
	}

	clip.Retain()
	entry := &clipEntry{clip: clip, seq: c.nextSeq}
	c.nextSeq++

	entry.subs[graph.PropStart] = clip.Subscribe(graph.PropStart, c.onPropertyChanged(entry, graph.PropStart))
	entry.subs[graph.PropStop] = clip.Subscribe(graph.PropStop, c.onPropertyChanged(entry, graph.PropStop))
	entry.subs[graph.PropPriority] = clip.Subscribe(graph.PropPriority, c.onPropertyChanged(entry, graph.PropPriority))
	entry.subs[graph.PropActive] = clip.Subscribe(graph.PropActive, c.onPropertyChanged(entry, graph.PropActive))

	c.byID[clip.ID()] = entry
	c.byStart = append(c.byStart, entry)
	c.byStop = append(c.byStop, entry)
	c.resortLocked()
	c.recomputeAggregatesLocked()

	c.logger.Debug("clip added", "clip_id", clip.ID(), "start", clip.Start(), "stop", clip.Stop(), "priority", clip.Priority())
	c.mu.Unlock()

	c.updatePipeline(nil, false)
	return nil
}

// Remove de-registers clip: unsubscribes, removes it from both
// orderings and the hash, releases the composition's reference, and
// requests an update (spec.md §4.1).
func (c *Composition) Remove(clip graph.Clip) error {
	if clip == nil {
		return ErrNotPresent
	}

	c.mu.Lock()
	entry, ok := c.byID[clip.ID()]
	if !ok {
		c.mu.Unlock()
		return ErrNotPresent
	}

	for _, s := range entry.subs {
		if s != nil {
			s.Cancel()
		}
	}
	c.cancelDeferredLocked(entry)

	delete(c.byID, clip.ID())
	c.byStart = removeEntry(c.byStart, entry)
	c.byStop = removeEntry(c.byStop, entry)
	c.recomputeAggregatesLocked()

	clip.Release()
	c.logger.Debug("clip removed", "clip_id", clip.ID())
	c.mu.Unlock()

	c.updatePipeline(nil, false)
	return nil
}

// onPropertyChanged returns a closure subscribed to one of a clip's
// property channels (spec.md §4.1: on_property_change).
func (c *Composition) onPropertyChanged(entry *clipEntry, prop graph.Property) func() {
	return func() {
		c.mu.Lock()
		switch prop {
		case graph.PropStart, graph.PropStop, graph.PropPriority:
			c.resortLocked()
		case graph.PropActive:
			// No re-sort: active is not part of either ordering's sort
			// key (spec.md §4.1).
		}
		c.recomputeAggregatesLocked()
		playing := c.state == graph.StatePlaying
		lastKnown := c.segmentStart
		c.mu.Unlock()

		c.logger.Debug("clip property changed", "clip_id", entry.id(), "property", prop.String())

		if prop == graph.PropActive && playing {
			// Supplemented behavior (SPEC_FULL.md §12.4, grounded on the
			// original gnlcomposition active/priority notify handling):
			// toggling `active` while playing still needs a recompute at
			// the current time, even though it never changes sort order.
			c.updatePipeline(&lastKnown, false)
			return
		}
		c.updatePipeline(nil, false)
	}
}

// resortLocked re-sorts both orderings by (key, priority, seq). Callers
// must hold c.mu.
func (c *Composition) resortLocked() {
	sort.SliceStable(c.byStart, func(i, j int) bool {
		return lessByStart(c.byStart[i], c.byStart[j])
	})
	sort.SliceStable(c.byStop, func(i, j int) bool {
		return lessByStop(c.byStop[i], c.byStop[j])
	})
}

func lessByStart(a, b *clipEntry) bool {
	as, bs := a.clip.Start(), b.clip.Start()
	if as != bs {
		return as < bs
	}
	if a.clip.Priority() != b.clip.Priority() {
		return a.clip.Priority() < b.clip.Priority()
	}
	return a.seq < b.seq
}

func lessByStop(a, b *clipEntry) bool {
	as, bs := a.clip.Stop(), b.clip.Stop()
	if as != bs {
		return as < bs
	}
	if a.clip.Priority() != b.clip.Priority() {
		return a.clip.Priority() < b.clip.Priority()
	}
	return a.seq < b.seq
}

// recomputeAggregatesLocked recomputes composition.start/stop/duration
// from the registry (spec.md §3, I4). Callers must hold c.mu.
func (c *Composition) recomputeAggregatesLocked() {
	if len(c.byStart) == 0 {
		c.start, c.stop = 0, 0
		return
	}
	start := c.byStart[0].clip.Start()
	var stop time.Duration
	for _, e := range c.byStop {
		if s := e.clip.Stop(); s > stop {
			stop = s
		}
	}
	c.start = start
	c.stop = stop
}

func removeEntry(s []*clipEntry, target *clipEntry) []*clipEntry {
	for i, e := range s {
		if e == target {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
