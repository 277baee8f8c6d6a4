// Package composition implements the composition scheduler: the Active
// Stack Resolver, Relink Engine, and Segment/Seek Controller described in
// spec.md, wired together behind a single public facade (spec.md §4.6,
// §4.8).
package composition

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmylchreest/nlecomp/internal/graph"
)

// Composition is a container of time-ranged clips presented to
// downstream collaborators as a single node with one output pad
// (spec.md §3, §4.8). The zero value is not usable; construct with
// NewComposition.
type Composition struct {
	mu sync.Mutex

	id     uuid.UUID
	logger *slog.Logger
	cfg    EngineConfig

	pipeline        graph.Pipeline
	bus             graph.Bus
	nextBusObserver graph.BusObserver

	byStart []*clipEntry
	byStop  []*clipEntry
	byID    map[string]*clipEntry
	nextSeq uint64

	// Composition aggregates (spec.md §3, I4).
	start time.Duration
	stop  time.Duration

	// Requested vs. currently-wired playback window (spec.md §3, §4.4).
	segment      graph.SeekEvent
	segmentStart time.Duration
	segmentStop  time.Duration

	currentStack []*clipEntry
	outputPort   graph.Pad

	state graph.State

	sweeper *maintenanceSweeper
}

// NewComposition builds a composition scheduler bound to pipeline (the
// framework operations it drives) and bus (the message source it
// intercepts). It installs itself as the bus's first observer
// immediately (spec.md §4.5).
func NewComposition(pipeline graph.Pipeline, bus graph.Bus, cfg EngineConfig, logger *slog.Logger) *Composition {
	if logger == nil {
		logger = NewLogger("info")
	}
	c := &Composition{
		id:       uuid.New(),
		logger:   logger,
		cfg:      cfg,
		pipeline: pipeline,
		bus:      bus,
		byID:     make(map[string]*clipEntry),
		state:    graph.StateNull,
	}
	if bus != nil {
		c.nextBusObserver = bus.Install(c)
	}
	c.sweeper = newMaintenanceSweeper(c, cfg)
	return c
}

// ID returns the composition's identity.
func (c *Composition) ID() uuid.UUID { return c.id }

// Close releases the maintenance sweeper. It does not tear down wiring;
// call SetState(graph.StateReady) first if that is desired.
func (c *Composition) Close() {
	c.sweeper.Stop()
}

// Start, Stop, and Duration report the composition's aggregates
// (spec.md §3, I4).
func (c *Composition) Start() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}

func (c *Composition) Stop() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop
}

func (c *Composition) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop - c.start
}

// CurrentStack returns the clip IDs currently wired, top-to-bottom. It
// is a snapshot; the stack may change immediately after this returns.
func (c *Composition) CurrentStack() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.currentStack))
	for i, e := range c.currentStack {
		ids[i] = e.id()
	}
	return ids
}

// Segment returns the currently-wired window (spec.md §3).
func (c *Composition) Segment() (start, stop time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.segmentStart, c.segmentStop
}

// SetState drives the composition through the framework's lifecycle
// transitions relevant to the core (spec.md §4.8).
func (c *Composition) SetState(newState graph.State) error {
	c.mu.Lock()
	old := c.state
	c.state = newState
	compStart := c.start
	c.mu.Unlock()

	c.logger.Debug("composition state transition", "from", old.String(), "to", newState.String())

	switch {
	case old == graph.StateReady && newState == graph.StatePaused:
		_, err := c.updatePipeline(&compStart, true)
		return err
	case old == graph.StatePaused && newState == graph.StateReady:
		c.resetWiring()
	}
	return nil
}

// resetWiring implements the paused -> ready transition (spec.md §4.8):
// drop current_stack, clear the wired segment, reinitialise the
// requested segment to defaults, detach the external output, and cancel
// any pending deferred-port subscription (spec.md §5, Cancellation).
func (c *Composition) resetWiring() {
	c.mu.Lock()
	stack := c.currentStack
	c.currentStack = nil
	c.segmentStart = 0
	c.segmentStop = 0
	c.segment = graph.SeekEvent{}
	for _, e := range c.byID {
		c.cancelDeferredLocked(e)
	}
	c.mu.Unlock()

	for _, e := range stack {
		e.clip.Unlock()
		e.clip.Release()
	}

	if c.pipeline != nil {
		if err := c.pipeline.RetargetOutput(nil); err != nil {
			c.logger.Warn("failed to detach external output on reset", "error", err)
		}
	}

	c.mu.Lock()
	c.outputPort = nil
	c.mu.Unlock()
}

// updatePipeline is the central protocol spanning C2-C5 (spec.md §4.6).
// t is nil for the "time unknown" sentinel used by add/remove/property-
// change notifications, in any state: aggregates are recomputed and the
// wiring is left untouched. It returns whether any clip was deactivated (spec.md §4.6 return value).
func (c *Composition) updatePipeline(t *time.Duration, initial bool) (bool, error) {
	c.mu.Lock() // step 1

	c.recomputeAggregatesLocked() // step 2

	if t == nil { // step 3
		c.mu.Unlock()
		return false, nil
	}

	target := *t
	newStack, newStop := c.getCleanToplevel(target) // step 4
	if len(newStack) == 0 {
		// getCleanToplevel reports next_boundary=0 for an empty stack,
		// which would otherwise leave segment_stop < segment_start
		// whenever target > 0 (I3). With nothing wired there is no
		// stack-derived stop to honor, so the window collapses to a
		// point at target instead.
		newStop = target
	}
	oldStack := c.currentStack
	plan := relinkDiff(oldStack, newStack) // step 5
	activated := stackDiff(newStack, oldStack)

	c.segmentStart = target // step 6
	c.segmentStop = newStop

	seg := c.segment
	pipeline := c.pipeline
	targetState := c.state

	c.mu.Unlock() // step 7: no framework call may happen while c.mu is held (I6)

	for _, e := range plan.deactivate { // step 8
		e.clip.Lock()
	}

	for _, u := range plan.unlinks {
		pad, ok := padOf(u.from)
		if !ok {
			c.logger.Warn("unlink skipped: predecessor has no output port", "from", u.from.id(), "to", u.to.id())
			continue
		}
		if err := pipeline.Unlink(pad, u.to.clip); err != nil {
			c.logger.Error("unlink failed", "from", u.from.id(), "to", u.to.id(), "error", err)
		}
	}

	seekEvt := buildInternalSeek(seg, target, newStop, initial)

	for _, l := range plan.links {
		pad, ok := padOf(l.from)
		if !ok {
			c.logger.Debug("deferring link", "from", l.from.id(), "to", l.to.id(), "error", errMissingPort)
			c.mu.Lock()
			c.subscribeDeferredLocked(l.from, seekEvt, false, l.to)
			c.mu.Unlock()
			continue
		}
		if err := pipeline.Link(pad, l.to.clip); err != nil {
			c.logger.Error("link failed", "from", l.from.id(), "to", l.to.id(), "error", err)
		}
	}

	c.handleTop(newStack, plan, seekEvt) // step 9 + 11

	for _, e := range activated {
		e.clip.Retain()
	}
	for _, e := range plan.deactivate {
		e.clip.Release()
	}

	c.mu.Lock() // step 10
	for _, e := range plan.deactivate {
		e.deactivated = true
	}
	c.currentStack = newStack
	for _, e := range newStack {
		e.deactivated = false
	}
	segStart, segStop := c.segmentStart, c.segmentStop
	c.mu.Unlock()

	c.checkInvariant(checkSegmentOrdering(segStart, segStop, newStack))
	c.checkInvariant(checkDeactivateDisjointFromStack(plan.deactivate, newStack))

	for _, e := range newStack {
		e.clip.Unlock()
		if err := e.clip.SetState(targetState); err != nil {
			c.logger.Warn("clip state transition failed", "clip_id", e.id(), "state", targetState.String(), "error", err)
		}
	}

	c.logger.Debug("pipeline updated",
		"stack_size", len(newStack),
		"deactivated", len(plan.deactivate),
		"segment_start", target,
		"segment_stop", newStop,
		"segment_span", newStop-target,
	)

	return len(plan.deactivate) > 0, nil
}

// handleTop implements spec.md §4.6 steps 9 and 11: retarget the
// external output if the top changed, then (unconditionally, if the
// stack is non-empty) deliver the internal seek to the top's pad —
// deferring either action through C7 if the pad is not yet available.
func (c *Composition) handleTop(newStack []*clipEntry, plan relinkPlan, seekEvt graph.SeekEvent) {
	if len(newStack) == 0 {
		if plan.topChanged {
			c.mu.Lock()
			c.outputPort = nil
			c.mu.Unlock()
			if err := c.pipeline.RetargetOutput(nil); err != nil {
				c.logger.Error("failed to detach external output", "error", err)
			}
		}
		return
	}

	top := newStack[0]
	pad, ok := top.clip.OutputPort()

	if plan.topChanged {
		if !ok {
			c.logger.Debug("deferring retarget", "clip_id", top.id(), "error", errMissingPort)
			c.mu.Lock()
			c.subscribeDeferredLocked(top, seekEvt, true, nil)
			c.mu.Unlock()
			return
		}
		if err := c.pipeline.RetargetOutput(pad); err != nil {
			c.logger.Error("retarget failed", "clip_id", top.id(), "error", err)
		}
		c.mu.Lock()
		c.outputPort = pad
		c.mu.Unlock()
	}

	if !ok {
		c.logger.Debug("deferring internal seek", "clip_id", top.id(), "error", errMissingPort)
		c.mu.Lock()
		c.subscribeDeferredLocked(top, seekEvt, true, nil)
		c.mu.Unlock()
		return
	}

	if err := c.pipeline.Seek(pad, seekEvt); err != nil {
		c.logger.Error("internal seek failed", "clip_id", top.id(), "error", err)
	}
}

// stackDiff returns the entries in newStack that were not present in
// oldStack (spec.md §5, "activation acquires").
func stackDiff(newStack, oldStack []*clipEntry) []*clipEntry {
	old := make(map[*clipEntry]struct{}, len(oldStack))
	for _, e := range oldStack {
		old[e] = struct{}{}
	}
	var activated []*clipEntry
	for _, e := range newStack {
		if _, present := old[e]; !present {
			activated = append(activated, e)
		}
	}
	return activated
}

func padOf(e *clipEntry) (graph.Pad, bool) {
	return e.clip.OutputPort()
}
