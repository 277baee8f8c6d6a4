package composition

import (
	"time"

	"github.com/jmylchreest/nlecomp/internal/graph"
)

// HandleExternalSeek parses an external seek event (spec.md §4.4, C4),
// updates the requested segment, clamps it to the composition's bounds,
// and triggers a rebuild if the new request crosses outside the
// currently-wired window.
func (c *Composition) HandleExternalSeek(evt graph.SeekEvent) error {
	if evt.Format != graph.FormatTime {
		c.logger.Warn("seek arrived in unsupported format, ignoring", "format", evt.Format)
		return ErrBadFormat
	}

	c.mu.Lock()
	seg := evt
	if seg.Start < c.start {
		seg.Start = c.start
	}
	if c.stop != 0 && seg.Stop > c.stop {
		seg.Stop = c.stop
	}
	c.segment = seg
	rebuild := c.needsRebuildLocked()
	c.mu.Unlock()

	c.logger.Debug("external seek handled", "start", seg.Start, "stop", seg.Stop, "rebuild", rebuild)

	if rebuild {
		start := seg.Start
		c.updatePipeline(&start, false)
	}
	return nil
}

// needsRebuildLocked reports whether the requested segment has moved
// outside the window the current stack was built for (spec.md §4.4).
// Callers must hold c.mu.
func (c *Composition) needsRebuildLocked() bool {
	return c.segment.Start < c.segmentStart || c.segment.Start >= c.segmentStop
}

// buildInternalSeek constructs the seek to deliver to the new top of
// stack (spec.md §4.4). On the initial build it forces the segment flag
// so downstream emits a segment-completion at segStop rather than an
// end-of-stream; on subsequent builds it preserves the caller-supplied
// flags verbatim (spec.md §9, Open Question on flush-vs-segment). A
// requested stop of 0 (the default, unset segment) does not bound the
// seek; segStop is used instead.
func buildInternalSeek(seg graph.SeekEvent, segStart, segStop time.Duration, initial bool) graph.SeekEvent {
	start := seg.Start
	if segStart > start {
		start = segStart
	}
	stop := seg.Stop
	if stop == 0 || segStop < stop {
		stop = segStop
	}

	flags := seg.Flags
	if initial {
		flags |= graph.SeekFlagSegment
	}

	return graph.SeekEvent{
		Rate:   seg.Rate,
		Format: graph.FormatTime,
		Flags:  flags,
		Start:  start,
		Stop:   stop,
	}
}
