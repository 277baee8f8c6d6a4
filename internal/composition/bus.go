package composition

import "github.com/jmylchreest/nlecomp/internal/graph"

// HandleMessage implements graph.BusObserver (spec.md §4.5, C5). The
// composition installs itself ahead of any existing bus observer; it
// intercepts SEGMENT_DONE and forwards everything else.
func (c *Composition) HandleMessage(msg graph.Message) {
	if msg.Type != graph.MsgSegmentDone {
		c.forward(msg)
		return
	}

	if msg.Format != graph.FormatTime {
		c.logger.Warn("segment-done in unsupported format, forwarding", "format", msg.Format)
		c.forward(msg)
		return
	}

	boundary := msg.Value
	c.mu.Lock()
	expected := c.segmentStop
	c.mu.Unlock()
	if boundary != expected {
		// A stale or out-of-order notification; log and proceed with the
		// wired boundary rather than trusting the message's value.
		c.logger.Warn("segment-done at unexpected boundary", "reported", boundary, "expected", expected)
		boundary = expected
	}

	if _, err := c.updatePipeline(&boundary, false); err != nil {
		c.logger.Error("segment-done rebuild failed", "error", err)
		return
	}

	c.mu.Lock()
	empty := len(c.currentStack) == 0
	c.mu.Unlock()

	if empty {
		if err := c.pipeline.EmitEndOfStream(); err != nil {
			c.logger.Error("failed to emit end-of-stream", "error", err)
		}
	}
}

// forward delivers msg to whichever observer was installed before this
// composition (spec.md §4.5: "Any other message: forward to the
// previously-installed observer").
func (c *Composition) forward(msg graph.Message) {
	if c.nextBusObserver != nil {
		c.nextBusObserver.HandleMessage(msg)
	}
}
