package composition

import (
	"errors"
	"fmt"
	"time"
)

// ErrRejected is returned by Add when the supplied object is not a usable
// clip (spec.md §7: Rejected).
var ErrRejected = errors.New("composition: clip rejected")

// ErrNotPresent is returned by Remove for a clip that is not registered
// (spec.md §7: NotPresent).
var ErrNotPresent = errors.New("composition: clip not present")

// ErrBadFormat reports an unsupported seek/segment-done unit (spec.md §7:
// BadFormat). HandleExternalSeek logs it, ignores the seek, and returns
// it; a segment-done message in another unit is logged and forwarded
// without producing an error.
var ErrBadFormat = errors.New("composition: unsupported time format")

// errMissingPort signals that a relink step needs a clip's output pad
// before it exists. It never escapes this package: the deferred-port
// fix-up (C7) converts it into a subscription instead of surfacing it to
// a caller (spec.md §7: MissingPort).
var errMissingPort = errors.New("composition: output port not yet available")

// InvariantViolation reports a broken internal invariant (spec.md §7:
// Internal). It is returned by internal consistency checks so tests can
// assert on it directly instead of crashing the test binary; production
// callers configured with EngineConfig.InvariantChecksEnabled turn it
// into a panic at the package boundary (see checkInvariant).
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("composition: invariant %s violated: %s", e.Invariant, e.Detail)
}

// checkInvariant panics with v when checks are enabled and v is non-nil,
// otherwise logs it and continues in the composition's last valid state,
// matching spec.md §7's propagation policy.
func (c *Composition) checkInvariant(v *InvariantViolation) {
	if v == nil {
		return
	}
	if c.cfg.InvariantChecksEnabled {
		panic(v)
	}
	c.logger.Error("invariant violated", "invariant", v.Invariant, "detail", v.Detail)
}

// checkSegmentOrdering asserts I3: segment_start <= segment_stop, and —
// when the stack is non-empty — segment_stop never exceeds the minimum
// stop across the stack, and the top's start does not exceed
// segment_start. segment_stop is "<=" rather than "==" min(stack stops)
// because the §12.5 supplement lets an upcoming, not-yet-active start
// pull the boundary in earlier than any clip's stop.
func checkSegmentOrdering(segStart, segStop time.Duration, stack []*clipEntry) *InvariantViolation {
	if segStart > segStop {
		return &InvariantViolation{
			Invariant: "I3",
			Detail:    fmt.Sprintf("segment_start %s > segment_stop %s", segStart, segStop),
		}
	}
	if len(stack) == 0 {
		return nil
	}
	minStop := stack[0].clip.Stop()
	for _, e := range stack[1:] {
		if s := e.clip.Stop(); s < minStop {
			minStop = s
		}
	}
	if segStop > minStop {
		return &InvariantViolation{
			Invariant: "I3",
			Detail:    fmt.Sprintf("segment_stop %s > min(stack stops) %s", segStop, minStop),
		}
	}
	if top := stack[0].clip.Start(); top > segStart {
		return &InvariantViolation{
			Invariant: "I3",
			Detail:    fmt.Sprintf("top start %s > segment_start %s", top, segStart),
		}
	}
	return nil
}

// checkDeactivateDisjointFromStack asserts I5: no clip appears in both
// the deactivate set produced by a relink and the resulting stack.
func checkDeactivateDisjointFromStack(deactivate map[string]*clipEntry, stack []*clipEntry) *InvariantViolation {
	for _, e := range stack {
		if _, present := deactivate[e.id()]; present {
			return &InvariantViolation{
				Invariant: "I5",
				Detail:    fmt.Sprintf("clip %s is both deactivated and in the resulting stack", e.id()),
			}
		}
	}
	return nil
}
