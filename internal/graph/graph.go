// Package graph specifies the interfaces of the external media processing
// framework that the composition core is built on top of: a graph of
// elements with input/output pads, a bus that delivers asynchronous
// messages, and a state machine. The composition core (internal/composition)
// consumes these interfaces; it never implements the framework itself.
//
// A concrete framework binding (format negotiation, decoding, rendering,
// actual pad data flow) is outside this module's scope — see spec.md §1.
package graph

import "time"

// State mirrors the framework's element state machine.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// ClipKind distinguishes a source (no inputs) from an operation (consumes
// one or more stack slots beneath it).
type ClipKind int

const (
	KindSource ClipKind = iota
	KindOperation
)

// Property identifies one of the four channels the registry observes on a
// clip.
type Property int

const (
	PropStart Property = iota
	PropStop
	PropPriority
	PropActive
)

func (p Property) String() string {
	switch p {
	case PropStart:
		return "start"
	case PropStop:
		return "stop"
	case PropPriority:
		return "priority"
	case PropActive:
		return "active"
	default:
		return "unknown"
	}
}

// Subscription is a cancellable handle returned by a one-shot or
// persistent observer registration.
type Subscription interface {
	Cancel()
}

// Pad is an opaque output port handle. Some clips only create their output
// pad after asynchronous internal initialisation (see internal/composition
// deferred-port fix-up).
type Pad interface {
	ID() string
}

// Clip is the atomic scheduled unit: a source or operation node with
// timing, priority, and an output pad that may not exist yet. Clips are
// owned and mutated by the host application; the registry only observes
// them.
type Clip interface {
	// ID uniquely identifies this clip for the lifetime of the process.
	ID() string

	Start() time.Duration
	Stop() time.Duration
	Priority() int
	Active() bool
	Kind() ClipKind

	// Arity is the number of stack slots an operation consumes immediately
	// beneath it. Sources always report 0.
	Arity() int

	// OutputPort returns the clip's output pad and whether it has been
	// created yet.
	OutputPort() (Pad, bool)

	// Subscribe registers fn to be called synchronously, without holding
	// any clip-internal property lock, whenever prop changes.
	Subscribe(prop Property, fn func()) Subscription

	// OnPortsFinalised registers a one-shot callback fired once, when the
	// clip's output pad becomes available. A clip may have at most one
	// outstanding such subscription; registering a new one cancels any
	// prior one the caller installed.
	OnPortsFinalised(fn func()) Subscription

	// Lock/Unlock implement the clip's own state lock (distinct from the
	// registry lock): deactivation locks a clip's state, activation
	// unlocks it, per spec.md §4.3.
	Lock()
	Unlock()

	// SetState requests the framework transition this clip to s. Called
	// outside the registry lock.
	SetState(s State) error

	// Retain/Release implement the composition's additional strong
	// reference over the registry's own reference (spec.md §5, Shared-
	// resource policy).
	Retain()
	Release()
}

// TimeFormat identifies the unit a seek or segment-completion message is
// expressed in. Only FormatTime is honoured; anything else is logged and
// ignored per spec.md §6/§7 (BadFormat).
type TimeFormat int

const (
	FormatTime TimeFormat = iota
	FormatOther
)

// SeekFlags mirror the framework's seek flag bits. Only the bits relevant
// to this core are named; others are preserved verbatim and forwarded.
type SeekFlags uint32

const (
	SeekFlagFlush SeekFlags = 1 << iota
	SeekFlagSegment
)

// SeekEvent is an external or internal seek request.
type SeekEvent struct {
	Rate   float64
	Format TimeFormat
	Flags  SeekFlags
	Start  time.Duration
	Stop   time.Duration
}

// MessageType identifies a bus message kind relevant to the composition.
type MessageType int

const (
	MsgSegmentDone MessageType = iota
	MsgOther
)

// Message is an asynchronous notification delivered on the framework bus.
type Message struct {
	Type   MessageType
	Format TimeFormat
	Value  time.Duration

	// Raw carries the original framework message for messages this core
	// does not interpret, so they can be forwarded unchanged.
	Raw any
}

// BusObserver is installed ahead of any existing observer on a bus; it
// decides whether to act on a message or forward it.
type BusObserver interface {
	HandleMessage(Message)
}

// Bus lets the composition install itself as the first observer of
// downstream messages, keeping a reference to whoever was installed
// before it so messages it does not care about can still be forwarded.
type Bus interface {
	Install(observer BusObserver) (previous BusObserver)
}

// Pipeline is the subset of framework operations the relink engine and
// segment controller invoke. All of these are called outside the
// registry lock (spec.md §5, I6).
type Pipeline interface {
	// Link wires src's output pad into dst as an upstream producer.
	Link(src Pad, dst Clip) error
	// Unlink removes a previously established Link.
	Unlink(src Pad, dst Clip) error
	// RetargetOutput re-points the composition's single external output
	// port at pad. Never destroys the output port itself.
	RetargetOutput(pad Pad) error
	// Seek delivers a seek event to pad.
	Seek(pad Pad, evt SeekEvent) error
	// EmitEndOfStream asserts end-of-stream on the composition's external
	// output port's peer (spec.md §6).
	EmitEndOfStream() error
}
