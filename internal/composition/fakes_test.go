package composition

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmylchreest/nlecomp/internal/graph"
)

// fakeClip is a minimal graph.Clip used across the package's tests,
// grounded on the teacher's mockJobRepo-style hand-rolled fakes
// (internal/scheduler/scheduler_test.go) rather than a generated mock.
type fakeClip struct {
	mu sync.Mutex

	id       string
	start    time.Duration
	stop     time.Duration
	priority int
	active   bool
	kind     graph.ClipKind
	arity    int

	pad   graph.Pad
	hasPad bool

	subs        map[graph.Property][]func()
	portsSub    func()
	refs        int
	lockedCount int

	setStateCalls []graph.State
}

func newFakeClip(id string, start, stop time.Duration, priority int) *fakeClip {
	return &fakeClip{
		id:       id,
		start:    start,
		stop:     stop,
		priority: priority,
		active:   true,
		kind:     graph.KindSource,
		subs:     make(map[graph.Property][]func()),
	}
}

func (c *fakeClip) ID() string              { return c.id }
func (c *fakeClip) Start() time.Duration    { c.mu.Lock(); defer c.mu.Unlock(); return c.start }
func (c *fakeClip) Stop() time.Duration     { c.mu.Lock(); defer c.mu.Unlock(); return c.stop }
func (c *fakeClip) Priority() int           { c.mu.Lock(); defer c.mu.Unlock(); return c.priority }
func (c *fakeClip) Active() bool            { c.mu.Lock(); defer c.mu.Unlock(); return c.active }
func (c *fakeClip) Kind() graph.ClipKind    { return c.kind }
func (c *fakeClip) Arity() int              { return c.arity }

func (c *fakeClip) OutputPort() (graph.Pad, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pad, c.hasPad
}

type fakeSub struct{ cancel func() }

func (s *fakeSub) Cancel() { s.cancel() }

func (c *fakeClip) Subscribe(prop graph.Property, fn func()) graph.Subscription {
	c.mu.Lock()
	c.subs[prop] = append(c.subs[prop], fn)
	idx := len(c.subs[prop]) - 1
	c.mu.Unlock()
	return &fakeSub{cancel: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs[prop][idx] = nil
	}}
}

func (c *fakeClip) OnPortsFinalised(fn func()) graph.Subscription {
	c.mu.Lock()
	c.portsSub = fn
	c.mu.Unlock()
	return &fakeSub{cancel: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.portsSub = nil
	}}
}

func (c *fakeClip) Lock()   { c.mu.Lock(); c.lockedCount++; c.mu.Unlock() }
func (c *fakeClip) Unlock() { c.mu.Lock(); c.lockedCount--; c.mu.Unlock() }

func (c *fakeClip) SetState(s graph.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateCalls = append(c.setStateCalls, s)
	return nil
}

func (c *fakeClip) Retain()  { c.mu.Lock(); c.refs++; c.mu.Unlock() }
func (c *fakeClip) Release() { c.mu.Lock(); c.refs--; c.mu.Unlock() }

// setActive updates active and fires subscribers, simulating an
// asynchronous property-change notification.
func (c *fakeClip) setActive(v bool) {
	c.mu.Lock()
	c.active = v
	fns := append([]func(){}, c.subs[graph.PropActive]...)
	c.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func (c *fakeClip) setPriority(v int) {
	c.mu.Lock()
	c.priority = v
	fns := append([]func(){}, c.subs[graph.PropPriority]...)
	c.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

// finalisePort makes the clip's output pad appear, firing any installed
// ports-finalised callback, simulating the deferred-port case.
func (c *fakeClip) finalisePort(pad graph.Pad) {
	c.mu.Lock()
	c.pad = pad
	c.hasPad = true
	fn := c.portsSub
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakePad struct{ id string }

func (p *fakePad) ID() string { return p.id }

// fakePipeline records the operations the relink engine and segment
// controller issue against the framework.
type fakePipeline struct {
	mu sync.Mutex

	links    []string
	unlinks  []string
	retargets []string
	seeks    []graph.SeekEvent
	eosCount int

	failLink func(src graph.Pad, dst graph.Clip) error
}

func (p *fakePipeline) Link(src graph.Pad, dst graph.Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.links = append(p.links, fmt.Sprintf("%s->%s", src.ID(), dst.ID()))
	if p.failLink != nil {
		return p.failLink(src, dst)
	}
	return nil
}

func (p *fakePipeline) Unlink(src graph.Pad, dst graph.Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlinks = append(p.unlinks, fmt.Sprintf("%s->%s", src.ID(), dst.ID()))
	return nil
}

func (p *fakePipeline) RetargetOutput(pad graph.Pad) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pad == nil {
		p.retargets = append(p.retargets, "<nil>")
		return nil
	}
	p.retargets = append(p.retargets, pad.ID())
	return nil
}

func (p *fakePipeline) Seek(pad graph.Pad, evt graph.SeekEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, evt)
	return nil
}

func (p *fakePipeline) EmitEndOfStream() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eosCount++
	return nil
}

func (p *fakePipeline) lastRetarget() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.retargets) == 0 {
		return ""
	}
	return p.retargets[len(p.retargets)-1]
}

func (p *fakePipeline) lastSeek() (graph.SeekEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.seeks) == 0 {
		return graph.SeekEvent{}, false
	}
	return p.seeks[len(p.seeks)-1], true
}

// fakeBus is a trivial graph.Bus that just remembers who was installed
// before the composition.
type fakeBus struct {
	installed graph.BusObserver
}

func (b *fakeBus) Install(observer graph.BusObserver) graph.BusObserver {
	prev := b.installed
	b.installed = observer
	return prev
}
