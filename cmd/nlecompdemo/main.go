// Command nlecompdemo is a minimal illustrative wiring of the composition
// engine against stub framework collaborators. It is not a protocol
// surface for the engine itself — spec.md defines none — it exists the
// way the teacher's cmd/ entries exist: to show the library wired up and
// exercised end to end.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmylchreest/nlecomp/internal/composition"
	"github.com/jmylchreest/nlecomp/internal/graph"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := viper.New()
	v.SetEnvPrefix("NLECOMP")
	v.AutomaticEnv()
	cfg := composition.LoadEngineConfig(v)

	logger := composition.NewLogger("info")
	logger.Info("starting demo composition", "priority_floor", cfg.PriorityFloor)

	pipeline := newStubPipeline(logger)
	bus := &stubBus{}
	c := composition.NewComposition(pipeline, bus, cfg, logger)
	defer c.Close()

	a := newStubClip("A", 0, 10*time.Second, 0)
	b := newStubClip("B", 5*time.Second, 15*time.Second, 1)

	if err := c.Add(a); err != nil {
		logger.Error("add failed", "clip_id", a.ID(), "error", err)
		os.Exit(1)
	}
	if err := c.Add(b); err != nil {
		logger.Error("add failed", "clip_id", b.ID(), "error", err)
		os.Exit(1)
	}

	if err := c.SetState(graph.StateReady); err != nil {
		logger.Error("set state failed", "error", err)
		os.Exit(1)
	}
	if err := c.SetState(graph.StatePaused); err != nil {
		logger.Error("set state failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("stack: %v\n", c.CurrentStack())
	start, end := c.Segment()
	fmt.Printf("segment: [%s, %s)\n", start, end)

	<-ctx.Done()
	logger.Info("shutting down")
}

// stubPipeline logs every framework operation instead of driving real
// media elements — that wiring is the host application's responsibility
// (spec.md §1).
type stubPipeline struct {
	logger *slog.Logger
}

func newStubPipeline(logger *slog.Logger) *stubPipeline {
	return &stubPipeline{logger: logger}
}

func (p *stubPipeline) Link(src graph.Pad, dst graph.Clip) error {
	p.logger.Debug("link", "from", src.ID(), "to", dst.ID())
	return nil
}

func (p *stubPipeline) Unlink(src graph.Pad, dst graph.Clip) error {
	p.logger.Debug("unlink", "from", src.ID(), "to", dst.ID())
	return nil
}

func (p *stubPipeline) RetargetOutput(pad graph.Pad) error {
	id := "<nil>"
	if pad != nil {
		id = pad.ID()
	}
	p.logger.Debug("retarget output", "pad", id)
	return nil
}

func (p *stubPipeline) Seek(pad graph.Pad, evt graph.SeekEvent) error {
	p.logger.Debug("seek", "pad", pad.ID(), "start", evt.Start, "stop", evt.Stop)
	return nil
}

func (p *stubPipeline) EmitEndOfStream() error {
	p.logger.Debug("end of stream")
	return nil
}

// stubBus never delivers asynchronous messages on its own; a real host
// application drives HandleMessage from its own bus-watch loop.
type stubBus struct {
	observer graph.BusObserver
}

func (b *stubBus) Install(observer graph.BusObserver) graph.BusObserver {
	prev := b.observer
	b.observer = observer
	return prev
}

// stubPad is a trivial named output port.
type stubPad struct{ id string }

func (p *stubPad) ID() string { return p.id }

// stubClip is a minimal graph.Clip: fixed timing and priority, always
// active, its output pad present from construction (no deferred-port
// case in this demo).
type stubClip struct {
	mu sync.Mutex

	id       string
	start    time.Duration
	stop     time.Duration
	priority int
	refs     int
}

func newStubClip(id string, start, stop time.Duration, priority int) *stubClip {
	return &stubClip{id: id, start: start, stop: stop, priority: priority}
}

func (c *stubClip) ID() string                { return c.id }
func (c *stubClip) Start() time.Duration      { return c.start }
func (c *stubClip) Stop() time.Duration       { return c.stop }
func (c *stubClip) Priority() int             { return c.priority }
func (c *stubClip) Active() bool              { return true }
func (c *stubClip) Kind() graph.ClipKind      { return graph.KindSource }
func (c *stubClip) Arity() int                { return 0 }
func (c *stubClip) OutputPort() (graph.Pad, bool) {
	return &stubPad{id: c.id + "-pad"}, true
}

func (c *stubClip) Subscribe(graph.Property, func()) graph.Subscription { return noopSubscription{} }
func (c *stubClip) OnPortsFinalised(func()) graph.Subscription          { return noopSubscription{} }
func (c *stubClip) Lock()                                               {}
func (c *stubClip) Unlock()                                             {}
func (c *stubClip) SetState(graph.State) error                          { return nil }

func (c *stubClip) Retain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs++
}

func (c *stubClip) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs--
}

type noopSubscription struct{}

func (noopSubscription) Cancel() {}
