package gstview

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultMaxFPS is the default render tick rate.
	DefaultMaxFPS = 100
	// MaxRenderFPS bounds the configurable tick rate.
	MaxRenderFPS = 1000
)

// RenderLoopConfig configures a RenderLoop.
type RenderLoopConfig struct {
	MaxFPS  int            // Ticks per second (default 100, at most 1000)
	Surface *Surface       // Destination surface (required)
	Handler MessageHandler // Receives drained bus messages; nil logs them
}

// RenderLoopStats counts render loop activity.
type RenderLoopStats struct {
	Ticks      uint64 // Tick calls
	Messages   uint64 // Bus messages dispatched
	Frames     uint64 // Frames copied into the surface
	Misses     uint64 // Pull attempts that found no frame
	GuardSkips uint64 // Ticks that found a pull already in progress
	CopyErrors uint64 // Ticks abandoned because the copy failed
}

// RenderLoop moves frames from a pipeline's sink to a Surface on a fixed
// cadence.
//
// Every tick drains at most one bus message, then tries, without blocking,
// to pull one frame and copy it into the surface. The pull-and-copy step
// is guarded by a try-lock: a tick that finds it taken does nothing rather
// than wait, so the timer goroutine never blocks and two copies never
// overlap.
type RenderLoop struct {
	period  time.Duration
	surface *Surface
	handler MessageHandler

	pipelineMu sync.RWMutex
	pipeline   Pipeline

	// Held for the whole pull, copy and buffer release sequence.
	guard atomic.Bool

	ticks      atomic.Uint64
	messages   atomic.Uint64
	frames     atomic.Uint64
	misses     atomic.Uint64
	guardSkips atomic.Uint64
	copyErrors atomic.Uint64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewRenderLoop creates a stopped render loop.
func NewRenderLoop(cfg RenderLoopConfig) (*RenderLoop, error) {
	if cfg.Surface == nil {
		return nil, errors.New("render loop requires a surface")
	}
	if cfg.MaxFPS <= 0 {
		cfg.MaxFPS = DefaultMaxFPS
	}
	if cfg.MaxFPS > MaxRenderFPS {
		cfg.MaxFPS = MaxRenderFPS
	}
	return &RenderLoop{
		period:  time.Second / time.Duration(cfg.MaxFPS),
		surface: cfg.Surface,
		handler: cfg.Handler,
	}, nil
}

// Period returns the tick interval.
func (l *RenderLoop) Period() time.Duration {
	return l.period
}

// Surface returns the destination surface.
func (l *RenderLoop) Surface() *Surface {
	return l.surface
}

// Attach sets the pipeline to pull from; nil detaches it.
func (l *RenderLoop) Attach(p Pipeline) {
	l.pipelineMu.Lock()
	l.pipeline = p
	l.pipelineMu.Unlock()
}

// Pipeline returns the attached pipeline, or nil.
func (l *RenderLoop) Pipeline() Pipeline {
	l.pipelineMu.RLock()
	defer l.pipelineMu.RUnlock()
	return l.pipeline
}

// Tick runs one render cycle. It never blocks on the pipeline and may be
// called from any goroutine.
func (l *RenderLoop) Tick() {
	l.ticks.Add(1)

	if p := l.Pipeline(); p != nil {
		l.drainOne(p)
	}

	if !l.guard.CompareAndSwap(false, true) {
		l.guardSkips.Add(1)
		return
	}
	presented := func() bool {
		defer l.guard.Store(false)
		return l.pullAndCopy()
	}()

	if presented {
		l.surface.Invalidate()
	}
}

// drainOne dispatches at most one pending bus message so that a busy bus
// cannot stretch a tick.
func (l *RenderLoop) drainOne(p Pipeline) {
	bus := p.Bus()
	if bus == nil {
		return
	}
	msg, ok := bus.Poll()
	if !ok {
		return
	}
	l.messages.Add(1)
	if l.handler != nil {
		l.handler.HandleMessage(msg)
	} else {
		log.Debug("[Recv] %s from %s", msg.Type(), msg.Src())
	}
}

// pullAndCopy runs under the guard. The frame is released before the
// guard is.
func (l *RenderLoop) pullAndCopy() bool {
	p := l.Pipeline()
	if p == nil || !p.State().Streaming() {
		return false
	}
	sink := p.Sink()
	if sink == nil {
		return false
	}

	frame, ok := sink.TryPullFrame(0)
	if !ok {
		l.misses.Add(1)
		return false
	}
	defer frame.Release()

	if frame.Format != PixelFormatRGBA32 {
		log.Debug("Skipping %s frame", frame.FormatName)
		return false
	}

	err := frame.Map(func(view *BufferView) error {
		return l.surface.Update(view, frame.Width, frame.Height)
	})
	if err != nil {
		l.copyErrors.Add(1)
		log.Warn("Abandoning tick: %v", err)
		return false
	}
	l.frames.Add(1)
	return true
}

// acquireGuard waits for an in-flight pull to finish and takes the guard.
// Only teardown paths wait; ticks never do.
func (l *RenderLoop) acquireGuard() {
	for !l.guard.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// ClearSurface empties the surface once no pull is in flight. Used when the
// pipeline returns to Null or a session ends.
func (l *RenderLoop) ClearSurface() {
	l.acquireGuard()
	defer l.guard.Store(false)
	l.surface.Clear()
}

// Detach releases the surface buffer once no pull is in flight and stops
// further copies into it until the surface is attached again.
func (l *RenderLoop) Detach() {
	l.acquireGuard()
	defer l.guard.Store(false)
	l.surface.Detach()
}

// Start runs Tick on a ticker until Stop or ctx is done.
func (l *RenderLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("render loop already running")
	}

	ctx, l.cancel = context.WithCancel(ctx)
	l.doneCh = make(chan struct{})
	l.running = true

	go l.run(ctx, l.doneCh)
	return nil
}

func (l *RenderLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Stop stops the ticker and waits for the running tick to return.
func (l *RenderLoop) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	l.running = false
	l.cancel()
	<-l.doneCh
	return nil
}

// Running reports whether the ticker is active.
func (l *RenderLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Stats returns a snapshot of the loop counters.
func (l *RenderLoop) Stats() RenderLoopStats {
	return RenderLoopStats{
		Ticks:      l.ticks.Load(),
		Messages:   l.messages.Load(),
		Frames:     l.frames.Load(),
		Misses:     l.misses.Load(),
		GuardSkips: l.guardSkips.Load(),
		CopyErrors: l.copyErrors.Load(),
	}
}
