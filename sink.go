package gstview

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// FrameSink hands finished video frames to the render loop.
//
// TryPullFrame returns the next available frame, waiting at most timeout.
// A zero timeout never blocks: it returns false at once when nothing is
// ready. The caller owns the returned frame and must Release it.
type FrameSink interface {
	TryPullFrame(timeout time.Duration) (*Frame, bool)
}

// SinkConfig mirrors the appsink properties the render loop relies on.
type SinkConfig struct {
	Format           PixelFormat `yaml:"format"`             // Accepted pixel format (default RGBA)
	Drop             bool        `yaml:"drop"`               // Replace undelivered samples instead of blocking the producer
	Sync             bool        `yaml:"sync"`               // Pace delivery by sample timestamps
	QoS              bool        `yaml:"qos"`                // Let the sink report lateness upstream (GStreamer backend)
	EnableLastSample bool        `yaml:"enable_last_sample"` // Keep a reference to the last delivered sample
	MaxBuffers       int         `yaml:"max_buffers"`        // Queue depth (default 1)
}

// DefaultSinkConfig returns the latest-wins RGBA configuration.
func DefaultSinkConfig() SinkConfig {
	return SinkConfig{
		Format:           PixelFormatRGBA32,
		Drop:             true,
		Sync:             true,
		QoS:              true,
		EnableLastSample: false,
		MaxBuffers:       1,
	}
}

// SinkStats counts sink traffic.
type SinkStats struct {
	Pushed  uint64
	Dropped uint64
	Pulled  uint64
}

// LatestSink is an in-process FrameSink fed by a producer goroutine.
//
// With the default configuration it holds at most one undelivered sample:
// a newer sample replaces and releases the pending one, so the producer is
// never stalled and the consumer always sees the most recent frame.
type LatestSink struct {
	cfg SinkConfig

	mu     sync.Mutex
	space  *sync.Cond // broadcast when the queue shrinks or the sink closes
	queue  []Sample
	last   Sample
	caps   string // last accepted caps description
	base   time.Time
	eos    bool
	closed bool
	stats  SinkStats
	notify chan struct{}
	done   chan struct{}
}

// NewLatestSink creates a sink. Zero MaxBuffers means 1.
func NewLatestSink(cfg SinkConfig) *LatestSink {
	if cfg.MaxBuffers <= 0 {
		cfg.MaxBuffers = 1
	}
	if cfg.Format == PixelFormatUnknown {
		cfg.Format = PixelFormatRGBA32
	}
	s := &LatestSink{
		cfg:    cfg,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.space = sync.NewCond(&s.mu)
	return s
}

// Config returns the sink configuration.
func (s *LatestSink) Config() SinkConfig {
	return s.cfg
}

// Push queues a sample. Ownership passes to the sink on success; on error
// the caller still owns the sample.
func (s *LatestSink) Push(smp Sample) error {
	if err := s.checkCaps(smp.Caps()); err != nil {
		return err
	}
	if s.cfg.Sync {
		if err := s.waitUntilDue(smp.PTS()); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.cfg.Drop && len(s.queue) >= s.cfg.MaxBuffers && !s.closed {
		s.space.Wait()
	}
	if s.closed {
		return ErrSinkClosed
	}
	if len(s.queue) >= s.cfg.MaxBuffers {
		old := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		old.Release()
		s.stats.Dropped++
	}
	s.queue = append(s.queue, smp)
	s.eos = false
	s.stats.Pushed++

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

func (s *LatestSink) checkCaps(desc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if desc == s.caps && desc != "" {
		return nil
	}
	caps, err := ParseCaps(desc)
	if err != nil {
		return err
	}
	if want := s.cfg.Format.CapsName(); caps.Format != want {
		return errors.Wrapf(ErrCapsMismatch, "got %q, want format %s", desc, want)
	}
	s.caps = desc
	return nil
}

// waitUntilDue blocks the producer until pts is due on the sink clock. The
// first sample after creation or Flush defines the clock origin.
func (s *LatestSink) waitUntilDue(pts time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	if s.base.IsZero() {
		s.base = time.Now().Add(-pts)
	}
	due := s.base.Add(pts)
	done := s.done
	s.mu.Unlock()

	wait := time.Until(due)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-done:
		return ErrSinkClosed
	}
}

// TryPullSample returns the oldest queued sample, waiting at most timeout.
func (s *LatestSink) TryPullSample(timeout time.Duration) Sample {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			smp := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.stats.Pulled++
			s.keepLast(smp)
			s.space.Broadcast()
			s.mu.Unlock()
			return smp
		}
		if s.closed || s.eos || timeout <= 0 {
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.notify:
		case <-timer.C:
		case <-s.done:
		}
		timer.Stop()
	}
}

// TryPullFrame implements FrameSink.
func (s *LatestSink) TryPullFrame(timeout time.Duration) (*Frame, bool) {
	smp := s.TryPullSample(timeout)
	if smp == nil {
		return nil, false
	}
	f, err := NewFrame(smp)
	if err != nil {
		log.Warn("Discarding sample with unusable caps: %v", err)
		smp.Release()
		return nil, false
	}
	return f, true
}

type holder interface {
	Hold()
}

// keepLast retains smp as the last delivered sample. Must hold s.mu.
func (s *LatestSink) keepLast(smp Sample) {
	if !s.cfg.EnableLastSample {
		return
	}
	h, ok := smp.(holder)
	if !ok {
		return
	}
	h.Hold()
	if s.last != nil {
		s.last.Release()
	}
	s.last = smp
}

// LastSample returns the last delivered sample with an extra hold, or nil.
// Only available with EnableLastSample. The caller must Release it.
func (s *LatestSink) LastSample() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	s.last.(holder).Hold()
	return s.last
}

// SetEOS marks the end of the stream. Queued samples can still be pulled;
// afterwards pulls return immediately.
func (s *LatestSink) SetEOS() {
	s.mu.Lock()
	s.eos = true
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// EOS reports whether the stream ended and the queue is drained.
func (s *LatestSink) EOS() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eos && len(s.queue) == 0
}

// Flush releases queued samples and resets the clock origin and EOS.
func (s *LatestSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseQueued()
	s.base = time.Time{}
	s.eos = false
	s.space.Broadcast()
}

// Stats returns a snapshot of the sink counters.
func (s *LatestSink) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close releases everything the sink holds and wakes blocked producers and
// consumers. Subsequent pushes fail with ErrSinkClosed.
func (s *LatestSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.releaseQueued()
	if s.last != nil {
		s.last.Release()
		s.last = nil
	}
	close(s.done)
	s.space.Broadcast()
	return nil
}

func (s *LatestSink) releaseQueued() {
	for i, smp := range s.queue {
		smp.Release()
		s.queue[i] = nil
	}
	s.queue = s.queue[:0]
}
