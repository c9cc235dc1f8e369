package gstview

import (
	"sync/atomic"
	"time"
)

// Sample is one pipeline-owned media buffer plus its caps.
//
// Map maps the buffer read-only for the duration of fn. Release hands the
// sample back to its producer; it must be called exactly once by whoever
// pulled the sample.
type Sample interface {
	Caps() string
	PTS() time.Duration
	Duration() time.Duration
	Map(fn func(view *BufferView) error) error
	Release()
}

// MemorySample is a Sample backed by Go memory. The producer may reuse the
// data once the hold count drops to zero and the release callback runs.
type MemorySample struct {
	caps     string
	data     []byte
	pts      time.Duration
	duration time.Duration

	count   atomic.Int32
	release func()
}

// NewMemorySample returns a sample with a hold count of one.
func NewMemorySample(caps string, data []byte, pts, duration time.Duration, release func()) *MemorySample {
	s := &MemorySample{
		caps:     caps,
		data:     data,
		pts:      pts,
		duration: duration,
		release:  release,
	}
	s.count.Store(1)
	return s
}

func (s *MemorySample) Caps() string            { return s.caps }
func (s *MemorySample) PTS() time.Duration      { return s.pts }
func (s *MemorySample) Duration() time.Duration { return s.duration }

func (s *MemorySample) Map(fn func(view *BufferView) error) error {
	if s.count.Load() <= 0 {
		return ErrViewReleased
	}
	return withBytesView(s.data, fn)
}

// Hold increments the hold count.
func (s *MemorySample) Hold() {
	s.count.Add(1)
}

// Release decrements the hold count and runs the release callback when it
// reaches zero.
func (s *MemorySample) Release() {
	if s == nil {
		return
	}
	if s.count.Add(-1) == 0 && s.release != nil {
		s.release()
	}
}

// Released reports whether the hold count reached zero.
func (s *MemorySample) Released() bool {
	return s.count.Load() <= 0
}
