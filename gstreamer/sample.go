//go:build cgo && !nogst

package gstreamer

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/tinyzimmer/go-gst/gst"

	"github.com/thesyncim/gstview"
)

// sample adapts a pulled gst.Sample. Release drops the native reference at
// once instead of leaving it to the binding's finalizer, so the buffer goes
// back to its pool within the tick.
type sample struct {
	smp      *gst.Sample
	caps     string
	pts      time.Duration
	duration time.Duration
	released atomic.Bool
}

func newSample(smp *gst.Sample) *sample {
	s := &sample{smp: smp}
	if caps := smp.GetCaps(); caps != nil {
		s.caps = caps.String()
		runtime.SetFinalizer(caps, nil)
		caps.Unref()
	}
	if buf := smp.GetBuffer(); buf != nil {
		s.pts = clockTime(time.Duration(buf.PresentationTimestamp()))
		s.duration = clockTime(time.Duration(buf.Duration()))
		dropBuffer(buf)
	}
	return s
}

// clockTime maps GST_CLOCK_TIME_NONE to zero.
func clockTime(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func (s *sample) Caps() string            { return s.caps }
func (s *sample) PTS() time.Duration      { return s.pts }
func (s *sample) Duration() time.Duration { return s.duration }

// Map maps the buffer read-only for the duration of fn.
func (s *sample) Map(fn func(view *gstview.BufferView) error) error {
	if s.released.Load() {
		return gstview.ErrViewReleased
	}
	buf := s.smp.GetBuffer()
	if buf == nil {
		return errors.New("sample has no buffer")
	}
	defer dropBuffer(buf)
	info := buf.Map(gst.MapRead)
	if info == nil {
		return errors.New("unable to map buffer")
	}
	defer buf.Unmap()
	return gstview.WithView(info.Data(), int(info.Size()), fn)
}

// Release unrefs the native sample. Only the first call has an effect.
func (s *sample) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(s.smp, nil)
	s.smp.Unref()
}

// dropBuffer releases the reference a gst.Buffer wrapper holds.
func dropBuffer(buf *gst.Buffer) {
	runtime.SetFinalizer(buf, nil)
	buf.Unref()
}
