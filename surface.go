package gstview

import (
	"image"
	"sync"

	"github.com/pkg/errors"
)

// Surface is the presentation side of the render loop: one RGBA pixel
// buffer sized to the last frame, written by the render loop and read by
// the display between ticks.
//
// The buffer is allocated on the first frame, reused while the frame
// dimensions stay the same and reallocated when they change. Clear and
// Detach release it.
type Surface struct {
	mu       sync.RWMutex
	pix      []byte
	width    int
	height   int
	allocs   uint64
	frames   uint64
	dirty    bool
	detached bool

	invalidate func()
}

// NewSurface returns an attached, empty surface.
func NewSurface() *Surface {
	return &Surface{}
}

// OnInvalidate sets the redraw request hook. It is called without the
// surface lock held.
func (s *Surface) OnInvalidate(fn func()) {
	s.mu.Lock()
	s.invalidate = fn
	s.mu.Unlock()
}

// Update copies a mapped frame into the surface buffer, reallocating it
// first if width or height changed. The view must hold exactly one packed
// RGBA frame of that size; otherwise ErrSizeMismatch is returned and the
// surface keeps its previous contents. A detached surface ignores updates.
func (s *Surface) Update(view *BufferView, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("invalid frame dimensions %dx%d", width, height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return nil
	}
	// A buffer of any other size would leave part of the surface stale.
	if n, want := view.Len(), FrameSize(width, height); n != want {
		return errors.Wrapf(ErrSizeMismatch, "%dx%d frame needs %d bytes, buffer has %d", width, height, want, n)
	}

	pix := s.pix
	resized := pix == nil || s.width != width || s.height != height
	if resized {
		pix = make([]byte, FrameSize(width, height))
	}
	if _, err := view.CopyInto(pix); err != nil {
		return errors.Wrapf(err, "copy %dx%d frame", width, height)
	}
	if resized {
		s.pix = pix
		s.width, s.height = width, height
		s.allocs++
	}
	s.frames++
	s.dirty = true
	return nil
}

// Invalidate requests a redraw if the surface changed since the last
// request.
func (s *Surface) Invalidate() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	fn := s.invalidate
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Clear drops the pixel buffer so the display shows an empty surface and
// requests a redraw.
func (s *Surface) Clear() {
	s.mu.Lock()
	s.release()
	s.dirty = true
	s.mu.Unlock()
	s.Invalidate()
}

// Detach releases the pixel buffer and ignores further updates until
// Attach. It waits for an Update in progress.
func (s *Surface) Detach() {
	s.mu.Lock()
	s.release()
	s.detached = true
	s.dirty = false
	s.mu.Unlock()
}

// Attach re-enables updates after Detach.
func (s *Surface) Attach() {
	s.mu.Lock()
	s.detached = false
	s.mu.Unlock()
}

func (s *Surface) release() {
	s.pix = nil
	s.width, s.height = 0, 0
}

// Draw calls fn with the current pixels under a read lock. fn must not
// retain pix. pix is nil for an empty surface.
func (s *Surface) Draw(fn func(pix []byte, width, height int)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.pix, s.width, s.height)
}

// Snapshot copies the current pixels into an image, or returns nil for an
// empty surface.
func (s *Surface) Snapshot() *image.RGBA {
	var img *image.RGBA
	s.Draw(func(pix []byte, width, height int) {
		if pix == nil {
			return
		}
		img = image.NewRGBA(image.Rect(0, 0, width, height))
		copy(img.Pix, pix)
	})
	return img
}

// Size returns the current buffer dimensions; 0x0 when empty.
func (s *Surface) Size() (width, height int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

// Allocations returns how many times the pixel buffer was allocated.
func (s *Surface) Allocations() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allocs
}

// Frames returns how many frames were copied into the surface.
func (s *Surface) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// FitRect returns where a srcW x srcH image lands when stretched uniformly
// into a dstW x dstH viewport: aspect ratio preserved, centered, letterboxed
// on the short axis.
func FitRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(dstW) / float64(dstH)

	var w, h int
	if srcAspect > dstAspect {
		// Source is wider, fit to width
		w = dstW
		h = int(float64(dstW) / srcAspect)
	} else {
		// Source is taller, fit to height
		h = dstH
		w = int(float64(dstH) * srcAspect)
	}

	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
