package gstview

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// BufferView is a read-only, non-owning view over mapped sample memory.
//
// A view exists only for the duration of a Sample.Map callback. The source
// memory stays mapped for exactly that long, so the view exposes a single
// operation, CopyInto, and never hands out the address itself.
type BufferView struct {
	ptr      unsafe.Pointer
	size     int
	released atomic.Bool
}

// WithView runs fn with a view over size bytes at ptr and invalidates the
// view when fn returns. Backends call it from Sample.Map with the mapped
// address and must keep the memory mapped for the whole call.
func WithView(ptr unsafe.Pointer, size int, fn func(*BufferView) error) error {
	if size < 0 {
		return errors.Errorf("negative buffer size %d", size)
	}
	if ptr == nil && size > 0 {
		return errors.New("nil buffer address")
	}
	v := &BufferView{ptr: ptr, size: size}
	defer v.released.Store(true)
	return fn(v)
}

// withBytesView runs fn with a view over b.
func withBytesView(b []byte, fn func(*BufferView) error) error {
	return WithView(unsafe.Pointer(unsafe.SliceData(b)), len(b), fn)
}

// Len returns the size of the mapped region in bytes.
func (v *BufferView) Len() int {
	return v.size
}

// CopyInto copies the whole mapped region to the start of dst and returns
// the number of bytes copied. It fails with ErrSizeMismatch, writing
// nothing, when dst is shorter than the source.
func (v *BufferView) CopyInto(dst []byte) (int, error) {
	if v.released.Load() {
		return 0, ErrViewReleased
	}
	if len(dst) < v.size {
		return 0, errors.Wrapf(ErrSizeMismatch, "need %d bytes, have %d", v.size, len(dst))
	}
	if v.size == 0 {
		return 0, nil
	}
	return copy(dst, unsafe.Slice((*byte)(v.ptr), v.size)), nil
}
