// Core frame types shared by sinks, surfaces and the render loop.
package gstview

import (
	"fmt"
	"sync"
	"time"
)

// PixelFormat represents video pixel formats.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatI420                // YUV 4:2:0 planar (Y + U + V)
	PixelFormatNV12                // YUV 4:2:0 semi-planar (Y + interleaved UV)
	PixelFormatRGB24               // Packed RGB, 3 bytes per pixel
	PixelFormatRGBA32              // Packed RGBA, 4 bytes per pixel
	PixelFormatBGRA32              // Packed BGRA, 4 bytes per pixel
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatI420:
		return "I420"
	case PixelFormatNV12:
		return "NV12"
	case PixelFormatRGB24:
		return "RGB24"
	case PixelFormatRGBA32:
		return "RGBA32"
	case PixelFormatBGRA32:
		return "BGRA32"
	default:
		return "Unknown"
	}
}

// CapsName returns the format name used in caps descriptions.
func (p PixelFormat) CapsName() string {
	switch p {
	case PixelFormatI420:
		return "I420"
	case PixelFormatNV12:
		return "NV12"
	case PixelFormatRGB24:
		return "RGB"
	case PixelFormatRGBA32:
		return "RGBA"
	case PixelFormatBGRA32:
		return "BGRA"
	default:
		return ""
	}
}

// BytesPerPixel returns the packed pixel size, or 0 for planar formats.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormatRGB24:
		return 3
	case PixelFormatRGBA32, PixelFormatBGRA32:
		return 4
	default:
		return 0
	}
}

// ParsePixelFormat maps a caps format name ("RGBA") to a PixelFormat.
func ParsePixelFormat(name string) PixelFormat {
	switch name {
	case "I420":
		return PixelFormatI420
	case "NV12":
		return PixelFormatNV12
	case "RGB":
		return PixelFormatRGB24
	case "RGBA":
		return PixelFormatRGBA32
	case "BGRA":
		return PixelFormatBGRA32
	default:
		return PixelFormatUnknown
	}
}

// FrameSize returns the byte length of a packed RGBA frame.
func FrameSize(width, height int) int {
	return width * height * 4
}

// Fraction is a rational frame rate.
type Fraction struct {
	Num int
	Den int
}

func (f Fraction) Float64() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// Frame is one pulled video sample plus its parsed caps. The pixel memory
// belongs to the pipeline: it is reachable only through Map and only until
// Release. A Frame must not outlive the tick that pulled it.
type Frame struct {
	Width      int
	Height     int
	Format     PixelFormat
	FormatName string   // Format as named in the caps ("RGBA")
	FrameRate  Fraction // 0/1 when the caps carry no framerate
	PTS        time.Duration
	Duration   time.Duration

	sample      Sample
	releaseOnce sync.Once
}

// NewFrame parses the sample caps and wraps the sample. On error the sample
// is left unreleased.
func NewFrame(s Sample) (*Frame, error) {
	caps, err := ParseCaps(s.Caps())
	if err != nil {
		return nil, err
	}
	return &Frame{
		Width:      caps.Width,
		Height:     caps.Height,
		Format:     ParsePixelFormat(caps.Format),
		FormatName: caps.Format,
		FrameRate:  caps.FrameRate,
		PTS:        s.PTS(),
		Duration:   s.Duration(),
		sample:     s,
	}, nil
}

// Size returns the expected byte length of the frame's pixel data.
func (f *Frame) Size() int {
	if bpp := f.Format.BytesPerPixel(); bpp > 0 {
		return f.Width * f.Height * bpp
	}
	return 0
}

// Map maps the frame memory read-only, runs fn and unmaps before returning.
func (f *Frame) Map(fn func(view *BufferView) error) error {
	if f.sample == nil {
		return ErrViewReleased
	}
	return f.sample.Map(fn)
}

// Release hands the sample back to the pipeline. Safe to call repeatedly.
func (f *Frame) Release() {
	f.releaseOnce.Do(func() {
		if f.sample != nil {
			f.sample.Release()
			f.sample = nil
		}
	})
}
