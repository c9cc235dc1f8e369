package gstview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelFormat_String(t *testing.T) {
	tests := []struct {
		format PixelFormat
		want   string
		caps   string
		bpp    int
	}{
		{PixelFormatI420, "I420", "I420", 0},
		{PixelFormatNV12, "NV12", "NV12", 0},
		{PixelFormatRGB24, "RGB24", "RGB", 3},
		{PixelFormatRGBA32, "RGBA32", "RGBA", 4},
		{PixelFormatBGRA32, "BGRA32", "BGRA", 4},
		{PixelFormat(99), "Unknown", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format.String())
			assert.Equal(t, tt.caps, tt.format.CapsName())
			assert.Equal(t, tt.bpp, tt.format.BytesPerPixel())
			if tt.caps != "" {
				assert.Equal(t, tt.format, ParsePixelFormat(tt.caps))
			}
		})
	}
	assert.Equal(t, PixelFormatUnknown, ParsePixelFormat("YUY2"))
}

func TestFrameSize(t *testing.T) {
	assert.Equal(t, 640*480*4, FrameSize(640, 480))
	assert.Equal(t, 1280*720*4, FrameSize(1280, 720))
	assert.Zero(t, FrameSize(0, 480))
}

func TestFraction(t *testing.T) {
	assert.Equal(t, "30000/1001", Fraction{30000, 1001}.String())
	assert.InDelta(t, 29.97, Fraction{30000, 1001}.Float64(), 0.01)
	assert.Zero(t, Fraction{30, 0}.Float64())
}

func TestNewFrame(t *testing.T) {
	released := 0
	smp := NewMemorySample(rgbaCaps(4, 2), make([]byte, FrameSize(4, 2)), 40*time.Millisecond, 33*time.Millisecond, func() {
		released++
	})

	f, err := NewFrame(smp)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.Equal(t, PixelFormatRGBA32, f.Format)
	assert.Equal(t, "RGBA", f.FormatName)
	assert.Equal(t, Fraction{30, 1}, f.FrameRate)
	assert.Equal(t, 40*time.Millisecond, f.PTS)
	assert.Equal(t, 33*time.Millisecond, f.Duration)
	assert.Equal(t, 32, f.Size())

	require.NoError(t, f.Map(func(v *BufferView) error {
		assert.Equal(t, 32, v.Len())
		return nil
	}))

	f.Release()
	f.Release()
	assert.Equal(t, 1, released)
	assert.ErrorIs(t, f.Map(func(*BufferView) error { return nil }), ErrViewReleased)
}

func TestNewFrameBadCaps(t *testing.T) {
	smp := NewMemorySample("video/x-raw,format=RGBA", nil, 0, 0, nil)
	_, err := NewFrame(smp)
	assert.ErrorIs(t, err, ErrInvalidCaps)
	assert.False(t, smp.Released())
}

func TestMemorySampleHold(t *testing.T) {
	smp, released := rgbaSample(2, 2, 0)
	smp.Hold()

	smp.Release()
	assert.False(t, isClosed(released))
	assert.NoError(t, smp.Map(func(*BufferView) error { return nil }))

	smp.Release()
	assert.True(t, isClosed(released))
	assert.True(t, smp.Released())
	assert.ErrorIs(t, smp.Map(func(*BufferView) error { return nil }), ErrViewReleased)
}
