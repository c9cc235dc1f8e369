package gstview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaps(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want Caps
	}{
		{
			name: "typed",
			desc: "video/x-raw, format=(string)RGBA, width=(int)640, height=(int)480, framerate=(fraction)30/1",
			want: Caps{MediaType: "video/x-raw", Format: "RGBA", Width: 640, Height: 480, FrameRate: Fraction{30, 1}},
		},
		{
			name: "untyped",
			desc: "video/x-raw,format=BGRA,width=1280,height=720",
			want: Caps{MediaType: "video/x-raw", Format: "BGRA", Width: 1280, Height: 720, FrameRate: Fraction{0, 1}},
		},
		{
			name: "features and quoted values",
			desc: `video/x-raw(memory:GLMemory), format=(string)"RGBA", width=(int)2, height=(int)2, colorimetry=(string)"bt709, full"`,
			want: Caps{MediaType: "video/x-raw", Features: "memory:GLMemory", Format: "RGBA", Width: 2, Height: 2, FrameRate: Fraction{0, 1}},
		},
		{
			name: "first structure only",
			desc: "video/x-raw, format=RGBA, width=4, height=4; video/x-raw, format=I420, width=8, height=8",
			want: Caps{MediaType: "video/x-raw", Format: "RGBA", Width: 4, Height: 4, FrameRate: Fraction{0, 1}},
		},
		{
			name: "non-video without dimensions",
			desc: "audio/x-raw, format=S16LE, rate=48000",
			want: Caps{MediaType: "audio/x-raw", Format: "S16LE", FrameRate: Fraction{0, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCaps(tt.desc)
			require.NoError(t, err)
			got.Fields = nil
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCapsFields(t *testing.T) {
	c, err := ParseCaps(`video/x-raw, format=RGBA, width=2, height=2, colorimetry=(string)"bt709, full", pixel-aspect-ratio=(fraction)1/1`)
	require.NoError(t, err)
	assert.Equal(t, "bt709, full", c.Fields["colorimetry"])
	assert.Equal(t, "1/1", c.Fields["pixel-aspect-ratio"])
}

func TestParseCapsErrors(t *testing.T) {
	for _, desc := range []string{
		"",
		"video/x-raw, format=RGBA",
		"video/x-raw, format=RGBA, width=abc, height=2",
		"video/x-raw, format=RGBA, width=2, height=2, framerate=30/0",
		"video/x-raw, width",
	} {
		_, err := ParseCaps(desc)
		assert.ErrorIs(t, err, ErrInvalidCaps, desc)
	}
}

func TestVideoCapsString(t *testing.T) {
	assert.Equal(t, "video/x-raw,format=RGBA", VideoCapsString(PixelFormatRGBA32))
	assert.Equal(t, "video/x-raw,format=BGRA", VideoCapsString(PixelFormatBGRA32))
}
