//go:build cgo && !nogst

package gstreamer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/gstview"
)

const testLaunch = "videotestsrc num-buffers=30 ! video/x-raw,width=320,height=240 ! videoconvert ! appsink name=videoSink"

func openTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewFromLaunch(testLaunch, gstview.PipelineConfig{Sink: gstview.DefaultSinkConfig()})
	if err != nil {
		t.Skipf("GStreamer not usable: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestLaunchPipelineDeliversRGBA(t *testing.T) {
	p := openTestPipeline(t)

	ret, err := p.SetState(gstview.StatePlaying)
	require.NoError(t, err)
	assert.Equal(t, gstview.StateChangeAsync, ret)

	f, ok := p.Sink().TryPullFrame(2 * time.Second)
	require.True(t, ok, "no frame within 2s")
	defer f.Release()

	assert.Equal(t, gstview.PixelFormatRGBA32, f.Format)
	assert.Equal(t, 320, f.Width)
	assert.Equal(t, 240, f.Height)

	dst := make([]byte, gstview.FrameSize(320, 240))
	require.NoError(t, f.Map(func(view *gstview.BufferView) error {
		_, err := view.CopyInto(dst)
		return err
	}))
}

func TestLaunchPipelineBusReachesEOS(t *testing.T) {
	p := openTestPipeline(t)
	_, err := p.SetState(gstview.StatePlaying)
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	var sawPlaying bool
	for time.Now().Before(deadline) {
		if f, ok := p.Sink().TryPullFrame(10 * time.Millisecond); ok {
			f.Release()
		}
		msg, ok := p.Bus().Poll()
		if !ok {
			continue
		}
		switch m := msg.(type) {
		case *gstview.StateChangedMessage:
			if m.New == gstview.StatePlaying && m.Src() == p.pipeline.GetName() {
				sawPlaying = true
			}
		case *gstview.ErrorMessage:
			t.Fatalf("pipeline error: %v", m.Err())
		case *gstview.EOSMessage:
			assert.True(t, sawPlaying)
			assert.Equal(t, gstview.StatePlaying, p.State())
			return
		}
	}
	t.Fatal("no EOS within 5s")
}

func TestLaunchWithoutVideoSink(t *testing.T) {
	ensureInit()
	_, err := NewFromLaunch("videotestsrc ! fakesink", gstview.PipelineConfig{})
	assert.Error(t, err)
}

func TestLiveLaunchReportsNoPreroll(t *testing.T) {
	p, err := NewFromLaunch("videotestsrc is-live=true ! videoconvert ! appsink name=videoSink",
		gstview.PipelineConfig{Sink: gstview.DefaultSinkConfig()})
	if err != nil {
		t.Skipf("GStreamer not usable: %v", err)
	}
	defer p.Close()

	ret, err := p.SetState(gstview.StatePlaying)
	require.NoError(t, err)
	assert.Equal(t, gstview.StateChangeNoPreroll, ret)
}

func TestStateMapping(t *testing.T) {
	for _, s := range []gstview.State{gstview.StateNull, gstview.StateReady, gstview.StatePaused, gstview.StatePlaying} {
		assert.Equal(t, s, fromGstState(toGstState(s)))
	}
}

func TestSampleReleaseEndsMapping(t *testing.T) {
	p := openTestPipeline(t)
	_, err := p.SetState(gstview.StatePlaying)
	require.NoError(t, err)

	smp := p.AppSink().TryPullSample(2 * time.Second)
	require.NotNil(t, smp, "no sample within 2s")

	s := newSample(smp)
	assert.Contains(t, s.Caps(), "RGBA")
	require.NoError(t, s.Map(func(view *gstview.BufferView) error {
		assert.Equal(t, gstview.FrameSize(320, 240), view.Len())
		return nil
	}))

	s.Release()
	assert.True(t, s.released.Load())
	assert.ErrorIs(t, s.Map(func(*gstview.BufferView) error { return nil }), gstview.ErrViewReleased)
	assert.NotPanics(t, s.Release, "second release is a no-op")
}
