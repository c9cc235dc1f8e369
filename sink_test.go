package gstview

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func latestConfig() SinkConfig {
	cfg := DefaultSinkConfig()
	cfg.Sync = false
	return cfg
}

func TestLatestSinkDropsOlderSample(t *testing.T) {
	s := NewLatestSink(latestConfig())
	defer s.Close()

	b1, r1 := rgbaSample(2, 2, 1)
	b2, r2 := rgbaSample(2, 2, 2)
	require.NoError(t, s.Push(b1))
	require.NoError(t, s.Push(b2))

	// B1 was replaced before anyone pulled it.
	assert.True(t, isClosed(r1))
	assert.False(t, isClosed(r2))

	f, ok := s.TryPullFrame(0)
	require.True(t, ok)
	dst := make([]byte, FrameSize(2, 2))
	require.NoError(t, f.Map(func(v *BufferView) error {
		_, err := v.CopyInto(dst)
		return err
	}))
	assert.Equal(t, byte(2), dst[0])
	f.Release()
	assert.True(t, isClosed(r2))

	_, ok = s.TryPullFrame(0)
	assert.False(t, ok)

	st := s.Stats()
	assert.Equal(t, SinkStats{Pushed: 2, Dropped: 1, Pulled: 1}, st)
}

func TestLatestSinkNonBlockingPull(t *testing.T) {
	s := NewLatestSink(latestConfig())
	defer s.Close()

	start := time.Now()
	_, ok := s.TryPullFrame(0)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLatestSinkPullTimeout(t *testing.T) {
	s := NewLatestSink(latestConfig())
	defer s.Close()

	t.Run("expires", func(t *testing.T) {
		start := time.Now()
		_, ok := s.TryPullFrame(30 * time.Millisecond)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	})

	t.Run("woken by push", func(t *testing.T) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			smp, _ := rgbaSample(2, 2, 0)
			s.Push(smp)
		}()
		f, ok := s.TryPullFrame(time.Second)
		require.True(t, ok)
		f.Release()
	})
}

func TestLatestSinkBlockingProducer(t *testing.T) {
	cfg := latestConfig()
	cfg.Drop = false
	s := NewLatestSink(cfg)
	defer s.Close()

	b1, r1 := rgbaSample(2, 2, 1)
	require.NoError(t, s.Push(b1))

	pushed := make(chan error, 1)
	b2, _ := rgbaSample(2, 2, 2)
	go func() { pushed <- s.Push(b2) }()

	select {
	case <-pushed:
		t.Fatal("push did not block on a full sink")
	case <-time.After(30 * time.Millisecond):
	}

	f, ok := s.TryPullFrame(0)
	require.True(t, ok)
	f.Release()
	assert.True(t, isClosed(r1))

	select {
	case err := <-pushed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("push still blocked after pull")
	}
	assert.Zero(t, s.Stats().Dropped)
}

func TestLatestSinkCapsMismatch(t *testing.T) {
	s := NewLatestSink(latestConfig())
	defer s.Close()

	smp := NewMemorySample("video/x-raw,format=I420,width=2,height=2", make([]byte, 6), 0, 0, nil)
	assert.ErrorIs(t, s.Push(smp), ErrCapsMismatch)

	smp = NewMemorySample("video/x-raw,format=RGBA", nil, 0, 0, nil)
	assert.ErrorIs(t, s.Push(smp), ErrInvalidCaps)
}

func TestLatestSinkLastSample(t *testing.T) {
	cfg := latestConfig()
	cfg.EnableLastSample = true
	s := NewLatestSink(cfg)

	smp, released := rgbaSample(2, 2, 7)
	require.NoError(t, s.Push(smp))
	f, ok := s.TryPullFrame(0)
	require.True(t, ok)
	f.Release()
	assert.False(t, isClosed(released), "last sample keeps a hold")

	last := s.LastSample()
	require.NotNil(t, last)
	last.Release()
	assert.False(t, isClosed(released))

	require.NoError(t, s.Close())
	assert.True(t, isClosed(released))
}

func TestLatestSinkNoLastSampleByDefault(t *testing.T) {
	s := NewLatestSink(latestConfig())
	defer s.Close()

	smp, _ := rgbaSample(2, 2, 0)
	require.NoError(t, s.Push(smp))
	f, _ := s.TryPullFrame(0)
	f.Release()
	assert.Nil(t, s.LastSample())
}

func TestLatestSinkEOS(t *testing.T) {
	s := NewLatestSink(latestConfig())
	defer s.Close()

	smp, _ := rgbaSample(2, 2, 0)
	require.NoError(t, s.Push(smp))
	s.SetEOS()
	assert.False(t, s.EOS(), "queued sample still pending")

	f, ok := s.TryPullFrame(0)
	require.True(t, ok)
	f.Release()
	assert.True(t, s.EOS())

	start := time.Now()
	_, ok = s.TryPullFrame(time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestLatestSinkClose(t *testing.T) {
	s := NewLatestSink(latestConfig())

	smp, released := rgbaSample(2, 2, 0)
	require.NoError(t, s.Push(smp))
	require.NoError(t, s.Close())
	assert.True(t, isClosed(released), "queued samples are released")

	late, lateReleased := rgbaSample(2, 2, 0)
	assert.ErrorIs(t, s.Push(late), ErrSinkClosed)
	assert.False(t, isClosed(lateReleased), "caller keeps ownership on error")
	assert.NoError(t, s.Close())
}

func TestLatestSinkCloseWakesPuller(t *testing.T) {
	s := NewLatestSink(latestConfig())

	var wg sync.WaitGroup
	wg.Add(1)
	start := time.Now()
	go func() {
		defer wg.Done()
		_, ok := s.TryPullFrame(5 * time.Second)
		assert.False(t, ok)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Close())
	wg.Wait()
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLatestSinkFlush(t *testing.T) {
	s := NewLatestSink(latestConfig())
	defer s.Close()

	smp, released := rgbaSample(2, 2, 0)
	require.NoError(t, s.Push(smp))
	s.Flush()
	assert.True(t, isClosed(released))
	_, ok := s.TryPullFrame(0)
	assert.False(t, ok)
}

func TestLatestSinkSync(t *testing.T) {
	cfg := latestConfig()
	cfg.Sync = true
	s := NewLatestSink(cfg)
	defer s.Close()

	first := NewMemorySample(rgbaCaps(2, 2), make([]byte, 16), 0, 0, nil)
	require.NoError(t, s.Push(first))

	start := time.Now()
	second := NewMemorySample(rgbaCaps(2, 2), make([]byte, 16), 40*time.Millisecond, 0, nil)
	require.NoError(t, s.Push(second))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
