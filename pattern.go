package gstview

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// PatternScheme is the URI scheme served by the pattern backend.
const PatternScheme = "pattern"

// PatternType defines the type of test pattern to generate.
type PatternType int

const (
	PatternColorBars    PatternType = iota // SMPTE color bars
	PatternGradient                        // Horizontal gradient
	PatternCheckerboard                    // Checkerboard pattern
	PatternSolidColor                      // Solid color
	PatternNoise                           // Random noise
	PatternMovingBox                       // Moving box (animated)
)

func (p PatternType) String() string {
	switch p {
	case PatternColorBars:
		return "colorbars"
	case PatternGradient:
		return "gradient"
	case PatternCheckerboard:
		return "checkerboard"
	case PatternSolidColor:
		return "solid"
	case PatternNoise:
		return "noise"
	case PatternMovingBox:
		return "movingbox"
	default:
		return "unknown"
	}
}

// ParsePatternType parses a pattern name as used in pattern:// URIs.
func ParsePatternType(name string) (PatternType, error) {
	switch strings.ToLower(name) {
	case "", "colorbars", "bars", "smpte":
		return PatternColorBars, nil
	case "gradient":
		return PatternGradient, nil
	case "checkerboard", "checkers":
		return PatternCheckerboard, nil
	case "solid", "solidcolor":
		return PatternSolidColor, nil
	case "noise", "snow":
		return PatternNoise, nil
	case "movingbox", "ball":
		return PatternMovingBox, nil
	}
	return 0, errors.Errorf("unknown pattern %q", name)
}

// PatternConfig describes a synthetic source.
type PatternConfig struct {
	Pattern  PatternType
	Width    int  // Frame width (default: 640)
	Height   int  // Frame height (default: 480)
	FPS      int  // Frames per second (default: 30)
	Frames   int  // Frames before end of stream; 0 streams forever
	Live     bool // Behave like a capture device: no preroll, never paused
	Animated bool // Re-render static patterns every frame

	// For PatternSolidColor
	SolidR, SolidG, SolidB uint8

	// For PatternCheckerboard (default: 32)
	CheckerSize int
}

// DefaultPatternConfig returns a 640x480 30 fps color bars source.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		Pattern:     PatternColorBars,
		Width:       640,
		Height:      480,
		FPS:         30,
		CheckerSize: 32,
		SolidR:      255,
	}
}

// ParsePatternURI parses a URI of the form
//
//	pattern://<type>?width=&height=&fps=&frames=&live=&color=rrggbb&size=
//
// Omitted parameters keep their DefaultPatternConfig values.
func ParsePatternURI(uri string) (PatternConfig, error) {
	cfg := DefaultPatternConfig()

	u, err := url.Parse(uri)
	if err != nil {
		return cfg, errors.Wrapf(err, "parse %q", uri)
	}
	if u.Scheme != PatternScheme {
		return cfg, errors.Wrapf(ErrNotSupported, "scheme %q", u.Scheme)
	}
	name := u.Host
	if name == "" {
		name = u.Opaque
	}
	if cfg.Pattern, err = ParsePatternType(name); err != nil {
		return cfg, err
	}

	q := u.Query()
	ints := []struct {
		key string
		dst *int
		min int
	}{
		{"width", &cfg.Width, 2},
		{"height", &cfg.Height, 2},
		{"fps", &cfg.FPS, 1},
		{"frames", &cfg.Frames, 0},
		{"size", &cfg.CheckerSize, 1},
	}
	for _, p := range ints {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < p.min {
			return cfg, errors.Errorf("invalid %s %q", p.key, v)
		}
		*p.dst = n
	}

	for _, p := range []struct {
		key string
		dst *bool
	}{{"live", &cfg.Live}, {"animated", &cfg.Animated}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.Errorf("invalid %s %q", p.key, v)
		}
		*p.dst = b
	}

	if v := q.Get("color"); v != "" {
		rgb, err := strconv.ParseUint(strings.TrimPrefix(v, "#"), 16, 32)
		if err != nil || len(strings.TrimPrefix(v, "#")) != 6 {
			return cfg, errors.Errorf("invalid color %q", v)
		}
		cfg.SolidR, cfg.SolidG, cfg.SolidB = uint8(rgb>>16), uint8(rgb>>8), uint8(rgb)
	}
	return cfg, nil
}

// PatternPipeline is a Pipeline backend that renders synthetic frames in a
// streaming goroutine. Frames go through a LatestSink and state changes
// are announced on a MemoryBus, the way a media engine would.
type PatternPipeline struct {
	name   string
	format PixelFormat
	sink   *LatestSink
	bus    *MemoryBus

	paused atomic.Bool

	mu      sync.Mutex
	uri     string
	pattern PatternConfig
	state   State
	cancel  context.CancelFunc
	doneCh  chan struct{}
	pool    sync.Pool
	closed  bool
}

var patternCount atomic.Uint32

// NewPatternPipeline creates a pipeline in the Null state. Only RGBA and
// BGRA sink formats are supported.
func NewPatternPipeline(cfg PipelineConfig) (*PatternPipeline, error) {
	sinkCfg := cfg.Sink
	if sinkCfg.Format == PixelFormatUnknown {
		sinkCfg.Format = PixelFormatRGBA32
	}
	if sinkCfg.Format != PixelFormatRGBA32 && sinkCfg.Format != PixelFormatBGRA32 {
		return nil, errors.Wrapf(ErrNotSupported, "pattern sink format %s", sinkCfg.Format)
	}

	p := &PatternPipeline{
		name:   fmt.Sprintf("pattern%d", patternCount.Add(1)-1),
		format: sinkCfg.Format,
		sink:   NewLatestSink(sinkCfg),
		bus:    NewMemoryBus(),
		state:  StateNull,
	}
	if cfg.Launch != "" {
		if err := p.SetURI(cfg.Launch); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Name returns the pipeline's element name used as message source.
func (p *PatternPipeline) Name() string { return p.name }

// Bus implements Pipeline.
func (p *PatternPipeline) Bus() Bus { return p.bus }

// Sink implements Pipeline.
func (p *PatternPipeline) Sink() FrameSink { return p.sink }

// LatestSink returns the sink with its pull and stats API.
func (p *PatternPipeline) LatestSink() *LatestSink { return p.sink }

// State implements Pipeline.
func (p *PatternPipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetURI implements Pipeline. The URI can only change in Null or Ready.
func (p *PatternPipeline) SetURI(uri string) error {
	cfg, err := ParsePatternURI(uri)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Streaming() {
		return errors.Errorf("cannot change uri in state %s", p.state)
	}
	p.uri = uri
	p.pattern = cfg
	return nil
}

// SetState implements Pipeline. Going up to Paused or Playing starts the
// streaming goroutine; going down to Ready or Null stops it and flushes the
// sink. Reaching Null also flushes the bus. Live sources return
// StateChangeNoPreroll.
func (p *PatternPipeline) SetState(target State) (StateChangeReturn, error) {
	if target == StateVoidPending {
		return StateChangeFailure, errors.New("invalid target state")
	}

	p.mu.Lock()
	if p.closed && target != StateNull {
		p.mu.Unlock()
		return StateChangeFailure, errors.New("pipeline closed")
	}
	old := p.state
	pat := p.pattern
	if target.Streaming() && p.uri == "" {
		p.mu.Unlock()
		p.bus.Post(&ErrorMessage{
			Source:  p.name,
			Message: "No URI set",
			Debug:   "set a pattern:// URI before going to " + target.String(),
		})
		return StateChangeFailure, errors.New("no uri set")
	}

	var stop func()
	switch {
	case target.Streaming():
		p.paused.Store(target == StatePaused)
		if p.cancel == nil {
			ctx, cancel := context.WithCancel(context.Background())
			p.cancel = cancel
			p.doneCh = make(chan struct{})
			go p.stream(ctx, p.doneCh, pat)
		} else if old == StatePaused && target == StatePlaying {
			// Restart the sink clock so frames are not released in a burst.
			p.sink.Flush()
		}
	case p.cancel != nil:
		cancel, done := p.cancel, p.doneCh
		p.cancel, p.doneCh = nil, nil
		stop = func() {
			cancel()
			p.sink.Flush()
			<-done
			p.sink.Flush()
		}
	}
	p.state = target
	p.mu.Unlock()

	if stop != nil {
		stop()
	}
	if target == StateNull {
		// Pending messages belong to the stream that just ended; the bus
		// is flushed on the way to Null.
		p.bus.Flush()
	} else {
		p.postTransitions(old, target)
	}

	if target == old {
		return StateChangeSuccess, nil
	}
	if target.Streaming() {
		if pat.Live {
			return StateChangeNoPreroll, nil
		}
		if old < StatePaused {
			p.bus.Post(&AsyncDoneMessage{Source: p.name})
			return StateChangeAsync, nil
		}
	}
	return StateChangeSuccess, nil
}

// postTransitions posts one StateChanged per intermediate state, the way a
// bin walks its states.
func (p *PatternPipeline) postTransitions(from, to State) {
	if from == to {
		return
	}
	step := State(1)
	if to < from {
		step = -1
	}
	for s := from; s != to; s += step {
		next := s + step
		pending := StateVoidPending
		if next != to {
			pending = to
		}
		p.bus.Post(&StateChangedMessage{Source: p.name, Old: s, New: next, Pending: pending})

		if s == StateReady && next == StatePaused {
			p.announceStream()
		}
	}
}

func (p *PatternPipeline) announceStream() {
	p.mu.Lock()
	pat := p.pattern
	p.mu.Unlock()

	duration := time.Duration(-1)
	if pat.Frames > 0 {
		duration = time.Duration(pat.Frames) * (time.Second / time.Duration(pat.FPS))
	}
	p.bus.Post(&StreamStatusMessage{Source: p.name, Status: "Create", Owner: p.name + ":src"})
	p.bus.Post(&TagMessage{Source: p.name, Tags: map[string]string{
		"title":        pat.Pattern.String(),
		"video-codec":  "Uncompressed " + p.format.CapsName(),
		"resolution":   fmt.Sprintf("%dx%d", pat.Width, pat.Height),
		"frame-rate":   strconv.Itoa(pat.FPS),
		"live-source":  strconv.FormatBool(pat.Live),
		"total-frames": strconv.Itoa(pat.Frames),
	}})
	p.bus.Post(&DurationChangedMessage{Source: p.name, Duration: duration})
	p.bus.Post(&NewClockMessage{Source: p.name, Clock: "GstSystemClock"})
}

// Close sets the pipeline to Null and closes the sink.
func (p *PatternPipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if _, err := p.SetState(StateNull); err != nil {
		return err
	}
	return p.sink.Close()
}

func (p *PatternPipeline) getBuffer(size int) []byte {
	if b, ok := p.pool.Get().(*[]byte); ok && cap(*b) >= size {
		return (*b)[:size]
	}
	return make([]byte, size)
}

func (p *PatternPipeline) putBuffer(b []byte) {
	p.pool.Put(&b)
}

// stream is the streaming thread. While paused it stays idle.
func (p *PatternPipeline) stream(ctx context.Context, done chan struct{}, pat PatternConfig) {
	defer close(done)

	frameDuration := time.Second / time.Duration(pat.FPS)
	caps := fmt.Sprintf("video/x-raw,format=%s,width=%d,height=%d,framerate=%d/1",
		p.format.CapsName(), pat.Width, pat.Height, pat.FPS)
	size := FrameSize(pat.Width, pat.Height)

	r := newPatternRenderer(pat, p.format)
	animated := pat.Animated || pat.Pattern == PatternMovingBox || pat.Pattern == PatternNoise
	var still []byte
	if !animated {
		still = make([]byte, size)
		r.render(still, 0)
	}

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	var frameNum uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if p.paused.Load() {
			continue
		}
		if pat.Frames > 0 && frameNum >= uint64(pat.Frames) {
			log.Debug("%s: end of stream after %d frames", p.name, frameNum)
			p.sink.SetEOS()
			p.bus.Post(&EOSMessage{Source: p.name})
			<-ctx.Done()
			return
		}

		buf := p.getBuffer(size)
		if still != nil {
			copy(buf, still)
		} else {
			r.render(buf, frameNum)
		}
		smp := NewMemorySample(caps, buf, time.Duration(frameNum)*frameDuration, frameDuration, func() {
			p.putBuffer(buf)
		})
		if err := p.sink.Push(smp); err != nil {
			smp.Release()
			if errors.Is(err, ErrSinkClosed) {
				return
			}
			p.bus.Post(&ErrorMessage{Source: p.name, Message: "Internal data stream error.", Debug: err.Error()})
			<-ctx.Done()
			return
		}
		frameNum++
	}
}

// SMPTE color bars (simplified 8-bar pattern)
var colorBarsRGB = [][3]uint8{
	{192, 192, 192}, // White (75%)
	{192, 192, 0},   // Yellow
	{0, 192, 192},   // Cyan
	{0, 192, 0},     // Green
	{192, 0, 192},   // Magenta
	{192, 0, 0},     // Red
	{0, 0, 192},     // Blue
	{16, 16, 16},    // Black
}

// patternRenderer draws 4-byte pixels into caller buffers.
type patternRenderer struct {
	cfg      PatternConfig
	bgr      bool
	rngState uint64
}

func newPatternRenderer(cfg PatternConfig, format PixelFormat) *patternRenderer {
	if cfg.CheckerSize <= 0 {
		cfg.CheckerSize = 32
	}
	return &patternRenderer{
		cfg:      cfg,
		bgr:      format == PixelFormatBGRA32,
		rngState: uint64(time.Now().UnixNano()) | 1,
	}
}

func (r *patternRenderer) set(pix []byte, i int, red, green, blue uint8) {
	if r.bgr {
		red, blue = blue, red
	}
	pix[i] = red
	pix[i+1] = green
	pix[i+2] = blue
	pix[i+3] = 0xff
}

func (r *patternRenderer) render(pix []byte, frameNum uint64) {
	switch r.cfg.Pattern {
	case PatternGradient:
		r.gradient(pix, frameNum)
	case PatternCheckerboard:
		r.checkerboard(pix, frameNum)
	case PatternSolidColor:
		r.fill(pix, r.cfg.SolidR, r.cfg.SolidG, r.cfg.SolidB)
	case PatternNoise:
		r.noise(pix)
	case PatternMovingBox:
		r.movingBox(pix, frameNum)
	default:
		r.colorBars(pix, frameNum)
	}
}

func (r *patternRenderer) colorBars(pix []byte, frameNum uint64) {
	w, h := r.cfg.Width, r.cfg.Height
	barWidth := max(w/8, 1)
	shift := int(frameNum) % w

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			barIdx := min(((x+shift)%w)/barWidth, 7)
			rgb := colorBarsRGB[barIdx]
			r.set(pix, (y*w+x)*4, rgb[0], rgb[1], rgb[2])
		}
	}
}

func (r *patternRenderer) gradient(pix []byte, frameNum uint64) {
	w, h := r.cfg.Width, r.cfg.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((((x + int(frameNum)) % w) * 255) / w)
			r.set(pix, (y*w+x)*4, v, v, v)
		}
	}
}

func (r *patternRenderer) checkerboard(pix []byte, frameNum uint64) {
	w, h := r.cfg.Width, r.cfg.Height
	size := r.cfg.CheckerSize
	offset := int(frameNum)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint8 = 16
			if ((x+offset)/size+y/size)%2 == 0 {
				v = 235
			}
			r.set(pix, (y*w+x)*4, v, v, v)
		}
	}
}

func (r *patternRenderer) fill(pix []byte, red, green, blue uint8) {
	for i := 0; i+3 < len(pix); i += 4 {
		r.set(pix, i, red, green, blue)
	}
}

func (r *patternRenderer) noise(pix []byte) {
	// xorshift64
	for i := 0; i+3 < len(pix); i += 4 {
		r.rngState ^= r.rngState << 13
		r.rngState ^= r.rngState >> 7
		r.rngState ^= r.rngState << 17
		v := uint8(r.rngState)
		r.set(pix, i, v, v, v)
	}
}

func (r *patternRenderer) movingBox(pix []byte, frameNum uint64) {
	w, h := r.cfg.Width, r.cfg.Height
	r.fill(pix, 16, 16, 16)

	// Box moves in a circle
	boxSize := max(min(w, h)/5, 2)
	radius := float64(min(w, h)) / 4
	angle := float64(frameNum) * 0.05
	boxX := w/2 + int(radius*math.Cos(angle)) - boxSize/2
	boxY := h/2 + int(radius*math.Sin(angle)) - boxSize/2

	for y := max(boxY, 0); y < boxY+boxSize && y < h; y++ {
		for x := max(boxX, 0); x < boxX+boxSize && x < w; x++ {
			r.set(pix, (y*w+x)*4, 235, 235, 235)
		}
	}
}

func init() {
	RegisterBackend("pattern", func(cfg PipelineConfig) (Pipeline, error) {
		return NewPatternPipeline(cfg)
	})
}
