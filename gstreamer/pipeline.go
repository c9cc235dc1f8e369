//go:build cgo && !nogst

// Package gstreamer is the GStreamer pipeline backend. Importing it
// registers the "gst" backend with gstview.
//
// The default pipeline is a playbin whose video sink is an appsink
// negotiated to packed RGBA. Custom pipelines can be given as a
// parse-launch description ending in "appsink name=videoSink".
package gstreamer

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/thesyncim/gstview"
	"github.com/thesyncim/gstview/internal/logging"
)

var log = logging.DefaultLogger.WithTag("gstreamer")

// VideoSinkName is the element name NewFromLaunch looks up.
const VideoSinkName = "videoSink"

// SourceName is the element that receives SetURI in launch pipelines.
const SourceName = "source"

var initOnce sync.Once

func ensureInit() {
	initOnce.Do(func() {
		gst.Init(nil)
		log.Debug("GStreamer initialized")
	})
}

// Pipeline adapts a gst.Pipeline to gstview.Pipeline.
type Pipeline struct {
	pipeline *gst.Pipeline
	uriElem  *gst.Element // nil when the pipeline has no URI source
	appsink  *app.Sink
	sink     *Sink
	bus      *Bus
	launch   bool
	liveDesc bool

	mu    sync.Mutex
	state gstview.State
	uri   string
}

// New builds a playbin with an appsink video sink. A non-empty cfg.Launch
// is handed to NewFromLaunch instead.
func New(cfg gstview.PipelineConfig) (*Pipeline, error) {
	if cfg.Launch != "" {
		return NewFromLaunch(cfg.Launch, cfg)
	}
	ensureInit()

	pipeline, err := gst.NewPipeline("player")
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline")
	}
	playbin, err := gst.NewElementWithName("playbin", "playbin")
	if err != nil {
		return nil, errors.Wrap(err, "create playbin")
	}
	if err := pipeline.Add(playbin); err != nil {
		return nil, errors.Wrap(err, "add playbin")
	}

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, errors.Wrap(err, "create appsink")
	}
	if err := configureSink(sink, cfg.Sink); err != nil {
		return nil, err
	}
	if err := playbin.SetProperty("video-sink", sink.Element); err != nil {
		return nil, errors.Wrap(err, "set playbin video-sink")
	}

	return newPipeline(pipeline, playbin, sink, cfg.Sink, false), nil
}

// NewFromLaunch parses a launch description. The description must contain
// an appsink named videoSink; an element named source, if present,
// receives SetURI.
func NewFromLaunch(desc string, cfg gstview.PipelineConfig) (*Pipeline, error) {
	ensureInit()

	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, errors.Wrapf(err, "parse launch %q", desc)
	}
	elem, err := pipeline.GetElementByName(VideoSinkName)
	if err != nil || elem == nil {
		return nil, errors.Errorf("launch description has no appsink named %s", VideoSinkName)
	}
	sink := app.SinkFromElement(elem)
	if sink == nil {
		return nil, errors.Errorf("element %s is not an appsink", VideoSinkName)
	}
	if err := configureSink(sink, cfg.Sink); err != nil {
		return nil, err
	}

	uriElem, _ := pipeline.GetElementByName(SourceName)
	p := newPipeline(pipeline, uriElem, sink, cfg.Sink, true)
	p.liveDesc = isLiveDescription(desc)
	return p, nil
}

func newPipeline(pipeline *gst.Pipeline, uriElem *gst.Element, sink *app.Sink, cfg gstview.SinkConfig, launch bool) *Pipeline {
	p := &Pipeline{
		pipeline: pipeline,
		uriElem:  uriElem,
		appsink:  sink,
		sink:     &Sink{appsink: sink, format: cfg.Format},
		launch:   launch,
		state:    gstview.StateNull,
	}
	p.bus = &Bus{p: p, bus: pipeline.GetPipelineBus()}
	return p
}

// configureSink applies the sink properties the render loop relies on.
func configureSink(sink *app.Sink, cfg gstview.SinkConfig) error {
	if cfg.Format == gstview.PixelFormatUnknown {
		cfg.Format = gstview.PixelFormatRGBA32
	}
	if cfg.MaxBuffers <= 0 {
		cfg.MaxBuffers = 1
	}

	sink.SetCaps(gst.NewCapsFromString(gstview.VideoCapsString(cfg.Format)))
	sink.SetDrop(cfg.Drop)
	sink.SetMaxBuffers(uint(cfg.MaxBuffers))

	for name, value := range map[string]bool{
		"sync":               cfg.Sync,
		"qos":                cfg.QoS,
		"enable-last-sample": cfg.EnableLastSample,
	} {
		if err := sink.SetProperty(name, value); err != nil {
			return errors.Wrapf(err, "set appsink %s", name)
		}
	}
	return nil
}

// SetURI implements gstview.Pipeline.
func (p *Pipeline) SetURI(uri string) error {
	if p.uriElem == nil {
		return errors.Wrap(gstview.ErrNotSupported, "pipeline has no uri source")
	}
	if err := p.uriElem.SetProperty("uri", uri); err != nil {
		return errors.Wrap(err, "set uri")
	}
	p.mu.Lock()
	p.uri = uri
	p.mu.Unlock()
	return nil
}

// SetState implements gstview.Pipeline. The element API only reports
// failure, so live sources are recognized by URI scheme or by the source
// elements in the launch description.
func (p *Pipeline) SetState(state gstview.State) (gstview.StateChangeReturn, error) {
	if err := p.pipeline.SetState(toGstState(state)); err != nil {
		return gstview.StateChangeFailure, errors.Wrapf(err, "set state %s", state)
	}

	p.mu.Lock()
	old := p.state
	p.state = state
	live := p.liveDesc || isLiveURI(p.uri)
	p.mu.Unlock()

	switch {
	case state.Streaming() && live:
		return gstview.StateChangeNoPreroll, nil
	case state.Streaming() && old < gstview.StatePaused:
		return gstview.StateChangeAsync, nil
	}
	return gstview.StateChangeSuccess, nil
}

// State implements gstview.Pipeline.
func (p *Pipeline) State() gstview.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) noteState(state gstview.State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// Bus implements gstview.Pipeline.
func (p *Pipeline) Bus() gstview.Bus { return p.bus }

// Sink implements gstview.Pipeline.
func (p *Pipeline) Sink() gstview.FrameSink { return p.sink }

// AppSink returns the underlying appsink.
func (p *Pipeline) AppSink() *app.Sink { return p.appsink }

// Close implements gstview.Pipeline.
func (p *Pipeline) Close() error {
	_, err := p.SetState(gstview.StateNull)
	return err
}

// Sink pulls samples from an appsink.
type Sink struct {
	appsink *app.Sink
	format  gstview.PixelFormat
}

// TryPullFrame implements gstview.FrameSink.
func (s *Sink) TryPullFrame(timeout time.Duration) (*gstview.Frame, bool) {
	smp := s.appsink.TryPullSample(timeout)
	if smp == nil {
		return nil, false
	}
	adapted := newSample(smp)
	f, err := gstview.NewFrame(adapted)
	if err != nil {
		log.Warn("Discarding sample: %v", err)
		adapted.Release()
		return nil, false
	}
	return f, true
}

func toGstState(s gstview.State) gst.State {
	switch s {
	case gstview.StateNull:
		return gst.StateNull
	case gstview.StateReady:
		return gst.StateReady
	case gstview.StatePaused:
		return gst.StatePaused
	case gstview.StatePlaying:
		return gst.StatePlaying
	default:
		return gst.StateVoidPending
	}
}

func fromGstState(s gst.State) gstview.State {
	switch s {
	case gst.StateNull:
		return gstview.StateNull
	case gst.StateReady:
		return gstview.StateReady
	case gst.StatePaused:
		return gstview.StatePaused
	case gst.StatePlaying:
		return gstview.StatePlaying
	default:
		return gstview.StateVoidPending
	}
}

func init() {
	gstview.RegisterBackend("gst", func(cfg gstview.PipelineConfig) (gstview.Pipeline, error) {
		return New(cfg)
	})
}
