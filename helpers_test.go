package gstview

import (
	"fmt"
	"sync"
	"time"
)

func rgbaCaps(w, h int) string {
	return fmt.Sprintf("video/x-raw, format=(string)RGBA, width=(int)%d, height=(int)%d, framerate=(fraction)30/1", w, h)
}

// rgbaSample returns a w x h RGBA sample filled with v. released is closed
// when the sample's hold count reaches zero.
func rgbaSample(w, h int, v byte) (smp *MemorySample, released chan struct{}) {
	data := make([]byte, FrameSize(w, h))
	for i := range data {
		data[i] = v
	}
	released = make(chan struct{})
	smp = NewMemorySample(rgbaCaps(w, h), data, 0, 0, func() { close(released) })
	return smp, released
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// fakePipeline is a scripted Pipeline.
type fakePipeline struct {
	mu      sync.Mutex
	state   State
	uri     string
	ret     StateChangeReturn
	err     error
	history []State
	closed  bool

	bus  *MemoryBus
	sink FrameSink
}

func newFakePipeline(sink FrameSink) *fakePipeline {
	return &fakePipeline{
		state: StateNull,
		ret:   StateChangeSuccess,
		bus:   NewMemoryBus(),
		sink:  sink,
	}
}

func (p *fakePipeline) SetURI(uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uri = uri
	return nil
}

func (p *fakePipeline) SetState(s State) (StateChangeReturn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, s)
	if p.err != nil {
		return StateChangeFailure, p.err
	}
	p.state = s
	if s.Streaming() {
		return p.ret, nil
	}
	return StateChangeSuccess, nil
}

func (p *fakePipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *fakePipeline) States() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]State(nil), p.history...)
}

func (p *fakePipeline) URI() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uri
}

func (p *fakePipeline) Bus() Bus        { return p.bus }
func (p *fakePipeline) Sink() FrameSink { return p.sink }

func (p *fakePipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// funcSink adapts a function to FrameSink.
type funcSink func(timeout time.Duration) (*Frame, bool)

func (f funcSink) TryPullFrame(timeout time.Duration) (*Frame, bool) { return f(timeout) }

// recordingHandler collects dispatched messages.
type recordingHandler struct {
	mu   sync.Mutex
	msgs []Message
}

func (h *recordingHandler) HandleMessage(m Message) {
	h.mu.Lock()
	h.msgs = append(h.msgs, m)
	h.mu.Unlock()
}

func (h *recordingHandler) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.msgs...)
}
