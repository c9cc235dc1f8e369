package gstview

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PlayerConfig configures a Player.
type PlayerConfig struct {
	Pipeline Pipeline // Required
	Surface  *Surface // Created when nil
	MaxFPS   int      // Render tick rate (default 100)

	// OnError is called when a bus error ends a session.
	OnError func(sess Session, err *PipelineError)
	// OnEOS is called when a session reaches end of stream.
	OnEOS func(sess Session)
}

// Session is one Play call's lifetime.
type Session struct {
	ID      uuid.UUID
	URI     string
	Live    bool
	Started time.Time
}

// Player drives one pipeline into one surface and applies the playback
// policy for bus messages: pause while a non-live source buffers, tear the
// session down on errors and end of stream.
type Player struct {
	pipeline Pipeline
	surface  *Surface
	loop     *RenderLoop
	onError  func(Session, *PipelineError)
	onEOS    func(Session)

	mu      sync.Mutex
	session *Session
}

// NewPlayer wires a render loop to the pipeline and moves the pipeline to
// Ready. Call Start to begin ticking.
func NewPlayer(cfg PlayerConfig) (*Player, error) {
	if cfg.Pipeline == nil {
		return nil, ErrNoPipeline
	}
	if cfg.Surface == nil {
		cfg.Surface = NewSurface()
	}

	p := &Player{
		pipeline: cfg.Pipeline,
		surface:  cfg.Surface,
		onError:  cfg.OnError,
		onEOS:    cfg.OnEOS,
	}

	loop, err := NewRenderLoop(RenderLoopConfig{
		MaxFPS:  cfg.MaxFPS,
		Surface: cfg.Surface,
		Handler: p,
	})
	if err != nil {
		return nil, err
	}
	p.loop = loop
	loop.Attach(cfg.Pipeline)

	if _, err := cfg.Pipeline.SetState(StateReady); err != nil {
		return nil, errors.Wrap(err, "set pipeline to ready")
	}
	return p, nil
}

// Start starts the render loop.
func (p *Player) Start(ctx context.Context) error {
	return p.loop.Start(ctx)
}

// RenderLoop returns the player's render loop.
func (p *Player) RenderLoop() *RenderLoop {
	return p.loop
}

// Surface returns the presentation surface.
func (p *Player) Surface() *Surface {
	return p.surface
}

// Pipeline returns the driven pipeline.
func (p *Player) Pipeline() Pipeline {
	return p.pipeline
}

// Play stops the current session and starts playing source, a URI or a
// local file path.
func (p *Player) Play(source string) error {
	p.Stop()

	uri, err := NormalizeURI(source)
	if err != nil {
		return err
	}
	if err := p.pipeline.SetURI(uri); err != nil {
		return errors.Wrapf(err, "set uri %q", uri)
	}

	ret, err := p.pipeline.SetState(StatePlaying)
	if err == nil && ret == StateChangeFailure {
		err = errors.New("state change failed")
	}
	if err != nil {
		p.pipeline.SetState(StateNull)
		return errors.Wrap(err, "unable to set the pipeline to the playing state")
	}

	sess := &Session{
		ID:      uuid.New(),
		URI:     uri,
		Live:    ret == StateChangeNoPreroll,
		Started: time.Now(),
	}
	if sess.Live {
		log.Info("Playing a live stream.")
	}
	log.Info("Session %s playing %s", sess.ID, uri)

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()
	return nil
}

// Stop ends the current session: the pipeline goes to Null and the surface
// is cleared.
func (p *Player) Stop() {
	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.mu.Unlock()

	p.pipeline.SetState(StateNull)
	p.flushBus()
	p.loop.ClearSurface()

	if sess != nil {
		log.Info("Session %s stopped after %s", sess.ID, time.Since(sess.Started).Round(time.Millisecond))
	}
}

// Session returns the active session.
func (p *Player) Session() (Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return Session{}, false
	}
	return *p.session, true
}

// IsLive reports whether the active session plays a live source.
func (p *Player) IsLive() bool {
	sess, ok := p.Session()
	return ok && sess.Live
}

// Close stops the render loop, ends the session, releases the surface and
// closes the pipeline.
func (p *Player) Close() error {
	p.loop.Stop()
	p.Stop()
	p.loop.Detach()
	p.loop.Attach(nil)
	return p.pipeline.Close()
}

// HandleMessage implements MessageHandler.
func (p *Player) HandleMessage(msg Message) {
	switch m := msg.(type) {
	case *StateChangedMessage:
		log.Info("[StateChange] From %s to %s pending at %s", m.Old, m.New, m.Pending)
		if m.New == StateNull && m.Old != StateNull {
			p.loop.ClearSurface()
		}

	case *BufferingMessage:
		log.Info("[Buffering] %d%% done", m.Percent)
		p.applyBuffering(m.Percent)

	case *ErrorMessage:
		log.Error("[Error] %s, debug information %s.", m.Message, m.Debug)
		p.endSession(m.Err())

	case *EOSMessage:
		log.Info("[Eos] Playback has ended.")
		p.endSession(nil)

	case *DurationChangedMessage:
		if m.Duration >= 0 {
			log.Info("[DurationChanged] New duration is %d seconds", int64(m.Duration/time.Second))
		} else {
			log.Info("[DurationChanged] Duration unknown")
		}

	case *AsyncDoneMessage:
		log.Info("[AsyncDone] Running time is %s", m.RunningTime)

	case *ResetTimeMessage:
		log.Info("[ResetTime] Running time is %s", m.RunningTime)

	case *StreamStatusMessage:
		log.Info("[StreamStatus] Type %s from %s", m.Status, m.Owner)

	case *NewClockMessage:
		log.Info("[NewClock] %s", m.Clock)

	case *TagMessage:
		log.Info("[Tag] Information from %s is %s", m.Source, FormatTags(m.Tags))

	default:
		log.Info("[Recv] %s", msg.Type())
	}
}

// applyBuffering pauses a non-live session while buffering and resumes it
// at 100%. Live sources cannot pause, so they are left alone.
func (p *Player) applyBuffering(percent int) {
	sess, ok := p.Session()
	if !ok || sess.Live {
		return
	}

	target := StatePlaying
	if percent < 100 {
		target = StatePaused
	}
	if _, err := p.pipeline.SetState(target); err != nil {
		log.Warn("Buffering: cannot set %s: %v", target, err)
	}
}

// endSession tears the session down after an error or end of stream. The
// render loop keeps running, ready for the next Play.
func (p *Player) endSession(perr *PipelineError) {
	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.mu.Unlock()

	p.pipeline.SetState(StateNull)
	p.flushBus()
	p.loop.ClearSurface()

	if sess == nil {
		return
	}
	if perr != nil {
		if p.onError != nil {
			p.onError(*sess, perr)
		}
		return
	}
	if p.onEOS != nil {
		p.onEOS(*sess)
	}
}

type flusher interface {
	Flush()
}

// flushBus drops messages left over from the session that just ended, for
// buses that do not flush themselves on the way to Null.
func (p *Player) flushBus() {
	if f, ok := p.pipeline.Bus().(flusher); ok {
		f.Flush()
	}
}

// NormalizeURI returns source unchanged when it already has a scheme and
// converts a file path into a file:// URI otherwise.
func NormalizeURI(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", errors.New("empty source")
	}
	if strings.Contains(source, "://") {
		return source, nil
	}

	path, err := filepath.Abs(source)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %q", source)
	}
	path = filepath.ToSlash(path)
	if runtime.GOOS == "windows" {
		return "file:///" + path, nil
	}
	return "file://" + path, nil
}
