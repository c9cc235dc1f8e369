package gstview

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// State is a pipeline state.
type State int

const (
	StateVoidPending State = iota // No pending state
	StateNull                     // Initial state, resources released
	StateReady                    // Resources allocated, not streaming
	StatePaused                   // Prerolled, clock stopped
	StatePlaying                  // Streaming, clock running
)

func (s State) String() string {
	switch s {
	case StateVoidPending:
		return "VoidPending"
	case StateNull:
		return "Null"
	case StateReady:
		return "Ready"
	case StatePaused:
		return "Paused"
	case StatePlaying:
		return "Playing"
	default:
		return "Unknown"
	}
}

// Streaming reports whether the pipeline may produce frames in this state.
func (s State) Streaming() bool {
	return s == StatePaused || s == StatePlaying
}

// StateChangeReturn is the immediate result of a state change request.
type StateChangeReturn int

const (
	StateChangeFailure   StateChangeReturn = iota
	StateChangeSuccess                     // Completed synchronously
	StateChangeAsync                       // Completes later; AsyncDone is posted
	StateChangeNoPreroll                   // Succeeded, but the source is live and cannot preroll
)

func (r StateChangeReturn) String() string {
	switch r {
	case StateChangeFailure:
		return "Failure"
	case StateChangeSuccess:
		return "Success"
	case StateChangeAsync:
		return "Async"
	case StateChangeNoPreroll:
		return "NoPreroll"
	default:
		return "Unknown"
	}
}

// Pipeline is the media engine the render loop pulls from.
type Pipeline interface {
	// SetURI selects the source for the next transition to Paused/Playing.
	SetURI(uri string) error

	// SetState requests a state change.
	SetState(state State) (StateChangeReturn, error)

	// State returns the last state the pipeline reached.
	State() State

	// Bus returns the pipeline's message bus.
	Bus() Bus

	// Sink returns the video frame sink.
	Sink() FrameSink

	// Close sets the pipeline to Null and releases it.
	Close() error
}

// PipelineConfig configures a pipeline backend.
type PipelineConfig struct {
	Sink SinkConfig

	// Launch is an optional backend-specific pipeline description. When
	// empty the backend builds its default playback pipeline.
	Launch string
}

// OpenFunc creates a pipeline for a registered backend.
type OpenFunc func(cfg PipelineConfig) (Pipeline, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]OpenFunc{}
)

// RegisterBackend makes a pipeline backend available under name.
func RegisterBackend(name string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenPipeline creates a pipeline with the named backend.
func OpenPipeline(backend string, cfg PipelineConfig) (Pipeline, error) {
	backendsMu.RLock()
	open, ok := backends[backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrBackendNotRegistered, "%q (have %v)", backend, Backends())
	}
	log.Debug("Opening %s pipeline", backend)
	return open(cfg)
}
