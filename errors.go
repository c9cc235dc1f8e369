package gstview

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrSizeMismatch is returned when a copy destination is smaller than the
	// mapped source. It indicates broken dimension tracking, not a transient
	// condition.
	ErrSizeMismatch = errors.New("destination smaller than source buffer")

	// ErrViewReleased is returned when a BufferView is used after its mapping
	// scope ended.
	ErrViewReleased = errors.New("buffer view used outside its mapping scope")

	ErrSinkClosed           = errors.New("frame sink closed")
	ErrCapsMismatch         = errors.New("sample caps do not match sink caps")
	ErrInvalidCaps          = errors.New("invalid caps description")
	ErrNotSupported         = errors.New("operation not supported")
	ErrNoPipeline           = errors.New("no pipeline attached")
	ErrBackendNotRegistered = errors.New("pipeline backend not registered")
)

// ResolutionError reports that a native library could not be loaded under
// any of the names derived for it. The process cannot continue without it.
type ResolutionError struct {
	Name     string   // Logical library name
	Platform string   // Platform tag used for the lookup
	Tried    []string // Concrete names attempted, in order
	Err      error    // Last loader error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unable to load native library %q on %s (tried %s): %v",
		e.Name, e.Platform, strings.Join(e.Tried, ", "), e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PipelineError is an error reported on the pipeline bus. It ends the active
// playback session; the render loop keeps running.
type PipelineError struct {
	Source  string
	Message string
	Debug   string
}

func (e *PipelineError) Error() string {
	if e.Source == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}
