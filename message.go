package gstview

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MessageType identifies a bus message kind.
type MessageType int

const (
	MessageUnknown MessageType = iota
	MessageStateChanged
	MessageError
	MessageEOS
	MessageBuffering
	MessageDurationChanged
	MessageAsyncDone
	MessageTag
	MessageStreamStatus
	MessageNewClock
	MessageResetTime
)

func (t MessageType) String() string {
	switch t {
	case MessageStateChanged:
		return "StateChanged"
	case MessageError:
		return "Error"
	case MessageEOS:
		return "Eos"
	case MessageBuffering:
		return "Buffering"
	case MessageDurationChanged:
		return "DurationChanged"
	case MessageAsyncDone:
		return "AsyncDone"
	case MessageTag:
		return "Tag"
	case MessageStreamStatus:
		return "StreamStatus"
	case MessageNewClock:
		return "NewClock"
	case MessageResetTime:
		return "ResetTime"
	default:
		return "Unknown"
	}
}

// Message is a pipeline bus message. The set of implementations is closed;
// OtherMessage carries every kind without a dedicated type.
type Message interface {
	Type() MessageType
	Src() string
	sealed()
}

// StateChangedMessage reports an element state transition.
type StateChangedMessage struct {
	Source  string
	Old     State
	New     State
	Pending State
}

// ErrorMessage is fatal to the playback session that produced it.
type ErrorMessage struct {
	Source  string
	Message string
	Debug   string
}

// Err returns the message as a PipelineError.
func (m *ErrorMessage) Err() *PipelineError {
	return &PipelineError{Source: m.Source, Message: m.Message, Debug: m.Debug}
}

// EOSMessage ends the playback session.
type EOSMessage struct {
	Source string
}

// BufferingMessage reports buffer fill level in percent (0..100).
type BufferingMessage struct {
	Source  string
	Percent int
}

// DurationChangedMessage reports a new stream duration; negative when
// unknown.
type DurationChangedMessage struct {
	Source   string
	Duration time.Duration
}

// AsyncDoneMessage reports completion of an asynchronous state change.
type AsyncDoneMessage struct {
	Source      string
	RunningTime time.Duration
}

// ResetTimeMessage asks the pipeline to reset its running time, e.g. after
// a flushing seek.
type ResetTimeMessage struct {
	Source      string
	RunningTime time.Duration
}

// TagMessage carries stream metadata.
type TagMessage struct {
	Source string
	Tags   map[string]string
}

// StreamStatusMessage reports creation or teardown of a streaming thread.
type StreamStatusMessage struct {
	Source string
	Status string
	Owner  string
}

// NewClockMessage reports the clock selected by the pipeline.
type NewClockMessage struct {
	Source string
	Clock  string
}

// OtherMessage is any message kind the dispatcher has no arm for.
type OtherMessage struct {
	Source   string
	TypeName string
}

func (*StateChangedMessage) Type() MessageType    { return MessageStateChanged }
func (*ErrorMessage) Type() MessageType           { return MessageError }
func (*EOSMessage) Type() MessageType             { return MessageEOS }
func (*BufferingMessage) Type() MessageType       { return MessageBuffering }
func (*DurationChangedMessage) Type() MessageType { return MessageDurationChanged }
func (*AsyncDoneMessage) Type() MessageType       { return MessageAsyncDone }
func (*ResetTimeMessage) Type() MessageType       { return MessageResetTime }
func (*TagMessage) Type() MessageType             { return MessageTag }
func (*StreamStatusMessage) Type() MessageType    { return MessageStreamStatus }
func (*NewClockMessage) Type() MessageType        { return MessageNewClock }
func (*OtherMessage) Type() MessageType           { return MessageUnknown }

func (m *StateChangedMessage) Src() string    { return m.Source }
func (m *ErrorMessage) Src() string           { return m.Source }
func (m *EOSMessage) Src() string             { return m.Source }
func (m *BufferingMessage) Src() string       { return m.Source }
func (m *DurationChangedMessage) Src() string { return m.Source }
func (m *AsyncDoneMessage) Src() string       { return m.Source }
func (m *ResetTimeMessage) Src() string       { return m.Source }
func (m *TagMessage) Src() string             { return m.Source }
func (m *StreamStatusMessage) Src() string    { return m.Source }
func (m *NewClockMessage) Src() string        { return m.Source }
func (m *OtherMessage) Src() string           { return m.Source }

func (*StateChangedMessage) sealed()    {}
func (*ErrorMessage) sealed()           {}
func (*EOSMessage) sealed()             {}
func (*BufferingMessage) sealed()       {}
func (*DurationChangedMessage) sealed() {}
func (*AsyncDoneMessage) sealed()       {}
func (*ResetTimeMessage) sealed()       {}
func (*TagMessage) sealed()             {}
func (*StreamStatusMessage) sealed()    {}
func (*NewClockMessage) sealed()        {}
func (*OtherMessage) sealed()           {}

// FormatTags renders tags in key order, for logging.
func FormatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", k, tags[k])
	}
	return b.String()
}

// Bus delivers pipeline messages. Poll never blocks.
type Bus interface {
	Poll() (Message, bool)
}

// MessageHandler receives messages drained from a Bus.
type MessageHandler interface {
	HandleMessage(msg Message)
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(msg Message)

func (f MessageHandlerFunc) HandleMessage(msg Message) { f(msg) }

// MemoryBus is an unbounded in-process Bus. Post never blocks.
type MemoryBus struct {
	mu    sync.Mutex
	queue []Message
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Post appends a message.
func (b *MemoryBus) Post(msg Message) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
}

// Poll removes and returns the oldest message.
func (b *MemoryBus) Poll() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil, false
	}
	msg := b.queue[0]
	b.queue[0] = nil
	b.queue = b.queue[1:]
	return msg, true
}

// Len returns the number of pending messages.
func (b *MemoryBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Flush drops all pending messages.
func (b *MemoryBus) Flush() {
	b.mu.Lock()
	b.queue = nil
	b.mu.Unlock()
}
