//go:build cgo && !nogst

package gstreamer

import (
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/thesyncim/gstview"
)

// Bus translates pipeline bus messages into gstview messages.
type Bus struct {
	p   *Pipeline
	bus *gst.Bus
}

// Poll implements gstview.Bus. It never blocks.
func (b *Bus) Poll() (gstview.Message, bool) {
	msg := b.bus.Pop()
	if msg == nil {
		return nil, false
	}
	return b.translate(msg), true
}

// Flush drops every pending message.
func (b *Bus) Flush() {
	for b.bus.Pop() != nil {
	}
}

func (b *Bus) translate(msg *gst.Message) gstview.Message {
	src := msg.Source()

	switch msg.Type() {
	case gst.MessageStateChanged:
		old, cur := msg.ParseStateChanged()
		if src == b.p.pipeline.GetName() {
			b.p.noteState(fromGstState(cur))
		}
		return &gstview.StateChangedMessage{
			Source:  src,
			Old:     fromGstState(old),
			New:     fromGstState(cur),
			Pending: gstview.StateVoidPending,
		}

	case gst.MessageError:
		gerr := msg.ParseError()
		return &gstview.ErrorMessage{Source: src, Message: gerr.Error(), Debug: gerr.DebugString()}

	case gst.MessageEOS:
		return &gstview.EOSMessage{Source: src}

	case gst.MessageBuffering:
		return &gstview.BufferingMessage{Source: src, Percent: msg.ParseBuffering()}

	case gst.MessageDurationChanged:
		d := time.Duration(-1)
		if ok, ns := b.p.pipeline.QueryDuration(gst.FormatTime); ok {
			d = time.Duration(ns)
		}
		return &gstview.DurationChangedMessage{Source: src, Duration: d}

	case gst.MessageAsyncDone:
		var pos time.Duration
		if ok, ns := b.p.pipeline.QueryPosition(gst.FormatTime); ok {
			pos = time.Duration(ns)
		}
		return &gstview.AsyncDoneMessage{Source: src, RunningTime: pos}

	case gst.MessageResetTime:
		var pos time.Duration
		if ok, ns := b.p.pipeline.QueryPosition(gst.FormatTime); ok {
			pos = time.Duration(ns)
		}
		return &gstview.ResetTimeMessage{Source: src, RunningTime: pos}

	case gst.MessageTag:
		return &gstview.TagMessage{Source: src, Tags: map[string]string{}}

	case gst.MessageStreamStatus:
		return &gstview.StreamStatusMessage{Source: src, Owner: src}

	case gst.MessageNewClock:
		return &gstview.NewClockMessage{Source: src}
	}

	return &gstview.OtherMessage{Source: src, TypeName: msg.Type().String()}
}
