// Package gstview presents decoded video from a media pipeline on a
// drawable surface.
//
// A RenderLoop ticks on a fixed cadence. Each tick drains at most one bus
// message and then tries, without blocking, to pull the newest frame from
// the pipeline's sink and copy it into a Surface. The sink keeps only the
// latest frame, so a slow presenter drops frames rather than queueing them.
//
// # Architecture
//
//	Pipeline -> LatestSink -> RenderLoop.Tick -> Surface -> draw
//	Pipeline -> Bus -> RenderLoop.Tick -> Player.HandleMessage
//
// # Backends
//
// Pipelines are created through registered backends:
//   - pattern: pure-Go synthetic sources (pattern://colorbars?width=640)
//   - gst: GStreamer playbin with an appsink, in package gstreamer (cgo)
//
// # Native Libraries
//
// Logical library names such as "gstreamer-1.0" are mapped to platform
// file names through an embedded table (libmap.yaml). Set GSTVIEW_LIB_PATH
// to the directory holding the GStreamer runtime when it is not on the
// loader's default search path.
//
// # Build Tags
//
//   - nogst: build the gstreamer package without the cgo bindings
package gstview
