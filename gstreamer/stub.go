//go:build !cgo || nogst

package gstreamer

import (
	"github.com/pkg/errors"

	"github.com/thesyncim/gstview"
)

// Pipeline is unavailable in this build.
type Pipeline struct{}

// New fails: the package was built without cgo or with the nogst tag.
func New(cfg gstview.PipelineConfig) (*Pipeline, error) {
	return nil, errors.Wrap(gstview.ErrNotSupported, "gstreamer backend requires cgo")
}

// NewFromLaunch fails: the package was built without cgo or with the nogst
// tag.
func NewFromLaunch(desc string, cfg gstview.PipelineConfig) (*Pipeline, error) {
	return nil, errors.Wrap(gstview.ErrNotSupported, "gstreamer backend requires cgo")
}
