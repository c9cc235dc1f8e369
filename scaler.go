package gstview

import (
	"image"

	"github.com/pkg/errors"
)

// ScaleMode defines how a surface is mapped onto a viewport whose aspect
// ratio differs from the frame's.
type ScaleMode int

const (
	// ScaleModeFit scales uniformly to fit inside the viewport (letterbox).
	ScaleModeFit ScaleMode = iota
	// ScaleModeFill scales uniformly to cover the viewport (crop).
	ScaleModeFill
	// ScaleModeStretch scales each axis independently (may distort).
	ScaleModeStretch
)

func (m ScaleMode) String() string {
	switch m {
	case ScaleModeFit:
		return "fit"
	case ScaleModeFill:
		return "fill"
	case ScaleModeStretch:
		return "stretch"
	default:
		return "unknown"
	}
}

// ParseScaleMode parses "fit", "fill" or "stretch".
func ParseScaleMode(s string) (ScaleMode, error) {
	switch s {
	case "fit", "uniform":
		return ScaleModeFit, nil
	case "fill", "uniformtofill":
		return ScaleModeFill, nil
	case "stretch":
		return ScaleModeStretch, nil
	}
	return ScaleModeFit, errors.Errorf("unknown scale mode %q", s)
}

// sourceRegion returns the part of a srcW x srcH image that is shown in a
// dstW x dstH viewport.
func sourceRegion(srcW, srcH, dstW, dstH int, mode ScaleMode) image.Rectangle {
	if mode != ScaleModeFill {
		return image.Rect(0, 0, srcW, srcH)
	}
	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(dstW) / float64(dstH)
	switch {
	case srcAspect > dstAspect:
		// Source is wider, crop horizontally
		w := int(float64(srcH) * dstAspect)
		x := (srcW - w) / 2
		return image.Rect(x, 0, x+w, srcH)
	case srcAspect < dstAspect:
		// Source is taller, crop vertically
		h := int(float64(srcW) / dstAspect)
		y := (srcH - h) / 2
		return image.Rect(0, y, srcW, y+h)
	}
	return image.Rect(0, 0, srcW, srcH)
}

// targetRegion returns where the source lands inside the viewport.
func targetRegion(srcW, srcH, dstW, dstH int, mode ScaleMode) image.Rectangle {
	if mode == ScaleModeFit {
		return FitRect(srcW, srcH, dstW, dstH)
	}
	return image.Rect(0, 0, dstW, dstH)
}

// ScaleRGBA scales src into dst with bilinear filtering. Pixels of dst
// outside the target region (letterbox bars) are set to opaque black.
func ScaleRGBA(dst *image.RGBA, src []byte, srcW, srcH int, mode ScaleMode) error {
	if srcW <= 0 || srcH <= 0 {
		return errors.Errorf("invalid source dimensions %dx%d", srcW, srcH)
	}
	if len(src) < FrameSize(srcW, srcH) {
		return ErrSizeMismatch
	}
	b := dst.Bounds()
	dstW, dstH := b.Dx(), b.Dy()
	if dstW <= 0 || dstH <= 0 {
		return nil
	}

	from := sourceRegion(srcW, srcH, dstW, dstH, mode)
	to := targetRegion(srcW, srcH, dstW, dstH, mode)

	if to != image.Rect(0, 0, dstW, dstH) {
		clearRGBA(dst)
	}
	if to.Empty() {
		return nil
	}

	scaleRegion(src, srcW*4, from, dst.Pix[dst.PixOffset(b.Min.X+to.Min.X, b.Min.Y+to.Min.Y):], dst.Stride, to.Dx(), to.Dy())
	return nil
}

func clearRGBA(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			row[i], row[i+1], row[i+2], row[i+3] = 0, 0, 0, 0xff
		}
	}
}

// scaleRegion scales the from region of a packed 4-channel image into a
// dstW x dstH block starting at dst[0].
func scaleRegion(src []byte, srcStride int, from image.Rectangle, dst []byte, dstStride, dstW, dstH int) {
	srcW, srcH := from.Dx(), from.Dy()

	// Fixed-point scaling factors (16.16)
	xRatio := (srcW << 16) / dstW
	yRatio := (srcH << 16) / dstH

	for y := 0; y < dstH; y++ {
		srcYFP := y * yRatio
		yFrac := srcYFP & 0xFFFF
		y0 := (srcYFP >> 16) + from.Min.Y
		y1 := y0 + 1
		if y1 >= from.Max.Y {
			y1 = y0
		}
		row0 := src[y0*srcStride:]
		row1 := src[y1*srcStride:]
		out := dst[y*dstStride:]

		for x := 0; x < dstW; x++ {
			srcXFP := x * xRatio
			xFrac := srcXFP & 0xFFFF
			x0 := (srcXFP >> 16) + from.Min.X
			x1 := x0 + 1
			if x1 >= from.Max.X {
				x1 = x0
			}
			x0, x1 = x0*4, x1*4

			for c := 0; c < 4; c++ {
				top := (int(row0[x0+c])*(0x10000-xFrac) + int(row0[x1+c])*xFrac) >> 16
				bottom := (int(row1[x0+c])*(0x10000-xFrac) + int(row1[x1+c])*xFrac) >> 16
				out[x*4+c] = byte((top*(0x10000-yFrac) + bottom*yFrac) >> 16)
			}
		}
	}
}

// Render draws the current surface contents into dst using mode. An empty
// surface renders as opaque black. It returns false for an empty surface.
func (s *Surface) Render(dst *image.RGBA, mode ScaleMode) bool {
	var drawn bool
	s.Draw(func(pix []byte, width, height int) {
		if pix == nil {
			clearRGBA(dst)
			return
		}
		drawn = ScaleRGBA(dst, pix, width, height, mode) == nil
	})
	return drawn
}
