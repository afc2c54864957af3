package processor

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/watermarker/internal/model"
)

// Transform composes overlay onto base according to p. The base image is first
// clamped to maxSize (0 disables the clamp). The inputs are never modified.
func Transform(base, overlay image.Image, p model.PlacementConfig, maxSize int) *image.NRGBA {
	base = Clamp(base, maxSize)

	b := base.Bounds()
	width := OverlayWidth(b.Dx(), b.Dy(), p)
	if width == 0 || p.Opacity <= 0 {
		return imaging.Clone(base)
	}

	mark := imaging.Resize(overlay, width, 0, imaging.Lanczos)
	pos := Position(b.Dx(), b.Dy(), mark.Bounds().Dx(), mark.Bounds().Dy(), p.Anchor, p.Margin)

	return imaging.Overlay(base, mark, pos.Add(b.Min), p.Opacity/100)
}

// Clamp downscales img so that its larger side is at most maxSize,
// preserving the aspect ratio.
func Clamp(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	if maxSize <= 0 || max(b.Dx(), b.Dy()) <= maxSize {
		return img
	}
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, maxSize, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxSize, imaging.Lanczos)
}

// OverlayWidth returns the overlay width in pixels for a base image of the
// given size. It is 0 only when the scale is 0.
func OverlayWidth(width, height int, p model.PlacementConfig) int {
	if p.Scale <= 0 {
		return 0
	}

	dim := width
	if p.AutoScale {
		dim = min(width, height)
	}

	factor := p.Scale / 100
	if p.PortraitOptimize && height > width {
		factor *= p.PortraitMultiplier
	}

	return max(int(float64(dim)*factor), 1)
}

// Position returns the top-left corner of an overlay of size ow x oh inside a
// base of size bw x bh. The margin applies only on axes the anchor touches.
// The result may lie partly outside the base; compositing clips it.
func Position(bw, bh, ow, oh int, anchor model.Anchor, margin int) image.Point {
	h, v := anchor.Align()
	return image.Pt(axisOffset(bw, ow, h, margin), axisOffset(bh, oh, v, margin))
}

func axisOffset(base, size, align, margin int) int {
	switch align {
	case -1:
		return margin
	case 1:
		return base - size - margin
	default:
		return (base - size) / 2
	}
}
