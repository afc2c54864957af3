package processor

import (
	"image"
	"testing"

	"github.com/aliskhannn/watermarker/internal/model"
)

func placement(anchor model.Anchor, scale, opacity float64, margin int) model.PlacementConfig {
	return model.PlacementConfig{
		Anchor:             anchor,
		Scale:              scale,
		Opacity:            opacity,
		Margin:             margin,
		PortraitMultiplier: model.DefaultPortraitMultiplier,
	}
}

func TestPosition_Anchors(t *testing.T) {
	const bw, bh, ow, oh, m = 400, 300, 100, 50, 20

	tests := []struct {
		anchor model.Anchor
		want   image.Point
	}{
		{model.AnchorTopLeft, image.Pt(m, m)},
		{model.AnchorTopCenter, image.Pt(150, m)},
		{model.AnchorTopRight, image.Pt(bw-ow-m, m)},
		{model.AnchorCenterLeft, image.Pt(m, 125)},
		{model.AnchorCenter, image.Pt(150, 125)},
		{model.AnchorCenterRight, image.Pt(bw-ow-m, 125)},
		{model.AnchorBottomLeft, image.Pt(m, bh-oh-m)},
		{model.AnchorBottomCenter, image.Pt(150, bh-oh-m)},
		{model.AnchorBottomRight, image.Pt(bw-ow-m, bh-oh-m)},
	}
	for _, tt := range tests {
		t.Run(string(tt.anchor), func(t *testing.T) {
			if got := Position(bw, bh, ow, oh, tt.anchor, m); got != tt.want {
				t.Errorf("Position(%s) = %v, want %v", tt.anchor, got, tt.want)
			}
		})
	}
}

func TestOverlayWidth(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		mutate func(*model.PlacementConfig)
		want   int
	}{
		{"width based", 1000, 500, nil, 200},
		{"scale zero", 1000, 500, func(p *model.PlacementConfig) { p.Scale = 0 }, 0},
		{"auto scale uses shortest edge", 1000, 500, func(p *model.PlacementConfig) { p.AutoScale = true }, 100},
		{"portrait without optimization", 500, 1000, nil, 100},
		{"portrait optimized", 500, 1000, func(p *model.PlacementConfig) { p.PortraitOptimize = true }, 150},
		{"portrait optimized with auto scale", 500, 1000, func(p *model.PlacementConfig) {
			p.PortraitOptimize = true
			p.AutoScale = true
		}, 150},
		{"square is not portrait", 800, 800, func(p *model.PlacementConfig) { p.PortraitOptimize = true }, 160},
		{"custom multiplier", 500, 1000, func(p *model.PlacementConfig) {
			p.PortraitOptimize = true
			p.PortraitMultiplier = 2
		}, 200},
		{"never below one pixel", 3, 3, func(p *model.PlacementConfig) { p.Scale = 1 }, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := placement(model.AnchorBottomRight, 20, 100, 0)
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			if got := OverlayWidth(tt.w, tt.h, p); got != tt.want {
				t.Errorf("OverlayWidth(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestOverlayWidth_AutoScaleIgnoresAspectRatio(t *testing.T) {
	p := placement(model.AnchorBottomRight, 25, 100, 0)
	p.AutoScale = true

	wide := OverlayWidth(1600, 600, p)
	square := OverlayWidth(600, 600, p)
	if wide != square {
		t.Errorf("auto-scale widths differ: %d for 1600x600, %d for 600x600", wide, square)
	}
}

func TestTransform_BottomRightMargin(t *testing.T) {
	base := solid(400, 300, white)
	overlay := solid(100, 50, red)

	// Scale 25 of 400 keeps the overlay at its native 100x50.
	out := Transform(base, overlay, placement(model.AnchorBottomRight, 25, 100, 20), 0)

	inside := []image.Point{{379, 279}, {280, 230}}
	for _, pt := range inside {
		if c := out.NRGBAAt(pt.X, pt.Y); c != red {
			t.Errorf("pixel %v = %v, want overlay color", pt, c)
		}
	}

	outside := []image.Point{{380, 280}, {279, 229}, {399, 299}}
	for _, pt := range outside {
		if c := out.NRGBAAt(pt.X, pt.Y); c != white {
			t.Errorf("pixel %v = %v, want base color", pt, c)
		}
	}
}

func TestTransform_OpacityZeroKeepsBase(t *testing.T) {
	base := solid(200, 100, white)
	base.SetNRGBA(10, 10, red)
	overlay := solid(50, 50, red)

	out := Transform(base, overlay, placement(model.AnchorCenter, 50, 0, 0), 0)

	if out.Bounds() != base.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), base.Bounds())
	}
	for i := range base.Pix {
		if out.Pix[i] != base.Pix[i] {
			t.Fatalf("pixel data differs at byte %d", i)
		}
	}
}

func TestTransform_OpacityScalesAlpha(t *testing.T) {
	base := solid(100, 100, white)
	overlay := solid(100, 100, red)

	out := Transform(base, overlay, placement(model.AnchorTopLeft, 100, 50, 0), 0)

	c := out.NRGBAAt(50, 50)
	if c.R != 255 || c.G < 120 || c.G > 135 {
		t.Errorf("half-opaque red over white = %v, want about (255,128,128)", c)
	}
}

func TestTransform_ClipsOverlayOutsideBase(t *testing.T) {
	base := solid(100, 100, white)
	overlay := solid(100, 100, red)

	// A negative margin pushes the overlay past the corner; compositing clips it.
	out := Transform(base, overlay, placement(model.AnchorTopLeft, 100, 100, -50), 0)

	if out.Bounds() != base.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), base.Bounds())
	}
	if c := out.NRGBAAt(0, 0); c != red {
		t.Errorf("pixel (0,0) = %v, want overlay color", c)
	}
	if c := out.NRGBAAt(99, 99); c != white {
		t.Errorf("pixel (99,99) = %v, want base color", c)
	}
}

func TestTransform_DoesNotModifyInputs(t *testing.T) {
	base := solid(100, 100, white)
	overlay := solid(20, 20, red)

	_ = Transform(base, overlay, placement(model.AnchorCenter, 20, 100, 0), 0)

	if c := base.NRGBAAt(50, 50); c != white {
		t.Errorf("base modified: %v", c)
	}
	if overlay.Bounds().Dx() != 20 {
		t.Errorf("overlay modified: %v", overlay.Bounds())
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"disabled", 2000, 1000, 0, 2000, 1000},
		{"within limit", 800, 600, 1000, 800, 600},
		{"landscape", 2000, 1000, 1000, 1000, 500},
		{"portrait", 1000, 2000, 1000, 500, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Clamp(solid(tt.w, tt.h, white), tt.max).Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("Clamp(%dx%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestTransform_ClampsBeforeCompositing(t *testing.T) {
	base := solid(2000, 1000, white)
	overlay := solid(100, 50, red)

	out := Transform(base, overlay, placement(model.AnchorBottomRight, 10, 100, 0), 1000)

	if out.Bounds().Dx() != 1000 || out.Bounds().Dy() != 500 {
		t.Fatalf("size = %v, want 1000x500", out.Bounds().Size())
	}
	// 10% of the clamped width is the native overlay width.
	if c := out.NRGBAAt(999, 499); c != red {
		t.Errorf("corner pixel = %v, want overlay color", c)
	}
	if c := out.NRGBAAt(899, 449); c != white {
		t.Errorf("pixel outside overlay = %v, want base color", c)
	}
}
