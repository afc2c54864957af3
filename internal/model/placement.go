package model

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPortraitMultiplier is applied to the overlay scale when the base image
// is taller than it is wide and portrait optimization is enabled.
const DefaultPortraitMultiplier = 1.5

// ErrInvalidPlacement is returned when a PlacementConfig violates its bounds.
var ErrInvalidPlacement = errors.New("invalid placement")

// Anchor is one of the nine grid positions an overlay can be pinned to.
type Anchor string

const (
	AnchorTopLeft      Anchor = "TL"
	AnchorTopCenter    Anchor = "TC"
	AnchorTopRight     Anchor = "TR"
	AnchorCenterLeft   Anchor = "CL"
	AnchorCenter       Anchor = "CC"
	AnchorCenterRight  Anchor = "CR"
	AnchorBottomLeft   Anchor = "BL"
	AnchorBottomCenter Anchor = "BC"
	AnchorBottomRight  Anchor = "BR"
)

// Anchors lists all anchors in grid order (row by row).
var Anchors = []Anchor{
	AnchorTopLeft, AnchorTopCenter, AnchorTopRight,
	AnchorCenterLeft, AnchorCenter, AnchorCenterRight,
	AnchorBottomLeft, AnchorBottomCenter, AnchorBottomRight,
}

// ParseAnchor parses a two-letter anchor code case-insensitively.
func ParseAnchor(s string) (Anchor, error) {
	a := Anchor(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Anchors {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown anchor %q", ErrInvalidPlacement, s)
}

// Align reports how the anchor aligns on each axis:
// -1 for left/top, 0 for center, 1 for right/bottom.
func (a Anchor) Align() (h, v int) {
	switch a[0] {
	case 'T':
		v = -1
	case 'B':
		v = 1
	}
	switch a[1] {
	case 'L':
		h = -1
	case 'R':
		h = 1
	}
	return h, v
}

// PlacementConfig describes where and how large the overlay is drawn.
type PlacementConfig struct {
	Anchor             Anchor  `json:"anchor"`
	Scale              float64 `json:"scale"`   // percent of the base dimension
	Opacity            float64 `json:"opacity"` // 0 transparent, 100 unchanged
	Margin             int     `json:"margin"`  // pixels, inward from the anchored edges
	AutoScale          bool    `json:"auto_scale"`
	PortraitOptimize   bool    `json:"portrait_optimize"`
	PortraitMultiplier float64 `json:"portrait_multiplier"`
}

// DefaultPlacement returns the placement used when nothing else is configured.
func DefaultPlacement() PlacementConfig {
	return PlacementConfig{
		Anchor:             AnchorBottomRight,
		Scale:              30,
		Opacity:            80,
		Margin:             25,
		PortraitOptimize:   true,
		PortraitMultiplier: DefaultPortraitMultiplier,
	}
}

// Validate checks the placement invariants.
func (p PlacementConfig) Validate() error {
	if _, err := ParseAnchor(string(p.Anchor)); err != nil {
		return err
	}
	if p.Scale < 0 || p.Scale > 100 {
		return fmt.Errorf("%w: scale %v out of range [0,100]", ErrInvalidPlacement, p.Scale)
	}
	if p.Opacity < 0 || p.Opacity > 100 {
		return fmt.Errorf("%w: opacity %v out of range [0,100]", ErrInvalidPlacement, p.Opacity)
	}
	if p.Margin < 0 {
		return fmt.Errorf("%w: margin %d is negative", ErrInvalidPlacement, p.Margin)
	}
	if p.PortraitOptimize && p.PortraitMultiplier <= 0 {
		return fmt.Errorf("%w: portrait multiplier must be positive", ErrInvalidPlacement)
	}
	return nil
}
