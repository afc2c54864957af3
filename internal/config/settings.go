package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/aliskhannn/watermarker/internal/model"
)

// Settings is the key/value form of a placement and output configuration.
// It is what presets store and what flags and environment variables override.
type Settings struct {
	Anchor             string  `mapstructure:"anchor"`
	Scale              float64 `mapstructure:"scale"`
	Opacity            float64 `mapstructure:"opacity"`
	Margin             int     `mapstructure:"margin"`
	AutoScale          bool    `mapstructure:"auto_scale"`
	PortraitOptimize   bool    `mapstructure:"portrait_optimize"`
	PortraitMultiplier float64 `mapstructure:"portrait_multiplier"`
	MaxSize            int     `mapstructure:"max_size"`
	PrimaryFormat      string  `mapstructure:"primary_format"`
	ExtraFormat        string  `mapstructure:"extra_format"`
	PreserveMetadata   bool    `mapstructure:"preserve_metadata"`
	CreateArchive      bool    `mapstructure:"create_archive"`
	JPEGQuality        int     `mapstructure:"jpeg_quality"`
	SkipExisting       bool    `mapstructure:"skip_existing"`
	DryRun             bool    `mapstructure:"dry_run"`
	Recurse            bool    `mapstructure:"recurse"`
}

// DefaultSettings returns the settings used when nothing else is configured.
func DefaultSettings() Settings {
	p := model.DefaultPlacement()
	o := model.DefaultOutput()

	return Settings{
		Anchor:             string(p.Anchor),
		Scale:              p.Scale,
		Opacity:            p.Opacity,
		Margin:             p.Margin,
		AutoScale:          p.AutoScale,
		PortraitOptimize:   p.PortraitOptimize,
		PortraitMultiplier: p.PortraitMultiplier,
		MaxSize:            o.MaxSize,
		JPEGQuality:        o.JPEGQuality,
		Recurse:            true,
	}
}

// SettingsFromMap decodes a key/value configuration on top of the defaults.
// Keys not recognized by Settings are rejected.
func SettingsFromMap(m map[string]any) (Settings, error) {
	v := viper.New()
	for key, val := range DefaultSettings().Map() {
		v.SetDefault(key, val)
	}
	if err := v.MergeConfigMap(m); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var s Settings
	if err := v.UnmarshalExact(&s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return s, nil
}

// Map returns the settings keyed by their recognized names.
func (s Settings) Map() map[string]any {
	return map[string]any{
		"anchor":              s.Anchor,
		"scale":               s.Scale,
		"opacity":             s.Opacity,
		"margin":              s.Margin,
		"auto_scale":          s.AutoScale,
		"portrait_optimize":   s.PortraitOptimize,
		"portrait_multiplier": s.PortraitMultiplier,
		"max_size":            s.MaxSize,
		"primary_format":      s.PrimaryFormat,
		"extra_format":        s.ExtraFormat,
		"preserve_metadata":   s.PreserveMetadata,
		"create_archive":      s.CreateArchive,
		"jpeg_quality":        s.JPEGQuality,
		"skip_existing":       s.SkipExisting,
		"dry_run":             s.DryRun,
		"recurse":             s.Recurse,
	}
}

// Placement converts and validates the placement part of the settings.
func (s Settings) Placement() (model.PlacementConfig, error) {
	anchor, err := model.ParseAnchor(s.Anchor)
	if err != nil {
		return model.PlacementConfig{}, err
	}

	p := model.PlacementConfig{
		Anchor:             anchor,
		Scale:              s.Scale,
		Opacity:            s.Opacity,
		Margin:             s.Margin,
		AutoScale:          s.AutoScale,
		PortraitOptimize:   s.PortraitOptimize,
		PortraitMultiplier: s.PortraitMultiplier,
	}
	if err := p.Validate(); err != nil {
		return model.PlacementConfig{}, err
	}

	return p, nil
}

// Output converts and validates the output part of the settings.
func (s Settings) Output() (model.OutputSpec, error) {
	primary, err := model.ParseFormat(s.PrimaryFormat)
	if err != nil {
		return model.OutputSpec{}, err
	}
	extra, err := model.ParseFormat(s.ExtraFormat)
	if err != nil {
		return model.OutputSpec{}, err
	}

	o := model.OutputSpec{
		PrimaryFormat:    primary,
		ExtraFormat:      extra,
		MaxSize:          s.MaxSize,
		PreserveMetadata: s.PreserveMetadata,
		CreateArchive:    s.CreateArchive,
		JPEGQuality:      s.JPEGQuality,
		SkipExisting:     s.SkipExisting,
		DryRun:           s.DryRun,
	}
	if err := o.Validate(); err != nil {
		return model.OutputSpec{}, err
	}

	return o, nil
}
