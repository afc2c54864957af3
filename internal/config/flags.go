package config

// This file declares the command-line flags and the config keys they override.
// Flags only take effect when set; otherwise the config file, preset,
// environment and defaults apply in that order.

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"input":               "input",
	"output":              "output",
	"watermark":           "watermark",
	"preset":              "preset",
	"config":              "config",
	"workers":             "workers",
	"verbose":             "verbose",
	"history":             "history.path",
	"kafka-brokers":       "kafka.brokers",
	"kafka-topic":         "kafka.topic",
	"anchor":              "settings.anchor",
	"scale":               "settings.scale",
	"opacity":             "settings.opacity",
	"margin":              "settings.margin",
	"auto-scale":          "settings.auto_scale",
	"portrait-optimize":   "settings.portrait_optimize",
	"portrait-multiplier": "settings.portrait_multiplier",
	"max-size":            "settings.max_size",
	"format":              "settings.primary_format",
	"extra":               "settings.extra_format",
	"preserve-metadata":   "settings.preserve_metadata",
	"archive":             "settings.create_archive",
	"jpeg-quality":        "settings.jpeg_quality",
	"skip-existing":       "settings.skip_existing",
	"dry-run":             "settings.dry_run",
	"recurse":             "settings.recurse",
}

// flagAliases are the short flag names accepted for compatibility with the
// earlier command line.
var flagAliases = map[string]string{
	"size": "max-size",
	"fmt":  "format",
	"auto": "auto-scale",
	"dry":  "dry-run",
	"zip":  "archive",
}

func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	name = strings.ReplaceAll(strings.ToLower(name), "_", "-")
	if alias, ok := flagAliases[name]; ok {
		name = alias
	}
	return pflag.NormalizedName(name)
}

// NewFlagSet declares every configuration flag on a new flag set.
func NewFlagSet(name string) *pflag.FlagSet {
	d := DefaultSettings()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetNormalizeFunc(normalizeFlag)

	// Paths and run options.
	fs.StringP("input", "i", "", "Input directory containing images")
	fs.StringP("output", "o", "", "Output directory for watermarked images")
	fs.StringP("watermark", "w", "", "Watermark PNG file")
	fs.String("preset", "", "Load settings from a preset file")
	fs.String("config", "", "YAML configuration file")
	fs.Int("workers", runtime.NumCPU(), "Number of parallel workers")
	fs.BoolP("verbose", "v", false, "Enable debug logging")
	fs.String("history", "", "SQLite file recording every run")
	fs.StringSlice("kafka-brokers", nil, "Kafka brokers for progress events")
	fs.String("kafka-topic", "", "Kafka topic for progress events")

	// Placement.
	fs.String("anchor", d.Anchor, "Watermark position: TL TC TR CL CC CR BL BC BR")
	fs.Float64("scale", d.Scale, "Watermark width as a percentage of the image")
	fs.Float64("opacity", d.Opacity, "Watermark opacity 0-100")
	fs.Int("margin", d.Margin, "Margin from the anchored edges in pixels")
	fs.Bool("auto-scale", d.AutoScale, "Scale the watermark to the shortest edge instead of the width")
	fs.Bool("portrait-optimize", d.PortraitOptimize, "Enlarge the watermark on portrait images")
	fs.Float64("portrait-multiplier", d.PortraitMultiplier, "Scale multiplier for portrait images")

	// Output.
	fs.Int("max-size", d.MaxSize, "Maximum image dimension in pixels, 0 keeps the original size")
	fs.String("format", "", "Output format: JPG PNG WEBP TIFF BMP (default: same as source)")
	fs.String("extra", "", "Additional output format")
	fs.Bool("preserve-metadata", d.PreserveMetadata, "Carry EXIF metadata into JPEG and PNG outputs")
	fs.Bool("archive", d.CreateArchive, "Create a ZIP archive of the outputs")
	fs.Int("jpeg-quality", d.JPEGQuality, "JPEG quality 1-100")
	fs.Bool("skip-existing", d.SkipExisting, "Skip images whose output already exists")
	fs.Bool("dry-run", d.DryRun, "Process images without writing any file")
	fs.Bool("recurse", d.Recurse, "Include subfolders")

	return fs
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("%w: failed to bind flag %s: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}
