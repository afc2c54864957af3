package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for format names the encoder does not know.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrInvalidOutput is returned when an OutputSpec violates its invariants.
var ErrInvalidOutput = errors.New("invalid output spec")

// Format is an output image format.
type Format string

const (
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatWEBP Format = "WEBP"
	FormatTIFF Format = "TIFF"
	FormatBMP  Format = "BMP"
)

var formatExtensions = map[Format]string{
	FormatJPEG: ".jpg",
	FormatPNG:  ".png",
	FormatWEBP: ".webp",
	FormatTIFF: ".tiff",
	FormatBMP:  ".bmp",
}

// ParseFormat parses a user-facing format name. The empty string and the
// words "none", "same" and "same as source" map to the unset format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "same", "same as source":
		return "", nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWEBP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "bmp":
		return FormatBMP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", err
	}
	if f == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// Extension returns the canonical file extension including the leading dot.
func (f Format) Extension() string {
	return formatExtensions[f]
}

// SupportsMetadata reports whether EXIF can be embedded in the format.
func (f Format) SupportsMetadata() bool {
	return f == FormatJPEG || f == FormatPNG
}

// OutputSpec controls how watermarked images are written.
type OutputSpec struct {
	PrimaryFormat    Format `json:"primary_format"` // empty keeps the source format
	ExtraFormat      Format `json:"extra_format"`   // empty disables dual export
	MaxSize          int    `json:"max_size"`       // 0 disables the clamp
	PreserveMetadata bool   `json:"preserve_metadata"`
	CreateArchive    bool   `json:"create_archive"`
	JPEGQuality      int    `json:"jpeg_quality"`
	SkipExisting     bool   `json:"skip_existing"`
	DryRun           bool   `json:"dry_run"`
}

// DefaultOutput returns the output spec used when nothing else is configured.
func DefaultOutput() OutputSpec {
	return OutputSpec{
		MaxSize:     1000,
		JPEGQuality: 95,
	}
}

// Validate checks the output invariants.
func (o OutputSpec) Validate() error {
	for _, f := range []Format{o.PrimaryFormat, o.ExtraFormat} {
		if f == "" {
			continue
		}
		if _, ok := formatExtensions[f]; !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
		}
	}
	if o.PrimaryFormat != "" && o.PrimaryFormat == o.ExtraFormat {
		return fmt.Errorf("%w: primary and extra format are both %s", ErrInvalidOutput, o.PrimaryFormat)
	}
	if o.MaxSize < 0 {
		return fmt.Errorf("%w: max size %d is negative", ErrInvalidOutput, o.MaxSize)
	}
	if o.JPEGQuality < 1 || o.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality %d out of range [1,100]", ErrInvalidOutput, o.JPEGQuality)
	}
	return nil
}

// Formats resolves the formats to encode for a source file, primary first.
// The extra format is dropped when it equals the resolved primary format.
func (o OutputSpec) Formats(sourcePath string) ([]Format, error) {
	primary := o.PrimaryFormat
	if primary == "" {
		f, err := FormatFromPath(sourcePath)
		if err != nil {
			return nil, err
		}
		primary = f
	}

	formats := []Format{primary}
	if o.ExtraFormat != "" && o.ExtraFormat != primary {
		formats = append(formats, o.ExtraFormat)
	}
	return formats, nil
}
