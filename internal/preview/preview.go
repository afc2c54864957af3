// Package preview renders a contact sheet showing how the current settings
// look on a few sample images of each orientation.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/image/font/basicfont"

	"github.com/aliskhannn/watermarker/internal/model"
	"github.com/aliskhannn/watermarker/internal/processor"
)

const (
	// MaxSamples is the number of samples per orientation.
	MaxSamples = 3
	// ThumbSize is the largest side of a thumbnail on the sheet.
	ThumbSize = 320

	padding     = 16
	labelHeight = 20
)

// ErrNoSamples is returned when none of the files could be used as a sample.
var ErrNoSamples = errors.New("no sample images available")

// Sample is one rendered image on the sheet.
type Sample struct {
	Path         string
	Width        int // after clamping to the maximum size
	Height       int
	OverlayWidth int
	Image        image.Image
}

// Portrait reports whether the sample is taller than wide.
func (s Sample) Portrait() bool {
	return s.Height > s.Width
}

// Label describes the sample under its thumbnail.
func (s Sample) Label() string {
	orientation := "landscape"
	if s.Portrait() {
		orientation = "portrait"
	}
	return fmt.Sprintf("%s %dx%d, mark %dpx", orientation, s.Width, s.Height, s.OverlayWidth)
}

// Select picks up to MaxSamples landscape (or square) and MaxSamples portrait
// images from files, in order. Orientation is judged after applying the EXIF
// orientation when autoOrient is set, as a batch run does. Files whose header
// cannot be read are skipped.
func Select(files []string, autoOrient bool) (landscape, portrait []string) {
	for _, path := range files {
		if len(landscape) == MaxSamples && len(portrait) == MaxSamples {
			break
		}

		w, h, err := dimensions(path, autoOrient)
		if err != nil {
			zlog.Logger.Debug().Err(err).Str("file", path).Msg("sample skipped")
			continue
		}

		if h > w {
			if len(portrait) < MaxSamples {
				portrait = append(portrait, path)
			}
		} else if len(landscape) < MaxSamples {
			landscape = append(landscape, path)
		}
	}
	return landscape, portrait
}

// Watermark applies the overlay to the image at path exactly like a batch run
// with the same output settings would, without encoding it.
func Watermark(path string, overlay image.Image, p model.PlacementConfig, out model.OutputSpec) (Sample, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Sample{}, &processor.DecodeError{Path: path, Err: err}
	}

	base, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(!out.PreserveMetadata))
	if err != nil {
		return Sample{}, &processor.DecodeError{Path: path, Err: err}
	}

	clamped := processor.Clamp(base, out.MaxSize).Bounds()
	return Sample{
		Path:         path,
		Width:        clamped.Dx(),
		Height:       clamped.Dy(),
		OverlayWidth: processor.OverlayWidth(clamped.Dx(), clamped.Dy(), p),
		Image:        processor.Transform(base, overlay, p, out.MaxSize),
	}, nil
}

// Render builds the contact sheet: landscape samples on the first row,
// portrait samples on the second.
func Render(files []string, overlay image.Image, p model.PlacementConfig, out model.OutputSpec) (image.Image, error) {
	landscape, portrait := Select(files, !out.PreserveMetadata)

	var rows [][]Sample
	for _, group := range [][]string{landscape, portrait} {
		var row []Sample
		for _, path := range group {
			s, err := Watermark(path, overlay, p, out)
			if err != nil {
				zlog.Logger.Warn().Err(err).Str("file", path).Msg("sample skipped")
				continue
			}
			row = append(row, s)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoSamples
	}

	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}

	cell := ThumbSize + padding
	dc := gg.NewContext(cols*cell+padding, len(rows)*(cell+labelHeight)+padding)
	dc.SetRGB(0.15, 0.15, 0.15)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	for r, row := range rows {
		y := padding + r*(cell+labelHeight)
		for c, s := range row {
			x := padding + c*cell
			thumb := imaging.Fit(s.Image, ThumbSize, ThumbSize, imaging.Lanczos)

			dc.DrawImageAnchored(thumb, x+ThumbSize/2, y+ThumbSize/2, 0.5, 0.5)
			dc.SetRGB(0.9, 0.9, 0.9)
			dc.DrawStringAnchored(s.Label(), float64(x+ThumbSize/2), float64(y+ThumbSize+labelHeight/2), 0.5, 0.5)
		}
	}

	return dc.Image(), nil
}

// Save writes the sheet as a PNG file.
func Save(path string, sheet image.Image) error {
	if err := gg.SavePNG(path, sheet); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}

func dimensions(path string, autoOrient bool) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}

	if autoOrient && swapsAxes(f) {
		return cfg.Height, cfg.Width, nil
	}
	return cfg.Width, cfg.Height, nil
}

// swapsAxes reports whether the EXIF orientation of f rotates the image by
// 90 or 270 degrees (orientations 5 to 8).
func swapsAxes(f io.ReadSeeker) bool {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false
	}

	x, err := exif.Decode(f)
	if err != nil {
		return false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return false
	}
	o, err := tag.Int(0)
	if err != nil {
		return false
	}
	return o >= 5 && o <= 8
}
