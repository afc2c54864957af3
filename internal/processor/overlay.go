package processor

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrOverlayNotPNG is returned when the overlay file is not a PNG.
var ErrOverlayNotPNG = errors.New("watermark must be a PNG file")

// LoadOverlay decodes the watermark image once for a whole batch. The returned
// image is shared by all workers and must not be modified.
func LoadOverlay(path string) (image.Image, error) {
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return nil, fmt.Errorf("%w: %s", ErrOverlayNotPNG, path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	// Normalize to NRGBA so every worker reads the same pixel layout.
	return imaging.Clone(img), nil
}
