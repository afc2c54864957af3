package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the WebP decoder

	"github.com/aliskhannn/watermarker/internal/model"
)

// DecodeError reports a source image that could not be read or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports an output that could not be encoded.
type EncodeError struct {
	Format model.Format
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("failed to encode image: %v", e.Err)
	}
	return fmt.Sprintf("failed to encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Encoded is one encoded output buffer.
type Encoded struct {
	Format model.Format
	Data   []byte
}

// Render is the whole per-image transform: it decodes src, applies the
// overlay and encodes the result in every format requested by out.
// sourcePath is used to resolve "same as source" and for error messages.
func Render(src []byte, sourcePath string, overlay image.Image, p model.PlacementConfig, out model.OutputSpec) ([]Encoded, error) {
	formats, err := out.Formats(sourcePath)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}

	base, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(!out.PreserveMetadata))
	if err != nil {
		return nil, &DecodeError{Path: sourcePath, Err: err}
	}

	var exifData []byte
	if out.PreserveMetadata {
		exifData = ExtractEXIF(src, sourcePath)
	}

	marked := Transform(base, overlay, p, out.MaxSize)

	encoded := make([]Encoded, 0, len(formats))
	for _, f := range formats {
		buf := new(bytes.Buffer)
		if err := Encode(buf, marked, f, out.JPEGQuality); err != nil {
			return nil, err
		}

		data := buf.Bytes()
		if exifData != nil && f.SupportsMetadata() {
			data = EmbedEXIF(data, f, exifData)
		}

		encoded = append(encoded, Encoded{Format: f, Data: data})
	}

	return encoded, nil
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f model.Format, jpegQuality int) error {
	var err error
	switch f {
	case model.FormatJPEG:
		err = imaging.Encode(w, flatten(img), imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	case model.FormatPNG:
		err = imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case model.FormatTIFF:
		err = imaging.Encode(w, img, imaging.TIFF)
	case model.FormatBMP:
		err = imaging.Encode(w, img, imaging.BMP)
	case model.FormatWEBP:
		err = nativewebp.Encode(w, img, nil)
	default:
		err = model.ErrUnsupportedFormat
	}
	if err != nil {
		return &EncodeError{Format: f, Err: err}
	}

	return nil
}

// flatten drops the alpha channel, keeping the stored colors, since JPEG has
// no transparency.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = 255
		return c
	})
}
