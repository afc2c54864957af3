package processor

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/aliskhannn/watermarker/internal/model"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func output(primary, extra model.Format) model.OutputSpec {
	o := model.DefaultOutput()
	o.PrimaryFormat = primary
	o.ExtraFormat = extra
	return o
}

func TestRender_DualFormat(t *testing.T) {
	src := encodeJPEG(t, solid(300, 200, white))
	overlay := solid(40, 20, red)

	encoded, err := Render(src, "photo.jpg", overlay, placement(model.AnchorBottomRight, 20, 80, 10), output(model.FormatJPEG, model.FormatPNG))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(encoded) != 2 {
		t.Fatalf("got %d outputs, want 2", len(encoded))
	}

	if encoded[0].Format != model.FormatJPEG {
		t.Errorf("first format = %s, want JPEG", encoded[0].Format)
	}
	if _, err := jpeg.Decode(bytes.NewReader(encoded[0].Data)); err != nil {
		t.Errorf("JPEG output does not decode: %v", err)
	}

	if encoded[1].Format != model.FormatPNG {
		t.Errorf("second format = %s, want PNG", encoded[1].Format)
	}
	img, err := png.Decode(bytes.NewReader(encoded[1].Data))
	if err != nil {
		t.Fatalf("PNG output does not decode: %v", err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 200 {
		t.Errorf("PNG size = %v, want 300x200", img.Bounds().Size())
	}
}

func TestRender_SameAsSource(t *testing.T) {
	src := encodePNG(t, solid(50, 50, white))

	encoded, err := Render(src, "dir/icon.PNG", solid(10, 10, red), placement(model.AnchorCenter, 20, 100, 0), output("", model.FormatPNG))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(encoded) != 1 || encoded[0].Format != model.FormatPNG {
		t.Errorf("got %v, want a single PNG output", formatsOf(encoded))
	}
}

func TestRender_Deterministic(t *testing.T) {
	src := encodePNG(t, solid(120, 80, white))
	p := placement(model.AnchorTopRight, 30, 70, 5)
	out := output(model.FormatPNG, model.FormatJPEG)

	first, err := Render(src, "a.png", solid(30, 30, red), p, out)
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	second, err := Render(src, "a.png", solid(30, 30, red), p, out)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}

	for i := range first {
		if !bytes.Equal(first[i].Data, second[i].Data) {
			t.Errorf("%s output differs between runs", first[i].Format)
		}
	}
}

func TestRender_CorruptSource(t *testing.T) {
	_, err := Render([]byte("definitely not an image"), "broken.jpg", solid(10, 10, red), placement(model.AnchorBottomRight, 20, 80, 0), output("", ""))

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if decodeErr.Path != "broken.jpg" {
		t.Errorf("DecodeError.Path = %q, want broken.jpg", decodeErr.Path)
	}
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, solid(10, 10, white), model.Format("GIF"), 90)

	var encodeErr *EncodeError
	if !errors.As(err, &encodeErr) {
		t.Fatalf("err = %v, want EncodeError", err)
	}
	if !errors.Is(err, model.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestEncode_AllFormats(t *testing.T) {
	img := solid(16, 16, red)
	for _, f := range []model.Format{model.FormatJPEG, model.FormatPNG, model.FormatWEBP, model.FormatTIFF, model.FormatBMP} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, img, f, 90); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, _, err := image.Decode(&buf)
			if err != nil {
				t.Fatalf("output does not decode: %v", err)
			}
			if decoded.Bounds().Dx() != 16 {
				t.Errorf("width = %d, want 16", decoded.Bounds().Dx())
			}
		})
	}
}

func formatsOf(encoded []Encoded) []model.Format {
	formats := make([]model.Format, len(encoded))
	for i, e := range encoded {
		formats[i] = e.Format
	}
	return formats
}
