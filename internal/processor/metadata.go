package processor

import (
	"bytes"
	"fmt"

	dsexif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/watermarker/internal/model"
)

// maxAPP1Payload is the largest EXIF block a single JPEG APP1 segment can hold.
const maxAPP1Payload = 0xFFFF - 2 - 6

// ExtractEXIF returns the TIFF-structured EXIF block of a JPEG source, or nil
// if the source carries none or is not a JPEG.
func ExtractEXIF(src []byte, sourcePath string) []byte {
	if f, err := model.FormatFromPath(sourcePath); err != nil || f != model.FormatJPEG {
		return nil
	}

	x, err := exif.Decode(bytes.NewReader(src))
	if err != nil || len(x.Raw) == 0 {
		return nil
	}

	return x.Raw
}

// EmbedEXIF inserts the EXIF block into an encoded JPEG (APP1 segment) or PNG
// (eXIf chunk). Other formats, blocks that do not fit and blocks that cannot
// be parsed leave the output as is.
func EmbedEXIF(encoded []byte, f model.Format, exifData []byte) []byte {
	if !f.SupportsMetadata() || len(exifData) == 0 || len(exifData) > maxAPP1Payload {
		return encoded
	}

	ib, err := ifdBuilder(exifData)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("metadata dropped")
		return encoded
	}

	var out []byte
	if f == model.FormatJPEG {
		out, err = embedJPEG(encoded, ib)
	} else {
		out, err = embedPNG(encoded, ib)
	}
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("format", string(f)).Msg("metadata dropped")
		return encoded
	}

	return out
}

// ifdBuilder parses a TIFF-structured EXIF block into an editable IFD chain.
func ifdBuilder(exifData []byte) (*dsexif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("failed to load ifd mapping: %w", err)
	}

	_, index, err := dsexif.Collect(im, dsexif.NewTagIndex(), exifData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse exif: %w", err)
	}

	return dsexif.NewIfdBuilderFromExistingChain(index.RootIfd), nil
}

func embedJPEG(encoded []byte, ib *dsexif.IfdBuilder) ([]byte, error) {
	mc, err := jpegstructure.NewJpegMediaParser().ParseBytes(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jpeg: %w", err)
	}

	sl := mc.(*jpegstructure.SegmentList)
	if err := sl.SetExif(ib); err != nil {
		return nil, fmt.Errorf("failed to set exif: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := sl.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func embedPNG(encoded []byte, ib *dsexif.IfdBuilder) ([]byte, error) {
	mc, err := pngstructure.NewPngMediaParser().ParseBytes(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse png: %w", err)
	}

	cs := mc.(*pngstructure.ChunkSlice)
	if err := cs.SetExif(ib); err != nil {
		return nil, fmt.Errorf("failed to set exif: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := cs.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write png: %w", err)
	}
	return buf.Bytes(), nil
}
