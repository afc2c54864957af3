// Package archive bundles the outputs of a batch into a single ZIP file.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// CompressionLevel is the deflate level used for archive entries.
const CompressionLevel = 6

// ErrNothingToArchive is returned when no files are given.
var ErrNothingToArchive = errors.New("no files to archive")

// Name returns the archive file name for a batch finished at t.
func Name(t time.Time) string {
	return fmt.Sprintf("watermarked_batch_%s.zip", t.Format("20060102_150405"))
}

// Create writes the files into a new archive in root and returns its path.
// Entries are named by their path relative to root. Files outside root are
// stored under their base name. On failure no partial archive is left behind.
func Create(root string, files []string, t time.Time) (string, error) {
	if len(files) == 0 {
		return "", ErrNothingToArchive
	}

	path := filepath.Join(root, Name(t))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	if err := write(f, root, files); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close archive: %w", err)
	}

	return path, nil
}

func write(w io.Writer, root string, files []string) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, CompressionLevel)
	})

	for _, file := range files {
		if err := add(zw, root, file); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func add(zw *zip.Writer, root, file string) error {
	src, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", file, err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", file, err)
	}
	hdr.Name = entryName(root, file)
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", hdr.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to compress %s: %w", hdr.Name, err)
	}

	return nil
}

func entryName(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(file)
	}
	return filepath.ToSlash(rel)
}
