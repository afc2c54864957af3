// Package discover enumerates the image files of an input directory.
package discover

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wb-go/wbf/zlog"
)

const (
	// MaxDepth is the deepest subdirectory level searched below the root.
	MaxDepth = 50
	// MaxFiles caps the size of a single batch.
	MaxFiles = 5000
)

// DefaultExtensions are the image extensions accepted when none are given.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".tif", ".tiff", ".bmp"}

// Images walks root and returns the files whose extension is in exts
// (case-insensitive), sorted lexicographically for a deterministic order.
// Subdirectories are searched only when recurse is set. Hidden files and
// directories are ignored.
func Images(root string, recurse bool, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	accepted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		accepted[ext] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !recurse || depth(root, path) >= MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if accepted[strings.ToLower(filepath.Ext(path))] && d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)

	if len(files) > MaxFiles {
		zlog.Logger.Warn().
			Int("found", len(files)).
			Int("limit", MaxFiles).
			Msg("reached maximum batch size, extra files are ignored")
		files = files[:MaxFiles]
	}

	return files, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
