package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInputDir is returned when the input directory is missing or not a directory.
	ErrInputDir = errors.New("invalid input directory")
	// ErrOutputDir is returned when the output directory cannot be used.
	ErrOutputDir = errors.New("invalid output directory")
	// ErrOutputInsideInput is returned when the output directory equals or is
	// nested inside the input directory.
	ErrOutputInsideInput = errors.New("output directory must not be inside input directory")
	// ErrNoImages is returned when the input directory holds no supported image.
	ErrNoImages = errors.New("no images found")
)

// ResolvePaths validates the input and output directories and returns them
// as absolute, symlink-resolved paths. The output directory is created when
// missing unless dryRun is set.
func ResolvePaths(input, output string, dryRun bool) (string, string, error) {
	if input == "" {
		return "", "", fmt.Errorf("%w: not set", ErrInputDir)
	}
	if output == "" {
		return "", "", fmt.Errorf("%w: not set", ErrOutputDir)
	}

	inputAbs, err := absPath(input)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInputDir, err)
	}
	if info, err := os.Stat(inputAbs); err != nil || !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s is not a directory", ErrInputDir, input)
	}

	// Check nesting before anything is created inside the input tree.
	outputAbs, err := resolveMissing(output)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	if err := CheckNesting(inputAbs, outputAbs); err != nil {
		return "", "", err
	}

	if !dryRun {
		if err := os.MkdirAll(outputAbs, 0o755); err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrOutputDir, err)
		}
	}

	return inputAbs, outputAbs, nil
}

// CheckNesting reports ErrOutputInsideInput when outputAbs equals or lies
// below inputAbs. Both paths must be absolute and clean.
func CheckNesting(inputAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == inputAbs || strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return fmt.Errorf("%w: %s", ErrOutputInsideInput, outputAbs)
	}
	return nil
}

// absPath returns the absolute path with symlinks resolved.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// resolveMissing resolves symlinks of the longest existing prefix of path and
// appends the missing components.
func resolveMissing(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	var missing []string
	for dir := abs; ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			parts := append([]string{resolved}, missing...)
			return filepath.Join(parts...), nil
		}
		if filepath.Dir(dir) == dir {
			return abs, nil
		}
		missing = append([]string{filepath.Base(dir)}, missing...)
	}
}
