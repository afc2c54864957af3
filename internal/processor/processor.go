package processor

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/aliskhannn/watermarker/internal/model"
)

// fileStorage defines the interface for file storage.
// Source files are loaded from one storage and outputs are saved to another.
type fileStorage interface {
	Save(subdir, filename string, src io.Reader) (string, error)
	Load(subdir, filename string) (io.ReadCloser, error)
	Exists(subdir, filename string) bool
	Delete(subdir, filename string) error
}

// Processor executes watermark jobs: it loads the source image, renders the
// watermarked outputs and writes them next to each other in the destination.
type Processor struct {
	source fileStorage
	dest   fileStorage
}

// New creates a new Processor reading from source and writing to dest.
func New(source, dest fileStorage) *Processor {
	return &Processor{source: source, dest: dest}
}

// Process runs one job and always returns exactly one outcome.
// Errors never escape: they are recorded in the outcome.
func (p *Processor) Process(job model.WatermarkJob) model.JobOutcome {
	start := time.Now()

	outcome := p.process(job)
	outcome.Duration = time.Since(start)

	return outcome
}

func (p *Processor) process(job model.WatermarkJob) model.JobOutcome {
	subdir, name := filepath.Dir(job.OutputBase), filepath.Base(job.OutputBase)

	formats, err := job.Output.Formats(job.SourcePath)
	if err != nil {
		return model.Failed(job, &EncodeError{Err: err})
	}

	// Skip when an output from a previous run is already present.
	if job.Output.SkipExisting && !job.Output.DryRun {
		for _, f := range formats {
			if p.dest.Exists(subdir, name+f.Extension()) {
				return model.Skipped(job, model.ReasonExists)
			}
		}
	}

	// Load the original image.
	src, err := p.load(job.RelativePath)
	if err != nil {
		return model.Failed(job, &DecodeError{Path: job.SourcePath, Err: err})
	}

	// Decode, watermark and encode in every requested format.
	encoded, err := Render(src, job.SourcePath, job.Overlay, job.Placement, job.Output)
	if err != nil {
		return model.Failed(job, err)
	}

	if job.Output.DryRun {
		outcome := model.Succeeded(job, nil)
		outcome.SourceBytes = int64(len(src))
		return outcome
	}

	// Save every encoded version.
	outputs := make([]string, 0, len(encoded))
	var written int64
	for i, enc := range encoded {
		dst, err := p.dest.Save(subdir, name+enc.Format.Extension(), bytes.NewReader(enc.Data))
		if err != nil {
			// A failed job leaves no outputs behind.
			for _, prev := range encoded[:i] {
				_ = p.dest.Delete(subdir, name+prev.Format.Extension())
			}
			return model.Failed(job, fmt.Errorf("failed to save %s output: %w", enc.Format, err))
		}

		outputs = append(outputs, dst)
		written += int64(len(enc.Data))
	}

	outcome := model.Succeeded(job, outputs)
	outcome.SourceBytes = int64(len(src))
	outcome.WrittenBytes = written

	return outcome
}

func (p *Processor) load(relPath string) ([]byte, error) {
	r, err := p.source.Load(filepath.Dir(relPath), filepath.Base(relPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load original image: %w", err)
	}
	defer r.Close()

	return io.ReadAll(r)
}
