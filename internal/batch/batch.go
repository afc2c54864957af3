// Package batch watermarks a directory of images with a fixed-size worker
// pool and collects exactly one outcome per input file.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/watermarker/internal/archive"
	"github.com/aliskhannn/watermarker/internal/discover"
	"github.com/aliskhannn/watermarker/internal/model"
	"github.com/aliskhannn/watermarker/internal/progress"
	"github.com/aliskhannn/watermarker/internal/report"
)

// ErrNoOverlay is returned when a batch is planned without a watermark.
var ErrNoOverlay = errors.New("watermark image not loaded")

// jobProcessor runs a single job and always returns its outcome.
type jobProcessor interface {
	Process(job model.WatermarkJob) model.JobOutcome
}

// Options is the immutable configuration of one batch run.
// InputDir and OutputDir must come from ResolvePaths.
type Options struct {
	RunID      uuid.UUID
	InputDir   string
	OutputDir  string
	Overlay    image.Image // shared read-only by every worker
	Placement  model.PlacementConfig
	Output     model.OutputSpec
	Workers    int
	Recurse    bool
	Extensions []string
}

// Result is what a finished run hands back to the caller.
type Result struct {
	Summary  report.Summary
	Outcomes []model.JobOutcome
}

// Batch plans and runs one batch.
type Batch struct {
	opts      Options
	proc      jobProcessor
	sink      progress.Sink
	cancelled atomic.Bool
	done      chan struct{}
}

// New creates a batch. A nil sink discards notifications.
func New(opts Options, proc jobProcessor, sink progress.Sink) *Batch {
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if sink == nil {
		sink = progress.Multi{}
	}

	return &Batch{opts: opts, proc: proc, sink: sink, done: make(chan struct{})}
}

// RunID returns the identifier of the run.
func (b *Batch) RunID() uuid.UUID {
	return b.opts.RunID
}

// Cancel requests cooperative cancellation: jobs already handed to a worker
// finish, no new job is dispatched. It is safe to call more than once and
// from any goroutine.
func (b *Batch) Cancel() {
	if b.cancelled.CompareAndSwap(false, true) {
		close(b.done)
	}
}

// Cancelled reports whether Cancel has been called.
func (b *Batch) Cancelled() bool {
	return b.cancelled.Load()
}

// Plan enumerates the input directory and builds one job per image.
// Outputs mirror the relative layout of the inputs. Images that would map to
// the same output name (a.jpg and a.png) keep their source extension in it;
// any name still taken gets a numeric suffix, so no output is written twice.
func (b *Batch) Plan() ([]model.WatermarkJob, error) {
	if b.opts.Overlay == nil {
		return nil, ErrNoOverlay
	}

	files, err := discover.Images(b.opts.InputDir, b.opts.Recurse, b.opts.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, b.opts.InputDir)
	}

	rels := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(b.opts.InputDir, f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		rels[i] = rel
	}
	bases := outputBases(rels, b.opts.Output)

	jobs := make([]model.WatermarkJob, 0, len(files))
	for i, f := range files {
		jobs = append(jobs, model.WatermarkJob{
			ID:           uuid.New(),
			SourcePath:   f,
			RelativePath: rels[i],
			OutputBase:   bases[i],
			Overlay:      b.opts.Overlay,
			Placement:    b.opts.Placement,
			Output:       b.opts.Output,
		})
	}

	return jobs, nil
}

// outputBases picks the output base of every relative source path. Names are
// compared case-insensitively on the final base plus extension of every
// format the source will be written in.
func outputBases(rels []string, out model.OutputSpec) []string {
	stems := make(map[string]int, len(rels))
	for _, rel := range rels {
		stems[strings.ToLower(trimExt(rel))]++
	}

	taken := make(map[string]bool, len(rels))
	bases := make([]string, len(rels))
	for i, rel := range rels {
		stem := trimExt(rel)
		if stems[strings.ToLower(stem)] > 1 {
			stem += "_" + strings.ToLower(strings.TrimPrefix(filepath.Ext(rel), "."))
		}

		var exts []string
		if formats, err := out.Formats(rel); err == nil {
			for _, f := range formats {
				exts = append(exts, f.Extension())
			}
		} else {
			// The job fails before writing; its base is still reserved.
			exts = []string{""}
		}

		base := stem
		for n := 2; clash(taken, base, exts); n++ {
			base = fmt.Sprintf("%s_%d", stem, n)
		}
		for _, ext := range exts {
			taken[strings.ToLower(base+ext)] = true
		}
		bases[i] = base
	}

	return bases
}

func clash(taken map[string]bool, base string, exts []string) bool {
	for _, ext := range exts {
		if taken[strings.ToLower(base+ext)] {
			return true
		}
	}
	return false
}

// Run processes the jobs and blocks until every job has an outcome. Cancelling
// ctx has the same effect as Cancel. Afterwards the outputs are archived when
// requested and the processing log is written to the output directory.
func (b *Batch) Run(ctx context.Context, jobs []model.WatermarkJob) Result {
	stop := context.AfterFunc(ctx, b.Cancel)
	defer stop()

	sources := make([]string, len(jobs))
	for i, job := range jobs {
		sources[i] = job.SourcePath
	}
	rep := report.New(b.opts.RunID, sources, b.opts.Output.DryRun)

	jobCh := make(chan model.WatermarkJob)
	results := make(chan model.JobOutcome)

	var g errgroup.Group
	g.Go(func() error {
		b.dispatch(jobs, jobCh, results)
		return nil
	})
	for range min(b.opts.Workers, max(len(jobs), 1)) {
		g.Go(func() error {
			b.work(jobCh, results)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	// Outcomes are aggregated here, on a single goroutine.
	for o := range results {
		if err := rep.Add(o); err != nil {
			zlog.Logger.Err(err).Msg("outcome ignored")
			continue
		}
		b.sink.OnOutcome(o, rep.Counts(), rep.Total())
	}

	summary := rep.Summary()
	if !b.opts.Output.DryRun {
		if b.opts.Output.CreateArchive {
			path, err := archive.Create(b.opts.OutputDir, rep.Outputs(), time.Now())
			if err != nil {
				summary.ArchiveError = err.Error()
			}
			summary.Archive = path
		}

		path, err := rep.SaveCSV(b.opts.OutputDir)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to write processing log")
		}
		summary.LogFile = path
	}
	summary.Elapsed = time.Since(summary.StartedAt)

	b.sink.OnSummary(summary)

	return Result{Summary: summary, Outcomes: rep.Outcomes()}
}

// dispatch hands jobs to the workers one at a time. After cancellation the
// remaining jobs are reported as skipped instead of dispatched.
func (b *Batch) dispatch(jobs []model.WatermarkJob, jobCh chan<- model.WatermarkJob, results chan<- model.JobOutcome) {
	defer close(jobCh)

	for i, job := range jobs {
		if b.Cancelled() {
			skipAll(jobs[i:], results)
			return
		}

		select {
		case jobCh <- job:
		case <-b.done:
			skipAll(jobs[i:], results)
			return
		}
	}
}

// work processes jobs until jobCh is closed. A job received after
// cancellation is reported as skipped without being started.
func (b *Batch) work(jobCh <-chan model.WatermarkJob, results chan<- model.JobOutcome) {
	for job := range jobCh {
		if b.Cancelled() {
			results <- model.Skipped(job, model.ReasonCancelled)
			continue
		}
		results <- b.proc.Process(job)
	}
}

func skipAll(jobs []model.WatermarkJob, results chan<- model.JobOutcome) {
	for _, job := range jobs {
		results <- model.Skipped(job, model.ReasonCancelled)
	}
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
