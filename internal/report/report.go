// Package report aggregates job outcomes into counts, per-file records and a
// run summary.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/watermarker/internal/model"
)

var (
	// ErrDuplicateOutcome is returned when a second outcome arrives for a file.
	ErrDuplicateOutcome = errors.New("duplicate outcome")
	// ErrUnknownSource is returned for an outcome of a file that is not part of the batch.
	ErrUnknownSource = errors.New("outcome for unknown source")
)

// DryRunOutput is recorded as the output of files processed in dry-run mode.
const DryRunOutput = "DRY RUN"

// Counts holds the running totals per status.
type Counts struct {
	Success int `json:"success"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Done returns the number of outcomes counted so far.
func (c Counts) Done() int {
	return c.Success + c.Skipped + c.Failed
}

// Record is one row of the processing log.
type Record struct {
	Timestamp  time.Time
	SourceFile string
	OutputFile string
	Status     model.Status
	Error      string
}

// Reporter consumes the outcomes of one batch. It is not safe for concurrent
// use: outcomes are fed to it from a single goroutine.
type Reporter struct {
	runID    uuid.UUID
	started  time.Time
	dryRun   bool
	expected map[string]bool
	outcomes map[string]model.JobOutcome
	order    []string
	counts   Counts
}

// New creates a Reporter for a batch over sources.
func New(runID uuid.UUID, sources []string, dryRun bool) *Reporter {
	expected := make(map[string]bool, len(sources))
	for _, s := range sources {
		expected[s] = true
	}

	return &Reporter{
		runID:    runID,
		started:  time.Now(),
		dryRun:   dryRun,
		expected: expected,
		outcomes: make(map[string]model.JobOutcome, len(sources)),
	}
}

// Add records an outcome. Every source is attributed exactly one outcome;
// duplicates and unknown sources are rejected and not counted.
func (r *Reporter) Add(o model.JobOutcome) error {
	if !r.expected[o.SourcePath] {
		return fmt.Errorf("%w: %s", ErrUnknownSource, o.SourcePath)
	}
	if _, ok := r.outcomes[o.SourcePath]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOutcome, o.SourcePath)
	}

	r.outcomes[o.SourcePath] = o
	r.order = append(r.order, o.SourcePath)

	switch o.Status {
	case model.StatusSuccess:
		r.counts.Success++
	case model.StatusSkipped:
		r.counts.Skipped++
	default:
		r.counts.Failed++
	}

	return nil
}

// Counts returns the running totals.
func (r *Reporter) Counts() Counts {
	return r.counts
}

// Total returns the number of files in the batch.
func (r *Reporter) Total() int {
	return len(r.expected)
}

// Missing returns the sources that have no outcome yet, sorted.
func (r *Reporter) Missing() []string {
	var missing []string
	for s := range r.expected {
		if _, ok := r.outcomes[s]; !ok {
			missing = append(missing, s)
		}
	}
	sort.Strings(missing)
	return missing
}

// Outcomes returns the outcomes in arrival order.
func (r *Reporter) Outcomes() []model.JobOutcome {
	out := make([]model.JobOutcome, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, r.outcomes[s])
	}
	return out
}

// Outputs returns every file written by successful jobs, sorted.
func (r *Reporter) Outputs() []string {
	var files []string
	for _, o := range r.outcomes {
		if o.Status == model.StatusSuccess {
			files = append(files, o.Outputs...)
		}
	}
	sort.Strings(files)
	return files
}

// Records returns one log record per file, ordered by source path.
func (r *Reporter) Records() []Record {
	records := make([]Record, 0, len(r.outcomes))
	for _, o := range r.outcomes {
		rec := Record{
			Timestamp:  o.FinishedAt,
			SourceFile: o.SourcePath,
			OutputFile: strings.Join(o.Outputs, ";"),
			Status:     o.Status,
			Error:      o.Reason,
		}
		if r.dryRun && o.Status == model.StatusSuccess {
			rec.OutputFile = DryRunOutput
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SourceFile < records[j].SourceFile
	})
	return records
}
