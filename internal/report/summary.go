package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/aliskhannn/watermarker/internal/model"
)

// Summary describes a finished batch.
type Summary struct {
	RunID        uuid.UUID     `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	Elapsed      time.Duration `json:"elapsed"`
	Total        int           `json:"total"`
	Counts       Counts        `json:"counts"`
	SourceBytes  int64         `json:"source_bytes"`
	WrittenBytes int64         `json:"written_bytes"`
	MeanJob      time.Duration `json:"mean_job"`
	P95Job       time.Duration `json:"p95_job"`
	DryRun       bool          `json:"dry_run"`
	Cancelled    bool          `json:"cancelled"`
	LogFile      string        `json:"log_file,omitempty"`
	Archive      string        `json:"archive,omitempty"`
	ArchiveError string        `json:"archive_error,omitempty"`
}

// Succeeded reports whether no job failed.
func (s Summary) Succeeded() bool {
	return s.Counts.Failed == 0
}

// Summary computes the summary of the outcomes received so far.
func (r *Reporter) Summary() Summary {
	s := Summary{
		RunID:     r.runID,
		StartedAt: r.started,
		Elapsed:   time.Since(r.started),
		Total:     r.Total(),
		Counts:    r.counts,
		DryRun:    r.dryRun,
	}

	var durations []float64
	for _, o := range r.outcomes {
		s.SourceBytes += o.SourceBytes
		s.WrittenBytes += o.WrittenBytes
		if o.Status == model.StatusSkipped && o.Reason == model.ReasonCancelled {
			s.Cancelled = true
		}
		if o.Status != model.StatusSkipped {
			durations = append(durations, o.Duration.Seconds())
		}
	}

	if len(durations) > 0 {
		sort.Float64s(durations)
		s.MeanJob = seconds(stat.Mean(durations, nil))
		s.P95Job = seconds(stat.Quantile(0.95, stat.Empirical, durations, nil))
	}

	return s
}

// String renders the summary for humans.
func (s Summary) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Processed %d of %d files in %s: %d succeeded, %d skipped, %d failed",
		s.Counts.Done(), s.Total, s.Elapsed.Round(time.Millisecond),
		s.Counts.Success, s.Counts.Skipped, s.Counts.Failed)
	if s.DryRun {
		b.WriteString(" (dry run)")
	}
	if s.Cancelled {
		b.WriteString(" (cancelled)")
	}

	if s.WrittenBytes > 0 {
		fmt.Fprintf(&b, "\nRead %s, wrote %s", humanize.Bytes(uint64(s.SourceBytes)), humanize.Bytes(uint64(s.WrittenBytes)))
	}
	if s.MeanJob > 0 {
		fmt.Fprintf(&b, "\nPer image: mean %s, p95 %s", s.MeanJob.Round(time.Millisecond), s.P95Job.Round(time.Millisecond))
	}
	if s.Archive != "" {
		fmt.Fprintf(&b, "\nArchive: %s", s.Archive)
	}
	if s.ArchiveError != "" {
		fmt.Fprintf(&b, "\nWarning: archive not created: %s", s.ArchiveError)
	}
	if s.LogFile != "" {
		fmt.Fprintf(&b, "\nLog: %s", s.LogFile)
	}

	return b.String()
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}
