package progress

import (
	"time"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/time/rate"

	"github.com/aliskhannn/watermarker/internal/model"
	"github.com/aliskhannn/watermarker/internal/report"
)

// Log writes outcomes and the summary to the application logger. Failures
// are always logged; the running progress line is limited to one per interval.
type Log struct {
	limiter *rate.Limiter
}

// NewLog creates a log sink printing progress at most once per interval.
func NewLog(interval time.Duration) *Log {
	return &Log{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// OnOutcome implements Sink.
func (l *Log) OnOutcome(o model.JobOutcome, counts report.Counts, total int) {
	switch o.Status {
	case model.StatusFailed:
		zlog.Logger.Error().
			Str("file", o.SourcePath).
			Str("error", o.Reason).
			Msg("failed to watermark image")
	case model.StatusSkipped:
		zlog.Logger.Debug().
			Str("file", o.SourcePath).
			Str("reason", o.Reason).
			Msg("image skipped")
	default:
		zlog.Logger.Debug().
			Str("file", o.SourcePath).
			Strs("outputs", o.Outputs).
			Dur("took", o.Duration).
			Msg("image watermarked")
	}

	if counts.Done() == total || l.limiter.Allow() {
		zlog.Logger.Info().
			Int("done", counts.Done()).
			Int("total", total).
			Int("failed", counts.Failed).
			Msg("progress")
	}
}

// OnSummary implements Sink.
func (l *Log) OnSummary(s report.Summary) {
	if s.ArchiveError != "" {
		zlog.Logger.Warn().Str("error", s.ArchiveError).Msg("archive not created")
	}

	zlog.Logger.Info().
		Str("run", s.RunID.String()).
		Int("success", s.Counts.Success).
		Int("skipped", s.Counts.Skipped).
		Int("failed", s.Counts.Failed).
		Dur("elapsed", s.Elapsed).
		Bool("dry_run", s.DryRun).
		Msg("batch finished")
}
