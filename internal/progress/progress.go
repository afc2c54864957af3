// Package progress delivers batch notifications to interested front ends.
package progress

import (
	"github.com/aliskhannn/watermarker/internal/model"
	"github.com/aliskhannn/watermarker/internal/report"
)

// Sink receives one notification per completed job and a final summary.
// Calls are made from a single goroutine.
type Sink interface {
	OnOutcome(o model.JobOutcome, counts report.Counts, total int)
	OnSummary(s report.Summary)
}

// Multi fans notifications out to every sink in order.
type Multi []Sink

// OnOutcome implements Sink.
func (m Multi) OnOutcome(o model.JobOutcome, counts report.Counts, total int) {
	for _, s := range m {
		s.OnOutcome(o, counts, total)
	}
}

// OnSummary implements Sink.
func (m Multi) OnSummary(sum report.Summary) {
	for _, s := range m {
		s.OnSummary(sum)
	}
}
