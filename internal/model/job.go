package model

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// Status is the terminal state of a job.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusSkipped Status = "SKIPPED"
	StatusFailed  Status = "FAILED"
)

// Reasons recorded on skipped outcomes.
const (
	ReasonExists    = "file exists"
	ReasonCancelled = "cancelled"
)

// WatermarkJob is the unit of work handed to a worker. It is built once per
// input file and never modified afterwards.
type WatermarkJob struct {
	ID           uuid.UUID
	SourcePath   string
	RelativePath string // source path relative to the input root
	OutputBase   string // relative output path without extension, e.g. "sub/a"
	Overlay      image.Image
	Placement    PlacementConfig
	Output       OutputSpec
}

// JobOutcome is the result of processing one WatermarkJob.
type JobOutcome struct {
	JobID        uuid.UUID     `json:"job_id"`
	SourcePath   string        `json:"source_file"`
	Status       Status        `json:"status"`
	Reason       string        `json:"error,omitempty"` // human-readable when not Success
	Outputs      []string      `json:"outputs,omitempty"`
	SourceBytes  int64         `json:"source_bytes"`
	WrittenBytes int64         `json:"written_bytes"`
	Duration     time.Duration `json:"duration"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// Succeeded builds a success outcome for job.
func Succeeded(job WatermarkJob, outputs []string) JobOutcome {
	return JobOutcome{
		JobID:      job.ID,
		SourcePath: job.SourcePath,
		Status:     StatusSuccess,
		Outputs:    outputs,
		FinishedAt: time.Now(),
	}
}

// Skipped builds a skipped outcome for job with the given reason.
func Skipped(job WatermarkJob, reason string) JobOutcome {
	return JobOutcome{
		JobID:      job.ID,
		SourcePath: job.SourcePath,
		Status:     StatusSkipped,
		Reason:     reason,
		FinishedAt: time.Now(),
	}
}

// Failed builds a failed outcome for job from err.
func Failed(job WatermarkJob, err error) JobOutcome {
	return JobOutcome{
		JobID:      job.ID,
		SourcePath: job.SourcePath,
		Status:     StatusFailed,
		Reason:     err.Error(),
		FinishedAt: time.Now(),
	}
}
